// Package bridge converts between the daemon's domain types and the
// management interface wire schema.
//
// Domain to wire conversions cannot fail for valid domain values; an invalid
// domain value is a daemon bug and panics. Wire to domain conversions handle
// input from another process: they never panic and report every problem as
// an *Error naming the offending field.
//
// All functions are pure and safe for concurrent use.
package bridge

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	// ErrMissingVariant means a discriminated value had zero or several variants set.
	ErrMissingVariant = errors.New("missing or ambiguous variant")
	// ErrUnknownProtocol means a protocol discriminant is outside the known values.
	ErrUnknownProtocol = errors.New("unknown protocol")
	// ErrInvalidAddress means an address, endpoint or network string did not parse.
	ErrInvalidAddress = errors.New("invalid address or endpoint")
	// ErrInvalidKeyLength means key material was not exactly one key long.
	ErrInvalidKeyLength = errors.New("invalid key length")
	// ErrMissingField means a required sub-message was absent.
	ErrMissingField = errors.New("missing field")
)

// Error is a rejected wire value.
type Error struct {
	// Kind is one of the Err* sentinels above.
	Kind error
	// Field is the dotted path of the offending wire field, e.g. "wireguard.peer.endpoint".
	Field string
	// Err is the underlying parse failure, if any.
	Err error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindName returns a stable identifier for the kind of err, for use in wire
// rejections. It returns "" when err is not a conversion error.
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrMissingVariant):
		return "missing_variant"
	case errors.Is(err, ErrUnknownProtocol):
		return "unknown_protocol"
	case errors.Is(err, ErrInvalidAddress):
		return "invalid_address"
	case errors.Is(err, ErrInvalidKeyLength):
		return "invalid_key_length"
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	default:
		return ""
	}
}

// FieldOf returns the wire field recorded in err, or "".
func FieldOf(err error) string {
	var convErr *Error
	if errors.As(err, &convErr) {
		return convErr.Field
	}
	return ""
}

func fieldError(kind error, field string, cause error) *Error {
	return &Error{Kind: kind, Field: field, Err: cause}
}

func indexed(field string, i int) string {
	return fmt.Sprintf("%s[%d]", field, i)
}
