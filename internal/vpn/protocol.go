package vpn

import (
	"fmt"
	"strings"
)

// TransportProtocol is the transport a tunnel runs over.
type TransportProtocol uint8

// The zero value is not a protocol. New variants go before transportProtocolEnd.
const (
	UDP TransportProtocol = iota + 1
	TCP
	transportProtocolEnd
)

// TransportProtocolCount is the number of TransportProtocol variants.
// Conversions that map the enum pin this value at compile time.
const TransportProtocolCount = int(transportProtocolEnd) - 1

// Valid reports whether p is a known protocol.
func (p TransportProtocol) Valid() bool {
	return p >= UDP && p < transportProtocolEnd
}

func (p TransportProtocol) String() string {
	switch p {
	case UDP:
		return "udp"
	case TCP:
		return "tcp"
	default:
		return fmt.Sprintf("TransportProtocol(%d)", uint8(p))
	}
}

// ParseTransportProtocol parses "udp" or "tcp", case-insensitively.
// OpenVPN's family-suffixed forms ("udp4", "tcp6-client") are accepted too.
func ParseTransportProtocol(raw string) (TransportProtocol, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case value == "udp", value == "udp4", value == "udp6":
		return UDP, nil
	case strings.HasPrefix(value, "tcp"):
		rest := strings.TrimLeft(strings.TrimPrefix(value, "tcp"), "46")
		if rest == "" || rest == "-client" {
			return TCP, nil
		}
	}
	return 0, fmt.Errorf("unsupported transport protocol %q", raw)
}

// Constraint is either "any value" or "only this value". The zero value is Any.
type Constraint[T comparable] struct {
	value T
	only  bool
}

// Any returns an unconstrained Constraint.
func Any[T comparable]() Constraint[T] {
	return Constraint[T]{}
}

// Only returns a Constraint restricted to value.
func Only[T comparable](value T) Constraint[T] {
	return Constraint[T]{value: value, only: true}
}

// IsAny reports whether the constraint is unrestricted.
func (c Constraint[T]) IsAny() bool {
	return !c.only
}

// Value returns the restricted value and true, or the zero value and false for Any.
func (c Constraint[T]) Value() (T, bool) {
	return c.value, c.only
}

func (c Constraint[T]) String() string {
	if !c.only {
		return "any"
	}
	return fmt.Sprintf("only %v", c.value)
}
