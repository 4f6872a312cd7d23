package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"vpnd/internal/bridge"
	"vpnd/internal/mgmt"
	"vpnd/internal/profiles"
	"vpnd/internal/vpn"
)

const contentTypeCBOR = "application/cbor"

// writeResponse wraps data in a successful envelope. nil data leaves the
// data field absent.
func writeResponse(w http.ResponseWriter, status int, data any) {
	resp := mgmt.Response{OK: true}
	if data != nil {
		encoded, err := mgmt.Marshal(data)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Errorf("encode response: %w", err))
			return
		}
		resp.Data = encoded
	}
	writeEnvelope(w, status, resp)
}

// writeError reports err in a failed envelope. Conversion errors carry
// their kind and field.
func writeError(w http.ResponseWriter, status int, err error) {
	writeEnvelope(w, status, mgmt.Response{
		Error: err.Error(),
		Kind:  bridge.KindName(err),
		Field: bridge.FieldOf(err),
	})
}

func writeEnvelope(w http.ResponseWriter, status int, resp mgmt.Response) {
	body, err := mgmt.Marshal(resp)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeCBOR)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func isNotFound(err error) bool {
	return errors.Is(err, profiles.ErrNotFound)
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, profiles.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, profiles.ErrDigestMismatch):
		writeError(w, http.StatusPreconditionFailed, err)
	case errors.Is(err, vpn.ErrInvalidConfig):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

// readBody reads at most maxRequestSize bytes of the request body. It writes
// the error response itself and reports whether the caller may continue.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit))
			return nil, false
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("read request body: %w", err))
		return nil, false
	}
	return body, true
}

// decodeBody reads and CBOR-decodes the request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	body, ok := readBody(w, r)
	if !ok {
		return false
	}
	if err := mgmt.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid CBOR body: %w", err))
		return false
	}
	return true
}

func (s *Server) requireProfileName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := chi.URLParam(r, "name")
	if err := vpn.ValidateName(name); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid profile name: %w", err))
		return "", false
	}
	return name, true
}

// rejectConversion logs and reports an inbound value the bridge refused.
func (s *Server) rejectConversion(w http.ResponseWriter, r *http.Request, err error) {
	s.diag.Warnf("%s %s rejected: kind=%s field=%s: %v", r.Method, r.URL.Path, bridge.KindName(err), bridge.FieldOf(err), err)
	writeError(w, http.StatusBadRequest, err)
}

func formatETag(digest string) string {
	return `"` + digest + `"`
}

// parseIfMatch returns the digest an If-Match header requires, "*" for any
// existing profile, or "" when the header is absent.
func parseIfMatch(header string) string {
	value := strings.TrimSpace(header)
	if value == "*" {
		return value
	}
	value = strings.TrimPrefix(value, "W/")
	return strings.Trim(value, `"`)
}
