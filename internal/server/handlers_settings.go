package server

import (
	"fmt"
	"net/http"

	"vpnd/internal/bridge"
	"vpnd/internal/mgmt"
)

func (s *Server) handleGetProtocol(w http.ResponseWriter, r *http.Request) {
	constraint, err := s.profiles.ProtocolConstraint(r.Context())
	if err != nil {
		s.diag.Errorf("load protocol constraint: %v", err)
		writeStoreError(w, err)
		return
	}
	msg := bridge.ProtocolConstraintToWire(constraint)
	if msg == nil {
		writeResponse(w, http.StatusOK, nil)
		return
	}
	writeResponse(w, http.StatusOK, msg)
}

// handlePutProtocol stores the relay protocol constraint. An empty body or
// CBOR null clears it.
func (s *Server) handlePutProtocol(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	var msg *mgmt.TransportProtocolConstraint
	if len(body) > 0 {
		if err := mgmt.Unmarshal(body, &msg); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid CBOR body: %w", err))
			return
		}
	}
	constraint, err := bridge.ProtocolConstraintFromWire(msg)
	if err != nil {
		s.rejectConversion(w, r, err)
		return
	}
	if err := s.profiles.SetProtocolConstraint(r.Context(), constraint); err != nil {
		writeStoreError(w, err)
		return
	}
	s.diag.Infof("relay protocol constraint set to %v", constraint)
	writeResponse(w, http.StatusOK, nil)
}
