package server

import (
	"fmt"
	"net/http"

	"vpnd/internal/bridge"
	"vpnd/internal/mgmt"
	"vpnd/internal/profiles"
	"vpnd/internal/vpn"
)

func summaryToWire(summary profiles.Summary) mgmt.ProfileSummary {
	return mgmt.ProfileSummary{
		Name:   summary.Name,
		Kind:   string(summary.Kind),
		Digest: summary.Digest,

		RoutesAllTraffic: summary.RoutesAllTraffic,
	}
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	list, err := s.profiles.List(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]mgmt.ProfileSummary, 0, len(list))
	for _, summary := range list {
		out = append(out, summaryToWire(summary))
	}
	writeResponse(w, http.StatusOK, out)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	name, ok := s.requireProfileName(w, r)
	if !ok {
		return
	}
	profile, summary, err := s.profiles.Get(r.Context(), name)
	if err != nil {
		if !isNotFound(err) {
			s.diag.Errorf("load profile %s: %v", name, err)
		}
		writeStoreError(w, err)
		return
	}
	w.Header().Set("ETag", formatETag(summary.Digest))
	writeResponse(w, http.StatusOK, bridge.ConnectionConfigToWire(profile.Config))
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	name, ok := s.requireProfileName(w, r)
	if !ok {
		return
	}
	var msg mgmt.ConnectionConfig
	if !decodeBody(w, r, &msg) {
		return
	}
	config, err := bridge.ConnectionConfigFromWire(&msg)
	if err != nil {
		s.rejectConversion(w, r, err)
		return
	}
	if err := config.Validate(); err != nil {
		s.diag.Warnf("%s %s rejected: %v", r.Method, r.URL.Path, err)
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ifMatch := parseIfMatch(r.Header.Get("If-Match"))
	summary, err := s.profiles.Replace(r.Context(), vpn.Profile{Name: name, Config: config}, ifMatch)
	if err != nil {
		if ifMatch != "" && isNotFound(err) {
			writeError(w, http.StatusPreconditionFailed, err)
			return
		}
		writeStoreError(w, err)
		return
	}
	s.diag.Infof("saved %s profile %s (%s)", summary.Kind, name, summary.Digest)
	w.Header().Set("ETag", formatETag(summary.Digest))
	writeResponse(w, http.StatusOK, summaryToWire(summary))
}

func (s *Server) handleImportProfile(w http.ResponseWriter, r *http.Request) {
	name, ok := s.requireProfileName(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	provider, err := vpn.ProviderFor(vpn.Kind(query.Get("type")))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	config, err := provider.ParseConfig(string(body), vpn.Credentials{
		Username: query.Get("username"),
		Password: query.Get("password"),
	})
	if err != nil {
		s.diag.Warnf("import %s profile %s rejected: %v", provider.Type(), name, err)
		writeError(w, http.StatusBadRequest, fmt.Errorf("parse %s config: %w", provider.Type(), err))
		return
	}

	summary, err := s.profiles.Save(r.Context(), vpn.Profile{Name: name, Config: config})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.diag.Infof("imported %s profile %s (%s) routes_all_traffic=%t", summary.Kind, name, summary.Digest, summary.RoutesAllTraffic)
	w.Header().Set("ETag", formatETag(summary.Digest))
	writeResponse(w, http.StatusCreated, summaryToWire(summary))
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	name, ok := s.requireProfileName(w, r)
	if !ok {
		return
	}
	if err := s.profiles.Delete(r.Context(), name); err != nil {
		writeStoreError(w, err)
		return
	}
	s.diag.Infof("deleted profile %s", name)
	writeResponse(w, http.StatusOK, nil)
}
