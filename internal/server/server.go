// Package server serves the management API. Request and response bodies are
// CBOR wire messages; every inbound value passes through the bridge before
// the daemon acts on it.
package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"vpnd/internal/bridge"
	"vpnd/internal/diaglog"
	"vpnd/internal/profiles"
	"vpnd/internal/version"
)

// maxRequestSize bounds request bodies. Profiles are a few kilobytes.
const maxRequestSize = 1 << 20

// Options configures a Server.
type Options struct {
	Profiles *profiles.Store
	// Diagnostics receives rejected requests. nil discards them.
	Diagnostics *diaglog.Logger
	// CurrentVersion is the running daemon version reported by /api/version.
	CurrentVersion string
	Releases       version.Releases
	// RequestLog enables chi's per-request log lines.
	RequestLog bool
}

// Server handles management API requests.
type Server struct {
	profiles       *profiles.Store
	diag           *diaglog.Logger
	currentVersion string
	releases       version.Releases
	requestLog     bool
}

// New creates a management API server.
func New(opts Options) (*Server, error) {
	if opts.Profiles == nil {
		return nil, fmt.Errorf("profile store is required")
	}
	diag := opts.Diagnostics
	if diag == nil {
		diag = diaglog.Discard()
	}
	return &Server{
		profiles:       opts.Profiles,
		diag:           diag,
		currentVersion: opts.CurrentVersion,
		releases:       opts.Releases,
		requestLog:     opts.RequestLog,
	}, nil
}

// Router constructs the http.Handler with all routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	if s.requestLog {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	r.Route("/api", func(api chi.Router) {
		api.Get("/version", s.handleVersion)
		api.Get("/profiles", s.handleListProfiles)
		api.Get("/profiles/{name}", s.handleGetProfile)
		api.Put("/profiles/{name}", s.handlePutProfile)
		api.Delete("/profiles/{name}", s.handleDeleteProfile)
		api.Post("/profiles/{name}/import", s.handleImportProfile)
		api.Get("/settings/protocol", s.handleGetProtocol)
		api.Put("/settings/protocol", s.handlePutProtocol)
	})

	return r
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	current := s.currentVersion
	if current == "" {
		current = version.Current().Version
	}
	info := version.Evaluate(current, s.releases)
	writeResponse(w, http.StatusOK, bridge.VersionInfoToWire(info))
}
