package web

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"movehub/internal/fleet"
	"movehub/internal/store"
)

// Fleet is the subset of the fleet manager the web layer uses. All reads go
// through immutable snapshots; device actions are queued commands, so no
// handler ever touches the live slot pool.
type Fleet interface {
	Snapshot() *fleet.Snapshot
	SetRumble(id int, amount float32) bool
	ResetPose(id int) bool
	Events() *fleet.EventBus
}

// ServerOption configures the web server.
type ServerOption func(*Server)

// WithAPIKey enables API key authentication.
func WithAPIKey(key string) ServerOption {
	return func(s *Server) {
		s.apiKey = key
	}
}

// WithAllowedOrigins sets allowed WebSocket origin patterns.
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// WithVersion sets the application version string reported by the API.
func WithVersion(v string) ServerOption {
	return func(s *Server) {
		s.version = v
	}
}

// Server is the HTTP/WebSocket surface: a JSON API over fleet snapshots
// plus a WebSocket stream of data frames and fleet events. It implements
// fleet.Publisher.
type Server struct {
	fleet          Fleet
	registry       store.Store
	wsHub          *WSHub
	logger         *slog.Logger
	mux            *http.ServeMux
	apiKey         string
	allowedOrigins []string
	version        string
	wg             sync.WaitGroup
	unsubEvents    func()
}

// NewServer creates a new web server.
func NewServer(fl Fleet, registry store.Store, logger *slog.Logger, opts ...ServerOption) *Server {
	s := &Server{
		fleet:    fl,
		registry: registry,
		logger:   logger.With("component", "web"),
		mux:      http.NewServeMux(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.wsHub = NewWSHub(s.logger)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.wsHub.Run()
	}()

	// Fleet events fan out over the same WebSocket stream as frames.
	s.unsubEvents = fl.Events().OnAll(func(event fleet.Event) {
		s.wsHub.Broadcast(wsMessage{Type: "event", Data: event})
	})

	s.routes()
	return s
}

// Publish broadcasts one data frame to every connected WebSocket client.
// Never blocks: slow consumers lose frames, not the fleet loop.
func (s *Server) Publish(frame fleet.Frame) {
	s.wsHub.Broadcast(wsMessage{Type: "frame", Data: frame})
}

// Stop gracefully shuts down the WebSocket hub and waits for goroutines.
func (s *Server) Stop() {
	if s.unsubEvents != nil {
		s.unsubEvents()
	}
	s.wsHub.Stop()
	s.wg.Wait()
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/status", s.handleAPIStatus)
	s.mux.HandleFunc("GET /api/version", s.handleAPIVersion)
	s.mux.HandleFunc("GET /api/controllers", s.handleAPIListControllers)
	s.mux.HandleFunc("GET /api/controllers/{id}", s.handleAPIGetController)
	s.mux.HandleFunc("POST /api/controllers/{id}/rumble", s.handleAPIRumble)
	s.mux.HandleFunc("POST /api/controllers/{id}/reset", s.handleAPIResetPose)
	s.mux.HandleFunc("GET /api/registry", s.handleAPIRegistry)
	s.mux.HandleFunc("GET /api/ws", s.handleWS)
}

// ServeHTTP implements http.Handler with optional API key auth.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.apiKey != "" && strings.HasPrefix(r.URL.Path, "/api/") {
		key := r.Header.Get("X-API-Key")
		if key == "" {
			key = r.URL.Query().Get("api_key")
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) != 1 {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
	}
	s.mux.ServeHTTP(w, r)
}
