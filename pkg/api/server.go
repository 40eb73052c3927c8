// Package api pkg/api/server.go
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mfreeman451/compdata/pkg/composite"
	httpx "github.com/mfreeman451/compdata/pkg/http"
	"github.com/mfreeman451/compdata/pkg/metrics"
)

const (
	readTimeout     = 10 * time.Second
	writeTimeout    = 10 * time.Second
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Server exposes worker status over HTTP: liveness, request metrics
// and the composite inventory.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	metrics    *metrics.Manager
	composites map[string]*composite.Composite
	started    time.Time
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Uptime     string          `json:"uptime"`
	Composites int             `json:"composites"`
	Requests   metrics.Summary `json:"requests"`
}

// CompositeInfo is one entry of GET /api/composites.
type CompositeInfo struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
}

// NewServer builds the status server.
func NewServer(m *metrics.Manager, composites map[string]*composite.Composite) *Server {
	s := &Server{
		router:     mux.NewRouter(),
		metrics:    m,
		composites: composites,
		started:    time.Now(),
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(httpx.CommonMiddleware)

	s.router.HandleFunc("/healthz", s.getHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/status", s.getStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/api/composites", s.getComposites).Methods(http.MethodGet)
}

func (*Server) getHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte("ok")); err != nil {
		log.Printf("Error writing health response: %v", err)
	}
}

func (s *Server) getStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{
		Uptime:     time.Since(s.started).String(),
		Composites: len(s.composites),
	}

	if s.metrics != nil {
		resp.Requests = s.metrics.Snapshot()
	}

	s.encode(w, &resp)
}

func (s *Server) getComposites(w http.ResponseWriter, _ *http.Request) {
	infos := make([]CompositeInfo, 0, len(s.composites))

	for _, comp := range s.composites {
		infos = append(infos, CompositeInfo{ID: comp.ID, Description: comp.Description})
	}

	s.encode(w, infos)
}

func (*Server) encode(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// Start serves until the listener fails or Stop is called.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	log.Printf("Status API listening on %s", addr)

	return s.httpServer.ListenAndServe()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}
