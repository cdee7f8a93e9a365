package observability

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthStatus is served on /health.
type HealthStatus struct {
	Status  string    `json:"status"`
	LastRun string    `json:"last_run,omitempty"`
	Updated time.Time `json:"updated,omitempty"`
}

// Server exposes /metrics and /health while a watch session is running.
type Server struct {
	addr   string
	health func() HealthStatus
	server *http.Server
	ln     net.Listener
}

func NewServer(addr string, health func() HealthStatus) *Server {
	return &Server{addr: addr, health: health}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := s.health()
		w.Header().Set("Content-Type", "application/json")
		if status.Status != "up" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(status)
	})
	return mux
}

// Start binds the listener synchronously and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.server = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}

	slog.Info("observability server starting", "addr", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("observability server failed", "error", err)
		}
	}()
	return nil
}

// Addr is the bound address, useful when listening on port 0.
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
