package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessFunc reports whether the service considers itself healthy
type ReadinessFunc func() bool

// Server exposes the Prometheus endpoint and /healthz over HTTP
type Server struct {
	httpServer *http.Server
}

// NewRouter builds the chi router. The metrics route is only mounted when the
// registry is initialized.
func NewRouter(metricsPath string, ready ReadinessFunc) http.Handler {
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	if Registry != nil {
		r.Handle(metricsPath, promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry}))
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if ready != nil && !ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("unhealthy"))
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func NewServer(addr, metricsPath string, ready ReadinessFunc) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(metricsPath, ready),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves in the background. Errors other than a clean shutdown are sent
// on the returned channel.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
		close(errCh)
	}()
	return errCh
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
