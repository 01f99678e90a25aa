// Package httpapi serves the operational endpoints: health, Prometheus
// metrics and a read-only view of the menu document.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"eatwhat-bot/db"
	"eatwhat-bot/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

type Server struct {
	addr  string
	store *services.MenuStore
	log   *zap.SugaredLogger
}

func New(addr string, store *services.MenuStore, log *zap.SugaredLogger) *Server {
	return &Server{addr: addr, store: store, log: log}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.healthHandler)
	r.Get("/menu", s.menuHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.Routes(),
		WriteTimeout: 30 * time.Second,
		ReadTimeout:  10 * time.Second,
		IdleTimeout:  time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("http server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	storageStatus := "ok"
	if _, err := s.store.Load(r.Context()); err != nil {
		storageStatus = "error"
	}
	dbStatus := "disabled"
	if db.Pool != nil {
		dbStatus = "ok"
		if err := db.Pool.Ping(r.Context()); err != nil {
			dbStatus = "error"
		}
	}

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Services: map[string]string{
			"menu":     storageStatus,
			"database": dbStatus,
		},
	}
	status := http.StatusOK
	if storageStatus != "ok" || dbStatus == "error" {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) menuHandler(w http.ResponseWriter, r *http.Request) {
	menu, err := s.store.Load(r.Context())
	if err != nil {
		s.log.Errorw("menu load failed", "path", r.URL.Path, "error", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, menu)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		s.log.Warnw("write response failed", "error", err)
	}
}
