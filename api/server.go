// Package api serves the latest poll results over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alfachiu/rollball-api-tcp/api/controllers"
	"github.com/alfachiu/rollball-api-tcp/share"
	"github.com/alfachiu/rollball-api-tcp/tool"
)

const (
	SnapshotPath = "/api/rollball/v1/snapshot"
	AnswersPath  = "/api/rollball/v1/answers"
	HealthPath   = "/healthz"
)

const shutdownTimeout = 5 * time.Second

// Server is the read-only status API.
type Server struct {
	addr   string
	engine *gin.Engine
}

// NewServer builds the routes. rps <= 0 disables rate limiting.
func NewServer(addr string, store *share.Store, rps float64, burst int) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), RateLimit(rps, burst))

	status := controllers.NewStatusController(store)
	engine.GET(HealthPath, status.HandleHealth)
	engine.GET(SnapshotPath, status.HandleSnapshot)
	engine.GET(AnswersPath, status.HandleAnswers)

	return &Server{addr: addr, engine: engine}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// URL returns the snapshot URL for display.
func (s *Server) URL() string {
	host, port, err := net.SplitHostPort(s.addr)
	if err != nil {
		return "http://" + s.addr + SnapshotPath
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s%s", net.JoinHostPort(host, port), SnapshotPath)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		tool.DefaultLogger.Infof("Starting status API on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("status API failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("status API shutdown failed: %w", err)
	}
	tool.DefaultLogger.Info("Status API stopped")
	return nil
}
