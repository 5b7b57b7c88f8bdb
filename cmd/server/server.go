package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Sidbot007/StudentBidz/internal/dependency"
)

const shutdownTimeout = 30 * time.Second

type Server struct {
	HTTPServer   *http.Server
	Dependencies *dependency.Dependencies
	log          *zap.Logger
}

func New(deps *dependency.Dependencies) *Server {
	serv := &Server{
		Dependencies: deps,
		log:          deps.Log,
	}

	// builds router
	mux := serv.routes()
	serv.HTTPServer = &http.Server{
		Addr:         deps.Config.Server.Addr(),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return serv
}

// Run serves until ctx is cancelled, then shuts the listener down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("[SERVER] running -> ", zap.String("address", s.HTTPServer.Addr))

	errCh := make(chan error, 1)
	// Run Server in the background
	go func() {
		if err := s.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("[SERVER] failed to serve -> ", zap.Error(err))
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	s.log.Info("[SERVER] shutdown signal received")

	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.HTTPServer.Shutdown(shutCtx); err != nil {
		s.log.Error("[SERVER] shutdown failed -> ", zap.Error(err))
		return err
	}

	s.log.Info("[SERVER] shutdown complete.")
	return nil
}
