// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wivrn-project/wivrnd/internal/config"
)

const readTimeout = 10 * time.Second
const writeTimeout = 10 * time.Second
const shutdownTimeout = 5 * time.Second

var ErrClosed = errors.New("httpapi: server closed")
var ErrFailed = errors.New("httpapi: server failed to start")

// Server wraps the control-plane HTTP listener, matching the teacher's
// internal/http.Server Start/Stop lifecycle.
type Server struct {
	*http.Server
	log *slog.Logger
}

// New builds a Server bound to cfg.HTTP's address, not yet listening.
func New(cfg *config.Config, deps Deps, log *slog.Logger) *Server {
	r := CreateRouter(deps, log)
	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.ListenAddr, cfg.HTTP.Port),
			Handler:      r,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		log: log,
	}
}

// Start blocks serving HTTP until Stop is called or the listener fails.
func (s *Server) Start() error {
	g := new(errgroup.Group)
	g.Go(func() error {
		err := s.ListenAndServe()
		switch {
		case err == nil:
			return nil
		case errors.Is(err, http.ErrServerClosed):
			return ErrClosed
		default:
			s.log.Error("httpapi server failed to start", "error", err)
			return ErrFailed
		}
	})
	return g.Wait()
}

// Stop gracefully shuts the server down, waiting up to shutdownTimeout
// for in-flight requests (including open feed websockets) to finish.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		s.log.Error("httpapi server shutdown error", "error", err)
	}
}
