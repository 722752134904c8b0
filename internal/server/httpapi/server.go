// Package httpapi exposes the share operations over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/sharekeeper/internal/logging"
	"github.com/dmitrijs2005/sharekeeper/internal/server/services"
)

const shutdownTimeout = 5 * time.Second

// ShareAPI is the share service as seen by the HTTP handlers.
type ShareAPI interface {
	CreateShare(ctx context.Context, userID string, req services.CreateShareRequest) (string, error)
	UpdateShare(ctx context.Context, userID string, req services.UpdateShareRequest) (string, error)
	DeleteShare(ctx context.Context, userID, shareID string) (string, error)
	GetSharingInfo(ctx context.Context, userID string) (*services.SharingInfo, error)
	FindSharePartners(ctx context.Context, userID, pattern string) (map[string]string, error)
}

type HTTPServer struct {
	address        string
	shares         ShareAPI
	logger         logging.Logger
	jwtSecret      []byte
	requestTimeout time.Duration
}

func NewHTTPServer(a string, l logging.Logger, shares ShareAPI, secretKey string, requestTimeout time.Duration) *HTTPServer {
	return &HTTPServer{
		address:        a,
		logger:         l.With("module", "http_server"),
		shares:         shares,
		jwtSecret:      []byte(secretKey),
		requestTimeout: requestTimeout,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		// ctx is already cancelled here
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-stopped
	return nil
}
