// Package httpapi exposes the token service over HTTP/JSON for the web
// front-end. It is a thin adapter: handlers delegate to the TokenAPI
// interface and only deal with transport concerns.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/comdesk/sessiond/internal/logging"
	"github.com/comdesk/sessiond/internal/server/models"
	"github.com/comdesk/sessiond/internal/server/services"
	"github.com/comdesk/sessiond/internal/server/token"
)

// TokenAPI is the dependency-injection boundary between the transport and
// the token service. services.TokenService satisfies it.
type TokenAPI interface {
	Register(ctx context.Context, username, password, displayName, role string) (*models.User, *services.TokenPair, error)
	Login(ctx context.Context, username, password string) (*models.User, *services.TokenPair, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
	ValidateAccess(accessToken string) (*token.Claims, error)
}

type Server struct {
	address string
	logger  logging.Logger
	tokens  TokenAPI
}

func NewServer(address string, l logging.Logger, api TokenAPI) *Server {
	return &Server{
		address: address,
		logger:  l.With("module", "httpapi"),
		tokens:  api,
	}
}

// Router builds the route table. Exposed for tests.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestIDMiddleware, s.loggingMiddleware)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)
	api.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)

	session := api.PathPrefix("/session").Subrouter()
	session.Use(s.authMiddleware)
	session.HandleFunc("", s.handleSession).Methods(http.MethodGet)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
