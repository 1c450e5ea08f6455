// Package httpapi exposes the /api/* surface of the image host: the
// authorized write proxy, read-only tree and file lookups, the GitHub OAuth
// callback and token verification, password sessions, compression and
// health.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/repopix/internal/logging"
	"github.com/dmitrijs2005/repopix/internal/server/auth"
	"github.com/dmitrijs2005/repopix/internal/server/github"
	"github.com/dmitrijs2005/repopix/internal/server/health"
	"github.com/dmitrijs2005/repopix/internal/server/tinify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Repository is the content store the proxy writes to.
type Repository interface {
	GetContentRaw(ctx context.Context, path string) (*github.Response, error)
	PutContent(ctx context.Context, path, message, content, sha string) (*github.Response, error)
	DeleteContent(ctx context.Context, path, message, sha string) (*github.Response, error)
	TreeRaw(ctx context.Context) (*github.Response, error)
}

// WriteAuthorizer gates upload and delete.
type WriteAuthorizer interface {
	Authorize(ctx context.Context, c auth.Credentials) (auth.Method, error)
}

// TokenVerifier resolves a GitHub token to its user and repository access.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*github.User, bool, error)
}

// SessionIssuer mints password session tokens.
type SessionIssuer interface {
	Issue() (string, time.Time, error)
}

// PasswordChecker validates the upload/delete password.
type PasswordChecker interface {
	Configured() bool
	Check(password string) error
}

type Compressor interface {
	Compress(ctx context.Context, data []byte) (*tinify.Result, error)
}

type HealthChecker interface {
	Check(ctx context.Context) health.Report
}

// OAuthSettings configures the GitHub OAuth app used by the callback.
type OAuthSettings struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
}

// Deps are the collaborators of the HTTP surface.
type Deps struct {
	Repo           Repository
	Authorizer     WriteAuthorizer
	Tokens         TokenVerifier
	Sessions       SessionIssuer
	Passwords      PasswordChecker
	Compressor     Compressor
	Health         HealthChecker
	OAuth          OAuthSettings
	AllowedOrigins []string
	Logger         logging.Logger
}

type Server struct {
	address string
	deps    Deps
	logger  logging.Logger
	handler http.Handler
}

func NewServer(address string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = logging.Nop()
	}
	s := &Server{
		address: address,
		deps:    deps,
		logger:  deps.Logger.With("module", "http_server"),
	}
	s.handler = s.routes()
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(corsHandler(s.deps.AllowedOrigins))

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	r.Options("/*", preflightOK)

	r.Route("/api", func(r chi.Router) {
		r.Options("/*", preflightOK)
		r.Post("/github", s.handleWrite)
		r.Get("/tree", s.handleTree)
		r.Get("/file", s.handleFile)
		r.Get("/github-oauth", s.handleOAuth)
		r.Post("/github-oauth", s.handleOAuth)
		r.Post("/verify-password", s.handleVerifyPassword)
		r.Get("/config", s.handleConfig)
		r.Post("/compress", s.handleCompress)
		r.Get("/health", s.handleHealth)
	})

	return r
}

func preflightOK(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
