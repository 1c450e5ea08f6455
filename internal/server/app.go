// Package server wires the repopix server: the GitHub and compression
// clients, the write authorizer, the HTTP API and the gRPC health service.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/repopix/internal/cryptox"
	"github.com/dmitrijs2005/repopix/internal/logging"
	"github.com/dmitrijs2005/repopix/internal/server/auth"
	"github.com/dmitrijs2005/repopix/internal/server/config"
	"github.com/dmitrijs2005/repopix/internal/server/github"
	"github.com/dmitrijs2005/repopix/internal/server/health"
	"github.com/dmitrijs2005/repopix/internal/server/httpapi"
	"github.com/dmitrijs2005/repopix/internal/server/tinify"
	"github.com/dmitrijs2005/repopix/internal/timex"

	gs "github.com/dmitrijs2005/repopix/internal/server/grpc"
)

const healthInterval = 30 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	http   *httpapi.Server
	grpc   *gs.GRPCServer
}

func NewApp(c *config.Config) (*App, error) {

	logger := logging.NewJSON(os.Stdout, slog.LevelInfo)

	hc := &http.Client{Timeout: c.RequestTimeout}
	clock := timex.System{}

	gh := github.NewClient(c.GitHubAPI,
		github.Repo{Owner: c.RepoOwner, Name: c.RepoName, Branch: c.Branch},
		c.RepoToken,
		github.WithHTTPClient(hc),
		github.WithLogger(logger),
	)

	key := []byte(c.SessionKey)
	if len(key) == 0 {
		var err error
		key, err = cryptox.RandomBytes(32)
		if err != nil {
			return nil, fmt.Errorf("session key: %w", err)
		}
		logger.Warn(context.Background(), "SESSION_KEY not set, password sessions will not survive a restart")
	}
	sessions := auth.NewSessionIssuer(key, c.SessionTTL, clock)
	passwords := auth.NewPasswordVerifier(c.Password, c.PasswordHash)
	authorizer := auth.NewAuthorizer(gh, sessions, c.APISecret, passwords.Configured(), logger)

	compressor := tinify.NewClient(c.TinifyAPI, c.TinifyAPIKey, hc)
	checker := health.NewChecker(gh, c.OAuthID != "" && c.OAuthKey != "", compressor.Configured(), clock)

	web := strings.TrimRight(c.GitHubWeb, "/")
	api := httpapi.NewServer(c.HTTPAddr, httpapi.Deps{
		Repo:       gh,
		Authorizer: authorizer,
		Tokens:     gh,
		Sessions:   sessions,
		Passwords:  passwords,
		Compressor: compressor,
		Health:     checker,
		OAuth: httpapi.OAuthSettings{
			ClientID:     c.OAuthID,
			ClientSecret: c.OAuthKey,
			RedirectURI:  c.OAuthRedir,
			AuthURL:      web + "/login/oauth/authorize",
			TokenURL:     web + "/login/oauth/access_token",
		},
		AllowedOrigins: c.AllowedOrigins,
		Logger:         logger,
	})

	var grpcServer *gs.GRPCServer
	if c.GRPCAddr != "" {
		grpcServer = gs.NewGRPCServer(c.GRPCAddr, logger, checker, healthInterval)
	}

	if !gh.HasToken() {
		logger.Warn(context.Background(), "GH_TOKEN not set, writes and tree reads will fail")
	}

	return &App{config: c, logger: logger, http: api, grpc: grpcServer}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) runServer(ctx context.Context, cancelFunc context.CancelFunc, name string, run func(context.Context) error) {
	if err := run(ctx); err != nil {
		app.logger.Error(ctx, "server failed", "server", name, "error", err)
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...",
		"repo", app.config.RepoOwner+"/"+app.config.RepoName,
		"branch", app.config.Branch,
	)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.runServer(ctx, cancelFunc, "http", app.http.Run)
	}()

	if app.grpc != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.runServer(ctx, cancelFunc, "grpc", app.grpc.Run)
		}()
	}

	wg.Wait()
	app.logger.Info(ctx, "App stopped")
}
