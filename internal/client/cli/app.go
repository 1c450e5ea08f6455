// Package cli is the repopix command-line client. The same actions back
// the one-shot cobra commands and the interactive shell.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/repopix/internal/client/api"
	"github.com/dmitrijs2005/repopix/internal/client/auth"
	"github.com/dmitrijs2005/repopix/internal/client/authorizer"
	"github.com/dmitrijs2005/repopix/internal/client/config"
	"github.com/dmitrijs2005/repopix/internal/client/credstore"
	"github.com/dmitrijs2005/repopix/internal/client/dirs"
	"github.com/dmitrijs2005/repopix/internal/client/pipeline"
	"github.com/dmitrijs2005/repopix/internal/filex"
	"github.com/dmitrijs2005/repopix/internal/logging"
	"github.com/dmitrijs2005/repopix/internal/netx"
	"github.com/dmitrijs2005/repopix/internal/timex"
)

type healthChecker interface {
	Health(ctx context.Context) (*api.HealthReport, error)
}

type configSource interface {
	PublicConfig(ctx context.Context) (*api.PublicConfig, error)
}

// App holds everything one CLI invocation works with. The shell keeps the
// current directory here instead of in package state.
type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	gate     *auth.Gate
	pipeline *pipeline.Pipeline
	health   healthChecker
	namer    *pipeline.Namer

	cwd    string
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if dir := filepath.Dir(c.DBPath); dir != "." {
		if _, err := filex.EnsureDir(dir); err != nil {
			return nil, err
		}
	}

	db, err := credstore.InitDatabase(ctx, c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	clock := timex.System{}
	store := credstore.New(db, clock, logger)
	client := api.New(c.ServerURL,
		api.WithHTTPClient(netx.NewHTTPClient(c.RequestTimeout)),
		api.WithLogger(logger),
	)

	reader := bufio.NewReader(os.Stdin)
	provider := selectProvider(ctx, c, client, store, newTerminalPrompter(os.Stderr), logger)
	gate := auth.NewGate(provider, auth.WithFlowTimeout(2*c.AuthTimeout))

	writer := authorizer.NewWriter(client, authorizer.New(store))
	ensurer := dirs.NewEnsurer(client, writer, clock, dirs.Options{
		ProbeRetries: c.ProbeRetries,
		BackoffBase:  c.BackoffBase,
		SettleDelay:  c.SettleDelay,
	}, logger)

	p := pipeline.New(pipeline.Deps{
		Gate:       gate,
		Remote:     client,
		Writer:     writer,
		Dirs:       ensurer,
		Compressor: client,
		Sleeper:    clock,
		Reporter:   newTerminalReporter(os.Stdout, c.Verbose),
		Logger:     logger,
	}, pipeline.Options{
		UploadDir:   c.UploadDir,
		DirRetries:  c.DirRetries,
		SettleDelay: c.SettleDelay,
		DeleteDelay: c.DeleteDelay,
		Compress:    c.Compress,
	})

	return &App{
		config:   c,
		logger:   logger.With("module", "cli"),
		db:       db,
		gate:     gate,
		pipeline: p,
		health:   client,
		namer:    pipeline.NewNamer(clock),
		reader:   reader,
		out:      os.Stdout,
	}, nil
}

// selectProvider picks the credential kind the server expects: GitHub
// OAuth when it publishes a client id, the upload password otherwise.
func selectProvider(ctx context.Context, c *config.Config, client *api.Client, store *credstore.Store, prompt auth.Prompter, logger logging.Logger) auth.Provider {
	clientID, err := publicClientID(ctx, client)
	if err != nil {
		logger.Warn(ctx, "cannot read server config, falling back to password auth", "error", err)
	}
	if clientID == "" {
		return auth.NewPasswordProvider(client, store, prompt, logger)
	}

	popup := auth.NewBrowserPopup(os.Stderr, logger, auth.WithTimeout(c.AuthTimeout))
	return auth.NewGitHubProvider(auth.GitHubOptions{
		ClientID:    clientID,
		RedirectURI: client.CallbackURL(),
		TTL:         c.GitHubSessionTTL,
	}, client, store, popup, timex.System{}, logger)
}

func publicClientID(ctx context.Context, src configSource) (string, error) {
	pc, err := src.PublicConfig(ctx)
	if err != nil {
		return "", err
	}
	return pc.GitHubOAuthClientID, nil
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
