package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/repopix/internal/client/config"
	"github.com/dmitrijs2005/repopix/internal/logging"
	"github.com/spf13/cobra"
)

// newAppFn is a test seam for NewApp.
var newAppFn = NewApp

func newLogger(verbose bool) logging.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return logging.NewText(os.Stderr, level)
}

// Execute runs the repopix command line with args.
func Execute(ctx context.Context, cfg *config.Config, args []string) error {
	var app *App
	defer func() {
		if app != nil {
			_ = app.Close()
		}
	}()

	root := NewRootCommand(cfg, &app)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCommand builds the command tree. The App is created into *app
// once flags are parsed, so every subcommand sees the final config.
func NewRootCommand(cfg *config.Config, app **App) *cobra.Command {
	root := &cobra.Command{
		Use:           "repopix",
		Short:         "Manage images stored in a GitHub repository",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newAppFn(cmd.Context(), cfg, newLogger(cfg.Verbose))
			if err != nil {
				return err
			}
			*app = a
			return nil
		},
	}
	config.BindFlags(root.PersistentFlags(), cfg)

	current := func() *App { return *app }
	root.AddCommand(newLoginCommand(current))
	root.AddCommand(newLogoutCommand(current))
	root.AddCommand(newStatusCommand(current))
	root.AddCommand(newListCommand(current))
	root.AddCommand(newUploadCommand(current))
	root.AddCommand(newRemoveCommand(current))
	root.AddCommand(newRemoveDirCommand(current))
	root.AddCommand(newMakeDirCommand(current))
	root.AddCommand(newMoveCommand(current))
	root.AddCommand(newHealthCommand(current))
	root.AddCommand(newShellCommand(current))
	return root
}

func newLoginCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authorize this machine to upload and delete.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app().Login(cmd.Context())
		},
	}
}

func newLogoutCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credential.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app().Logout(cmd.Context())
		},
	}
}

func newStatusCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored credential.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app().Status(cmd.Context())
		},
	}
}

func newListCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:     "ls [dir]",
		Aliases: []string{"list"},
		Short:   "List a folder of the repository.",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) > 0 {
				dir = args[0]
			}
			return app().List(cmd.Context(), dir)
		},
	}
}

func newUploadCommand(app func() *App) *cobra.Command {
	var opts uploadOptions
	cmd := &cobra.Command{
		Use:   "upload [files...]",
		Short: "Upload images. A folder argument uploads the images inside it.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app().Upload(cmd.Context(), args, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Dir, "dir", "", "target folder (default: the configured upload folder)")
	cmd.Flags().BoolVarP(&opts.TimestampNames, "timestamp-names", "t", false, "rename files to their upload time")
	return cmd
}

func newRemoveCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>",
		Short: "Delete a file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app().Remove(cmd.Context(), args[0])
		},
	}
}

func newRemoveDirCommand(app func() *App) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "rmdir <path>",
		Short: "Delete a folder and everything in it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app().RemoveDir(cmd.Context(), args[0], force)
		},
	}
	cmd.Flags().BoolVarP(&force, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newMakeDirCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a folder, with any missing parents.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app().MakeDir(cmd.Context(), args[0])
		},
	}
}

func newMoveCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "mv <path> <new-name>",
		Short: "Rename a file within its folder.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app().Move(cmd.Context(), args[0], args[1])
		},
	}
}

func newHealthCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the server and its upstreams.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app().Health(cmd.Context())
		},
	}
}

func newShellCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive shell.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			ctx := cmd.Context()
			fmt.Fprintln(a.out, "repopix shell (type 'help' for commands)")
			runREPL(ctx, a, func() string { return a.loginState(ctx) }, bufio.NewScanner(a.reader))
			return nil
		},
	}
}

func (a *App) loginState(ctx context.Context) string {
	ok, err := a.gate.Provider().IsAuthenticated(ctx)
	if err != nil || !ok {
		return "guest"
	}
	return string(a.gate.Provider().Kind())
}
