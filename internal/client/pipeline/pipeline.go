// Package pipeline runs write intents end to end: authorization, directory
// preparation, the write itself and the retries around it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/repopix/internal/client/api"
	"github.com/dmitrijs2005/repopix/internal/common"
	"github.com/dmitrijs2005/repopix/internal/logging"
	"github.com/dmitrijs2005/repopix/internal/timex"
)

var (
	// ErrDenied means the user did not complete authorization.
	ErrDenied = errors.New("authorization required")
	// ErrFileExists is an upload onto an existing path.
	ErrFileExists = errors.New("file already exists, rename and retry")
)

type Gate interface {
	RequireAuth(ctx context.Context) (bool, error)
	Reauthorize(ctx context.Context) (bool, error)
}

type Remote interface {
	File(ctx context.Context, path string) (*api.Content, error)
	Tree(ctx context.Context) (*api.Tree, error)
}

// Writer sends a payload with the current credential attached.
type Writer interface {
	Write(ctx context.Context, p *api.WritePayload) (*api.WriteResult, error)
}

type Compressor interface {
	Compress(ctx context.Context, name string, data []byte) ([]byte, *api.CompressResult, error)
}

type Directories interface {
	EnsureDirectoryExists(ctx context.Context, dirPath string, maxRetries int) error
}

type Deps struct {
	Gate       Gate
	Remote     Remote
	Writer     Writer
	Dirs       Directories
	Compressor Compressor
	Sleeper    timex.Sleeper
	Reporter   Reporter
	Logger     logging.Logger
}

type Options struct {
	// UploadDir is used when an upload names no directory.
	UploadDir   string
	DirRetries  int
	SettleDelay time.Duration
	DeleteDelay time.Duration
	Compress    bool
}

type Pipeline struct {
	deps Deps
	opts Options
	log  logging.Logger
}

func New(deps Deps, opts Options) *Pipeline {
	if deps.Reporter == nil {
		deps.Reporter = NopReporter{}
	}
	if deps.Logger == nil {
		deps.Logger = logging.Nop()
	}
	if deps.Sleeper == nil {
		deps.Sleeper = timex.System{}
	}
	if opts.DirRetries < 1 {
		opts.DirRetries = 3
	}
	return &Pipeline{deps: deps, opts: opts, log: deps.Logger.With("module", "pipeline")}
}

func (p *Pipeline) requireAuth(ctx context.Context) error {
	ok, err := p.deps.Gate.RequireAuth(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrDenied
	}
	return nil
}

func (p *Pipeline) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return p.deps.Sleeper.Sleep(ctx, d)
}

// reauthorize runs the gate once per intent after the server rejected the
// credential. It reports whether the write should be repeated. A refusal
// is remembered for the rest of the intent's batch.
func (p *Pipeline) reauthorize(ctx context.Context, in *Intent, cause error) (bool, error) {
	if in.reauthed || !errors.Is(cause, common.ErrUnauthorized) {
		return false, nil
	}
	in.reauthed = true
	if in.batch.Denied() {
		return false, ErrDenied
	}
	p.log.Info(ctx, "credential rejected, re-running authorization", "path", in.Path)

	ok, err := p.deps.Gate.Reauthorize(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		in.batch.deny()
		return false, ErrDenied
	}
	return true, nil
}

// ensure moves in through the directory stage for dir.
func (p *Pipeline) ensure(ctx context.Context, in *Intent, dir string) error {
	if err := in.to(AwaitingDirectory); err != nil {
		return err
	}
	err := p.deps.Dirs.EnsureDirectoryExists(ctx, dir, p.opts.DirRetries)
	if err != nil {
		if retry, rerr := p.reauthorize(ctx, in, err); rerr != nil {
			err = rerr
		} else if retry {
			err = p.deps.Dirs.EnsureDirectoryExists(ctx, dir, p.opts.DirRetries)
		}
	}
	if err != nil {
		if terr := in.to(DirectoryFailed); terr != nil {
			return terr
		}
		return fmt.Errorf("prepare directory %s: %w", dir, err)
	}
	return in.to(DirectoryReady)
}

// send writes payload. An unauthorized reply triggers one reauthorization.
// For uploads (parent != "") a not-found reply re-ensures the parent once.
func (p *Pipeline) send(ctx context.Context, in *Intent, payload *api.WritePayload, parent string) (*api.WriteResult, error) {
	reensured := false

	for {
		if err := in.to(Writing); err != nil {
			return nil, err
		}
		res, err := p.deps.Writer.Write(ctx, payload)
		if err == nil {
			return res, in.to(Succeeded)
		}

		retry, rerr := p.reauthorize(ctx, in, err)
		switch {
		case rerr != nil:
			err = rerr
		case retry:
			if terr := in.to(Retrying); terr != nil {
				return nil, terr
			}
			continue
		case payload.Action == api.ActionUpload && errors.Is(err, common.ErrAlreadyExists):
			err = fmt.Errorf("%w: %s", ErrFileExists, payload.Path)
		case errors.Is(err, common.ErrNotFound) && parent != "" && !reensured:
			reensured = true
			p.log.Warn(ctx, "parent directory missing, re-creating", "path", payload.Path)
			if terr := in.to(Retrying); terr != nil {
				return nil, terr
			}
			if derr := p.ensure(ctx, in, parent); derr != nil {
				return nil, derr
			}
			if serr := p.pause(ctx, p.opts.SettleDelay); serr != nil {
				return nil, serr
			}
			continue
		}

		if terr := in.to(Failed); terr != nil {
			return nil, terr
		}
		return nil, err
	}
}
