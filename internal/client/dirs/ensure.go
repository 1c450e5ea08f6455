// Package dirs makes directories exist in the remote tree by writing
// marker blobs.
package dirs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/repopix/internal/client/api"
	"github.com/dmitrijs2005/repopix/internal/common"
	"github.com/dmitrijs2005/repopix/internal/logging"
	"github.com/dmitrijs2005/repopix/internal/timex"
	"github.com/sethvargo/go-retry"
)

// Remote is the read side of the content API.
type Remote interface {
	File(ctx context.Context, path string) (*api.Content, error)
	Tree(ctx context.Context) (*api.Tree, error)
}

// Writer sends authorized writes.
type Writer interface {
	Write(ctx context.Context, p *api.WritePayload) (*api.WriteResult, error)
}

// DirectoryError is returned when a directory could not be created and
// the tree does not show it either.
type DirectoryError struct {
	Path     string
	Attempts int
	Err      error
}

func (e *DirectoryError) Error() string {
	msg := "unknown error"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("cannot create directory %s after %d attempts: %s", e.Path, e.Attempts, msg)
}

func (e *DirectoryError) Unwrap() error { return e.Err }

type Options struct {
	// ProbeRetries is how many times the marker is looked up before the
	// directory is taken as absent.
	ProbeRetries int
	// BackoffBase is the first probe delay. The n-th delay is n*BackoffBase.
	BackoffBase time.Duration
	// SettleDelay is waited after a failed create before trying again.
	SettleDelay time.Duration
}

func DefaultOptions() Options {
	return Options{ProbeRetries: 3, BackoffBase: time.Second, SettleDelay: time.Second}
}

type Ensurer struct {
	remote  Remote
	writer  Writer
	sleeper timex.Sleeper
	opts    Options
	logger  logging.Logger
}

func NewEnsurer(r Remote, w Writer, s timex.Sleeper, opts Options, logger logging.Logger) *Ensurer {
	if opts.ProbeRetries < 1 {
		opts.ProbeRetries = 1
	}
	return &Ensurer{
		remote:  r,
		writer:  w,
		sleeper: s,
		opts:    opts,
		logger:  logger.With("module", "dirs"),
	}
}

// linear yields base, 2*base, 3*base...
func linear(base time.Duration) retry.Backoff {
	var n time.Duration
	return retry.BackoffFunc(func() (time.Duration, bool) {
		n++
		return n * base, false
	})
}

// EnsureDirectoryExists creates every missing ancestor of dirPath,
// shallowest first. Repeated calls for the same path are no-ops. The root
// ("" or "/") always exists.
func (e *Ensurer) EnsureDirectoryExists(ctx context.Context, dirPath string, maxRetries int) error {
	segs := common.Segments(dirPath)
	if maxRetries < 1 {
		maxRetries = 1
	}

	for i := range segs {
		prefix := common.JoinPath(segs[:i+1]...)
		marker := common.MarkerPath(prefix)

		exists, err := e.probe(ctx, marker)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		parent := common.JoinPath(segs[:i]...)
		if i > 0 {
			if err := e.EnsureDirectoryExists(ctx, parent, maxRetries); err != nil {
				return err
			}
		}

		if err := e.create(ctx, prefix, parent, maxRetries); err != nil {
			return err
		}
	}
	return nil
}

// probe looks the marker up with a linear backoff. A not-found reply is
// final; other failures are retried.
func (e *Ensurer) probe(ctx context.Context, marker string) (bool, error) {
	backoff := retry.WithMaxRetries(uint64(e.opts.ProbeRetries-1), linear(e.opts.BackoffBase))
	for {
		_, err := e.remote.File(ctx, marker)
		if err == nil {
			return true, nil
		}
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		e.logger.Debug(ctx, "marker probe failed", "path", marker, "error", err)

		d, stop := backoff.Next()
		if stop {
			return false, nil
		}
		if err := e.sleeper.Sleep(ctx, d); err != nil {
			return false, err
		}
	}
}

func (e *Ensurer) create(ctx context.Context, prefix, parent string, maxRetries int) error {
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		_, err := e.writer.Write(ctx, &api.WritePayload{
			Action:  api.ActionUpload,
			Path:    common.MarkerPath(prefix),
			Content: "",
			Message: fmt.Sprintf("Create directory: %s/", prefix),
		})
		if err == nil {
			e.logger.Info(ctx, "directory created", "path", prefix)
			return nil
		}
		if errors.Is(err, common.ErrAlreadyExists) {
			e.logger.Debug(ctx, "directory marker already present", "path", prefix)
			return nil
		}
		if errors.Is(err, common.ErrUnauthorized) || ctx.Err() != nil {
			return err
		}

		e.logger.Warn(ctx, "directory create failed", "path", prefix, "attempt", attempt, "max", maxRetries, "error", err)
		lastErr = err

		if errors.Is(err, common.ErrNotFound) && parent != "" {
			if perr := e.EnsureDirectoryExists(ctx, parent, maxRetries); perr != nil {
				return perr
			}
			if err := e.sleeper.Sleep(ctx, e.opts.SettleDelay); err != nil {
				return err
			}
		}
		if attempt < maxRetries {
			if err := e.sleeper.Sleep(ctx, e.opts.SettleDelay); err != nil {
				return err
			}
		}
	}

	if e.inTree(ctx, prefix) {
		e.logger.Info(ctx, "directory present in tree despite create errors", "path", prefix)
		return nil
	}
	return &DirectoryError{Path: prefix, Attempts: maxRetries, Err: lastErr}
}

func (e *Ensurer) inTree(ctx context.Context, prefix string) bool {
	tree, err := e.remote.Tree(ctx)
	if err != nil {
		e.logger.Warn(ctx, "tree lookup failed", "error", err)
		return false
	}
	for _, entry := range tree.Tree {
		if entry.Type == api.EntryTree && entry.Path == prefix {
			return true
		}
	}
	return false
}
