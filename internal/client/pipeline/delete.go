package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/repopix/internal/client/api"
	"github.com/dmitrijs2005/repopix/internal/common"
	"go.uber.org/multierr"
)

// DeleteFile removes one file. The current sha is looked up first since
// the content API deletes by path and sha.
func (p *Pipeline) DeleteFile(ctx context.Context, path string) error {
	path = common.NormalizeDir(path)
	if path == "" {
		return common.ErrInvalidPath
	}
	if err := p.requireAuth(ctx); err != nil {
		return err
	}
	return p.deleteFile(ctx, nil, path, "Delete: "+path)
}

func (p *Pipeline) deleteFile(ctx context.Context, b *batch, path, message string) error {
	in := b.intent(api.ActionDelete, path, p.deps.Reporter)
	if err := in.grant(!b.Denied()); err != nil {
		return err
	}
	if b.Denied() {
		return ErrDenied
	}

	c, err := p.deps.Remote.File(ctx, path)
	if err == nil && c.SHA == "" {
		err = fmt.Errorf("%w: no sha for %s", common.ErrNotFound, path)
	}
	if err != nil {
		if terr := in.to(Failed); terr != nil {
			return terr
		}
		return fmt.Errorf("look up %s: %w", path, err)
	}

	_, err = p.send(ctx, in, &api.WritePayload{
		Action:  api.ActionDelete,
		Path:    path,
		SHA:     c.SHA,
		Message: message,
	}, "")
	return err
}

// DeleteFolder removes dir with everything below it: direct files first,
// then each subfolder recursively, then the folder's own marker if it has
// one. A pause follows every delete. Failures do not stop the walk; they
// are returned together, except a declined reauthorization, which ends
// the walk.
func (p *Pipeline) DeleteFolder(ctx context.Context, dir string) error {
	dir = common.NormalizeDir(dir)
	if dir == "" {
		return fmt.Errorf("%w: refusing to delete the repository root", common.ErrInvalidPath)
	}
	if err := p.requireAuth(ctx); err != nil {
		return err
	}
	return p.deleteFolder(ctx, &batch{}, dir)
}

func (p *Pipeline) deleteFolder(ctx context.Context, b *batch, dir string) error {
	tree, err := p.deps.Remote.Tree(ctx)
	if err != nil {
		return fmt.Errorf("list %s: %w", dir, err)
	}
	files, folders := children(tree, dir)
	marker := common.MarkerPath(dir)

	var errs error
	hasMarker := false
	for _, f := range files {
		if f.Path == marker {
			hasMarker = true
			continue
		}
		if err := p.deleteFile(ctx, b, f.Path, "Delete: "+f.Path); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", f.Path, err))
		}
		if b.Denied() {
			return errs
		}
		if err := p.pause(ctx, p.opts.DeleteDelay); err != nil {
			return multierr.Append(errs, err)
		}
	}

	for _, sub := range folders {
		if err := p.deleteFolder(ctx, b, sub.Path); err != nil {
			errs = multierr.Append(errs, err)
		}
		if b.Denied() {
			return errs
		}
		if err := p.pause(ctx, p.opts.DeleteDelay); err != nil {
			return multierr.Append(errs, err)
		}
	}

	if !hasMarker {
		return errs
	}
	if err := p.deleteFile(ctx, b, marker, "Delete folder: "+dir); err != nil && !errors.Is(err, common.ErrNotFound) {
		errs = multierr.Append(errs, err)
	}
	return errs
}

// children splits the direct entries of dir into blobs and trees.
func children(tree *api.Tree, dir string) (files, folders []api.TreeEntry) {
	for _, e := range tree.Tree {
		if common.ParentDir(e.Path) != dir {
			continue
		}
		switch e.Type {
		case api.EntryBlob:
			files = append(files, e)
		case api.EntryTree:
			folders = append(folders, e)
		}
	}
	return files, folders
}
