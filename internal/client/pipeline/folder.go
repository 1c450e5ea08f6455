package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/repopix/internal/client/api"
	"github.com/dmitrijs2005/repopix/internal/common"
)

// CreateFolder creates nameOrPath below currentDir, with any missing
// ancestors, and returns the full path.
func (p *Pipeline) CreateFolder(ctx context.Context, nameOrPath, currentDir string) (string, error) {
	name, err := common.ValidateName(nameOrPath)
	if err != nil {
		return "", fmt.Errorf("%w: %q", err, nameOrPath)
	}
	dir := common.JoinPath(currentDir, name)

	if err := p.requireAuth(ctx); err != nil {
		return "", err
	}

	in := newIntent(api.ActionUpload, common.MarkerPath(dir), p.deps.Reporter)
	if err := in.grant(true); err != nil {
		return "", err
	}
	if err := p.ensure(ctx, in, dir); err != nil {
		return "", err
	}
	return dir, nil
}

// RenameFile copies oldPath to newName in the same directory and removes
// the original. Folders cannot be renamed.
func (p *Pipeline) RenameFile(ctx context.Context, oldPath, newName string) (string, error) {
	oldPath = common.NormalizeDir(oldPath)
	name, err := common.ValidateName(newName)
	if err != nil {
		return "", fmt.Errorf("%w: %q", err, newName)
	}
	if oldPath == "" {
		return "", common.ErrInvalidPath
	}
	newPath := common.JoinPath(common.ParentDir(oldPath), name)
	if newPath == oldPath {
		return oldPath, nil
	}

	if err := p.requireAuth(ctx); err != nil {
		return "", err
	}

	tree, err := p.deps.Remote.Tree(ctx)
	if err != nil {
		return "", fmt.Errorf("list tree: %w", err)
	}
	for _, e := range tree.Tree {
		if e.Path == oldPath && e.Type == api.EntryTree {
			return "", fmt.Errorf("%w: renaming folder %s", common.ErrUnsupported, oldPath)
		}
	}

	c, err := p.deps.Remote.File(ctx, oldPath)
	if err != nil {
		return "", fmt.Errorf("look up %s: %w", oldPath, err)
	}

	b := &batch{}
	in := b.intent(api.ActionUpload, newPath, p.deps.Reporter)
	if err := in.grant(true); err != nil {
		return "", err
	}
	// the contents API wraps base64 at 60 columns
	content := strings.ReplaceAll(c.Content, "\n", "")
	_, err = p.send(ctx, in, &api.WritePayload{
		Action:  api.ActionUpload,
		Path:    newPath,
		Content: content,
		Message: fmt.Sprintf("Rename: %s -> %s", oldPath, newPath),
	}, common.ParentDir(newPath))
	if err != nil {
		return "", err
	}

	del := b.intent(api.ActionDelete, oldPath, p.deps.Reporter)
	if err := del.grant(true); err != nil {
		return "", err
	}
	_, err = p.send(ctx, del, &api.WritePayload{
		Action:  api.ActionDelete,
		Path:    oldPath,
		SHA:     c.SHA,
		Message: "Delete old file: " + oldPath,
	}, "")
	if err != nil {
		return newPath, fmt.Errorf("copied to %s but could not remove the original: %w", newPath, err)
	}
	return newPath, nil
}

// Entry is one listed child of a directory.
type Entry struct {
	Name string
	Path string
	Dir  bool
	Size int64
}

// List returns the direct children of dir, folders first, each group
// sorted by name. Directory markers are hidden.
func (p *Pipeline) List(ctx context.Context, dir string) ([]Entry, error) {
	dir = common.NormalizeDir(dir)
	tree, err := p.deps.Remote.Tree(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tree: %w", err)
	}

	files, folders := children(tree, dir)
	out := make([]Entry, 0, len(files)+len(folders))
	for _, f := range folders {
		out = append(out, Entry{Name: common.BaseName(f.Path), Path: f.Path, Dir: true})
	}
	for _, f := range files {
		name := common.BaseName(f.Path)
		if name == common.MarkerName {
			continue
		}
		out = append(out, Entry{Name: name, Path: f.Path, Size: f.Size})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Dir != out[j].Dir {
			return out[i].Dir
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}
