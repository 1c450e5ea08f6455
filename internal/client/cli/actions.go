package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/repopix/internal/client/pipeline"
	"github.com/dmitrijs2005/repopix/internal/common"
	"github.com/dmitrijs2005/repopix/internal/filex"
	"github.com/dustin/go-humanize"
)

type uploadOptions struct {
	Dir            string
	TimestampNames bool
}

// resolve turns a user supplied path into a repository path. Absolute
// paths start at the repository root, anything else is relative to the
// shell's current directory.
func (a *App) resolve(p string) string {
	if strings.HasPrefix(p, "/") {
		return common.NormalizeDir(p)
	}
	return common.JoinPath(a.cwd, p)
}

func (a *App) CurrentDir() string { return a.cwd }

func (a *App) ChangeDir(ctx context.Context, dir string) error {
	switch dir {
	case "", "/":
		a.cwd = ""
		return nil
	case "..":
		a.cwd = common.ParentDir(a.cwd)
		return nil
	}
	if strings.Contains(dir, "..") {
		return common.ErrInvalidPath
	}
	a.cwd = a.resolve(dir)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	ok, err := a.gate.RequireAuth(ctx)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "Authorization cancelled.")
		return pipeline.ErrDenied
	}
	return a.Status(ctx)
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.gate.Provider().Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func (a *App) Status(ctx context.Context) error {
	s, err := a.gate.Provider().Status(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, s.String())
	return nil
}

func (a *App) List(ctx context.Context, dir string) error {
	entries, err := a.pipeline.List(ctx, a.resolve(dir))
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "(empty)")
		return nil
	}
	for _, e := range entries {
		if e.Dir {
			fmt.Fprintf(a.out, "%-40s %10s\n", e.Name+"/", "-")
			continue
		}
		fmt.Fprintf(a.out, "%-40s %10s\n", e.Name, humanize.Bytes(uint64(e.Size)))
	}
	return nil
}

func (a *App) Upload(ctx context.Context, paths []string, opts uploadOptions) error {
	uploads, err := filex.ReadUploads(paths)
	if err != nil {
		return err
	}
	if len(uploads) == 0 {
		fmt.Fprintln(a.out, "No images to upload.")
		return nil
	}

	files := make([]pipeline.File, 0, len(uploads))
	for _, u := range uploads {
		name := u.Name
		if opts.TimestampNames {
			name = a.namer.Name(name)
		}
		files = append(files, pipeline.File{Name: name, Data: u.Data})
	}

	dir := a.cwd
	if opts.Dir != "" {
		dir = a.resolve(opts.Dir)
	}

	batch, err := a.pipeline.Upload(ctx, files, dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Uploaded %d of %d files to %s/\n", batch.Succeeded(), len(batch.Results), batch.Dir)
	return batch.Err()
}

func (a *App) Remove(ctx context.Context, path string) error {
	path = a.resolve(path)
	if err := a.pipeline.DeleteFile(ctx, path); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %s\n", path)
	return nil
}

// RemoveDir deletes a folder and everything below it. Unless force is set
// the user has to confirm first.
func (a *App) RemoveDir(ctx context.Context, path string, force bool) error {
	path = a.resolve(path)
	if path == "" {
		return common.ErrInvalidPath
	}
	if !force {
		answer, err := GetSimpleText(a.reader, fmt.Sprintf("Delete folder %s/ and everything in it? [y/N]", path), a.out)
		if err != nil {
			return err
		}
		if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
			fmt.Fprintln(a.out, "Cancelled.")
			return nil
		}
	}
	if err := a.pipeline.DeleteFolder(ctx, path); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted folder %s/\n", path)
	if a.cwd == path || strings.HasPrefix(a.cwd, path+"/") {
		a.cwd = common.ParentDir(path)
	}
	return nil
}

func (a *App) MakeDir(ctx context.Context, name string) error {
	base := a.cwd
	if strings.HasPrefix(name, "/") {
		base = ""
	}
	path, err := a.pipeline.CreateFolder(ctx, name, base)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created %s/\n", path)
	return nil
}

func (a *App) Move(ctx context.Context, path, newName string) error {
	path = a.resolve(path)
	newPath, err := a.pipeline.RenameFile(ctx, path, newName)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Renamed %s -> %s\n", path, newPath)
	return nil
}

var errUnhealthy = errors.New("server is unhealthy")

func (a *App) Health(ctx context.Context) error {
	r, err := a.health.Health(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "status: %s (%dms)\n", r.Status, r.ResponseTime)

	names := make([]string, 0, len(r.Checks))
	for name := range r.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ch := r.Checks[name]
		line := fmt.Sprintf("  %-12s %s (%dms)", name, ch.Status, ch.ResponseTime)
		if ch.Error != nil {
			line += ": " + *ch.Error
		}
		fmt.Fprintln(a.out, line)
	}

	if r.Status == "unhealthy" {
		return errUnhealthy
	}
	return nil
}
