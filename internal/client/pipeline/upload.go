package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/dmitrijs2005/repopix/internal/client/api"
	"github.com/dmitrijs2005/repopix/internal/common"
	"github.com/dmitrijs2005/repopix/internal/filex"
	"go.uber.org/multierr"
)

// File is one local file to upload.
type File struct {
	Name string
	Data []byte
}

type FileResult struct {
	Name  string
	Path  string
	SHA   string
	State State
	Err   error
	// Compression is set when the uploaded bytes came from the compressor.
	Compression *api.CompressResult
}

type BatchResult struct {
	Dir     string
	Results []FileResult
}

func (b *BatchResult) Succeeded() int {
	n := 0
	for _, r := range b.Results {
		if r.Err == nil {
			n++
		}
	}
	return n
}

func (b *BatchResult) Failed() int { return len(b.Results) - b.Succeeded() }

// Err combines the per-file failures, or returns nil.
func (b *BatchResult) Err() error {
	var errs error
	for _, r := range b.Results {
		if r.Err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", r.Name, r.Err))
		}
	}
	return errs
}

// Upload writes files into basePath, or into the configured upload
// directory when basePath is empty. Files go one at a time in order and
// each one succeeds or fails on its own. The returned error covers only
// what stops the whole batch.
func (p *Pipeline) Upload(ctx context.Context, files []File, basePath string) (*BatchResult, error) {
	if len(files) == 0 {
		return &BatchResult{}, nil
	}
	if err := p.requireAuth(ctx); err != nil {
		return nil, err
	}

	dir := common.NormalizeDir(basePath)
	if dir == "" {
		dir = common.NormalizeDir(p.opts.UploadDir)
	}
	result := &BatchResult{Dir: dir}

	if dir != "" {
		if err := p.deps.Dirs.EnsureDirectoryExists(ctx, dir, p.opts.DirRetries); err != nil {
			// each file ensures its parent again, so this is not fatal
			p.log.Warn(ctx, "target directory not prepared", "dir", dir, "error", err)
		} else if err := p.pause(ctx, p.opts.SettleDelay); err != nil {
			return nil, err
		}
	}

	b := &batch{}
	for i, f := range files {
		r := p.uploadOne(ctx, b, f, dir)
		result.Results = append(result.Results, r)
		p.deps.Reporter.FileDone(r, i+1, len(files))
		if err := ctx.Err(); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (p *Pipeline) uploadOne(ctx context.Context, b *batch, f File, dir string) FileResult {
	res := FileResult{Name: f.Name}
	name, err := common.ValidateName(f.Name)
	if err != nil {
		res.Err = fmt.Errorf("%w: %q", err, f.Name)
		res.State = Failed
		return res
	}
	target := common.JoinPath(dir, name)
	res.Path = target

	in := b.intent(api.ActionUpload, target, p.deps.Reporter)
	finish := func(err error) FileResult {
		res.State = in.State()
		res.Err = err
		if err != nil {
			p.log.Warn(ctx, "upload failed", "path", target, "error", err)
		}
		return res
	}

	if err := in.grant(!b.Denied()); err != nil {
		return finish(err)
	}
	if b.Denied() {
		return finish(ErrDenied)
	}

	data := f.Data
	if p.opts.Compress && p.deps.Compressor != nil && filex.Compressible(name) {
		data, res.Compression = p.compress(ctx, name, f.Data)
	}

	parent := common.ParentDir(target)
	if parent != "" {
		if err := p.ensure(ctx, in, parent); err != nil {
			return finish(err)
		}
	}

	wr, err := p.send(ctx, in, &api.WritePayload{
		Action:  api.ActionUpload,
		Path:    target,
		Content: base64.StdEncoding.EncodeToString(data),
		Message: "Upload: " + target,
	}, parent)
	if wr != nil && wr.Content != nil {
		res.SHA = wr.Content.SHA
	}
	return finish(err)
}

// compress returns the compressed bytes, or the original bytes when the
// compressor fails or does not shrink the image.
func (p *Pipeline) compress(ctx context.Context, name string, data []byte) ([]byte, *api.CompressResult) {
	out, info, err := p.deps.Compressor.Compress(ctx, name, data)
	if err != nil {
		p.log.Warn(ctx, "compression failed, uploading original", "file", name, "error", err)
		return data, nil
	}
	if len(out) == 0 || len(out) >= len(data) {
		return data, nil
	}
	return out, info
}
