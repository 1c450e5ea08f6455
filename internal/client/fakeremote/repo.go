// Package fakeremote is an in-memory stand-in for the server's content
// endpoints, used by client tests.
package fakeremote

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/dmitrijs2005/repopix/internal/client/api"
	"github.com/dmitrijs2005/repopix/internal/common"
)

// Call is one write the repo received.
type Call struct {
	Action      string
	Path        string
	Message     string
	SHA         string
	GitHubToken string
	AuthToken   string
}

type file struct {
	content string
	sha     string
}

// Repo keeps blobs by path. Directories exist implicitly through the
// blobs below them, as in a git tree.
type Repo struct {
	mu    sync.Mutex
	files map[string]file
	calls []Call
	reads []string

	// FailWrite, when set, is consulted before each write. A non-nil
	// result is returned instead of applying the write.
	FailWrite func(p *api.WritePayload) error
	// FailFile is the same hook for File.
	FailFile func(path string) error
}

func New(paths ...string) *Repo {
	r := &Repo{files: make(map[string]file)}
	for _, p := range paths {
		r.put(p, "")
	}
	return r
}

func blobSHA(path, content string) string {
	sum := sha1.Sum([]byte(path + "\x00" + content))
	return hex.EncodeToString(sum[:])
}

func (r *Repo) put(path, content string) {
	r.files[path] = file{content: content, sha: blobSHA(path, content)}
}

// Put stores content at path directly, bypassing the write log.
func (r *Repo) Put(path, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(path, content)
}

func (r *Repo) Write(_ context.Context, p *api.WritePayload) (*api.WriteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, Call{
		Action:      p.Action,
		Path:        p.Path,
		Message:     p.Message,
		SHA:         p.SHA,
		GitHubToken: p.GitHubToken,
		AuthToken:   p.AuthToken,
	})
	if r.FailWrite != nil {
		if err := r.FailWrite(p); err != nil {
			return nil, err
		}
	}

	cur, exists := r.files[p.Path]
	switch p.Action {
	case api.ActionUpload:
		if exists && p.SHA == "" {
			return nil, &api.Error{Status: http.StatusUnprocessableEntity, Message: `Invalid request. "sha" wasn't supplied.`}
		}
		r.put(p.Path, p.Content)
		f := r.files[p.Path]
		return &api.WriteResult{Content: &api.Content{Path: p.Path, Name: common.BaseName(p.Path), SHA: f.sha, Type: "file"}}, nil
	case api.ActionDelete:
		if !exists {
			return nil, &api.Error{Status: http.StatusNotFound, Message: "Not Found"}
		}
		if p.SHA != cur.sha {
			return nil, &api.Error{Status: http.StatusConflict, Message: "sha does not match"}
		}
		delete(r.files, p.Path)
		return &api.WriteResult{}, nil
	}
	return nil, &api.Error{Status: http.StatusBadRequest, Message: "Invalid action"}
}

func (r *Repo) File(_ context.Context, path string) (*api.Content, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reads = append(r.reads, path)
	if r.FailFile != nil {
		if err := r.FailFile(path); err != nil {
			return nil, err
		}
	}
	f, ok := r.files[path]
	if !ok {
		return nil, &api.Error{Status: http.StatusNotFound, Message: "Not Found"}
	}
	return &api.Content{
		Name:     common.BaseName(path),
		Path:     path,
		SHA:      f.sha,
		Type:     "file",
		Size:     int64(len(f.content)),
		Content:  f.content,
		Encoding: "base64",
	}, nil
}

func (r *Repo) Tree(context.Context) (*api.Tree, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dirs := map[string]bool{}
	var entries []api.TreeEntry
	for p, f := range r.files {
		entries = append(entries, api.TreeEntry{Path: p, Type: api.EntryBlob, SHA: f.sha, Size: int64(len(f.content))})
		for d := common.ParentDir(p); d != ""; d = common.ParentDir(d) {
			dirs[d] = true
		}
	}
	for d := range dirs {
		entries = append(entries, api.TreeEntry{Path: d, Type: api.EntryTree})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return &api.Tree{SHA: "root", Tree: entries}, nil
}

// Has reports whether a blob exists at path.
func (r *Repo) Has(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.files[path]
	return ok
}

// Paths returns all blob paths, sorted.
func (r *Repo) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.files))
	for p := range r.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Calls returns a copy of the write log.
func (r *Repo) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Writes returns "action path" for each logged write, in order.
func (r *Repo) Writes() []string {
	calls := r.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Action + " " + c.Path
	}
	return out
}

// Reads returns the paths passed to File, in order.
func (r *Repo) Reads() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.reads))
	copy(out, r.reads)
	return out
}

// Markers returns the marker blobs currently stored.
func (r *Repo) Markers() []string {
	var out []string
	for _, p := range r.Paths() {
		if strings.HasSuffix(p, "/"+common.MarkerName) {
			out = append(out, p)
		}
	}
	return out
}
