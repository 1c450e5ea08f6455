package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/repopix/internal/common"
	"github.com/dmitrijs2005/repopix/internal/server/auth"
	gogithub "github.com/google/go-github/v66/github"
)

// Content is the metadata of one file as returned by the contents endpoint.
type Content struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	SHA         string `json:"sha"`
	Size        int64  `json:"size"`
	Type        string `json:"type"`
	Content     string `json:"content,omitempty"`
	Encoding    string `json:"encoding,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
	HTMLURL     string `json:"html_url,omitempty"`
}

// PutRequest creates or updates a file. Content is base64.
type PutRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch"`
}

// DeleteRequest removes a file; SHA is the blob being removed.
type DeleteRequest struct {
	Message string `json:"message"`
	SHA     string `json:"sha"`
	Branch  string `json:"branch"`
}

// TreeEntry is one node of a recursive tree listing.
type TreeEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
	Size int64  `json:"size,omitempty"`
}

// Tree is the recursive listing of a branch.
type Tree struct {
	SHA       string      `json:"sha"`
	Tree      []TreeEntry `json:"tree"`
	Truncated bool        `json:"truncated"`
}

// User is the authenticated identity.
type User struct {
	Login     string `json:"login"`
	ID        int64  `json:"id"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Repository is the subset of repository metadata used for access checks.
type Repository struct {
	FullName      string `json:"full_name"`
	Private       bool   `json:"private"`
	DefaultBranch string `json:"default_branch,omitempty"`
}

// GetContentRaw fetches file metadata at path on the configured branch.
func (c *Client) GetContentRaw(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, c.contentsPath(path)+"?ref="+url.QueryEscape(c.repo.Branch), nil)
}

func (c *Client) GetContent(ctx context.Context, path string) (*Content, error) {
	fc, _, _, err := c.gh.Repositories.GetContents(ctx, c.repo.Owner, c.repo.Name, path,
		&gogithub.RepositoryContentGetOptions{Ref: c.repo.Branch})
	if err != nil {
		return nil, upstreamError("get content", err)
	}
	if fc == nil {
		return nil, fmt.Errorf("%w: %s is a directory", common.ErrInvalidPath, path)
	}
	out := &Content{
		Name:        fc.GetName(),
		Path:        fc.GetPath(),
		SHA:         fc.GetSHA(),
		Size:        int64(fc.GetSize()),
		Type:        fc.GetType(),
		Encoding:    fc.GetEncoding(),
		DownloadURL: fc.GetDownloadURL(),
		HTMLURL:     fc.GetHTMLURL(),
	}
	if fc.Content != nil {
		out.Content = *fc.Content
	}
	return out, nil
}

// PutContent creates or replaces the file at path.
func (c *Client) PutContent(ctx context.Context, path, message, content, sha string) (*Response, error) {
	return c.Do(ctx, http.MethodPut, c.contentsPath(path), PutRequest{
		Message: message,
		Content: content,
		SHA:     sha,
		Branch:  c.repo.Branch,
	})
}

// DeleteContent removes the file at path.
func (c *Client) DeleteContent(ctx context.Context, path, message, sha string) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, c.contentsPath(path), DeleteRequest{
		Message: message,
		SHA:     sha,
		Branch:  c.repo.Branch,
	})
}

// TreeRaw lists the whole branch recursively.
func (c *Client) TreeRaw(ctx context.Context) (*Response, error) {
	return c.Do(ctx, http.MethodGet, c.repoPath()+"/git/trees/"+url.PathEscape(c.repo.Branch)+"?recursive=1", nil)
}

func (c *Client) Tree(ctx context.Context) (*Tree, error) {
	t, _, err := c.gh.Git.GetTree(ctx, c.repo.Owner, c.repo.Name, c.repo.Branch, true)
	if err != nil {
		return nil, upstreamError("tree", err)
	}
	out := &Tree{SHA: t.GetSHA(), Truncated: t.GetTruncated()}
	for _, e := range t.Entries {
		out.Tree = append(out.Tree, TreeEntry{
			Path: e.GetPath(),
			Mode: e.GetMode(),
			Type: e.GetType(),
			SHA:  e.GetSHA(),
			Size: int64(e.GetSize()),
		})
	}
	return out, nil
}

// User returns the identity behind the client's token.
func (c *Client) User(ctx context.Context) (*User, error) {
	u, _, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		return nil, upstreamError("user", err)
	}
	return &User{
		Login:     u.GetLogin(),
		ID:        u.GetID(),
		Name:      u.GetName(),
		AvatarURL: u.GetAvatarURL(),
	}, nil
}

// Repository fetches the configured repository. It fails when the token
// cannot read it.
func (c *Client) Repository(ctx context.Context) (*Repository, error) {
	r, _, err := c.gh.Repositories.Get(ctx, c.repo.Owner, c.repo.Name)
	if err != nil {
		return nil, upstreamError("repository", err)
	}
	return &Repository{
		FullName:      r.GetFullName(),
		Private:       r.GetPrivate(),
		DefaultBranch: r.GetDefaultBranch(),
	}, nil
}

// Verify resolves token to a user and probes read access to the repository
// with it. A failing identity call is an error; a failing repository call
// only reports hasAccess=false.
func (c *Client) Verify(ctx context.Context, token string) (*User, bool, error) {
	as := c.WithToken(token)

	user, err := as.User(ctx)
	if err != nil {
		return nil, false, err
	}

	if _, err := as.Repository(ctx); err != nil {
		as.logger.Debug(ctx, "repository not readable", "user", user.Login, "error", err)
		return user, false, nil
	}
	return user, true, nil
}

// CheckAccess adapts Verify to the write authorizer.
func (c *Client) CheckAccess(ctx context.Context, token string) (*auth.Identity, error) {
	user, ok, err := c.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	return &auth.Identity{Login: user.Login, HasAccess: ok}, nil
}
