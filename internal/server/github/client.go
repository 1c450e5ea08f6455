// Package github is a small client for the parts of the GitHub REST API the
// image host needs: repository contents, the recursive tree, and the
// identity endpoints used to check OAuth tokens.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/repopix/internal/logging"
	gogithub "github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
)

const userAgent = "repopix"

// Repo identifies the repository and branch every call is bound to.
type Repo struct {
	Owner  string
	Name   string
	Branch string
}

// Client talks to the GitHub REST API on behalf of one token.
type Client struct {
	gh     *gogithub.Client
	base   *url.URL
	repo   Repo
	token  string
	inner  *http.Client
	logger logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the transport used underneath the bearer-token layer.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.inner = hc }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient returns a client for repo at baseURL (e.g. https://api.github.com)
// that authenticates with token. An empty token sends anonymous requests.
func NewClient(baseURL string, repo Repo, token string, opts ...Option) *Client {
	c := &Client{
		repo:   repo,
		inner:  &http.Client{Timeout: 30 * time.Second},
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("module", "github")
	if baseURL != "" {
		u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
		if err != nil {
			c.logger.Warn(context.Background(), "invalid GitHub API URL, using the default", "url", baseURL, "error", err)
		} else {
			c.base = u
		}
	}
	c.setToken(token)
	return c
}

func (c *Client) setToken(token string) {
	c.token = token
	hc := c.inner
	if token != "" {
		base := c.inner.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		hc = &http.Client{
			Timeout: c.inner.Timeout,
			Transport: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
				Base:   base,
			},
		}
	}
	c.gh = gogithub.NewClient(hc)
	c.gh.UserAgent = userAgent
	if c.base != nil {
		c.gh.BaseURL = c.base
	}
}

// WithToken returns a copy of c that authenticates as token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.setToken(token)
	return &cp
}

// HasToken reports whether requests carry credentials.
func (c *Client) HasToken() bool { return c.token != "" }

func (c *Client) Repo() Repo { return c.repo }

// Response is an upstream reply passed through verbatim.
type Response struct {
	Status int
	Body   json.RawMessage
}

// OK reports a 2xx status.
func (r *Response) OK() bool { return r.Status >= 200 && r.Status < 300 }

// Err converts a non-2xx response into an *Error, or returns nil.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	return &Error{Status: r.Status, Message: messageOf(r.Body)}
}

// Decode unmarshals a successful body into v.
func (r *Response) Decode(v any) error {
	if err := r.Err(); err != nil {
		return err
	}
	return json.Unmarshal(r.Body, v)
}

// Do sends method to urlStr (relative to the API root) with an optional
// JSON body. Transport errors are returned; HTTP errors are reported in
// Response with GitHub's error document as the body.
func (c *Client) Do(ctx context.Context, method, urlStr string, body any) (*Response, error) {
	req, err := c.gh.NewRequest(method, urlStr, body)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var raw json.RawMessage
	resp, err := c.gh.Do(ctx, req, &raw)
	if resp == nil {
		return nil, fmt.Errorf("github %s %s: %w", method, urlStr, err)
	}
	c.logger.Debug(ctx, "github call", "method", method, "path", urlStr, "status", resp.StatusCode, "duration", time.Since(start))

	if err != nil {
		raw = errorDocument(err)
	}
	if len(raw) == 0 || !json.Valid(raw) {
		raw = json.RawMessage("{}")
	}
	return &Response{Status: resp.StatusCode, Body: raw}, nil
}

// errorDocument rebuilds the upstream error body from what go-github
// decoded out of it.
func errorDocument(err error) json.RawMessage {
	doc := map[string]any{}
	var er *gogithub.ErrorResponse
	if errors.As(err, &er) {
		if len(er.Errors) > 0 {
			doc["errors"] = er.Errors
		}
		if er.DocumentationURL != "" {
			doc["documentation_url"] = er.DocumentationURL
		}
	}
	if _, msg, ok := errorDetails(err); ok && msg != "" {
		doc["message"] = msg
	}
	b, mErr := json.Marshal(doc)
	if mErr != nil {
		return nil
	}
	return b
}

// errorDetails extracts the HTTP status and message of an upstream error.
func errorDetails(err error) (int, string, bool) {
	var er *gogithub.ErrorResponse
	if errors.As(err, &er) && er.Response != nil {
		return er.Response.StatusCode, er.Message, true
	}
	var rl *gogithub.RateLimitError
	if errors.As(err, &rl) && rl.Response != nil {
		return rl.Response.StatusCode, rl.Message, true
	}
	var abuse *gogithub.AbuseRateLimitError
	if errors.As(err, &abuse) && abuse.Response != nil {
		return abuse.Response.StatusCode, abuse.Message, true
	}
	return 0, "", false
}

// upstreamError turns a go-github failure into an *Error when GitHub
// answered, or wraps the transport error otherwise.
func upstreamError(op string, err error) error {
	if status, msg, ok := errorDetails(err); ok {
		return &Error{Status: status, Message: msg}
	}
	return fmt.Errorf("github %s: %w", op, err)
}

func (c *Client) repoPath() string {
	return "repos/" + url.PathEscape(c.repo.Owner) + "/" + url.PathEscape(c.repo.Name)
}

func (c *Client) contentsPath(p string) string {
	segs := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return c.repoPath() + "/contents/" + strings.Join(segs, "/")
}
