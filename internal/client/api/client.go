// Package api is the CLI's client for the repopix server's /api surface.
package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/repopix/internal/logging"
	"github.com/dmitrijs2005/repopix/internal/netx"
)

const maxResponseBytes = 64 << 20

type Client struct {
	base   string
	http   *http.Client
	logger logging.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   netx.NewHTTPClient(60 * time.Second),
		logger: logging.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With("module", "api_client")
	return c
}

// BaseURL is the server root, without a trailing slash.
func (c *Client) BaseURL() string { return c.base }

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(method+" "+path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return transportError(method+" "+path, err)
	}

	c.logger.Debug(ctx, "api call", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromBody(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// Write sends an upload or delete. The payload should already carry its
// credential.
func (c *Client) Write(ctx context.Context, p *WritePayload) (*WriteResult, error) {
	var out WriteResult
	if err := c.do(ctx, http.MethodPost, "/api/github", nil, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// File returns metadata and base64 content of one path.
func (c *Client) File(ctx context.Context, path string) (*Content, error) {
	var out Content
	if err := c.do(ctx, http.MethodGet, "/api/file", url.Values{"path": {path}}, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Tree(ctx context.Context) (*Tree, error) {
	var out Tree
	if err := c.do(ctx, http.MethodGet, "/api/tree", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PublicConfig(ctx context.Context) (*PublicConfig, error) {
	var out PublicConfig
	if err := c.do(ctx, http.MethodGet, "/api/config", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) VerifyPassword(ctx context.Context, password string) (*PasswordSession, error) {
	var out struct {
		Valid     bool   `json:"valid"`
		Token     string `json:"token"`
		ExpiresAt int64  `json:"expiresAt"`
	}
	in := map[string]string{"password": password}
	if err := c.do(ctx, http.MethodPost, "/api/verify-password", nil, in, &out); err != nil {
		return nil, err
	}
	if !out.Valid || out.Token == "" {
		return nil, &Error{Status: http.StatusUnauthorized, Message: "Invalid password"}
	}
	return &PasswordSession{Token: out.Token, ExpiresAt: time.UnixMilli(out.ExpiresAt)}, nil
}

func (c *Client) VerifyGitHubToken(ctx context.Context, token string) (*TokenStatus, error) {
	var out TokenStatus
	in := map[string]string{"token": token}
	if err := c.do(ctx, http.MethodPost, "/api/github-oauth", url.Values{"action": {"verify"}}, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Compress sends raw image bytes through the server's compression proxy and
// returns the compressed bytes.
func (c *Client) Compress(ctx context.Context, fileName string, data []byte) ([]byte, *CompressResult, error) {
	in := map[string]string{
		"imageData": base64.StdEncoding.EncodeToString(data),
		"fileName":  fileName,
	}
	var out CompressResult
	if err := c.do(ctx, http.MethodPost, "/api/compress", nil, in, &out); err != nil {
		return nil, nil, err
	}
	compressed, err := base64.StdEncoding.DecodeString(out.ImageData)
	if err != nil {
		return nil, nil, fmt.Errorf("decode compressed image: %w", err)
	}
	return compressed, &out, nil
}

func (c *Client) Health(ctx context.Context) (*HealthReport, error) {
	var out HealthReport
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AuthorizeURL is the GitHub authorize endpoint the OAuth flow starts at.
const AuthorizeURL = "https://github.com/login/oauth/authorize"

// CallbackURL is the redirect URI registered for the server's OAuth app.
func (c *Client) CallbackURL() string {
	return c.base + "/api/github-oauth?action=callback"
}
