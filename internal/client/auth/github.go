package auth

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/dmitrijs2005/repopix/internal/client/api"
	"github.com/dmitrijs2005/repopix/internal/client/credstore"
	"github.com/dmitrijs2005/repopix/internal/common"
	"github.com/dmitrijs2005/repopix/internal/logging"
	"github.com/dmitrijs2005/repopix/internal/timex"
	"github.com/google/uuid"
)

// TokenVerifier checks a GitHub token remotely.
type TokenVerifier interface {
	VerifyGitHubToken(ctx context.Context, token string) (*api.TokenStatus, error)
}

// Message is the single result an authorization popup delivers.
type Message struct {
	Type        string
	AccessToken string
	User        api.User
	HasAccess   bool
	State       string
}

// Popup shows the authorize page and waits for its one result. authURL is
// called with the address the result should be delivered to.
type Popup interface {
	Open(ctx context.Context, authURL func(returnTo string) string) (*Message, error)
}

type GitHubOptions struct {
	ClientID     string
	AuthorizeURL string
	RedirectURI  string
	TTL          time.Duration
}

type GitHubProvider struct {
	opts   GitHubOptions
	api    TokenVerifier
	store  *credstore.Store
	popup  Popup
	clock  timex.Clock
	logger logging.Logger
}

func NewGitHubProvider(opts GitHubOptions, v TokenVerifier, store *credstore.Store, popup Popup, clock timex.Clock, logger logging.Logger) *GitHubProvider {
	if opts.AuthorizeURL == "" {
		opts.AuthorizeURL = api.AuthorizeURL
	}
	return &GitHubProvider{
		opts:   opts,
		api:    v,
		store:  store,
		popup:  popup,
		clock:  clock,
		logger: logger.With("module", "github_auth"),
	}
}

func (p *GitHubProvider) Kind() credstore.Kind { return credstore.KindGitHub }

func (p *GitHubProvider) IsAuthenticated(ctx context.Context) (bool, error) {
	c, err := p.store.LoadGitHub(ctx)
	return c != nil, err
}

func (p *GitHubProvider) RequireAuth(ctx context.Context) (bool, error) {
	ok, err := p.verifyStored(ctx)
	if err != nil || ok {
		return ok, err
	}
	return p.login(ctx)
}

// verifyStored re-checks a stored token remotely, since a revoked token
// does not expire locally. A rejected token is forgotten.
func (p *GitHubProvider) verifyStored(ctx context.Context) (bool, error) {
	c, err := p.store.LoadGitHub(ctx)
	if err != nil || c == nil {
		return false, err
	}

	st, err := p.api.VerifyGitHubToken(ctx, c.AccessToken)
	switch {
	case err == nil && st.Valid && st.HasAccess:
		return true, nil
	case err == nil, errors.Is(err, common.ErrUnauthorized):
		p.logger.Info(ctx, "stored github token rejected", "user", c.User.Login)
		return false, p.store.Clear(ctx, credstore.KindGitHub)
	default:
		return false, &Error{Op: "verify", Message: "cannot verify stored GitHub token", Err: err}
	}
}

func (p *GitHubProvider) authorizeURL(state common.OAuthState) string {
	q := url.Values{}
	q.Set("client_id", p.opts.ClientID)
	q.Set("redirect_uri", p.opts.RedirectURI)
	q.Set("scope", "repo")
	q.Set("state", state.Encode())
	return p.opts.AuthorizeURL + "?" + q.Encode()
}

func (p *GitHubProvider) login(ctx context.Context) (bool, error) {
	nonce := uuid.NewString()

	msg, err := p.popup.Open(ctx, func(returnTo string) string {
		return p.authorizeURL(common.OAuthState{Nonce: nonce, ReturnTo: returnTo})
	})
	if err != nil {
		if denied(err) {
			p.logger.Info(ctx, "github login not completed", "reason", err)
			return false, nil
		}
		return false, &Error{Op: "login", Message: "authorization window failed", Err: err}
	}

	switch {
	case msg == nil || msg.AccessToken == "":
		return false, nil
	case msg.State != nonce:
		p.logger.Warn(ctx, "oauth state mismatch, ignoring result")
		return false, nil
	case !msg.HasAccess:
		p.logger.Warn(ctx, "github user has no access to the repository", "user", msg.User.Login)
		return false, nil
	}

	err = p.store.SaveGitHub(ctx, credstore.GitHubCredential{
		AccessToken: msg.AccessToken,
		User: credstore.User{
			Login:     msg.User.Login,
			ID:        msg.User.ID,
			Name:      msg.User.Name,
			AvatarURL: msg.User.AvatarURL,
		},
		ExpiresAt: p.clock.Now().Add(p.opts.TTL),
	})
	if err != nil {
		return false, &Error{Op: "login", Message: "cannot store credential", Err: err}
	}

	p.logger.Info(ctx, "github login complete", "user", msg.User.Login)
	return true, nil
}

func (p *GitHubProvider) Logout(ctx context.Context) error {
	return p.store.Clear(ctx, credstore.KindGitHub)
}

func (p *GitHubProvider) Status(ctx context.Context) (Status, error) {
	s := Status{Kind: credstore.KindGitHub}
	c, err := p.store.LoadGitHub(ctx)
	if err != nil || c == nil {
		return s, err
	}
	s.Authenticated = true
	s.User = c.User.Login
	s.ExpiresAt = c.ExpiresAt
	return s, nil
}
