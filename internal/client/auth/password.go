package auth

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/repopix/internal/client/api"
	"github.com/dmitrijs2005/repopix/internal/client/credstore"
	"github.com/dmitrijs2005/repopix/internal/common"
	"github.com/dmitrijs2005/repopix/internal/logging"
)

// MaxPasswordAttempts bounds how often a wrong password is re-prompted.
const MaxPasswordAttempts = 3

// PasswordVerifier exchanges a password for a session token.
type PasswordVerifier interface {
	VerifyPassword(ctx context.Context, password string) (*api.PasswordSession, error)
}

// Prompter asks the user for the password. An empty answer or
// ErrCancelled means the user gave up.
type Prompter interface {
	Password(ctx context.Context, attempt int) (string, error)
}

type PasswordProvider struct {
	api    PasswordVerifier
	store  *credstore.Store
	prompt Prompter
	logger logging.Logger
}

func NewPasswordProvider(v PasswordVerifier, store *credstore.Store, prompt Prompter, logger logging.Logger) *PasswordProvider {
	return &PasswordProvider{
		api:    v,
		store:  store,
		prompt: prompt,
		logger: logger.With("module", "password_auth"),
	}
}

func (p *PasswordProvider) Kind() credstore.Kind { return credstore.KindPassword }

func (p *PasswordProvider) IsAuthenticated(ctx context.Context) (bool, error) {
	c, err := p.store.LoadPassword(ctx)
	return c != nil, err
}

func (p *PasswordProvider) RequireAuth(ctx context.Context) (bool, error) {
	ok, err := p.IsAuthenticated(ctx)
	if err != nil || ok {
		return ok, err
	}

	for attempt := 1; attempt <= MaxPasswordAttempts; attempt++ {
		pw, err := p.prompt.Password(ctx, attempt)
		if err != nil {
			if denied(err) {
				return false, nil
			}
			return false, &Error{Op: "prompt", Message: "cannot read password", Err: err}
		}
		if pw == "" {
			return false, nil
		}

		session, err := p.api.VerifyPassword(ctx, pw)
		if errors.Is(err, common.ErrUnauthorized) {
			p.logger.Warn(ctx, "wrong password", "attempt", attempt)
			continue
		}
		if err != nil {
			return false, &Error{Op: "verify-password", Message: "password check failed", Err: err}
		}

		err = p.store.SavePassword(ctx, credstore.PasswordCredential{
			SessionToken: session.Token,
			ExpiresAt:    session.ExpiresAt,
		})
		if err != nil {
			return false, &Error{Op: "login", Message: "cannot store session", Err: err}
		}
		return true, nil
	}

	return false, nil
}

func (p *PasswordProvider) Logout(ctx context.Context) error {
	return p.store.Clear(ctx, credstore.KindPassword)
}

func (p *PasswordProvider) Status(ctx context.Context) (Status, error) {
	s := Status{Kind: credstore.KindPassword}
	c, err := p.store.LoadPassword(ctx)
	if err != nil || c == nil {
		return s, err
	}
	s.Authenticated = true
	s.ExpiresAt = c.ExpiresAt
	return s, nil
}
