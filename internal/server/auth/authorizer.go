package auth

import (
	"context"
	"crypto/subtle"

	"github.com/dmitrijs2005/repopix/internal/common"
	"github.com/dmitrijs2005/repopix/internal/logging"
)

// Credentials are the optional caller credentials carried by a write request.
type Credentials struct {
	GitHubToken string
	AuthToken   string
}

// Method names the credential kind that authorized a request.
type Method string

const (
	MethodGitHub   Method = "github"
	MethodSecret   Method = "secret"
	MethodPassword Method = "password"
)

// Identity is what the remote identity provider says about a token.
type Identity struct {
	Login     string
	HasAccess bool
}

// IdentityChecker resolves a GitHub token to an identity and its read access
// to the configured repository.
type IdentityChecker interface {
	CheckAccess(ctx context.Context, token string) (*Identity, error)
}

// SessionVerifier validates password session tokens.
type SessionVerifier interface {
	Verify(token string) error
}

// Authorizer decides whether a write request may proceed. Kinds are tried in
// a fixed order (GitHub token, shared secret, password session) and the
// first success wins.
type Authorizer struct {
	identities    IdentityChecker
	sessions      SessionVerifier
	secret        string
	passwordIsSet bool
	logger        logging.Logger
}

func NewAuthorizer(identities IdentityChecker, sessions SessionVerifier, secret string, passwordIsSet bool, logger logging.Logger) *Authorizer {
	return &Authorizer{
		identities:    identities,
		sessions:      sessions,
		secret:        secret,
		passwordIsSet: passwordIsSet,
		logger:        logger.With("module", "authorizer"),
	}
}

// Authorize returns the method that accepted c, or common.ErrUnauthorized.
func (a *Authorizer) Authorize(ctx context.Context, c Credentials) (Method, error) {
	if c.GitHubToken != "" && a.identities != nil {
		id, err := a.identities.CheckAccess(ctx, c.GitHubToken)
		switch {
		case err != nil:
			a.logger.Debug(ctx, "github token rejected", "error", err)
		case !id.HasAccess:
			a.logger.Debug(ctx, "github user has no repository access", "user", id.Login)
		default:
			return MethodGitHub, nil
		}
	}

	if a.secret != "" {
		if c.AuthToken != "" && subtle.ConstantTimeCompare([]byte(c.AuthToken), []byte(a.secret)) == 1 {
			return MethodSecret, nil
		}
	} else if a.passwordIsSet && c.AuthToken != "" && a.sessions != nil {
		err := a.sessions.Verify(c.AuthToken)
		if err == nil {
			return MethodPassword, nil
		}
		a.logger.Debug(ctx, "session token rejected", "error", err)
	}

	return "", common.ErrUnauthorized
}
