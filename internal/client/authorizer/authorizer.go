// Package authorizer attaches the active write credential to outgoing
// payloads.
package authorizer

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/repopix/internal/client/api"
	"github.com/dmitrijs2005/repopix/internal/client/credstore"
)

// Credentials is the read side of the credential store. Loads return nil
// for absent or expired credentials.
type Credentials interface {
	LoadGitHub(ctx context.Context) (*credstore.GitHubCredential, error)
	LoadPassword(ctx context.Context) (*credstore.PasswordCredential, error)
}

type Authorizer struct {
	creds Credentials
}

func New(c Credentials) *Authorizer {
	return &Authorizer{creds: c}
}

// Authorize sets githubToken or authToken on a mutating payload, GitHub
// first. Existing credential fields are replaced. Read-only payloads are
// left alone.
func (a *Authorizer) Authorize(ctx context.Context, p *api.WritePayload) error {
	if !p.Mutating() {
		return nil
	}
	p.GitHubToken = ""
	p.AuthToken = ""

	gh, err := a.creds.LoadGitHub(ctx)
	if err != nil {
		return fmt.Errorf("load github credential: %w", err)
	}
	if gh != nil {
		p.GitHubToken = gh.AccessToken
		return nil
	}

	pw, err := a.creds.LoadPassword(ctx)
	if err != nil {
		return fmt.Errorf("load password session: %w", err)
	}
	if pw != nil {
		p.AuthToken = pw.SessionToken
	}
	return nil
}
