package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/repopix/internal/common"
	"github.com/dmitrijs2005/repopix/internal/logging"
	"github.com/dmitrijs2005/repopix/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdentities struct {
	byToken map[string]*Identity
	calls   int
}

func (f *fakeIdentities) CheckAccess(_ context.Context, token string) (*Identity, error) {
	f.calls++
	if id, ok := f.byToken[token]; ok {
		return id, nil
	}
	return nil, errors.New("bad credentials")
}

func newIdentities() *fakeIdentities {
	return &fakeIdentities{byToken: map[string]*Identity{
		"gho_owner":    {Login: "kate", HasAccess: true},
		"gho_stranger": {Login: "eve", HasAccess: false},
	}}
}

func TestAuthorizer_Order(t *testing.T) {
	clock := timex.NewFake(t0)
	sessions := NewSessionIssuer([]byte("k"), 24*time.Hour, clock)
	session, _, err := sessions.Issue()
	require.NoError(t, err)

	tests := []struct {
		name        string
		secret      string
		passwordSet bool
		creds       Credentials
		want        Method
		wantErr     error
	}{
		{name: "github token with access", creds: Credentials{GitHubToken: "gho_owner"}, want: MethodGitHub},
		{name: "github wins over secret", secret: "s3", creds: Credentials{GitHubToken: "gho_owner", AuthToken: "s3"}, want: MethodGitHub},
		{name: "no access falls through to secret", secret: "s3", creds: Credentials{GitHubToken: "gho_stranger", AuthToken: "s3"}, want: MethodSecret},
		{name: "invalid github token falls through", secret: "s3", creds: Credentials{GitHubToken: "junk", AuthToken: "s3"}, want: MethodSecret},
		{name: "wrong secret", secret: "s3", creds: Credentials{AuthToken: "s4"}, wantErr: common.ErrUnauthorized},
		{name: "session ignored when secret configured", secret: "s3", passwordSet: true, creds: Credentials{AuthToken: session}, wantErr: common.ErrUnauthorized},
		{name: "password session", passwordSet: true, creds: Credentials{AuthToken: session}, want: MethodPassword},
		{name: "session without password configured", creds: Credentials{AuthToken: session}, wantErr: common.ErrUnauthorized},
		{name: "forged session", passwordSet: true, creds: Credentials{AuthToken: "1714564800000:nonce"}, wantErr: common.ErrUnauthorized},
		{name: "no credentials", secret: "s3", passwordSet: true, wantErr: common.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAuthorizer(newIdentities(), sessions, tt.secret, tt.passwordSet, logging.Nop())
			got, err := a.Authorize(context.Background(), tt.creds)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthorizer_ExpiredSession(t *testing.T) {
	clock := timex.NewFake(t0)
	sessions := NewSessionIssuer([]byte("k"), 24*time.Hour, clock)
	session, _, err := sessions.Issue()
	require.NoError(t, err)

	a := NewAuthorizer(nil, sessions, "", true, logging.Nop())

	_, err = a.Authorize(context.Background(), Credentials{AuthToken: session})
	require.NoError(t, err)

	clock.Advance(25 * time.Hour)
	_, err = a.Authorize(context.Background(), Credentials{AuthToken: session})
	require.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestAuthorizer_SkipsIdentityCallWithoutToken(t *testing.T) {
	ids := newIdentities()
	a := NewAuthorizer(ids, nil, "s3", false, logging.Nop())

	_, err := a.Authorize(context.Background(), Credentials{AuthToken: "s3"})
	require.NoError(t, err)
	assert.Zero(t, ids.calls)
}
