package authorizer

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/repopix/internal/client/api"
	"github.com/dmitrijs2005/repopix/internal/client/credstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCreds struct {
	gh    *credstore.GitHubCredential
	pw    *credstore.PasswordCredential
	err   error
	loads int
}

func (f *fakeCreds) LoadGitHub(context.Context) (*credstore.GitHubCredential, error) {
	f.loads++
	return f.gh, f.err
}

func (f *fakeCreds) LoadPassword(context.Context) (*credstore.PasswordCredential, error) {
	f.loads++
	return f.pw, f.err
}

func TestAuthorize_Priority(t *testing.T) {
	gh := &credstore.GitHubCredential{AccessToken: "gho_x"}
	pw := &credstore.PasswordCredential{SessionToken: "session"}

	tests := []struct {
		name      string
		gh        *credstore.GitHubCredential
		pw        *credstore.PasswordCredential
		wantGH    string
		wantToken string
	}{
		{name: "github only", gh: gh, wantGH: "gho_x"},
		{name: "both present, github wins", gh: gh, pw: pw, wantGH: "gho_x"},
		{name: "password only", pw: pw, wantToken: "session"},
		{name: "none"},
	}
	for _, tt := range tests {
		for _, action := range []string{api.ActionUpload, api.ActionDelete} {
			t.Run(tt.name+"/"+action, func(t *testing.T) {
				a := New(&fakeCreds{gh: tt.gh, pw: tt.pw})
				p := &api.WritePayload{Action: action, Path: "imgs/a.png"}

				require.NoError(t, a.Authorize(context.Background(), p))
				assert.Equal(t, tt.wantGH, p.GitHubToken)
				assert.Equal(t, tt.wantToken, p.AuthToken)
			})
		}
	}
}

func TestAuthorize_ReplacesStaleFields(t *testing.T) {
	a := New(&fakeCreds{pw: &credstore.PasswordCredential{SessionToken: "fresh"}})
	p := &api.WritePayload{Action: api.ActionUpload, GitHubToken: "old", AuthToken: "old"}

	require.NoError(t, a.Authorize(context.Background(), p))
	assert.Empty(t, p.GitHubToken)
	assert.Equal(t, "fresh", p.AuthToken)
}

func TestAuthorize_ReadOnlyUntouched(t *testing.T) {
	creds := &fakeCreds{gh: &credstore.GitHubCredential{AccessToken: "gho_x"}}
	p := &api.WritePayload{Action: "list"}

	require.NoError(t, New(creds).Authorize(context.Background(), p))
	assert.Empty(t, p.GitHubToken)
	assert.Zero(t, creds.loads)
}

func TestAuthorize_StoreError(t *testing.T) {
	boom := errors.New("disk")
	err := New(&fakeCreds{err: boom}).Authorize(context.Background(), &api.WritePayload{Action: api.ActionDelete})
	assert.ErrorIs(t, err, boom)
}

type recordingSender struct {
	got []api.WritePayload
}

func (r *recordingSender) Write(_ context.Context, p *api.WritePayload) (*api.WriteResult, error) {
	r.got = append(r.got, *p)
	return &api.WriteResult{}, nil
}

func TestWriter_AuthorizesEachSend(t *testing.T) {
	creds := &fakeCreds{}
	sender := &recordingSender{}
	w := NewWriter(sender, New(creds))
	ctx := context.Background()

	_, err := w.Write(ctx, &api.WritePayload{Action: api.ActionUpload, Path: "a"})
	require.NoError(t, err)

	creds.gh = &credstore.GitHubCredential{AccessToken: "gho_new"}
	_, err = w.Write(ctx, &api.WritePayload{Action: api.ActionUpload, Path: "b"})
	require.NoError(t, err)

	require.Len(t, sender.got, 2)
	assert.Empty(t, sender.got[0].GitHubToken)
	assert.Equal(t, "gho_new", sender.got[1].GitHubToken)
}
