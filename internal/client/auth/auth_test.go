package auth

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/repopix/internal/client/api"
	"github.com/dmitrijs2005/repopix/internal/client/credstore"
	"github.com/dmitrijs2005/repopix/internal/common"
	"github.com/dmitrijs2005/repopix/internal/logging"
	"github.com/dmitrijs2005/repopix/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T) (*credstore.Store, *timex.Fake) {
	t.Helper()
	db, err := credstore.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	clock := timex.NewFake(t0)
	return credstore.New(db, clock, logging.Nop()), clock
}

type fakeVerifier struct {
	mu     sync.Mutex
	status map[string]*api.TokenStatus
	err    error
	calls  []string
}

func (f *fakeVerifier) VerifyGitHubToken(_ context.Context, token string) (*api.TokenStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, token)
	if f.err != nil {
		return nil, f.err
	}
	if st, ok := f.status[token]; ok {
		return st, nil
	}
	return nil, &api.Error{Status: 401, Message: "Invalid token"}
}

// scriptedPopup answers with msg, echoing the nonce it was given unless
// wrongState is set.
type scriptedPopup struct {
	msg        *Message
	err        error
	wrongState bool
	opened     int
	lastURL    string
}

func (p *scriptedPopup) Open(_ context.Context, authURL func(string) string) (*Message, error) {
	p.opened++
	p.lastURL = authURL("http://127.0.0.1:5555/oauth/message")
	if p.err != nil {
		return nil, p.err
	}
	if p.msg == nil {
		return nil, nil
	}
	m := *p.msg
	if !p.wrongState {
		m.State = nonceFromURL(p.lastURL)
	}
	return &m, nil
}

func newGitHubProvider(t *testing.T, v TokenVerifier, popup Popup) (*GitHubProvider, *credstore.Store, *timex.Fake) {
	store, clock := newStore(t)
	p := NewGitHubProvider(GitHubOptions{
		ClientID:    "cid",
		RedirectURI: "http://127.0.0.1:8080/api/github-oauth?action=callback",
		TTL:         30 * 24 * time.Hour,
	}, v, store, popup, clock, logging.Nop())
	return p, store, clock
}

func TestGitHub_StoredTokenVerifiedRemotely(t *testing.T) {
	v := &fakeVerifier{status: map[string]*api.TokenStatus{"gho_ok": {Valid: true, HasAccess: true}}}
	popup := &scriptedPopup{}
	p, store, _ := newGitHubProvider(t, v, popup)
	ctx := context.Background()

	require.NoError(t, store.SaveGitHub(ctx, credstore.GitHubCredential{AccessToken: "gho_ok", ExpiresAt: t0.Add(time.Hour)}))

	ok, err := p.RequireAuth(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"gho_ok"}, v.calls)
	assert.Zero(t, popup.opened)
}

func TestGitHub_RevokedTokenTriggersPopup(t *testing.T) {
	v := &fakeVerifier{}
	popup := &scriptedPopup{msg: &Message{Type: "github-oauth-success", AccessToken: "gho_new", User: api.User{Login: "kate"}, HasAccess: true}}
	p, store, clock := newGitHubProvider(t, v, popup)
	ctx := context.Background()

	require.NoError(t, store.SaveGitHub(ctx, credstore.GitHubCredential{AccessToken: "gho_revoked", ExpiresAt: t0.Add(time.Hour)}))

	ok, err := p.RequireAuth(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, popup.opened)

	c, err := store.LoadGitHub(ctx)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "gho_new", c.AccessToken)
	assert.Equal(t, "kate", c.User.Login)
	assert.True(t, clock.Now().Add(30*24*time.Hour).Equal(c.ExpiresAt))
}

func TestGitHub_AuthorizeURL(t *testing.T) {
	popup := &scriptedPopup{err: ErrPopupClosed}
	p, _, _ := newGitHubProvider(t, &fakeVerifier{}, popup)

	ok, err := p.RequireAuth(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Contains(t, popup.lastURL, "https://github.com/login/oauth/authorize?")
	assert.Contains(t, popup.lastURL, "client_id=cid")
	assert.Contains(t, popup.lastURL, "scope=repo")

	state := stateFromURL(popup.lastURL)
	assert.NotEmpty(t, state.Nonce)
	assert.Equal(t, "http://127.0.0.1:5555/oauth/message", state.ReturnTo)
}

func TestGitHub_Denials(t *testing.T) {
	tests := []struct {
		name  string
		popup *scriptedPopup
	}{
		{"no access", &scriptedPopup{msg: &Message{AccessToken: "gho", HasAccess: false}}},
		{"state mismatch", &scriptedPopup{msg: &Message{AccessToken: "gho", HasAccess: true}, wrongState: true}},
		{"closed", &scriptedPopup{err: ErrPopupClosed}},
		{"timeout", &scriptedPopup{err: ErrAuthTimeout}},
		{"empty result", &scriptedPopup{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, store, _ := newGitHubProvider(t, &fakeVerifier{}, tt.popup)
			ok, err := p.RequireAuth(context.Background())
			require.NoError(t, err)
			assert.False(t, ok)

			c, err := store.LoadGitHub(context.Background())
			require.NoError(t, err)
			assert.Nil(t, c)
		})
	}
}

func TestGitHub_VerifyUnavailableIsError(t *testing.T) {
	v := &fakeVerifier{err: common.ErrUnavailable}
	popup := &scriptedPopup{}
	p, store, _ := newGitHubProvider(t, v, popup)
	ctx := context.Background()
	require.NoError(t, store.SaveGitHub(ctx, credstore.GitHubCredential{AccessToken: "gho", ExpiresAt: t0.Add(time.Hour)}))

	_, err := p.RequireAuth(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnavailable)
	assert.Zero(t, popup.opened)

	c, err := store.LoadGitHub(ctx)
	require.NoError(t, err)
	assert.NotNil(t, c, "a transient failure must not forget the token")
}

func TestGitHub_StatusAndLogout(t *testing.T) {
	p, store, _ := newGitHubProvider(t, &fakeVerifier{}, &scriptedPopup{})
	ctx := context.Background()

	st, err := p.Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.Authenticated)

	require.NoError(t, store.SaveGitHub(ctx, credstore.GitHubCredential{AccessToken: "gho", User: credstore.User{Login: "kate"}, ExpiresAt: t0.Add(time.Hour)}))
	st, err = p.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Authenticated)
	assert.Contains(t, st.String(), "kate via github")

	require.NoError(t, p.Logout(ctx))
	ok, err := p.IsAuthenticated(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

type fakePasswords struct {
	good  string
	calls int
	err   error
}

func (f *fakePasswords) VerifyPassword(_ context.Context, pw string) (*api.PasswordSession, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if pw != f.good {
		return nil, &api.Error{Status: 401, Message: "Invalid password"}
	}
	return &api.PasswordSession{Token: "session", ExpiresAt: t0.Add(24 * time.Hour)}, nil
}

type scriptedPrompter struct {
	answers []string
	err     error
	asked   int
}

func (p *scriptedPrompter) Password(context.Context, int) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	if p.asked >= len(p.answers) {
		return "", nil
	}
	a := p.answers[p.asked]
	p.asked++
	return a, nil
}

func TestPassword_RepromptsThenSucceeds(t *testing.T) {
	store, _ := newStore(t)
	v := &fakePasswords{good: "hunter2"}
	prompt := &scriptedPrompter{answers: []string{"nope", "hunter2"}}
	p := NewPasswordProvider(v, store, prompt, logging.Nop())
	ctx := context.Background()

	ok, err := p.RequireAuth(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, prompt.asked)

	c, err := store.LoadPassword(ctx)
	require.NoError(t, err)
	assert.Equal(t, "session", c.SessionToken)

	ok, err = p.RequireAuth(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, v.calls, "stored session must be reused")
}

func TestPassword_GivesUpAfterThreeAttempts(t *testing.T) {
	store, _ := newStore(t)
	prompt := &scriptedPrompter{answers: []string{"a", "b", "c", "d"}}
	p := NewPasswordProvider(&fakePasswords{good: "hunter2"}, store, prompt, logging.Nop())

	ok, err := p.RequireAuth(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, MaxPasswordAttempts, prompt.asked)
}

func TestPassword_CancelIsDenied(t *testing.T) {
	store, _ := newStore(t)

	p := NewPasswordProvider(&fakePasswords{good: "x"}, store, &scriptedPrompter{}, logging.Nop())
	ok, err := p.RequireAuth(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	p = NewPasswordProvider(&fakePasswords{good: "x"}, store, &scriptedPrompter{err: ErrCancelled}, logging.Nop())
	ok, err = p.RequireAuth(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPassword_ServerErrorIsReturned(t *testing.T) {
	store, _ := newStore(t)
	v := &fakePasswords{err: &api.Error{Status: 500, Message: "Password not configured on server"}}
	p := NewPasswordProvider(v, store, &scriptedPrompter{answers: []string{"x"}}, logging.Nop())

	_, err := p.RequireAuth(context.Background())
	var authErr *Error
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "verify-password", authErr.Op)
}

type blockingProvider struct {
	Provider
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (b *blockingProvider) RequireAuth(context.Context) (bool, error) {
	b.calls.Add(1)
	close(b.entered)
	<-b.release
	return true, nil
}

func TestGate_SharesOneInteractiveFlow(t *testing.T) {
	bp := &blockingProvider{entered: make(chan struct{}), release: make(chan struct{})}
	g := NewGate(bp)

	results := make(chan bool, 2)
	go func() {
		ok, _ := g.RequireAuth(context.Background())
		results <- ok
	}()
	<-bp.entered
	go func() {
		ok, _ := g.RequireAuth(context.Background())
		results <- ok
	}()

	time.Sleep(50 * time.Millisecond)
	close(bp.release)

	assert.True(t, <-results)
	assert.True(t, <-results)
	assert.Equal(t, int32(1), bp.calls.Load())
}

// ctxProvider blocks in RequireAuth until released and records whether
// the flow's context was still alive at that point.
type ctxProvider struct {
	Provider
	entered  chan struct{}
	release  chan struct{}
	flowErr  error
	deadline bool
}

func (p *ctxProvider) RequireAuth(ctx context.Context) (bool, error) {
	close(p.entered)
	<-p.release
	p.flowErr = ctx.Err()
	_, p.deadline = ctx.Deadline()
	return p.flowErr == nil, nil
}

func TestGate_CancelledCallerDoesNotDenyOthers(t *testing.T) {
	cp := &ctxProvider{entered: make(chan struct{}), release: make(chan struct{})}
	g := NewGate(cp, WithFlowTimeout(time.Minute))

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := g.RequireAuth(first)
		firstErr <- err
	}()
	<-cp.entered

	type result struct {
		ok  bool
		err error
	}
	second := make(chan result, 1)
	go func() {
		ok, err := g.RequireAuth(context.Background())
		second <- result{ok, err}
	}()

	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	time.Sleep(50 * time.Millisecond)
	close(cp.release)

	r := <-second
	require.NoError(t, r.err)
	assert.True(t, r.ok)
	assert.NoError(t, cp.flowErr)
	assert.True(t, cp.deadline)
}

func TestGate_ReauthorizeForgetsCredential(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.SavePassword(ctx, credstore.PasswordCredential{SessionToken: "stale", ExpiresAt: t0.Add(time.Hour)}))

	v := &fakePasswords{good: "hunter2"}
	prompt := &scriptedPrompter{answers: []string{"hunter2"}}
	g := NewGate(NewPasswordProvider(v, store, prompt, logging.Nop()))

	ok, err := g.Reauthorize(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, prompt.asked)

	c, err := store.LoadPassword(ctx)
	require.NoError(t, err)
	assert.Equal(t, "session", c.SessionToken)
}

func TestError_Unwrap(t *testing.T) {
	err := &Error{Op: "login", Message: "boom", Err: io.EOF}
	assert.True(t, errors.Is(err, io.EOF))
	assert.Equal(t, "login: boom: EOF", err.Error())
}
