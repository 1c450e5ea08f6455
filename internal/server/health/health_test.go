package health

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/repopix/internal/server/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUpstream struct {
	repoErr  error
	treeErr  error
	hasToken bool
}

func (f *fakeUpstream) Repository(context.Context) (*github.Repository, error) {
	if f.repoErr != nil {
		return nil, f.repoErr
	}
	return &github.Repository{FullName: "kate/pics"}, nil
}

func (f *fakeUpstream) Tree(context.Context) (*github.Tree, error) {
	if f.treeErr != nil {
		return nil, f.treeErr
	}
	return &github.Tree{}, nil
}

func (f *fakeUpstream) HasToken() bool { return f.hasToken }

func TestCheck_AllHealthy(t *testing.T) {
	c := NewChecker(&fakeUpstream{hasToken: true}, true, false, nil)
	r := c.Check(context.Background())

	assert.Equal(t, StatusHealthy, r.Status)
	assert.True(t, r.Healthy())
	require.Len(t, r.Checks, 3)
	for name, ch := range r.Checks {
		assert.Equal(t, StatusHealthy, ch.Status, name)
		assert.Nil(t, ch.Error, name)
	}
	assert.True(t, r.Environment.HasGhToken)
	assert.True(t, r.Environment.OAuthConfigured)
	assert.False(t, r.Environment.CompressionConfigured)
}

func TestCheck_Degraded(t *testing.T) {
	up := &fakeUpstream{
		repoErr:  &github.Error{Status: 401, Message: "Bad credentials"},
		treeErr:  errors.New("dial tcp: connection refused"),
		hasToken: false,
	}
	r := NewChecker(up, false, false, nil).Check(context.Background())

	assert.Equal(t, StatusDegraded, r.Status)

	gh := r.Checks["github_api"]
	assert.Equal(t, StatusUnhealthy, gh.Status)
	require.NotNil(t, gh.Error)
	assert.Equal(t, "Bad credentials", *gh.Error)

	tree := r.Checks["tree_api"]
	assert.Equal(t, StatusError, tree.Status)
	require.NotNil(t, tree.Error)
	assert.Contains(t, *tree.Error, "connection refused")

	assert.Equal(t, StatusUnhealthy, r.Checks["config_api"].Status)
}

func TestCheck_StatusOnlyError(t *testing.T) {
	up := &fakeUpstream{repoErr: &github.Error{Status: 502}, hasToken: true}
	r := NewChecker(up, false, false, nil).Check(context.Background())

	require.NotNil(t, r.Checks["github_api"].Error)
	assert.Equal(t, "HTTP 502", *r.Checks["github_api"].Error)
}

func TestWatch_PublishesUntilCancelled(t *testing.T) {
	c := NewChecker(&fakeUpstream{hasToken: true}, false, false, nil)
	ctx, cancel := context.WithCancel(context.Background())

	var (
		mu      sync.Mutex
		reports int
	)
	done := make(chan struct{})
	go func() {
		c.Watch(ctx, 10*time.Millisecond, func(Report) {
			mu.Lock()
			reports++
			mu.Unlock()
		})
		close(done)
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return reports >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch did not stop after cancel")
	}
}
