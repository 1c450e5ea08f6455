package pipeline

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/repopix/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntent_Transitions(t *testing.T) {
	rec := &recorder{}
	in := newIntent("upload", "imgs/a.png", rec)

	require.NoError(t, in.grant(true))
	require.NoError(t, in.to(Writing))
	require.NoError(t, in.to(Succeeded))
	assert.True(t, in.State().Terminal())

	err := in.to(Writing)
	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, Succeeded, te.From)
	assert.Equal(t, Writing, te.To)
	assert.Equal(t, "invalid transition succeeded -> writing for imgs/a.png", err.Error())

	assert.Equal(t, []State{AwaitingAuth, Authorized, Writing, Succeeded}, rec.statesOf("imgs/a.png"))
}

func TestIntent_Denied(t *testing.T) {
	in := newIntent("delete", "x", NopReporter{})
	require.NoError(t, in.grant(false))
	assert.Equal(t, Denied, in.State())
	assert.True(t, Denied.Terminal())

	assert.Error(t, in.to(Writing))
}

func TestIntent_CannotSkipAuth(t *testing.T) {
	in := newIntent("upload", "x", NopReporter{})
	assert.Error(t, in.to(Writing))
	assert.Equal(t, Idle, in.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "awaiting-directory", AwaitingDirectory.String())
	assert.Equal(t, "state(42)", State(42).String())
	for _, s := range []State{Succeeded, Failed, Denied, DirectoryFailed} {
		assert.True(t, s.Terminal(), s.String())
	}
	assert.False(t, Retrying.Terminal())
}

func TestNamer(t *testing.T) {
	clock := timex.NewFake(time.Date(2024, 5, 1, 9, 8, 7, 0, time.UTC))
	n := NewNamer(clock)

	assert.Equal(t, "20240501090807.png", n.Name("cat.png"))
	assert.Equal(t, "20240501090807-1.jpg", n.Name("dog.jpg"))
	assert.Equal(t, "20240501090807-2", n.Name("noext"))
	assert.Equal(t, "20240501090807-3", n.Name(".hidden"))

	clock.Advance(time.Second)
	assert.Equal(t, "20240501090808.gz", n.Name("a.tar.gz"))

	n.Reset()
	assert.Equal(t, "20240501090808.webp", n.Name("x.webp"))
}
