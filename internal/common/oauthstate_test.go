package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOAuthState_RoundTrip(t *testing.T) {
	s := OAuthState{Nonce: "n1", ReturnTo: "http://127.0.0.1:5555/oauth/message"}
	assert.Equal(t, s, DecodeOAuthState(s.Encode()))
}

func TestDecodeOAuthState_Opaque(t *testing.T) {
	assert.Equal(t, OAuthState{Nonce: "abc123"}, DecodeOAuthState("abc123"))
	assert.Equal(t, OAuthState{Nonce: ""}, DecodeOAuthState(""))
}

func TestValidateLoopback(t *testing.T) {
	for _, ok := range []string{"http://127.0.0.1:1234/x", "http://localhost:9/x", "http://[::1]:80/"} {
		_, err := ValidateLoopback(ok)
		require.NoError(t, err, ok)
	}
	for _, bad := range []string{"https://127.0.0.1/x", "http://evil.example/x", "http://10.0.0.1/", "javascript:alert(1)"} {
		_, err := ValidateLoopback(bad)
		assert.Error(t, err, bad)
	}
}
