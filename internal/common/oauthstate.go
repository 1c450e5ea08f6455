package common

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
)

// OAuthState is the value round-tripped through the provider's "state"
// parameter. Nonce guards against forged callbacks; ReturnTo, when set, is a
// loopback address the callback hands the result to instead of a browser
// opener window.
type OAuthState struct {
	Nonce    string `json:"n"`
	ReturnTo string `json:"r,omitempty"`
}

func (s OAuthState) Encode() string {
	b, _ := json.Marshal(s)
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeOAuthState parses an encoded state. Plain opaque states (from a
// browser front-end) decode to a state with only Nonce set.
func DecodeOAuthState(raw string) OAuthState {
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err == nil {
		var s OAuthState
		if json.Unmarshal(b, &s) == nil && s.Nonce != "" {
			return s
		}
	}
	return OAuthState{Nonce: raw}
}

// ValidateLoopback accepts only http URLs on 127.0.0.1, ::1 or localhost.
func ValidateLoopback(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" {
		return nil, fmt.Errorf("%w: return address must be http", ErrBadRequest)
	}
	host := u.Hostname()
	if host == "localhost" {
		return u, nil
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return u, nil
	}
	return nil, fmt.Errorf("%w: return address must be loopback", ErrBadRequest)
}
