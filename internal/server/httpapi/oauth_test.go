package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/dmitrijs2005/repopix/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTokenEndpoint hands out gho_owner for code "good" and a GitHub style
// error for anything else.
func fakeTokenEndpoint(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("code") != "good" {
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":             "bad_verification_code",
				"error_description": "The code passed is incorrect or expired.",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": "gho_owner",
			"token_type":   "bearer",
			"scope":        "repo",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func oauthEnv(t *testing.T) *testEnv {
	endpoint := fakeTokenEndpoint(t)
	return newTestEnv(t, func(d *Deps) {
		d.OAuth = OAuthSettings{
			ClientID:     "cid",
			ClientSecret: "csecret",
			TokenURL:     endpoint.URL + "/login/oauth/access_token",
		}
	})
}

func TestOAuth_InvalidRequest(t *testing.T) {
	env := oauthEnv(t)

	rec := env.do(t, http.MethodGet, "/api/github-oauth?action=callback", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request", decode(t, rec)["error"])

	rec = env.do(t, http.MethodPost, "/api/github-oauth?action=other", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOAuth_CallbackNotConfigured(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/github-oauth?action=callback&code=good", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestOAuth_CallbackOpenerPage(t *testing.T) {
	env := oauthEnv(t)

	rec := env.do(t, http.MethodGet, "/api/github-oauth?action=callback&code=good&state=n0nce", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	body := rec.Body.String()
	assert.Contains(t, body, "window.opener.postMessage")
	assert.Contains(t, body, `"type":"github-oauth-success"`)
	assert.Contains(t, body, `"accessToken":"gho_owner"`)
	assert.Contains(t, body, `"hasAccess":true`)
	assert.Contains(t, body, `"state":"n0nce"`)
}

func TestOAuth_CallbackLoopbackPage(t *testing.T) {
	env := oauthEnv(t)

	state := common.OAuthState{Nonce: "abc", ReturnTo: "http://127.0.0.1:5555/oauth/message"}.Encode()
	rec := env.do(t, http.MethodGet, "/api/github-oauth?action=callback&code=good&state="+url.QueryEscape(state), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := rec.Body.String()
	assert.Contains(t, body, `action="http://127.0.0.1:5555/oauth/message"`)
	assert.Contains(t, body, `name="accessToken" value="gho_owner"`)
	assert.Contains(t, body, `name="login" value="kate"`)
	assert.Contains(t, body, `name="state" value="abc"`)
	assert.NotContains(t, body, "window.opener")
}

func TestOAuth_CallbackRejectsRemoteReturnAddress(t *testing.T) {
	env := oauthEnv(t)

	state := common.OAuthState{Nonce: "abc", ReturnTo: "http://attacker.example/steal"}.Encode()
	rec := env.do(t, http.MethodGet, "/api/github-oauth?action=callback&code=good&state="+url.QueryEscape(state), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotContains(t, rec.Body.String(), "gho_owner")
}

func TestOAuth_CallbackBadCode(t *testing.T) {
	env := oauthEnv(t)

	rec := env.do(t, http.MethodGet, "/api/github-oauth?action=callback&code=stale", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "The code passed is incorrect or expired.", decode(t, rec)["error"])
}

func TestOAuth_Verify(t *testing.T) {
	env := oauthEnv(t)

	tests := []struct {
		name       string
		token      string
		wantStatus int
		wantAccess bool
	}{
		{name: "collaborator", token: "gho_owner", wantStatus: http.StatusOK, wantAccess: true},
		{name: "no access", token: "gho_stranger", wantStatus: http.StatusOK},
		{name: "bad token", token: "gho_revoked", wantStatus: http.StatusUnauthorized},
		{name: "upstream down", token: "gho_down", wantStatus: http.StatusInternalServerError},
		{name: "missing token", token: "", wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/github-oauth?action=verify", map[string]string{"token": tt.token})
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus != http.StatusOK {
				return
			}
			var got VerifyTokenResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.True(t, got.Valid)
			assert.Equal(t, tt.wantAccess, got.HasAccess)
		})
	}
}

func TestOAuthConfig_RedirectFallback(t *testing.T) {
	env := oauthEnv(t)

	req := httptest.NewRequest(http.MethodGet, "http://img.example/api/github-oauth", nil)
	conf, err := env.srv.oauthConfig(req)
	require.NoError(t, err)
	assert.Equal(t, "http://img.example/api/github-oauth?action=callback", conf.RedirectURL)

	req.Header.Set("Origin", "https://pics.example/")
	conf, err = env.srv.oauthConfig(req)
	require.NoError(t, err)
	assert.Equal(t, "https://pics.example/api/github-oauth?action=callback", conf.RedirectURL)
	assert.Equal(t, []string{"repo"}, conf.Scopes)
}
