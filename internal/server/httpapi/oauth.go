package httpapi

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/repopix/internal/common"
	"github.com/dmitrijs2005/repopix/internal/server/github"
	"golang.org/x/oauth2"
	oauthgithub "golang.org/x/oauth2/github"
)

// OAuthMessage is what the callback hands to the waiting client.
type OAuthMessage struct {
	Type        string       `json:"type"`
	AccessToken string       `json:"accessToken"`
	User        *github.User `json:"user"`
	HasAccess   bool         `json:"hasAccess"`
	State       string       `json:"state,omitempty"`
}

const oauthSuccessType = "github-oauth-success"

var openerPage = template.Must(template.New("opener").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Authorized</title></head>
<body>
<script>
  if (window.opener) {
    window.opener.postMessage({{.}}, '*');
  }
  window.close();
</script>
<p>Authorization complete, closing window...</p>
</body>
</html>
`))

var loopbackPage = template.Must(template.New("loopback").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Authorized</title></head>
<body>
<form id="result" method="post" action="{{.ReturnTo}}">
  <input type="hidden" name="type" value="{{.Msg.Type}}">
  <input type="hidden" name="accessToken" value="{{.Msg.AccessToken}}">
  <input type="hidden" name="login" value="{{.Msg.User.Login}}">
  <input type="hidden" name="hasAccess" value="{{.Msg.HasAccess}}">
  <input type="hidden" name="state" value="{{.Msg.State}}">
  <noscript><button type="submit">Continue</button></noscript>
</form>
<script>document.getElementById('result').submit();</script>
</body>
</html>
`))

func (s *Server) handleOAuth(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	action := q.Get("action")

	switch {
	case r.Method == http.MethodGet && action == "callback" && q.Get("code") != "":
		s.oauthCallback(w, r)
	case r.Method == http.MethodPost && action == "verify":
		s.oauthVerify(w, r)
	default:
		writeError(w, http.StatusBadRequest, "Invalid request")
	}
}

func (s *Server) oauthConfig(r *http.Request) (*oauth2.Config, error) {
	o := s.deps.OAuth
	if o.ClientID == "" || o.ClientSecret == "" {
		return nil, common.ErrNotConfigured
	}

	redirect := o.RedirectURI
	if redirect == "" {
		base := r.Header.Get("Origin")
		if base == "" {
			base = requestOrigin(r)
		}
		redirect = strings.TrimRight(base, "/") + "/api/github-oauth?action=callback"
	}

	endpoint := oauthgithub.Endpoint
	if o.AuthURL != "" {
		endpoint.AuthURL = o.AuthURL
	}
	if o.TokenURL != "" {
		endpoint.TokenURL = o.TokenURL
	}

	return &oauth2.Config{
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		Endpoint:     endpoint,
		RedirectURL:  redirect,
		Scopes:       []string{"repo"},
	}, nil
}

func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	return scheme + "://" + r.Host
}

func (s *Server) oauthCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	conf, err := s.oauthConfig(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError,
			"GitHub OAuth not configured. Please set GITHUB_OAUTH_CLIENT_ID and GITHUB_OAUTH_CLIENT_SECRET")
		return
	}

	state := common.DecodeOAuthState(q.Get("state"))
	if state.ReturnTo != "" {
		if _, err := common.ValidateLoopback(state.ReturnTo); err != nil {
			writeError(w, http.StatusBadRequest, "invalid return address")
			return
		}
	}

	tok, err := conf.Exchange(ctx, q.Get("code"))
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			msg := re.ErrorDescription
			if msg == "" {
				msg = re.ErrorCode
			}
			if msg == "" {
				msg = "Failed to get access token"
			}
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		s.logger.Error(ctx, "oauth exchange failed", "error", err)
		writeError(w, http.StatusBadRequest, "Failed to get access token")
		return
	}
	if tok.AccessToken == "" {
		writeError(w, http.StatusBadRequest, "Failed to get access token")
		return
	}

	user, hasAccess, err := s.deps.Tokens.Verify(ctx, tok.AccessToken)
	if err != nil {
		s.logger.Warn(ctx, "oauth token verification failed", "error", err)
		writeError(w, http.StatusUnauthorized, "Failed to verify token")
		return
	}

	msg := OAuthMessage{
		Type:        oauthSuccessType,
		AccessToken: tok.AccessToken,
		User:        user,
		HasAccess:   hasAccess,
		State:       state.Nonce,
	}
	s.logger.Info(ctx, "oauth login", "user", user.Login, "has_access", hasAccess, "loopback", state.ReturnTo != "")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if state.ReturnTo != "" {
		err = loopbackPage.Execute(w, struct {
			ReturnTo string
			Msg      OAuthMessage
		}{ReturnTo: state.ReturnTo, Msg: msg})
	} else {
		err = openerPage.Execute(w, msg)
	}
	if err != nil {
		s.logger.Error(ctx, "render oauth page", "error", err)
	}
}

type verifyTokenRequest struct {
	Token string `json:"token"`
}

// VerifyTokenResponse is the reply of POST /api/github-oauth?action=verify.
type VerifyTokenResponse struct {
	Valid     bool         `json:"valid"`
	User      *github.User `json:"user"`
	HasAccess bool         `json:"hasAccess"`
}

func (s *Server) oauthVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyTokenRequest
	if err := decodeBody(r, &req); err != nil || req.Token == "" {
		writeError(w, http.StatusBadRequest, "Token is required")
		return
	}

	user, hasAccess, err := s.deps.Tokens.Verify(r.Context(), req.Token)
	if err != nil {
		var ghErr *github.Error
		if errors.As(err, &ghErr) {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		s.logger.Error(r.Context(), "token verification failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, VerifyTokenResponse{Valid: true, User: user, HasAccess: hasAccess})
}
