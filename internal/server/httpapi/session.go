package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/repopix/internal/common"
)

type verifyPasswordRequest struct {
	Password string `json:"password"`
}

// VerifyPasswordResponse carries a session token; ExpiresAt is epoch millis.
type VerifyPasswordResponse struct {
	Valid     bool   `json:"valid"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

func (s *Server) handleVerifyPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req verifyPasswordRequest
	if err := decodeBody(r, &req); err != nil || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Password is required")
		return
	}
	if !s.deps.Passwords.Configured() {
		writeError(w, http.StatusInternalServerError, "Password not configured on server")
		return
	}

	if err := s.deps.Passwords.Check(req.Password); err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			s.logger.Warn(ctx, "password rejected")
			writeError(w, http.StatusUnauthorized, "Invalid password")
			return
		}
		s.logger.Error(ctx, "password check failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	token, expiresAt, err := s.deps.Sessions.Issue()
	if err != nil {
		s.logger.Error(ctx, "issue session", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, VerifyPasswordResponse{
		Valid:     true,
		Token:     token,
		ExpiresAt: expiresAt.UnixMilli(),
	})
}

// PublicConfig is the only configuration exposed to clients.
type PublicConfig struct {
	GitHubOAuthClientID string `json:"GITHUB_OAUTH_CLIENT_ID"`
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PublicConfig{GitHubOAuthClientID: s.deps.OAuth.ClientID})
}
