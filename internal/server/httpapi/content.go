package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/repopix/internal/common"
	"github.com/dmitrijs2005/repopix/internal/server/auth"
	"github.com/dmitrijs2005/repopix/internal/server/github"
)

const (
	actionUpload = "upload"
	actionDelete = "delete"
)

// WriteRequest is the body of POST /api/github.
type WriteRequest struct {
	Action      string `json:"action"`
	Path        string `json:"path"`
	Content     string `json:"content"`
	Message     string `json:"message"`
	SHA         string `json:"sha,omitempty"`
	GitHubToken string `json:"githubToken,omitempty"`
	AuthToken   string `json:"authToken,omitempty"`
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req WriteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Action == "" || req.Path == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "missing params: action/path/message")
		return
	}
	if req.Action != actionUpload && req.Action != actionDelete {
		writeError(w, http.StatusBadRequest, "unknown action: "+req.Action)
		return
	}
	if req.Action == actionDelete && req.SHA == "" {
		writeError(w, http.StatusBadRequest, "missing param: sha")
		return
	}
	if strings.Contains(req.Path, "..") {
		writeError(w, http.StatusBadRequest, "invalid path")
		return
	}

	method, err := s.deps.Authorizer.Authorize(ctx, auth.Credentials{
		GitHubToken: req.GitHubToken,
		AuthToken:   req.AuthToken,
	})
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			s.logger.Warn(ctx, "write rejected", "action", req.Action, "path", req.Path)
			writeJSON(w, http.StatusUnauthorized, errorBody{
				Error:   "Unauthorized",
				Message: "a valid GitHub token, shared secret or password session is required",
			})
			return
		}
		s.logger.Error(ctx, "authorization failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	resp, err := s.forwardWrite(r, req)
	if err != nil {
		s.logger.Error(ctx, "github write failed", "action", req.Action, "path", req.Path, "error", err)
		writeError(w, http.StatusBadGateway, "upstream unavailable")
		return
	}

	s.logger.Info(ctx, "write forwarded", "action", req.Action, "path", req.Path, "method", string(method), "status", resp.Status)
	writeUpstream(w, resp)
}

func (s *Server) forwardWrite(r *http.Request, req WriteRequest) (*github.Response, error) {
	if req.Action == actionDelete {
		return s.deps.Repo.DeleteContent(r.Context(), req.Path, req.Message, req.SHA)
	}
	return s.deps.Repo.PutContent(r.Context(), req.Path, req.Message, req.Content, req.SHA)
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	resp, err := s.deps.Repo.TreeRaw(r.Context())
	if err != nil {
		s.logger.Error(r.Context(), "tree fetch failed", "error", err)
		writeError(w, http.StatusBadGateway, "upstream unavailable")
		return
	}
	writeUpstream(w, resp)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "missing param: path")
		return
	}
	resp, err := s.deps.Repo.GetContentRaw(r.Context(), path)
	if err != nil {
		s.logger.Error(r.Context(), "file fetch failed", "path", path, "error", err)
		writeError(w, http.StatusBadGateway, "upstream unavailable")
		return
	}
	writeUpstream(w, resp)
}
