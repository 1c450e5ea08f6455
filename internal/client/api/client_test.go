package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/repopix/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL + "/")
}

func TestWrite_SendsPayload(t *testing.T) {
	var got WritePayload
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/github", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"content":{"path":"imgs/a.png","sha":"s1"}}`)
	})

	res, err := c.Write(context.Background(), &WritePayload{Action: ActionUpload, Path: "imgs/a.png", Content: "aGk=", Message: "Upload: imgs/a.png", AuthToken: "tok"})
	require.NoError(t, err)
	assert.Equal(t, "s1", res.Content.SHA)
	assert.Equal(t, "tok", got.AuthToken)
	assert.Empty(t, got.GitHubToken)
}

func TestFile_EscapesPathAndClassifiesNotFound(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "imgs/new dir/.gitkeep", r.URL.Query().Get("path"))
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"Not Found"}`)
	})

	_, err := c.File(context.Background(), "imgs/new dir/.gitkeep")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestVerifyPassword(t *testing.T) {
	expires := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		if in["password"] != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":"Invalid password"}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"valid": true, "token": "jwt", "expiresAt": expires.UnixMilli()})
	})

	s, err := c.VerifyPassword(context.Background(), "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "jwt", s.Token)
	assert.True(t, expires.Equal(s.ExpiresAt))

	_, err = c.VerifyPassword(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
	assert.Contains(t, err.Error(), "Invalid password")
}

func TestVerifyGitHubToken(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "verify", r.URL.Query().Get("action"))
		_, _ = io.WriteString(w, `{"valid":true,"user":{"login":"kate"},"hasAccess":true}`)
	})

	st, err := c.VerifyGitHubToken(context.Background(), "gho")
	require.NoError(t, err)
	assert.True(t, st.HasAccess)
	assert.Equal(t, "kate", st.User.Login)
}

func TestCompress_DecodesImage(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"imageData":"AAE=","originalSize":4,"compressedSize":2,"savedPercent":50}`)
	})

	data, res, err := c.Compress(context.Background(), "a.png", []byte{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1}, data)
	assert.Equal(t, 50.0, res.SavedPercent)
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := New(srv.URL)
	srv.Close()

	_, err := c.Tree(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnavailable)
}

func TestCallbackURL(t *testing.T) {
	c := New("https://pics.example/")
	assert.Equal(t, "https://pics.example", c.BaseURL())
	assert.Equal(t, "https://pics.example/api/github-oauth?action=callback", c.CallbackURL())
}

func TestErrorFromBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message wins", `{"message":"m","error":"e"}`, "m"},
		{"error field", `{"error":"e"}`, "e"},
		{"errors list", `{"message":"Validation Failed","errors":[{"message":"a"},"b"]}`, "a; b"},
		{"plain text", `upstream exploded`, "upstream exploded"},
		{"empty", ``, "HTTP 502"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorFromBody(502, []byte(tt.body)).Message)
		})
	}
}

func TestError_Classification(t *testing.T) {
	tests := []struct {
		name   string
		err    *Error
		target error
		want   bool
	}{
		{"401", &Error{Status: 401, Message: "Unauthorized"}, common.ErrUnauthorized, true},
		{"404", &Error{Status: 404}, common.ErrNotFound, true},
		{"relayed not found", &Error{Status: 400, Message: "Path could not be found"}, common.ErrNotFound, true},
		{"422", &Error{Status: 422}, common.ErrAlreadyExists, true},
		{"sha not supplied", &Error{Status: 400, Message: `Invalid request. "sha" wasn't supplied.`}, common.ErrAlreadyExists, true},
		{"file exists", &Error{Status: 500, Message: "file exists"}, common.ErrAlreadyExists, true},
		{"502", &Error{Status: 502}, common.ErrUnavailable, true},
		{"401 is not not-found", &Error{Status: 401, Message: "Unauthorized"}, common.ErrNotFound, false},
		{"500 is not unauthorized", &Error{Status: 500}, common.ErrUnauthorized, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}
