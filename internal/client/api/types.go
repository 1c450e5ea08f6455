package api

import "time"

const (
	ActionUpload = "upload"
	ActionDelete = "delete"
)

// WritePayload is the body of POST /api/github. The credential fields are
// filled in by the request authorizer.
type WritePayload struct {
	Action      string `json:"action"`
	Path        string `json:"path"`
	Content     string `json:"content,omitempty"`
	Message     string `json:"message"`
	SHA         string `json:"sha,omitempty"`
	GitHubToken string `json:"githubToken,omitempty"`
	AuthToken   string `json:"authToken,omitempty"`
}

// Mutating reports whether the payload needs a credential.
func (p *WritePayload) Mutating() bool {
	return p.Action == ActionUpload || p.Action == ActionDelete
}

type WriteResult struct {
	Content *Content `json:"content"`
}

type Content struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	SHA         string `json:"sha"`
	Size        int64  `json:"size"`
	Type        string `json:"type"`
	Content     string `json:"content,omitempty"`
	Encoding    string `json:"encoding,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
}

const (
	EntryBlob = "blob"
	EntryTree = "tree"
)

type TreeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
	Size int64  `json:"size,omitempty"`
}

type Tree struct {
	SHA       string      `json:"sha"`
	Tree      []TreeEntry `json:"tree"`
	Truncated bool        `json:"truncated"`
}

type User struct {
	Login     string `json:"login"`
	ID        int64  `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

type TokenStatus struct {
	Valid     bool  `json:"valid"`
	User      *User `json:"user"`
	HasAccess bool  `json:"hasAccess"`
}

type PasswordSession struct {
	Token     string
	ExpiresAt time.Time
}

type PublicConfig struct {
	GitHubOAuthClientID string `json:"GITHUB_OAUTH_CLIENT_ID"`
}

type CompressResult struct {
	Success        bool    `json:"success"`
	ImageData      string  `json:"imageData"`
	ContentType    string  `json:"contentType"`
	OriginalSize   int     `json:"originalSize"`
	CompressedSize int     `json:"compressedSize"`
	Saved          int     `json:"saved"`
	SavedPercent   float64 `json:"savedPercent"`
}

type HealthCheck struct {
	Status       string  `json:"status"`
	ResponseTime int64   `json:"responseTime"`
	Error        *string `json:"error"`
}

type HealthReport struct {
	Status       string                 `json:"status"`
	Timestamp    time.Time              `json:"timestamp"`
	ResponseTime int64                  `json:"responseTime"`
	Checks       map[string]HealthCheck `json:"checks"`
}
