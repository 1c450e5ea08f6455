package github

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/repopix/internal/common"
)

// Error is a non-2xx reply from GitHub.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("github: %d %s", e.Status, e.Message)
}

// Is maps upstream statuses onto the shared sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case common.ErrNotFound:
		return e.Status == http.StatusNotFound
	case common.ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case common.ErrAlreadyExists:
		return e.Status == http.StatusUnprocessableEntity || e.Status == http.StatusConflict
	}
	return false
}

func messageOf(body []byte) string {
	var v struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return strings.TrimSpace(string(body))
	}
	if v.Message != "" {
		return v.Message
	}
	return v.Error
}
