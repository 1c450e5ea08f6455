package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/repopix/internal/common"
)

// Error is a non-2xx reply from the server.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// Is classifies the reply into the common sentinels. The message checks
// cover GitHub errors relayed with a different status.
func (e *Error) Is(target error) bool {
	msg := strings.ToLower(e.Message)
	switch target {
	case common.ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case common.ErrNotFound:
		return e.Status == http.StatusNotFound ||
			strings.Contains(msg, "not be found") ||
			strings.Contains(msg, "not found")
	case common.ErrAlreadyExists:
		return e.Status == http.StatusUnprocessableEntity ||
			e.Status == http.StatusConflict ||
			strings.Contains(msg, "already exists") ||
			strings.Contains(msg, "file exists") ||
			(strings.Contains(msg, "sha") && (strings.Contains(msg, "wasn't supplied") || strings.Contains(msg, "required")))
	case common.ErrUnavailable:
		return e.Status >= 500
	case common.ErrBadRequest:
		return e.Status == http.StatusBadRequest
	}
	return false
}

type errorBody struct {
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Errors  []json.RawMessage `json:"errors"`
}

// errorFromBody builds an Error from a failed reply, preferring "message",
// then "error", then the joined "errors" list.
func errorFromBody(status int, body []byte) *Error {
	e := &Error{Status: status, Message: fmt.Sprintf("HTTP %d", status)}

	var b errorBody
	if err := json.Unmarshal(body, &b); err != nil {
		if s := strings.TrimSpace(string(body)); s != "" {
			e.Message = s
		}
		return e
	}

	switch {
	case b.Message != "":
		e.Message = b.Message
	case b.Error != "":
		e.Message = b.Error
	}

	var parts []string
	for _, raw := range b.Errors {
		var item struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &item) == nil && item.Message != "" {
			parts = append(parts, item.Message)
			continue
		}
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) > 0 {
		e.Message = strings.Join(parts, "; ")
	}
	return e
}

// transportError marks a failure to reach the server at all.
func transportError(op string, err error) error {
	if errors.Is(err, common.ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, common.ErrUnavailable, err)
}
