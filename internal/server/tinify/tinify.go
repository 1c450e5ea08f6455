// Package tinify wraps the TinyPNG/TinyJPG compression API: upload the
// image to /shrink, then download the result from the Location header.
package tinify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/repopix/internal/common"
)

// Error is a failed upstream step, carrying the status to relay to callers.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

// Result describes one compression.
type Result struct {
	Data           []byte
	OriginalSize   int
	CompressedSize int
	Saved          int
	SavedPercent   float64
}

type Client struct {
	base string
	key  string
	http *http.Client
}

func NewClient(baseURL, apiKey string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), key: apiKey, http: hc}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool { return c.key != "" }

// Compress shrinks data. It returns common.ErrNotConfigured without a key.
func (c *Client) Compress(ctx context.Context, data []byte) (*Result, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("tinify api key: %w", common.ErrNotConfigured)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image: %w", common.ErrBadRequest)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/shrink", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth("api", c.key)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Status: resp.StatusCode, Message: "TinyJPG upload failed: " + upstreamMessage(body, resp.StatusCode)}
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return nil, &Error{Status: http.StatusInternalServerError, Message: "Invalid response from TinyJPG API: No Location header"}
	}

	out, err := c.download(ctx, location)
	if err != nil {
		return nil, err
	}

	saved := len(data) - len(out)
	return &Result{
		Data:           out,
		OriginalSize:   len(data),
		CompressedSize: len(out),
		Saved:          saved,
		SavedPercent:   math.Round(float64(saved)/float64(len(data))*1000) / 10,
	}, nil
}

func (c *Client) download(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth("api", c.key)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Status: resp.StatusCode, Message: fmt.Sprintf("Failed to download compressed image: HTTP %d", resp.StatusCode)}
	}
	return io.ReadAll(resp.Body)
}

func upstreamMessage(body []byte, status int) string {
	var v struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &v) == nil {
		if v.Message != "" {
			return v.Message
		}
		if v.Error != "" {
			return v.Error
		}
	}
	return fmt.Sprintf("HTTP %d", status)
}
