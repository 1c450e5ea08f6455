// Package netx holds the small networking helpers of the CLI: the shared
// HTTP client, a loopback listener for browser callbacks and the system
// browser launcher.
package netx

import (
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"time"
)

// browserCommands maps GOOS to the command that opens a URL.
var browserCommands = map[string][]string{
	"windows": {"cmd", "/c", "start"},
	"darwin":  {"open"},
	"linux":   {"xdg-open"},
}

// startCommand is a test seam for exec.Command(...).Start.
var startCommand = func(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// BrowserCommand returns the command and arguments that open url on goos.
func BrowserCommand(goos, url string) (string, []string) {
	commands, ok := browserCommands[goos]
	if !ok {
		return "xdg-open", []string{url}
	}
	args := append(append([]string(nil), commands[1:]...), url)
	return commands[0], args
}

// OpenBrowser opens url in the default browser without waiting for it.
func OpenBrowser(url string) error {
	cmd, args := BrowserCommand(runtime.GOOS, url)
	return startCommand(cmd, args...)
}

// ListenLoopback listens on a free port of 127.0.0.1.
func ListenLoopback() (net.Listener, error) {
	return net.Listen("tcp", "127.0.0.1:0")
}

// NewHTTPClient returns a client with pooled keep-alive connections.
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 20
	transport.MaxIdleConnsPerHost = 10
	transport.IdleConnTimeout = 90 * time.Second

	return &http.Client{Timeout: timeout, Transport: transport}
}
