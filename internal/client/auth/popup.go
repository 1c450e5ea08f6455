package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/repopix/internal/client/api"
	"github.com/dmitrijs2005/repopix/internal/logging"
	"github.com/dmitrijs2005/repopix/internal/netx"
)

const (
	messagePath = "/oauth/message"
	cancelPath  = "/oauth/cancel"
)

const successPage = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>repopix</title></head>
<body><p>Authorization complete. You can close this window and return to the terminal.</p></body>
</html>
`

const cancelPage = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>repopix</title></head>
<body><p>Authorization cancelled. You can close this window.</p></body>
</html>
`

// BrowserPopup runs the authorize page in the system browser and receives
// the result on a loopback listener. It resolves exactly once: with the
// posted message, as closed when the cancel address is visited, or on
// timeout or context cancellation.
type BrowserPopup struct {
	open    func(url string) error
	out     io.Writer
	timeout time.Duration
	logger  logging.Logger
}

type PopupOption func(*BrowserPopup)

// WithOpener replaces the browser launcher.
func WithOpener(open func(url string) error) PopupOption {
	return func(p *BrowserPopup) { p.open = open }
}

func WithTimeout(d time.Duration) PopupOption {
	return func(p *BrowserPopup) { p.timeout = d }
}

func NewBrowserPopup(out io.Writer, logger logging.Logger, opts ...PopupOption) *BrowserPopup {
	p := &BrowserPopup{
		open:    netx.OpenBrowser,
		out:     out,
		timeout: 5 * time.Minute,
		logger:  logger.With("module", "browser_popup"),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *BrowserPopup) Open(ctx context.Context, authURL func(returnTo string) string) (*Message, error) {
	ln, err := netx.ListenLoopback()
	if err != nil {
		return nil, fmt.Errorf("failed to listen for the authorization result: %w", err)
	}

	type outcome struct {
		msg *Message
		err error
	}
	result := make(chan outcome, 1)
	var once sync.Once
	resolve := func(o outcome) { once.Do(func() { result <- o }) }

	mux := http.NewServeMux()
	mux.HandleFunc(messagePath, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		resolve(outcome{msg: messageFromForm(r)})

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, successPage)
	})
	mux.HandleFunc(cancelPath, func(w http.ResponseWriter, r *http.Request) {
		resolve(outcome{err: ErrPopupClosed})

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, cancelPage)
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.logger.Error(ctx, "loopback server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	base := "http://" + ln.Addr().String()
	target := authURL(base + messagePath)

	fmt.Fprintf(p.out, "Opening GitHub authorization in your browser...\n")
	fmt.Fprintf(p.out, "If the browser doesn't open automatically, visit:\n\n%s\n\n", target)
	if err := p.open(target); err != nil {
		p.logger.Warn(ctx, "failed to open browser", "error", err)
	}
	fmt.Fprintf(p.out, "Waiting for authorization... (Ctrl-C or open %s to cancel)\n", base+cancelPath)

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case o := <-result:
		return o.msg, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrAuthTimeout
	}
}

func messageFromForm(r *http.Request) *Message {
	hasAccess, _ := strconv.ParseBool(r.PostFormValue("hasAccess"))
	return &Message{
		Type:        r.PostFormValue("type"),
		AccessToken: r.PostFormValue("accessToken"),
		User:        api.User{Login: r.PostFormValue("login")},
		HasAccess:   hasAccess,
		State:       r.PostFormValue("state"),
	}
}
