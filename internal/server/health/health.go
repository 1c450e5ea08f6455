// Package health probes the upstream dependencies of the image host and
// summarises them as healthy or degraded.
package health

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/repopix/internal/server/github"
	"github.com/dmitrijs2005/repopix/internal/timex"
	"golang.org/x/sync/errgroup"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusError     = "error"
	StatusDegraded  = "degraded"
)

// Upstream is the slice of the GitHub client the checks need.
type Upstream interface {
	Repository(ctx context.Context) (*github.Repository, error)
	Tree(ctx context.Context) (*github.Tree, error)
	HasToken() bool
}

type Check struct {
	Status       string  `json:"status"`
	ResponseTime int64   `json:"responseTime"`
	Error        *string `json:"error"`
}

type Environment struct {
	HasGhToken            bool `json:"hasGhToken"`
	OAuthConfigured       bool `json:"oauthConfigured"`
	CompressionConfigured bool `json:"compressionConfigured"`
}

type Report struct {
	Status       string           `json:"status"`
	Timestamp    time.Time        `json:"timestamp"`
	ResponseTime int64            `json:"responseTime"`
	Checks       map[string]Check `json:"checks"`
	Environment  Environment      `json:"environment"`
}

// Healthy reports whether every check passed.
func (r Report) Healthy() bool { return r.Status == StatusHealthy }

type Checker struct {
	upstream Upstream
	env      Environment
	clock    timex.Clock
}

func NewChecker(upstream Upstream, oauthConfigured, compressionConfigured bool, clock timex.Clock) *Checker {
	if clock == nil {
		clock = timex.System{}
	}
	return &Checker{
		upstream: upstream,
		env: Environment{
			HasGhToken:            upstream.HasToken(),
			OAuthConfigured:       oauthConfigured,
			CompressionConfigured: compressionConfigured,
		},
		clock: clock,
	}
}

// Check runs all probes concurrently. It never fails; problems are reported
// per check.
func (c *Checker) Check(ctx context.Context) Report {
	start := c.clock.Now()

	var (
		mu     sync.Mutex
		checks = make(map[string]Check, 3)
	)
	record := func(name string, ch Check) {
		mu.Lock()
		checks[name] = ch
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		record("github_api", c.timed(func() error {
			_, err := c.upstream.Repository(gctx)
			return err
		}))
		return nil
	})
	g.Go(func() error {
		record("tree_api", c.timed(func() error {
			_, err := c.upstream.Tree(gctx)
			return err
		}))
		return nil
	})
	_ = g.Wait()

	if c.env.HasGhToken {
		record("config_api", Check{Status: StatusHealthy})
	} else {
		record("config_api", Check{Status: StatusUnhealthy, Error: ptr("GH_TOKEN is not set")})
	}

	status := StatusHealthy
	for _, ch := range checks {
		if ch.Status != StatusHealthy {
			status = StatusDegraded
			break
		}
	}

	return Report{
		Status:       status,
		Timestamp:    start.UTC(),
		ResponseTime: c.clock.Now().Sub(start).Milliseconds(),
		Checks:       checks,
		Environment:  c.env,
	}
}

func (c *Checker) timed(probe func() error) Check {
	start := c.clock.Now()
	err := probe()
	ch := Check{Status: StatusHealthy, ResponseTime: c.clock.Now().Sub(start).Milliseconds()}
	if err == nil {
		return ch
	}

	var ghErr *github.Error
	if errors.As(err, &ghErr) {
		ch.Status = StatusUnhealthy
		msg := ghErr.Message
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", ghErr.Status)
		}
		ch.Error = &msg
		return ch
	}
	ch.Status = StatusError
	ch.Error = ptr(err.Error())
	return ch
}

// Watch runs Check immediately and then every interval, passing each report
// to fn, until ctx is done.
func (c *Checker) Watch(ctx context.Context, interval time.Duration, fn func(Report)) {
	fn(c.Check(ctx))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			fn(c.Check(ctx))
		case <-ctx.Done():
			return
		}
	}
}

func ptr(s string) *string { return &s }
