package auth

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultFlowTimeout bounds one shared authorization flow.
const DefaultFlowTimeout = 10 * time.Minute

// Gate fronts a Provider so that concurrent callers share one interactive
// flow instead of opening several prompts or browser windows.
//
// The shared flow runs detached from any single caller's context, so one
// caller giving up does not deny the others. Each caller still stops
// waiting when its own context ends.
type Gate struct {
	provider Provider
	group    singleflight.Group
	timeout  time.Duration
}

type GateOption func(*Gate)

// WithFlowTimeout replaces DefaultFlowTimeout. Non-positive values are ignored.
func WithFlowTimeout(d time.Duration) GateOption {
	return func(g *Gate) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func NewGate(p Provider, opts ...GateOption) *Gate {
	g := &Gate{provider: p, timeout: DefaultFlowTimeout}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *Gate) Provider() Provider { return g.provider }

func (g *Gate) RequireAuth(ctx context.Context) (bool, error) {
	return g.shared(ctx, g.provider.RequireAuth)
}

// Reauthorize forgets the current credential and runs the flow again. It is
// used after the server rejected a credential that still looked valid
// locally.
func (g *Gate) Reauthorize(ctx context.Context) (bool, error) {
	return g.shared(ctx, func(ctx context.Context) (bool, error) {
		if err := g.provider.Logout(ctx); err != nil {
			return false, err
		}
		return g.provider.RequireAuth(ctx)
	})
}

func (g *Gate) shared(ctx context.Context, flow func(context.Context) (bool, error)) (bool, error) {
	ch := g.group.DoChan("require-auth", func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
		defer cancel()
		return flow(fctx)
	})

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return res.Val.(bool), nil
	}
}
