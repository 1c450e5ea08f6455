// Package auth decides whether the CLI may write and, when it may not yet,
// runs the interactive flow that obtains a credential: the GitHub OAuth
// browser flow or a password prompt.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/repopix/internal/client/credstore"
)

// Provider is one way of holding a write credential. Exactly one is
// selected at startup from the server's public config.
type Provider interface {
	Kind() credstore.Kind
	// IsAuthenticated reports whether a usable credential is stored, without
	// any interaction.
	IsAuthenticated(ctx context.Context) (bool, error)
	// RequireAuth returns true once a credential is available, running the
	// interactive flow if needed. A user who cancels yields (false, nil).
	RequireAuth(ctx context.Context) (bool, error)
	Logout(ctx context.Context) error
	Status(ctx context.Context) (Status, error)
}

type Status struct {
	Kind          credstore.Kind
	Authenticated bool
	User          string
	ExpiresAt     time.Time
}

func (s Status) String() string {
	if !s.Authenticated {
		return fmt.Sprintf("not logged in (%s)", s.Kind)
	}
	who := string(s.Kind)
	if s.User != "" {
		who = s.User + " via " + who
	}
	return fmt.Sprintf("logged in as %s until %s", who, s.ExpiresAt.Format(time.RFC3339))
}

var (
	ErrPopupClosed = errors.New("authorization window closed")
	ErrAuthTimeout = errors.New("authorization timed out")
	ErrCancelled   = errors.New("authorization cancelled")
)

// Error wraps a failure of an auth step.
type Error struct {
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// denied reports whether err means the user did not finish the flow.
func denied(err error) bool {
	return errors.Is(err, ErrPopupClosed) ||
		errors.Is(err, ErrAuthTimeout) ||
		errors.Is(err, ErrCancelled) ||
		errors.Is(err, context.Canceled)
}
