package authorizer

import (
	"context"

	"github.com/dmitrijs2005/repopix/internal/client/api"
)

// Sender delivers a payload to the write endpoint as is.
type Sender interface {
	Write(ctx context.Context, p *api.WritePayload) (*api.WriteResult, error)
}

// Writer authorizes each payload just before sending it, so a credential
// obtained mid-operation is picked up by the next write.
type Writer struct {
	sender Sender
	auth   *Authorizer
}

func NewWriter(s Sender, a *Authorizer) *Writer {
	return &Writer{sender: s, auth: a}
}

func (w *Writer) Write(ctx context.Context, p *api.WritePayload) (*api.WriteResult, error) {
	if err := w.auth.Authorize(ctx, p); err != nil {
		return nil, err
	}
	return w.sender.Write(ctx, p)
}
