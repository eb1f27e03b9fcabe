package ports

import (
	"context"

	"github.com/bnema/lightnode/internal/domain"
)

// SessionEngine is the client engine owning the actual connection to a chain.
// Implementations must be safe for concurrent use.
type SessionEngine interface {
	Open(ctx context.Context, req domain.OpenRequest) (domain.Session, error)
	Close(ctx context.Context, id domain.SessionID) error
	// Submit only queues text; replies arrive on the session's response stream.
	Submit(ctx context.Context, id domain.SessionID, text string) error
}
