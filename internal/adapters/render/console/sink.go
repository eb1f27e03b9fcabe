package console

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/bnema/lightnode/internal/ports"
)

const responseLabel = "JSON-RPC response:"

// Sink prints every response verbatim on its own line.
type Sink struct {
	mu     sync.Mutex
	out    io.Writer
	prefix string
}

var _ ports.ResponseSink = (*Sink)(nil)

func NewSink(out io.Writer) *Sink {
	return &Sink{
		out:    out,
		prefix: newStyles(out).label.Render(responseLabel),
	}
}

func (s *Sink) Forward(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.out, "%s %s\n", s.prefix, text); err != nil {
		return fmt.Errorf("write response: %w", err)
	}

	return nil
}
