package application

import (
	"context"
	"fmt"

	"github.com/bnema/lightnode/internal/domain"
	"github.com/bnema/lightnode/internal/ports"
	"go.uber.org/zap"
)

// Pump drains the current response stream into the sink and hands control to
// the reconnector when a stalled health reply comes through.
type Pump struct {
	guard       *sessionGuard
	sink        ports.ResponseSink
	reconnector *Reconnector
	metrics     ports.Metrics
	log         *zap.Logger
}

func (p *Pump) Run(ctx context.Context) error {
	for {
		responses, ok := p.guard.responses()
		if !ok {
			return domain.ErrSessionUnavailable
		}

		if err := p.drain(ctx, responses); err != nil {
			return err
		}
	}
}

// drain returns nil once a new session has been installed.
func (p *Pump) drain(ctx context.Context, responses <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case text, ok := <-responses:
			if !ok {
				return domain.ErrStreamTerminated
			}

			if err := p.sink.Forward(ctx, text); err != nil {
				return fmt.Errorf("forward response: %w", err)
			}
			p.metrics.ResponseForwarded()

			if domain.EvaluateHealth(text) != domain.VerdictNeedsReconnect {
				continue
			}

			p.log.Warn("node reports no peers and no sync; reconnecting")
			started, err := p.reconnector.Reconnect(ctx)
			if err != nil {
				return fmt.Errorf("reconnect: %w", err)
			}
			if started {
				return nil
			}
		}
	}
}
