package application

import (
	"context"
	"errors"
	"time"

	"github.com/bnema/lightnode/internal/domain"
	"github.com/bnema/lightnode/internal/ports"
	"go.uber.org/zap"
)

const DefaultPollInterval = time.Second

// Poller submits a system_health request on every tick through the current
// session. It never stops on a failed submission.
type Poller struct {
	guard    *sessionGuard
	ids      *domain.RequestIDs
	engine   ports.SessionEngine
	clock    ports.Clock
	interval time.Duration
	metrics  ports.Metrics
	log      *zap.Logger
}

func (p *Poller) Run(ctx context.Context) error {
	for {
		_ = p.Poll(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.clock.After(p.interval):
		}
	}
}

// Poll submits one health request. The id is taken under the session guard, so
// skipped ticks leave no gap in the id sequence.
func (p *Poller) Poll(ctx context.Context) error {
	err := p.guard.withSession(func(session domain.Session) error {
		id := p.ids.Next()
		text, err := domain.BuildRequest(id, domain.MethodSystemHealth)
		if err != nil {
			return err
		}

		p.log.Info("JSON-RPC health req", zap.Uint64("session", uint64(session.ID)), zap.String("request", text))
		return p.engine.Submit(ctx, session.ID, text)
	})

	switch {
	case err == nil:
		p.metrics.HealthPoll(ports.PollSubmitted)
		p.log.Info("JSON-RPC health response", zap.String("outcome", "queued"))
	case errors.Is(err, domain.ErrSessionUnavailable):
		p.metrics.HealthPoll(ports.PollSkipped)
		p.log.Info("health poll skipped; no session installed")
	default:
		p.metrics.HealthPoll(ports.PollFailed)
		p.log.Warn("JSON-RPC health response", zap.String("outcome", "rejected"), zap.Error(err))
	}

	return err
}
