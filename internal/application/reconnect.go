package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/lightnode/internal/domain"
	"github.com/bnema/lightnode/internal/ports"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const DefaultRetryDelay = 5 * time.Second

var errConnectInProgress = errors.New("connect already in progress")

// Reconnector replaces the current session: close the old one, open a new one
// with unbounded fixed-delay retries, resubscribe, install. Only one run is
// active at a time; concurrent triggers are absorbed.
//
// The open/retry phase runs without holding the session guard. The session is
// marked unavailable for its duration so pollers fail fast instead of queueing
// behind an outage.
type Reconnector struct {
	engine     ports.SessionEngine
	guard      *sessionGuard
	ids        *domain.RequestIDs
	spec       domain.ChainSpecification
	clock      ports.Clock
	metrics    ports.Metrics
	log        *zap.Logger
	retryDelay time.Duration

	inProgress atomic.Bool
	state      atomic.Int32
}

func (r *Reconnector) State() domain.ReconnectState {
	return domain.ReconnectState(r.state.Load())
}

// Connect establishes the first session.
func (r *Reconnector) Connect(ctx context.Context) error {
	if !r.inProgress.CompareAndSwap(false, true) {
		return errConnectInProgress
	}
	defer r.finish()

	return r.establish(ctx)
}

// Reconnect reports false when another reconnect was already running and this
// trigger was absorbed.
func (r *Reconnector) Reconnect(ctx context.Context) (bool, error) {
	if !r.inProgress.CompareAndSwap(false, true) {
		r.log.Debug("reconnect already in progress; trigger absorbed")
		return false, nil
	}
	defer r.finish()

	r.setState(domain.ReconnectClosing)
	old, ok, err := r.guard.retire(func(session domain.Session) error {
		return r.engine.Close(ctx, session.ID)
	})
	if ok {
		r.metrics.SessionUp(false)
		if err != nil {
			r.log.Warn("close session failed; discarding it anyway", zap.Uint64("session", uint64(old.ID)), zap.Error(err))
		} else {
			r.log.Info("session closed", zap.Uint64("session", uint64(old.ID)))
		}
	}

	if err := r.establish(ctx); err != nil {
		return true, err
	}

	r.metrics.Reconnected()
	return true, nil
}

func (r *Reconnector) establish(ctx context.Context) error {
	session, err := r.open(ctx)
	if err != nil {
		return err
	}

	r.setState(domain.ReconnectResubscribing)
	if err := r.subscribe(ctx, session); err != nil {
		if closeErr := r.engine.Close(ctx, session.ID); closeErr != nil {
			r.log.Warn("close broken session failed", zap.Uint64("session", uint64(session.ID)), zap.Error(closeErr))
		}
		return err
	}

	r.guard.install(session)
	r.metrics.SessionUp(true)
	r.log.Info("session installed", zap.Uint64("session", uint64(session.ID)))
	return nil
}

func (r *Reconnector) open(ctx context.Context) (domain.Session, error) {
	r.setState(domain.ReconnectOpening)

	for attempt := 1; ; attempt++ {
		session, err := r.engine.Open(ctx, domain.OpenRequest{Specification: r.spec})
		if err == nil {
			r.log.Info("session opened", zap.Uint64("session", uint64(session.ID)), zap.Int("attempt", attempt))
			return session, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.Session{}, ctxErr
		}

		r.metrics.OpenFailed()
		r.log.Warn("open session failed; retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", r.retryDelay),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return domain.Session{}, ctx.Err()
		case <-r.clock.After(r.retryDelay):
		}
	}
}

func (r *Reconnector) subscribe(ctx context.Context, session domain.Session) error {
	for _, method := range domain.BootstrapMethods() {
		id := r.ids.Next()
		text, err := domain.BuildRequest(id, method)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrResubscribeFailed, err)
		}

		if err := r.engine.Submit(ctx, session.ID, text); err != nil {
			return fmt.Errorf("%w: %s on session %d: %w", domain.ErrResubscribeFailed, method, session.ID, err)
		}
		r.log.Debug("subscription queued", zap.Uint64("session", uint64(session.ID)), zap.Uint64("id", uint64(id)), zap.String("method", method))
	}

	return nil
}

func (r *Reconnector) setState(state domain.ReconnectState) {
	r.state.Store(int32(state))
	r.log.Debug("reconnect state", zap.Stringer("state", state))
}

func (r *Reconnector) finish() {
	r.setState(domain.ReconnectIdle)
	r.inProgress.Store(false)
}
