package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/lightnode/internal/domain"
	"github.com/bnema/lightnode/internal/ports"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type SupervisorConfig struct {
	PollInterval time.Duration
	RetryDelay   time.Duration
	Clock        ports.Clock
	Metrics      ports.Metrics
	Logger       *zap.Logger
}

// Supervisor keeps one session to the chain alive: it connects, then runs the
// response pump and the health poller until the context ends or either fails.
type Supervisor struct {
	engine ports.SessionEngine
	spec   domain.ChainSpecification
	log    *zap.Logger

	ids         domain.RequestIDs
	guard       sessionGuard
	reconnector *Reconnector
	pump        *Pump
	poller      *Poller
}

func NewSupervisor(engine ports.SessionEngine, sink ports.ResponseSink, spec domain.ChainSpecification, cfg SupervisorConfig) *Supervisor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.Clock == nil {
		cfg.Clock = ports.SystemClock{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = ports.NopMetrics{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	s := &Supervisor{
		engine: engine,
		spec:   spec,
		log:    cfg.Logger,
	}
	s.reconnector = &Reconnector{
		engine:     engine,
		guard:      &s.guard,
		ids:        &s.ids,
		spec:       spec,
		clock:      cfg.Clock,
		metrics:    cfg.Metrics,
		log:        cfg.Logger.Named("reconnect"),
		retryDelay: cfg.RetryDelay,
	}
	s.pump = &Pump{
		guard:       &s.guard,
		sink:        sink,
		reconnector: s.reconnector,
		metrics:     cfg.Metrics,
		log:         cfg.Logger.Named("pump"),
	}
	s.poller = &Poller{
		guard:    &s.guard,
		ids:      &s.ids,
		engine:   engine,
		clock:    cfg.Clock,
		interval: cfg.PollInterval,
		metrics:  cfg.Metrics,
		log:      cfg.Logger.Named("health"),
	}

	return s
}

func (s *Supervisor) Run(ctx context.Context) error {
	s.log.Info("connecting to chain", zap.String("chain", s.spec.Name()), zap.String("boot_node", s.spec.BootNode()))

	if err := s.reconnector.Connect(ctx); err != nil {
		return fmt.Errorf("establish session: %w", err)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return s.pump.Run(groupCtx)
	})
	group.Go(func() error {
		return s.poller.Run(groupCtx)
	})

	err := group.Wait()
	s.shutdown()

	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.Error("supervisor stopped", zap.Error(err))
	}
	return err
}

func (s *Supervisor) ReconnectState() domain.ReconnectState {
	return s.reconnector.State()
}

// LastRequestID is the highest request id issued so far.
func (s *Supervisor) LastRequestID() domain.RequestID {
	return s.ids.Last()
}

func (s *Supervisor) shutdown() {
	session, ok, err := s.guard.retire(func(session domain.Session) error {
		return s.engine.Close(context.Background(), session.ID)
	})
	if !ok {
		return
	}
	if err != nil {
		s.log.Warn("close session on shutdown failed", zap.Uint64("session", uint64(session.ID)), zap.Error(err))
		return
	}
	s.log.Info("session closed", zap.Uint64("session", uint64(session.ID)))
}
