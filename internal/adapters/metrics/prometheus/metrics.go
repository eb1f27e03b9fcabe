package prometheus

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/bnema/lightnode/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	namespace       = "lightnode"
	shutdownTimeout = 5 * time.Second
)

type Metrics struct {
	forwarded    prometheus.Counter
	openFailures prometheus.Counter
	reconnects   prometheus.Counter
	healthPolls  *prometheus.CounterVec
	sessionUp    prometheus.Gauge
}

var _ ports.Metrics = (*Metrics)(nil)

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		forwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_forwarded_total",
			Help:      "JSON-RPC responses written to the output sink",
		}),
		openFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "open_failures_total",
			Help:      "Failed attempts to open a session",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_total",
			Help:      "Sessions replaced after an unhealthy report",
		}),
		healthPolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "health_polls_total",
			Help:      "system_health polls by outcome",
		}, []string{"outcome"}),
		sessionUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_up",
			Help:      "1 if a session is installed, otherwise 0",
		}),
	}

	for _, collector := range []prometheus.Collector{m.forwarded, m.openFailures, m.reconnects, m.healthPolls, m.sessionUp} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	return m, nil
}

func (m *Metrics) ResponseForwarded() {
	m.forwarded.Inc()
}

func (m *Metrics) OpenFailed() {
	m.openFailures.Inc()
}

func (m *Metrics) Reconnected() {
	m.reconnects.Inc()
}

func (m *Metrics) HealthPoll(outcome ports.PollOutcome) {
	m.healthPolls.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) SessionUp(up bool) {
	if up {
		m.sessionUp.Set(1)
		return
	}
	m.sessionUp.Set(0)
}

// Serve exposes gatherer on addr under /metrics until ctx ends.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, log *zap.Logger) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen metrics on %s: %w", addr, err)
	}

	return serve(ctx, listener, gatherer, log)
}

func serve(ctx context.Context, listener net.Listener, gatherer prometheus.Gatherer, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info("serving metrics", zap.String("addr", listener.Addr().String()))
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics: %w", err)
	}

	return nil
}
