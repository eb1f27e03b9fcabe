package cmd

import (
	"fmt"
	"io"

	configtoml "github.com/bnema/lightnode/internal/adapters/config/toml"
	wsengine "github.com/bnema/lightnode/internal/adapters/engine/websocket"
	"github.com/bnema/lightnode/internal/adapters/logging"
	prommetrics "github.com/bnema/lightnode/internal/adapters/metrics/prometheus"
	"github.com/bnema/lightnode/internal/adapters/render/console"
	"github.com/bnema/lightnode/internal/application"
	"github.com/bnema/lightnode/internal/domain"
	"github.com/bnema/lightnode/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type app struct {
	settings   configtoml.Settings
	spec       domain.ChainSpecification
	log        *zap.Logger
	closeLog   func() error
	supervisor *application.Supervisor
	// registry is nil when metrics.addr is empty.
	registry *prometheus.Registry
}

func wireApp(cfg *viper.Viper, stdout, stderr io.Writer) (*app, error) {
	settings, err := configtoml.Load(cfg)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	spec, err := application.LoadChainSpec(settings.Genesis, settings.BootNode)
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := logging.New(logging.Options{Level: settings.LogLevel, File: settings.LogFile}, stderr)
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}

	engine, err := wsengine.NewEngine(wsengine.Options{
		Endpoint:         settings.Endpoint,
		HandshakeTimeout: settings.HandshakeTimeout,
		Logger:           logger.Named("engine"),
	})
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("wire session engine: %w", err)
	}

	var (
		metrics  ports.Metrics = ports.NopMetrics{}
		registry *prometheus.Registry
	)
	if settings.MetricsAddr != "" {
		registry = prometheus.NewRegistry()
		promMetrics, err := prommetrics.NewMetrics(registry)
		if err != nil {
			_ = closeLog()
			return nil, fmt.Errorf("wire metrics: %w", err)
		}
		metrics = promMetrics
	}

	supervisor := application.NewSupervisor(engine, console.NewSink(stdout), spec, application.SupervisorConfig{
		PollInterval: settings.PollInterval,
		RetryDelay:   settings.RetryDelay,
		Metrics:      metrics,
		Logger:       logger,
	})

	return &app{
		settings:   settings,
		spec:       spec,
		log:        logger,
		closeLog:   closeLog,
		supervisor: supervisor,
		registry:   registry,
	}, nil
}

// bindFlags binds config keys to the flags of the command being executed.
// Binding happens at run time because several commands share a key.
func bindFlags(cfg *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		if err := cfg.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	return nil
}

func addChainFlags(flags *pflag.FlagSet) map[string]string {
	flags.StringP("genesis", "g", "", "Path to the genesis chain specification (JSON)")
	flags.StringP("bootnode", "b", "", "Boot node multiaddress")

	return map[string]string{
		configtoml.KeyGenesis:  "genesis",
		configtoml.KeyBootNode: "bootnode",
	}
}
