package cmd

import (
	"context"
	"errors"
	"maps"
	"os"
	"os/signal"
	"syscall"

	configtoml "github.com/bnema/lightnode/internal/adapters/config/toml"
	prommetrics "github.com/bnema/lightnode/internal/adapters/metrics/prometheus"
	"github.com/bnema/lightnode/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newRunCmd(cfg *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the chain and stream responses until interrupted",
		Args:  cobra.NoArgs,
	}

	keys := addChainFlags(cmd.Flags())
	cmd.Flags().String("endpoint", "", "JSON-RPC WebSocket endpoint of the node")
	cmd.Flags().Duration("poll-interval", 0, "Interval between system_health requests")
	cmd.Flags().Duration("retry-delay", 0, "Delay between session open attempts")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().String("log-level", "", "Log level (debug, info, warn, error)")
	cmd.Flags().String("log-file", "", "Write JSON logs to this rotated file instead of stderr")
	maps.Copy(keys, map[string]string{
		configtoml.KeyEndpoint:     "endpoint",
		configtoml.KeyPollInterval: "poll-interval",
		configtoml.KeyRetryDelay:   "retry-delay",
		configtoml.KeyMetricsAddr:  "metrics-addr",
		configtoml.KeyLogLevel:     "log-level",
		configtoml.KeyLogFile:      "log-file",
	})

	cmd.PreRunE = func(cmd *cobra.Command, _ []string) error {
		return bindFlags(cfg, cmd.Flags(), keys)
	}
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		app, err := wireApp(cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer func() { _ = app.closeLog() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		err = app.run(ctx)
		if errors.Is(err, context.Canceled) {
			app.log.Info("interrupted; shutting down")
			return nil
		}
		return err
	}

	return cmd
}

func (a *app) run(ctx context.Context) error {
	a.log.Info("starting", zap.String("name", version.Name), zap.String("version", version.Version))
	a.log.Info("genesis from", zap.String("path", a.settings.Genesis))
	a.log.Info("boot node", zap.String("addr", a.spec.BootNode()))
	if a.settings.ConfigFile != "" {
		a.log.Debug("config file", zap.String("path", a.settings.ConfigFile))
	}

	if a.registry == nil {
		return a.supervisor.Run(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return prommetrics.Serve(groupCtx, a.settings.MetricsAddr, a.registry, a.log.Named("metrics"))
	})
	group.Go(func() error {
		defer cancel()
		return a.supervisor.Run(groupCtx)
	})

	return group.Wait()
}
