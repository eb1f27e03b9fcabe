package cmd

import (
	configtoml "github.com/bnema/lightnode/internal/adapters/config/toml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cfg := viper.New()

	rootCmd := &cobra.Command{
		Use:           "lightnode",
		Short:         "Light-node connection supervisor",
		Long:          "lightnode keeps a light-client session to a chain open: it subscribes to new and finalized heads, forwards every response to stdout, polls system_health and reconnects when the node reports it is unhealthy.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().String("config", "", "Config file (default $HOME/.lightnode/config.toml)")
	_ = cfg.BindPFlag(configtoml.KeyConfig, rootCmd.PersistentFlags().Lookup("config"))

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(cfg),
		newChainSpecCmd(cfg),
		newConfigCmd(cfg),
	)

	return rootCmd
}
