package cmd

import (
	"fmt"

	configtoml "github.com/bnema/lightnode/internal/adapters/config/toml"
	"github.com/bnema/lightnode/internal/application"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newChainSpecCmd(cfg *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chainspec",
		Short: "Print the chain specification handed to the light client",
		Args:  cobra.NoArgs,
	}

	keys := addChainFlags(cmd.Flags())
	cmd.PreRunE = func(cmd *cobra.Command, _ []string) error {
		return bindFlags(cfg, cmd.Flags(), keys)
	}
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		settings, err := configtoml.Load(cfg)
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}

		spec, err := application.LoadChainSpec(settings.Genesis, settings.BootNode)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), spec.String())
		return err
	}

	return cmd
}
