package cmd

import (
	"fmt"
	"strings"

	configtoml "github.com/bnema/lightnode/internal/adapters/config/toml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newConfigCmd(cfg *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}

	cmd.AddCommand(newConfigInitCmd(cfg))
	return cmd
}

func newConfigInitCmd(cfg *viper.Viper) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file holding the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := strings.TrimSpace(cfg.GetString(configtoml.KeyConfig))
			if path == "" {
				defaultPath, err := configtoml.DefaultPath()
				if err != nil {
					return err
				}
				path = defaultPath
			}

			if err := configtoml.WriteDefault(path, force); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return err
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}
