package cmd

import (
	"fmt"

	"github.com/givani30/waybar-vd/cli"
	"github.com/givani30/waybar-vd/config"
	"github.com/givani30/waybar-vd/pkg/paths"
	"github.com/spf13/cobra"
)

// NewConfigCmd returns the config command with subcommands.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate the configuration",
	}

	cmd.AddCommand(newConfigValidateCmd())
	cmd.AddCommand(newConfigSchemaCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a config file against the schema",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := paths.ConfigFilePath()
			if len(args) == 1 {
				path = args[0]
			}
			cli.GetLogger(cmd).Debugf("Validating %s", path)

			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			validator, err := config.NewValidator()
			if err != nil {
				return err
			}
			if err := validator.Validate(cfg); err != nil {
				return err
			}

			fmt.Printf("%s is valid\n", path)
			return nil
		},
	}
}

func newConfigSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the configuration JSON schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the resolved configuration and state paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("config: %s\n", paths.ConfigFilePath())
			fmt.Printf("logs:   %s\n", paths.LogDir())
			fmt.Printf("socket: %s\n", paths.SocketPath())
			fmt.Printf("pid:    %s\n", paths.PidFilePath())
			return nil
		},
	}
}
