package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vault-cli/pwvault/internal/config"
	"github.com/vault-cli/pwvault/internal/util"
)

func newConfigCommand(e *env) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage pwvault configuration",
		Long: `Manage pwvault configuration settings.

You can view, set, or get individual configuration values.
Configuration is stored in ~/.config/pwvault/config.yaml by default.
The kdf settings apply to vaults registered afterwards only.

Example:
  pwvault config path                      # Show config file path
  pwvault config get clipboard_ttl         # Get clipboard timeout
  pwvault config set clipboard_ttl 60s     # Set clipboard timeout
  pwvault config get                       # Show all configuration
  pwvault config reset                     # Restore defaults`,
	}

	configGetCmd := &cobra.Command{
		Use:   "get [key]",
		Short: "Get configuration value(s)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				value, err := e.cfg.Get(args[0])
				if err != nil {
					return err
				}
				return writeOutput(out, "%s\n", value)
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, key := range config.Keys() {
				value, err := e.cfg.Get(key)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\n", key, value)
			}
			return w.Flush()
		},
	}

	configSetCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := config.SaveConfig(e.cfg, e.cfgFile); err != nil {
				return util.WrapError(err, "config set")
			}
			value, _ := e.cfg.Get(args[0])
			return printSuccess(cmd.OutOrStdout(), "Set %s = %s", args[0], value)
		},
	}

	configPathCmd := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeOutput(cmd.OutOrStdout(), "%s\n", e.cfgFile)
		},
	}

	configResetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Restore the default configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := e.prompt.Confirm("Overwrite "+e.cfgFile+" with defaults?", false)
			if err != nil {
				return err
			}
			if !ok {
				return writeOutput(cmd.OutOrStdout(), "Reset cancelled\n")
			}

			e.cfg = config.DefaultConfig()
			if err := config.SaveConfig(e.cfg, e.cfgFile); err != nil {
				return util.WrapError(err, "config reset")
			}
			return printSuccess(cmd.OutOrStdout(), "Configuration reset to defaults")
		},
	}

	configCmd.AddCommand(configGetCmd, configSetCmd, configPathCmd, configResetCmd)
	return configCmd
}
