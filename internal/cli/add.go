package cli

import (
	"github.com/spf13/cobra"

	"github.com/vault-cli/pwvault/internal/store"
)

func newAddCommand(e *env) *cobra.Command {
	var generate bool

	cmd := &cobra.Command{
		Use:   "add <label>",
		Short: "Add a new entry to the vault",
		Long: `Add a new entry with the given label.

The secret is prompted for without echo, or generated from the
password_generator settings with --generate.

Example:
  pwvault add github.com
  pwvault add bank --generate`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runUnlocked(cmd, func(st *store.FileStore) error {
				secret, err := e.readSecret(generate, "Secret: ")
				if err != nil {
					return err
				}

				entry, err := st.Add(args[0], secret)
				if err != nil {
					return err
				}

				return printSuccess(cmd.OutOrStdout(), "Entry '%s' added (id %s)", entry.Label, shortID(entry.ID))
			})
		},
	}

	cmd.Flags().BoolVar(&generate, "generate", false, "Generate the secret")

	return cmd
}
