package cli

import (
	"github.com/spf13/cobra"

	"github.com/vault-cli/pwvault/internal/store"
)

func newDeleteCommand(e *env) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <ref>",
		Short: "Delete an entry from the vault",
		Long: `Delete an entry. You are asked to confirm unless --yes is given.

Example:
  pwvault delete github.com
  pwvault delete 3f2a --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runUnlocked(cmd, func(st *store.FileStore) error {
				entry, err := st.Find(args[0])
				if err != nil {
					return err
				}

				if !yes {
					ok, err := e.prompt.Confirm("Delete entry '"+entry.Label+"'?", false)
					if err != nil {
						return err
					}
					if !ok {
						return writeOutput(cmd.OutOrStdout(), "Deletion cancelled\n")
					}
				}

				if err := st.Delete(entry.ID); err != nil {
					return err
				}
				return printSuccess(cmd.OutOrStdout(), "Entry '%s' deleted", entry.Label)
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}
