package cli

import (
	"github.com/spf13/cobra"

	"github.com/vault-cli/pwvault/internal/domain"
	"github.com/vault-cli/pwvault/internal/store"
)

type editOptions struct {
	label        string
	secretPrompt bool
	generate     bool
}

func newEditCommand(e *env) *cobra.Command {
	opts := &editOptions{}

	cmd := &cobra.Command{
		Use:   "edit <ref>",
		Short: "Change an entry's label or secret",
		Long: `Change the label and/or secret of an existing entry. The entry keeps
its position in the vault.

<ref> is an entry id, a unique id prefix of at least four characters, or
a label.

Example:
  pwvault edit github.com --label github
  pwvault edit 3f2a91c0 --secret-prompt
  pwvault edit bank --generate`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, e, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.label, "label", "", "New label")
	cmd.Flags().BoolVar(&opts.secretPrompt, "secret-prompt", false, "Prompt for a new secret")
	cmd.Flags().BoolVar(&opts.generate, "generate", false, "Generate a new secret")

	return cmd
}

func runEdit(cmd *cobra.Command, e *env, opts *editOptions, ref string) error {
	if !cmd.Flags().Changed("label") && !opts.secretPrompt && !opts.generate {
		return domain.NewValidationError("edit", "nothing to change, use --label, --secret-prompt or --generate")
	}
	if opts.secretPrompt && opts.generate {
		return domain.NewValidationError("edit", "--secret-prompt and --generate are mutually exclusive")
	}

	return e.runUnlocked(cmd, func(st *store.FileStore) error {
		entry, err := st.Find(ref)
		if err != nil {
			return err
		}

		var upd store.EntryUpdate
		if cmd.Flags().Changed("label") {
			upd.Label = &opts.label
		}
		if opts.secretPrompt || opts.generate {
			secret, err := e.readSecret(opts.generate, "New secret: ")
			if err != nil {
				return err
			}
			upd.Secret = &secret
		}

		updated, err := st.Edit(entry.ID, upd)
		if err != nil {
			return err
		}

		return printSuccess(cmd.OutOrStdout(), "Entry '%s' updated", updated.Label)
	})
}
