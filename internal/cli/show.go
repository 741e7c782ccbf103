package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vault-cli/pwvault/internal/store"
)

func newShowCommand(e *env) *cobra.Command {
	var (
		copyValue bool
		ttl       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "show <ref>",
		Short: "Reveal an entry's secret",
		Long: `Reveal the secret of one entry, either on the terminal or by copying it
to the clipboard.

With --copy the command stays in the foreground until the clipboard is
cleared (clipboard_ttl from the config, or --ttl). Press Ctrl-C to clear
it early.

Example:
  pwvault show github.com
  pwvault show github.com --copy
  pwvault show 3f2a --copy --ttl 10s`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !copyValue {
				return e.runUnlocked(cmd, func(st *store.FileStore) error {
					entry, err := st.Find(args[0])
					if err != nil {
						return err
					}
					if err := printWarning(cmd.ErrOrStderr(), "Displaying secret in terminal"); err != nil {
						return err
					}
					return writeOutput(cmd.OutOrStdout(), "%s\n", entry.Reveal())
				})
			}

			if !e.clipboardOK() {
				return fmt.Errorf("clipboard not available, run without --copy to display the secret")
			}
			wait, err := resolveClipboardTTL(ttl, e.cfg)
			if err != nil {
				return err
			}

			// Copy outside the session so the key is wiped before waiting.
			var secret, label string
			err = e.runUnlocked(cmd, func(st *store.FileStore) error {
				entry, err := st.Find(args[0])
				if err != nil {
					return err
				}
				secret, label = entry.Reveal(), entry.Label
				return nil
			})
			if err != nil {
				return err
			}

			if err := printSuccess(cmd.OutOrStdout(), "Secret for '%s' copied to clipboard (clears in %v)", label, wait); err != nil {
				return err
			}
			err = e.copy(cmd.Context(), secret, wait)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&copyValue, "copy", false, "Copy the secret to the clipboard instead of printing it")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Clipboard clear timeout (default from config)")

	return cmd
}
