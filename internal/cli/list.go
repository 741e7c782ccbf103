package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/vault-cli/pwvault/internal/domain"
	"github.com/vault-cli/pwvault/internal/store"
)

// listItem is the JSON form of an entry. It never carries the secret.
type listItem struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newListCommand(e *env) *cobra.Command {
	var (
		filter     string
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries in the vault",
		Long: `List the entries of your vault in stored order with masked secrets.

--filter keeps only labels that fuzzy-match the query, best match first.

Example:
  pwvault list
  pwvault list --filter gh
  pwvault list --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runUnlocked(cmd, func(st *store.FileStore) error {
				entries := st.List()
				if filter != "" {
					entries = st.Search(filter)
				}
				return printEntries(cmd.OutOrStdout(), entries, outputJSON, filter != "")
			})
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "Fuzzy filter on labels")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output in JSON format")

	return cmd
}

func newSearchCommand(e *env) *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Fuzzy-search entry labels",
		Long: `Find entries whose label contains the query characters in order,
ignoring case and whitespace. Results are ranked best match first.

Example:
  pwvault search gh`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runUnlocked(cmd, func(st *store.FileStore) error {
				return printEntries(cmd.OutOrStdout(), st.Search(args[0]), outputJSON, true)
			})
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output in JSON format")

	return cmd
}

func printEntries(out io.Writer, entries []domain.Entry, asJSON, filtered bool) error {
	if asJSON {
		items := make([]listItem, 0, len(entries))
		for _, e := range entries {
			items = append(items, listItem{ID: e.ID, Label: e.Label, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt})
		}
		data, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal entries: %w", err)
		}
		return writeOutput(out, "%s\n", data)
	}

	if len(entries) == 0 {
		if filtered {
			return writeOutput(out, "No entries match\n")
		}
		return writeOutput(out, "No entries found\n")
	}

	if err := writeEntryTable(out, entries); err != nil {
		return err
	}
	return writeOutput(out, "\n%s\n", mutedStyle.Sprintf("%d entries", len(entries)))
}
