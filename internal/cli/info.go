package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vault-cli/pwvault/internal/domain"
	"github.com/vault-cli/pwvault/internal/store"
	"github.com/vault-cli/pwvault/internal/vault"
)

func newInfoCommand(e *env) *cobra.Command {
	var (
		outputYAML bool
		benchmark  bool
	)

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show vault file metadata",
		Long: `Show the format version and key-derivation settings recorded in a
user's vault header. The master password is not needed and no entry is
decrypted.

Example:
  pwvault info --user alice
  pwvault info --yaml
  pwvault info --benchmark`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := e.username()
			if err != nil {
				return err
			}

			reg := e.registry()
			path, err := reg.Resolve(username)
			if err != nil {
				return err
			}

			file, err := reg.FS().ReadFile(path)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("user %q: %w", username, domain.ErrNotFound)
				}
				return fmt.Errorf("failed to read vault: %w", err)
			}

			info, err := vault.DescribeFile(file)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outputYAML {
				data, err := yaml.Marshal(info)
				if err != nil {
					return fmt.Errorf("failed to marshal header info: %w", err)
				}
				return writeString(out, string(data))
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\n", labelStyle.Sprint("File"), store.FileName(username))
			fmt.Fprintf(w, "%s\t%d\n", labelStyle.Sprint("Format version"), info.FormatVersion)
			fmt.Fprintf(w, "%s\t%s\n", labelStyle.Sprint("Cipher"), info.Cipher)
			fmt.Fprintf(w, "%s\t%s (N=%d, r=%d, p=%d)\n", labelStyle.Sprint("KDF"), info.KDF, info.N, info.R, info.P)
			fmt.Fprintf(w, "%s\t%d bytes\n", labelStyle.Sprint("Salt"), info.SaltLength)
			fmt.Fprintf(w, "%s\t%d bytes\n", labelStyle.Sprint("Payload"), info.PayloadBytes)
			if err := w.Flush(); err != nil {
				return err
			}

			if !benchmark {
				return nil
			}
			header, err := vault.ParseHeader(file)
			if err != nil {
				return err
			}
			var took time.Duration
			err = withSpinner(cmd.ErrOrStderr(), "Measuring key derivation...", func() error {
				var berr error
				took, berr = vault.BenchmarkKDF(header.Params)
				return berr
			})
			if err != nil {
				return err
			}
			return writeOutput(out, "%s  %v\n", labelStyle.Sprint("Unlock cost"), took.Round(time.Millisecond))
		},
	}

	cmd.Flags().BoolVar(&outputYAML, "yaml", false, "Output in YAML format")
	cmd.Flags().BoolVar(&benchmark, "benchmark", false, "Time one key derivation with this vault's parameters")

	return cmd
}
