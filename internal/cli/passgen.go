package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vault-cli/pwvault/internal/config"
	internalcrypto "github.com/vault-cli/pwvault/internal/crypto"
)

const defaultClipboardTTL = 30 * time.Second

type passgenOptions struct {
	length    int
	words     int
	noUpper   bool
	noNumbers bool
	noSpecial bool
	copy      bool
	ttl       time.Duration
}

func newPassgenCommand(e *env) *cobra.Command {
	opts := &passgenOptions{}

	cmd := &cobra.Command{
		Use:   "passgen",
		Short: "Generate secure passwords or passphrases",
		Long: `Generate a password from the password_generator settings in the config,
or a Diceware-style passphrase with --words. Lowercase letters are always
used and every enabled character class appears at least once.

Example:
  pwvault passgen
  pwvault passgen --length 24 --no-special
  pwvault passgen --words 5
  pwvault passgen --copy --ttl 10s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPassgen(cmd, e, opts)
		},
	}

	cmd.Flags().IntVar(&opts.length, "length", 0, "Length of generated password (default from config)")
	cmd.Flags().IntVar(&opts.words, "words", 0, "Number of words for Diceware passphrase")
	cmd.Flags().BoolVar(&opts.noUpper, "no-upper", false, "Leave out uppercase letters")
	cmd.Flags().BoolVar(&opts.noNumbers, "no-numbers", false, "Leave out digits")
	cmd.Flags().BoolVar(&opts.noSpecial, "no-special", false, "Leave out special characters")
	cmd.Flags().BoolVar(&opts.copy, "copy", false, "Copy the generated value to the clipboard")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", 0, "Clipboard clear timeout (default from config)")

	return cmd
}

func runPassgen(cmd *cobra.Command, e *env, opts *passgenOptions) error {
	var (
		secret string
		err    error
	)

	if cmd.Flags().Changed("words") {
		for _, name := range []string{"length", "no-upper", "no-numbers", "no-special"} {
			if cmd.Flags().Changed(name) {
				return fmt.Errorf("--words cannot be used with --%s", name)
			}
		}
		if opts.words <= 0 {
			return fmt.Errorf("--words must be positive")
		}

		words, werr := internalcrypto.GenerateDiceware(opts.words)
		if werr != nil {
			return fmt.Errorf("failed to generate passphrase: %w", werr)
		}
		secret = strings.Join(words, " ")
	} else {
		if cmd.Flags().Changed("length") && opts.length <= 0 {
			return fmt.Errorf("--length must be positive")
		}
		policy := policyFromConfig(e.cfg, opts.length)
		if opts.noUpper {
			policy.IncludeUppercase = false
		}
		if opts.noNumbers {
			policy.IncludeNumbers = false
		}
		if opts.noSpecial {
			policy.IncludeSpecial = false
		}

		secret, err = internalcrypto.GeneratePassword(policy)
		if err != nil {
			return fmt.Errorf("failed to generate password: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	if !opts.copy {
		return writeOutput(out, "%s\n", secret)
	}

	if !e.clipboardOK() {
		return fmt.Errorf("clipboard not available, remove --copy to print instead")
	}

	ttl, err := resolveClipboardTTL(opts.ttl, e.cfg)
	if err != nil {
		return err
	}

	if err := printSuccess(out, "Password copied to clipboard (clears in %s)", ttl.Round(time.Second)); err != nil {
		return err
	}
	if err := e.copy(cmd.Context(), secret, ttl); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	return nil
}

// policyFromConfig builds the generator policy from the config. A positive
// length overrides the configured one.
func policyFromConfig(conf *config.Config, length int) internalcrypto.Policy {
	policy := internalcrypto.DefaultPolicy()
	if conf != nil {
		g := conf.PasswordGenerator
		policy = internalcrypto.Policy{
			Length:           g.Length,
			IncludeUppercase: g.IncludeUppercase,
			IncludeNumbers:   g.IncludeNumbers,
			IncludeSpecial:   g.IncludeSpecial,
		}
	}
	if length > 0 {
		policy.Length = length
	}
	return policy
}

// generatePassword generates a secret with the configured policy.
func generatePassword(conf *config.Config, length int) (string, error) {
	secret, err := internalcrypto.GeneratePassword(policyFromConfig(conf, length))
	if err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	return secret, nil
}

func resolveClipboardTTL(override time.Duration, conf *config.Config) (time.Duration, error) {
	if override < 0 {
		return 0, fmt.Errorf("--ttl must not be negative")
	}

	if override > 0 {
		return override, nil
	}

	if conf != nil && conf.ClipboardTTL > 0 {
		return conf.ClipboardTTL, nil
	}

	return defaultClipboardTTL, nil
}
