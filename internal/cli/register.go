package cli

import (
	"github.com/spf13/cobra"

	"github.com/vault-cli/pwvault/internal/session"
	"github.com/vault-cli/pwvault/internal/store"
	"github.com/vault-cli/pwvault/internal/vault"
)

type registerOptions struct {
	label    string
	generate bool
	kdfN     uint32
	kdfR     uint32
	kdfP     uint32
}

func newRegisterCommand(e *env) *cobra.Command {
	opts := &registerOptions{}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a vault for a new user",
		Long: `Create a new vault protected by a master password.

A vault always holds at least one entry, so registration asks for the
first one. The scrypt cost comes from the kdf section of the config unless
overridden with the --kdf-* flags.

Example:
  pwvault register
  pwvault register --user alice --label email --generate
  pwvault register --kdf-n 65536`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd, e, opts)
		},
	}

	cmd.Flags().StringVar(&opts.label, "label", "", "Label of the first entry")
	cmd.Flags().BoolVar(&opts.generate, "generate", false, "Generate the first entry's secret")
	cmd.Flags().Uint32Var(&opts.kdfN, "kdf-n", 0, "scrypt CPU/memory cost (power of two)")
	cmd.Flags().Uint32Var(&opts.kdfR, "kdf-r", 0, "scrypt block size")
	cmd.Flags().Uint32Var(&opts.kdfP, "kdf-p", 0, "scrypt parallelism")

	return cmd
}

func runRegister(cmd *cobra.Command, e *env, opts *registerOptions) error {
	username, err := e.username()
	if err != nil {
		return err
	}

	password, err := e.prompt.Password("Master password: ")
	if err != nil {
		return err
	}
	defer vault.Zeroize(password)

	confirm, err := e.prompt.Password("Confirm password: ")
	if err != nil {
		return err
	}
	defer vault.Zeroize(confirm)

	label := opts.label
	if label == "" {
		if label, err = e.prompt.Input("First entry label: "); err != nil {
			return err
		}
	}

	secret, err := e.readSecret(opts.generate, "First entry secret: ")
	if err != nil {
		return err
	}

	kdf := e.kdf()
	if opts.kdfN != 0 {
		kdf.N = opts.kdfN
	}
	if opts.kdfR != 0 {
		kdf.R = opts.kdfR
	}
	if opts.kdfP != 0 {
		kdf.P = opts.kdfP
	}

	req := session.Registration{
		Username: username,
		Password: password,
		Confirm:  confirm,
		First:    store.Seed{Label: label, Secret: secret},
		KDF:      kdf,
	}

	var sess *session.Session
	err = withSpinner(cmd.ErrOrStderr(), "Creating vault...", func() error {
		var rerr error
		sess, rerr = session.Register(e.registry(), req, e.storeOpts...)
		return rerr
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	out := cmd.OutOrStdout()
	if err := printSuccess(out, "Vault created for user '%s'", username); err != nil {
		return err
	}
	if e.verbose {
		return writeOutput(out, "  File: %s\n", store.FileName(username))
	}
	return nil
}

// readSecret generates a secret from the configured policy or prompts for one.
func (e *env) readSecret(generate bool, prompt string) (string, error) {
	if generate {
		return generatePassword(e.cfg, 0)
	}
	secret, err := e.prompt.Password(prompt)
	if err != nil {
		return "", err
	}
	defer vault.Zeroize(secret)
	return string(secret), nil
}
