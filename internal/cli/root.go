package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vault-cli/pwvault/internal/app"
	"github.com/vault-cli/pwvault/internal/clipboard"
	"github.com/vault-cli/pwvault/internal/config"
	"github.com/vault-cli/pwvault/internal/logging"
	"github.com/vault-cli/pwvault/internal/session"
	"github.com/vault-cli/pwvault/internal/store"
)

// env is the state shared by the commands of one invocation.
type env struct {
	cfgFile string
	dataDir string
	user    string
	verbose bool

	cfg    *config.Config
	prompt *prompter

	// Clipboard collaborators, replaced in tests. A nil copier makes the
	// shell use the system clipboard.
	copy        func(ctx context.Context, text string, ttl time.Duration) error
	clipboardOK func() bool
	copier      app.Copier

	storeOpts []store.Option
}

func newEnv() *env {
	return &env{
		copy:        clipboard.CopyAndWait,
		clipboardOK: clipboard.IsAvailable,
	}
}

// NewRootCommand builds the pwvault command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(newEnv())
}

func newRootCommand(e *env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pwvault",
		Short: "A local, per-user encrypted credential vault",
		Long: `pwvault keeps named secrets in one encrypted file per user.

The vault is sealed with XChaCha20-Poly1305 under a key derived from your
master password with scrypt. Every change re-encrypts the whole vault and
atomically replaces the file. Nothing leaves your machine.`,
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&e.cfgFile, "config", "", "config file (default is $HOME/.config/pwvault/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&e.dataDir, "data-dir", "", "directory holding the vault files")
	rootCmd.PersistentFlags().StringVar(&e.user, "user", "", "vault user")
	rootCmd.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(
		newRegisterCommand(e),
		newListCommand(e),
		newAddCommand(e),
		newEditCommand(e),
		newDeleteCommand(e),
		newShowCommand(e),
		newSearchCommand(e),
		newInfoCommand(e),
		newPassgenCommand(e),
		newConfigCommand(e),
		newShellCommand(e),
	)

	return rootCmd
}

// Execute runs the command tree. Interrupts cancel the command context so
// a pending clipboard clear still runs.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}

func (e *env) setup(cmd *cobra.Command) error {
	if e.cfgFile == "" {
		e.cfgFile = config.DefaultPath()
	}

	var err error
	e.cfg, err = config.LoadConfig(e.cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logging.Setup(cmd.ErrOrStderr(), e.cfg.LogLevel, e.verbose); err != nil {
		return err
	}

	if e.dataDir == "" {
		e.dataDir = e.cfg.DataDir
	}
	if e.user == "" {
		e.user = e.cfg.DefaultUser
	}

	e.prompt = newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
	return nil
}

func (e *env) registry() *store.Registry {
	return store.NewRegistry(e.dataDir, nil)
}

func (e *env) kdf() session.KDF {
	return session.KDF{N: e.cfg.KDF.N, R: e.cfg.KDF.R, P: e.cfg.KDF.P}
}

// username returns the --user flag or default_user, prompting when both are empty.
func (e *env) username() (string, error) {
	if strings.TrimSpace(e.user) != "" {
		return e.user, nil
	}
	return e.prompt.Input("Username: ")
}
