package cli

import (
	"github.com/spf13/cobra"

	"github.com/vault-cli/pwvault/internal/session"
	"github.com/vault-cli/pwvault/internal/store"
	"github.com/vault-cli/pwvault/internal/vault"
)

// unlock prompts for the master password and opens the user's vault.
// Callers defer sess.Close() right away.
func (e *env) unlock(cmd *cobra.Command) (*session.Session, *store.FileStore, error) {
	username, err := e.username()
	if err != nil {
		return nil, nil, err
	}

	password, err := e.prompt.Password("Master password: ")
	if err != nil {
		return nil, nil, err
	}
	defer vault.Zeroize(password)

	var sess *session.Session
	err = withSpinner(cmd.ErrOrStderr(), "Unlocking vault...", func() error {
		var lerr error
		sess, lerr = session.Login(e.registry(), username, password, e.storeOpts...)
		return lerr
	})
	if err != nil {
		return nil, nil, err
	}

	st, err := sess.Store()
	if err != nil {
		sess.Close()
		return nil, nil, err
	}
	return sess, st, nil
}

// runUnlocked opens the vault, runs fn and closes the session on every path.
func (e *env) runUnlocked(cmd *cobra.Command, fn func(st *store.FileStore) error) error {
	sess, st, err := e.unlock(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	return fn(st)
}
