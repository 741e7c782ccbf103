package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vault-cli/pwvault/internal/app"
	"github.com/vault-cli/pwvault/internal/clipboard"
	"github.com/vault-cli/pwvault/internal/vault"
)

const shellHelp = `Commands:
  n, next        select next entry
  p, prev        select previous entry
  a, add         add an entry
  e, edit        edit the selected entry
  d, delete      delete the selected entry
  r, reveal      show or hide the selected secret
  c, copy        copy the selected secret to the clipboard
  / <text>       filter labels (empty clears)
  q, quit        lock and exit
`

func newShellCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Open an interactive vault session",
		Long: `Start an interactive session: log in or register, then browse, reveal,
copy, add, edit and delete entries with one-word commands. The key stays
in memory only while the shell runs and is wiped on exit.

Example:
  pwvault shell
  pwvault shell --user alice`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opener := app.RegistryOpener{Registry: e.registry(), KDF: e.kdf(), Options: e.storeOpts}
			copier := e.copier
			if copier == nil && e.clipboardOK() {
				timed := &clipboard.Timed{TTL: e.cfg.ClipboardTTL}
				defer timed.Flush()
				copier = timed
			}

			m := app.New(opener, copier)
			defer m.Close()

			sh := &shell{m: m, prompt: e.prompt, out: cmd.OutOrStdout(), user: e.user}
			return sh.run()
		},
	}
}

// shell is a line-oriented front end for app.Machine.
type shell struct {
	m      *app.Machine
	prompt *prompter
	out    io.Writer
	// user pre-fills the username fields.
	user string
}

func (s *shell) run() error {
	for s.m.State() != app.Exited {
		if err := s.step(); err != nil {
			if !errors.Is(err, io.EOF) {
				return err
			}
			s.m.Close()
		}
	}
	return writeOutput(s.out, "Vault locked\n")
}

func (s *shell) step() error {
	switch s.m.State() {
	case app.Welcome:
		return s.welcome()
	case app.LoginForm:
		return s.loginForm()
	case app.RegisterForm:
		return s.registerForm()
	case app.Unlocked:
		return s.unlocked()
	case app.AddEditForm:
		return s.entryForm()
	case app.ConfirmDelete:
		return s.confirmDelete()
	}
	return nil
}

// dispatch sends in to the machine and prints the resulting message.
// Domain failures are shown, not returned, so the loop keeps going.
func (s *shell) dispatch(in app.Intent) error {
	err := s.m.Dispatch(in)
	if errors.Is(err, app.ErrExited) {
		return err
	}
	if s.m.State() == app.Exited {
		return nil
	}

	msg := s.m.View().Message
	switch {
	case msg == "":
		return nil
	case err != nil:
		return printWarning(s.out, "%s", msg)
	default:
		return printSuccess(s.out, "%s", msg)
	}
}

func (s *shell) welcome() error {
	if err := writeOutput(s.out, "%s\n", labelStyle.Sprint("pwvault")+" - login, register or quit"); err != nil {
		return err
	}

	line, err := s.prompt.Input("> ")
	if err != nil {
		return err
	}
	switch strings.ToLower(line) {
	case "l", "login":
		return s.dispatch(app.ChooseLogin{})
	case "r", "register":
		return s.dispatch(app.ChooseRegister{})
	case "q", "quit", "exit":
		return s.dispatch(app.Quit{})
	case "":
		return nil
	default:
		return printWarning(s.out, "unknown command %q", line)
	}
}

// username reads a username, offering the pre-filled one as default.
// "-", or an empty answer with no default, means "go back".
func (s *shell) username() (string, error) {
	prompt := "Username (- to go back): "
	if s.user != "" {
		prompt = fmt.Sprintf("Username [%s] (- to go back): ", s.user)
	}
	name, err := s.prompt.Input(prompt)
	if err != nil {
		return "", err
	}
	switch name {
	case "-":
		return "", nil
	case "":
		return s.user, nil
	}
	return name, nil
}

func (s *shell) loginForm() error {
	name, err := s.username()
	if err != nil {
		return err
	}
	if name == "" {
		return s.dispatch(app.Cancel{})
	}

	password, err := s.prompt.Password("Master password: ")
	if err != nil {
		return err
	}
	defer vault.Zeroize(password)

	return s.dispatch(app.SubmitLogin{Username: name, Password: password})
}

func (s *shell) registerForm() error {
	name, err := s.username()
	if err != nil {
		return err
	}
	if name == "" {
		return s.dispatch(app.Cancel{})
	}

	password, err := s.prompt.Password("Master password: ")
	if err != nil {
		return err
	}
	defer vault.Zeroize(password)

	confirm, err := s.prompt.Password("Confirm password: ")
	if err != nil {
		return err
	}
	defer vault.Zeroize(confirm)

	label, err := s.prompt.Input("First entry label: ")
	if err != nil {
		return err
	}
	secret, err := s.prompt.Password("First entry secret: ")
	if err != nil {
		return err
	}
	defer vault.Zeroize(secret)

	return s.dispatch(app.SubmitRegister{
		Username: name,
		Password: password,
		Confirm:  confirm,
		Label:    label,
		Secret:   string(secret),
	})
}

func (s *shell) unlocked() error {
	if err := s.render(s.m.View()); err != nil {
		return err
	}

	line, err := s.prompt.Input("> ")
	if err != nil {
		return err
	}

	cmd, arg, _ := strings.Cut(line, " ")
	if strings.HasPrefix(line, "/") {
		cmd, arg = "/", strings.TrimPrefix(line, "/")
	}

	switch strings.ToLower(cmd) {
	case "n", "next", "j":
		return s.dispatch(app.SelectNext{})
	case "p", "prev", "k":
		return s.dispatch(app.SelectPrev{})
	case "a", "add":
		return s.dispatch(app.RequestAdd{})
	case "e", "edit":
		return s.dispatch(app.RequestEdit{})
	case "d", "delete":
		return s.dispatch(app.RequestDelete{})
	case "r", "reveal":
		return s.dispatch(app.ToggleReveal{})
	case "c", "copy":
		return s.dispatch(app.Copy{})
	case "/", "f", "filter":
		return s.dispatch(app.Filter{Text: strings.TrimSpace(arg)})
	case "q", "quit", "exit":
		return s.dispatch(app.Quit{})
	case "", "l", "list":
		return nil
	case "?", "h", "help":
		return writeString(s.out, shellHelp)
	default:
		return printWarning(s.out, "unknown command %q, type ? for help", line)
	}
}

func (s *shell) render(v app.View) error {
	header := fmt.Sprintf("%s's vault", v.Username)
	if v.Filter != "" {
		header += mutedStyle.Sprintf("  filter: %s", v.Filter)
	}
	if err := writeOutput(s.out, "%s\n", labelStyle.Sprint(header)); err != nil {
		return err
	}
	if len(v.Rows) == 0 {
		return writeOutput(s.out, "  (no entries)\n")
	}

	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	for i, r := range v.Rows {
		marker := " "
		if i == v.Selected {
			marker = ">"
		}
		fmt.Fprintf(w, "%s %s\t%s\t%s\n", marker, r.Label, r.Secret, mutedStyle.Sprint(shortID(r.ID)))
	}
	return w.Flush()
}

func (s *shell) entryForm() error {
	v := s.m.View()

	if v.Editing {
		label, err := s.prompt.Input(fmt.Sprintf("Label [%s]: ", v.Target.Label))
		if err != nil {
			return err
		}
		if label == "" {
			label = v.Target.Label
		}
		secret, err := s.prompt.Password("Secret (empty keeps current): ")
		if err != nil {
			return err
		}
		defer vault.Zeroize(secret)
		return s.dispatch(app.SubmitEntry{Label: label, Secret: string(secret)})
	}

	label, err := s.prompt.Input("Label (empty to cancel): ")
	if err != nil {
		return err
	}
	if label == "" {
		return s.dispatch(app.Cancel{})
	}
	secret, err := s.prompt.Password("Secret: ")
	if err != nil {
		return err
	}
	defer vault.Zeroize(secret)
	return s.dispatch(app.SubmitEntry{Label: label, Secret: string(secret)})
}

func (s *shell) confirmDelete() error {
	v := s.m.View()
	ok, err := s.prompt.Confirm(fmt.Sprintf("Delete entry '%s'?", v.Target.Label), false)
	if err != nil {
		return err
	}
	if !ok {
		return s.dispatch(app.Cancel{})
	}
	return s.dispatch(app.Confirm{})
}
