// Package app implements the interactive flow of the vault as a state
// machine. Front ends translate key presses or typed commands into Intents,
// call Dispatch, and render the View. The machine never does terminal I/O.
package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vault-cli/pwvault/internal/domain"
	"github.com/vault-cli/pwvault/internal/session"
	"github.com/vault-cli/pwvault/internal/store"
)

// State is a screen of the interactive flow.
type State int

const (
	Welcome State = iota
	LoginForm
	RegisterForm
	Unlocked
	AddEditForm
	ConfirmDelete
	Exited
)

var stateNames = [...]string{
	Welcome:       "welcome",
	LoginForm:     "login",
	RegisterForm:  "register",
	Unlocked:      "unlocked",
	AddEditForm:   "add-edit",
	ConfirmDelete: "confirm-delete",
	Exited:        "exited",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

var (
	// ErrInvalidIntent is returned when an intent does not apply to the current state.
	ErrInvalidIntent = errors.New("action not available here")
	// ErrExited is returned for any intent after Quit.
	ErrExited = errors.New("application has exited")
	// ErrNoClipboard is returned for Copy when no clipboard is configured.
	ErrNoClipboard = errors.New("clipboard not available")
)

// Opener unlocks or creates a vault session.
type Opener interface {
	Login(username string, password []byte) (*session.Session, error)
	Register(req session.Registration) (*session.Session, error)
}

// Copier receives a revealed secret on an explicit copy request.
type Copier interface {
	Copy(secret string) error
}

// RegistryOpener opens sessions against the vaults of one registry.
type RegistryOpener struct {
	Registry *store.Registry
	KDF      session.KDF
	Options  []store.Option
}

// Login implements Opener.
func (o RegistryOpener) Login(username string, password []byte) (*session.Session, error) {
	return session.Login(o.Registry, username, password, o.Options...)
}

// Register implements Opener. The configured KDF cost is used when the
// request does not carry one.
func (o RegistryOpener) Register(req session.Registration) (*session.Session, error) {
	if req.KDF == (session.KDF{}) {
		req.KDF = o.KDF
	}
	return session.Register(o.Registry, req, o.Options...)
}

// Row is one entry as shown to the user.
type Row struct {
	ID        string
	Label     string
	Secret    string
	Revealed  bool
	UpdatedAt time.Time
}

// View is everything a front end needs to render the current state.
type View struct {
	State    State
	Username string
	Rows     []Row
	// Selected indexes Rows, or is -1 when Rows is empty.
	Selected int
	Filter   string
	// Editing is set in AddEditForm when an existing entry is being changed.
	Editing bool
	// Target is the entry being edited or deleted.
	Target  Row
	Message string
}

// Machine drives the interactive flow. It is not safe for concurrent use.
type Machine struct {
	state  State
	opener Opener
	copier Copier

	sess *session.Session
	st   *store.FileStore

	selected int
	revealed map[string]bool
	filter   string
	target   string
	message  string
}

// New returns a machine in the Welcome state. copier may be nil.
func New(opener Opener, copier Copier) *Machine {
	return &Machine{
		state:  Welcome,
		opener: opener,
		copier: copier,
	}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Dispatch applies one intent. Failures leave the machine in a state where
// the user can retry or cancel, and are returned as well as recorded in the
// View message.
func (m *Machine) Dispatch(in Intent) error {
	if m.state == Exited {
		return ErrExited
	}
	if _, ok := in.(Quit); ok {
		m.Close()
		return nil
	}

	m.message = ""
	from := m.state

	var err error
	switch m.state {
	case Welcome:
		err = m.welcome(in)
	case LoginForm:
		err = m.loginForm(in)
	case RegisterForm:
		err = m.registerForm(in)
	case Unlocked:
		err = m.unlocked(in)
	case AddEditForm:
		err = m.addEditForm(in)
	case ConfirmDelete:
		err = m.confirmDelete(in)
	}

	if err != nil {
		m.message = domain.PublicMessage(err)
	}
	if from != m.state {
		log.Debug().Stringer("from", from).Stringer("to", m.state).Msg("state change")
	}
	return err
}

// Close ends the session, wiping the key and secrets, and moves to Exited.
// Front ends defer it so every exit path wipes the key.
func (m *Machine) Close() {
	if m.sess != nil {
		m.sess.Close()
	}
	m.sess = nil
	m.st = nil
	m.revealed = nil
	m.state = Exited
}

func (m *Machine) welcome(in Intent) error {
	switch in.(type) {
	case ChooseLogin:
		m.state = LoginForm
	case ChooseRegister:
		m.state = RegisterForm
	default:
		return m.invalid(in)
	}
	return nil
}

func (m *Machine) loginForm(in Intent) error {
	switch in := in.(type) {
	case SubmitLogin:
		sess, err := m.opener.Login(in.Username, in.Password)
		if err != nil {
			return err
		}
		return m.unlock(sess)
	case Cancel:
		m.state = Welcome
	default:
		return m.invalid(in)
	}
	return nil
}

func (m *Machine) registerForm(in Intent) error {
	switch in := in.(type) {
	case SubmitRegister:
		sess, err := m.opener.Register(session.Registration{
			Username: in.Username,
			Password: in.Password,
			Confirm:  in.Confirm,
			First:    store.Seed{Label: in.Label, Secret: in.Secret},
		})
		if err != nil {
			return err
		}
		return m.unlock(sess)
	case Cancel:
		m.state = Welcome
	default:
		return m.invalid(in)
	}
	return nil
}

func (m *Machine) unlock(sess *session.Session) error {
	st, err := sess.Store()
	if err != nil {
		return err
	}
	m.sess = sess
	m.st = st
	m.revealed = make(map[string]bool)
	m.filter = ""
	m.selected = 0
	m.state = Unlocked
	return nil
}

func (m *Machine) unlocked(in Intent) error {
	switch in := in.(type) {
	case SelectNext:
		m.move(1)
	case SelectPrev:
		m.move(-1)
	case Filter:
		m.filter = in.Text
		m.selected = 0
	case RequestAdd:
		m.target = ""
		m.state = AddEditForm
	case RequestEdit:
		e, err := m.current()
		if err != nil {
			return err
		}
		m.target = e.ID
		m.state = AddEditForm
	case RequestDelete:
		e, err := m.current()
		if err != nil {
			return err
		}
		m.target = e.ID
		m.state = ConfirmDelete
	case ToggleReveal:
		e, err := m.current()
		if err != nil {
			return err
		}
		if m.revealed[e.ID] {
			delete(m.revealed, e.ID)
		} else {
			m.revealed[e.ID] = true
		}
	case Copy:
		e, err := m.current()
		if err != nil {
			return err
		}
		if m.copier == nil {
			return ErrNoClipboard
		}
		if err := m.copier.Copy(e.Reveal()); err != nil {
			return fmt.Errorf("copy failed: %w", err)
		}
		m.message = fmt.Sprintf("copied secret for %s", e.Label)
	default:
		return m.invalid(in)
	}
	return nil
}

func (m *Machine) addEditForm(in Intent) error {
	switch in := in.(type) {
	case SubmitEntry:
		var (
			e   domain.Entry
			err error
		)
		if m.target == "" {
			e, err = m.st.Add(in.Label, in.Secret)
		} else {
			upd := store.EntryUpdate{Label: &in.Label}
			if in.Secret != "" {
				upd.Secret = &in.Secret
			}
			e, err = m.st.Edit(m.target, upd)
		}
		if err != nil {
			return err
		}
		m.target = ""
		m.state = Unlocked
		m.selectID(e.ID)
	case Cancel:
		m.target = ""
		m.state = Unlocked
	default:
		return m.invalid(in)
	}
	return nil
}

func (m *Machine) confirmDelete(in Intent) error {
	switch in.(type) {
	case Confirm:
		id := m.target
		m.target = ""
		m.state = Unlocked
		if err := m.st.Delete(id); err != nil {
			m.clamp()
			return err
		}
		delete(m.revealed, id)
		m.clamp()
	case Cancel:
		m.target = ""
		m.state = Unlocked
	default:
		return m.invalid(in)
	}
	return nil
}

// View renders the current state. Secrets are masked unless the user
// revealed them.
func (m *Machine) View() View {
	v := View{
		State:    m.state,
		Selected: -1,
		Filter:   m.filter,
		Message:  m.message,
	}
	if m.sess != nil {
		v.Username = m.sess.Username()
	}
	if m.st == nil {
		return v
	}

	for _, e := range m.visible() {
		v.Rows = append(v.Rows, m.row(e))
	}
	if len(v.Rows) > 0 {
		v.Selected = m.selected
	}

	if m.target != "" {
		if e, err := m.st.Get(m.target); err == nil {
			v.Target = m.row(e)
			v.Editing = m.state == AddEditForm
		}
	}
	return v
}

func (m *Machine) row(e domain.Entry) Row {
	r := Row{ID: e.ID, Label: e.Label, Secret: e.Masked(), UpdatedAt: e.UpdatedAt}
	if m.revealed[e.ID] {
		r.Secret = e.Reveal()
		r.Revealed = true
	}
	return r
}

func (m *Machine) visible() []domain.Entry {
	return m.st.Search(m.filter)
}

func (m *Machine) current() (domain.Entry, error) {
	entries := m.visible()
	if m.selected < 0 || m.selected >= len(entries) {
		return domain.Entry{}, fmt.Errorf("no entry selected: %w", domain.ErrNotFound)
	}
	return entries[m.selected], nil
}

func (m *Machine) move(delta int) {
	m.selected += delta
	m.clamp()
}

func (m *Machine) clamp() {
	n := len(m.visible())
	if m.selected >= n {
		m.selected = n - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m *Machine) selectID(id string) {
	for i, e := range m.visible() {
		if e.ID == id {
			m.selected = i
			return
		}
	}
	m.clamp()
}

func (m *Machine) invalid(in Intent) error {
	return fmt.Errorf("%w: %T in %s", ErrInvalidIntent, in, m.state)
}
