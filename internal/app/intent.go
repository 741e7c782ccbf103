package app

// Intent is a discrete user action sent by a front end to the Machine.
type Intent interface {
	intent()
}

type (
	// ChooseLogin moves from Welcome to the login form.
	ChooseLogin struct{}
	// ChooseRegister moves from Welcome to the registration form.
	ChooseRegister struct{}

	// SubmitLogin submits the login form.
	SubmitLogin struct {
		Username string
		Password []byte
	}

	// SubmitRegister submits the registration form with the mandatory first entry.
	SubmitRegister struct {
		Username string
		Password []byte
		Confirm  []byte
		Label    string
		Secret   string
	}

	// SubmitEntry submits the add/edit form. When editing, an empty Secret
	// keeps the current value.
	SubmitEntry struct {
		Label  string
		Secret string
	}

	SelectNext struct{}
	SelectPrev struct{}

	RequestAdd    struct{}
	RequestEdit   struct{}
	RequestDelete struct{}

	// ToggleReveal shows or hides the selected entry's secret.
	ToggleReveal struct{}
	// Copy hands the selected entry's secret to the clipboard.
	Copy struct{}

	// Filter narrows the visible list with the fuzzy matcher. Empty text clears it.
	Filter struct {
		Text string
	}

	Confirm struct{}
	Cancel  struct{}
	Quit    struct{}
)

func (ChooseLogin) intent()    {}
func (ChooseRegister) intent() {}
func (SubmitLogin) intent()    {}
func (SubmitRegister) intent() {}
func (SubmitEntry) intent()    {}
func (SelectNext) intent()     {}
func (SelectPrev) intent()     {}
func (RequestAdd) intent()     {}
func (RequestEdit) intent()    {}
func (RequestDelete) intent()  {}
func (ToggleReveal) intent()   {}
func (Copy) intent()           {}
func (Filter) intent()         {}
func (Confirm) intent()        {}
func (Cancel) intent()         {}
func (Quit) intent()           {}
