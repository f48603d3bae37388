package display

// Modal is the emergency alert dialog. Hide may be called by the controller or by
// the user dismissing the dialog; either way the hidden hook runs once per show.
type Modal struct {
	Title     string
	Patient   string
	Location  string
	Message   string
	Countdown string
	// Progress is the fraction of the countdown remaining, from 1 to 0.
	Progress float64

	visible  bool
	shows    int
	onHidden func()
}

func NewModal() *Modal {
	return &Modal{}
}

// Show makes the modal visible with its current content.
func (m *Modal) Show() {
	m.visible = true
	m.shows++
}

// Hide closes the modal and runs the hidden hook if it was visible.
func (m *Modal) Hide() {
	if !m.visible {
		return
	}
	m.visible = false
	if m.onHidden != nil {
		m.onHidden()
	}
}

// SetOnHidden registers the hook run whenever a visible modal is hidden.
func (m *Modal) SetOnHidden(fn func()) {
	m.onHidden = fn
}

func (m *Modal) Visible() bool {
	return m.visible
}

// Shows returns how many times the modal was opened.
func (m *Modal) Shows() int {
	return m.shows
}
