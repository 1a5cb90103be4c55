package manifest

// Action is what a client does when a button is pressed.
type Action string

const (
	ActionPost         Action = "post"
	ActionPostRedirect Action = "post_redirect"
	ActionLink         Action = "link"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionPost, ActionPostRedirect, ActionLink:
		return true
	}
	return false
}

// Posts reports whether pressing the button calls the frame's post_url.
func (a Action) Posts() bool {
	return a == ActionPost || a == ActionPostRedirect
}

// Button is a populated slot shaped for validation and display.
type Button struct {
	Index  int
	Label  Field
	Action Action
	Target Field
}

// ExtractButtons returns the populated slots in index order. Every slot is
// examined on its own, so a gap at slot 1 does not hide slot 2. An unset
// action means post. Nothing is validated here.
func ExtractButtons(m *Manifest) []Button {
	if m == nil {
		return nil
	}
	out := make([]Button, 0, MaxButtons)
	for i, slot := range m.Buttons {
		if !slot.Populated() {
			continue
		}
		action := ActionPost
		if slot.Action.Truthy() {
			action = Action(slot.Action.Value)
		}
		out = append(out, Button{
			Index:  i + 1,
			Label:  slot.Label,
			Action: action,
			Target: slot.Target,
		})
	}
	return out
}
