package manifest

import (
	"errors"
	"strings"
)

// ErrTooManyButtons is returned when an editor holds more buttons than a
// manifest has slots.
var ErrTooManyButtons = errors.New("a frame supports at most 4 buttons")

// ErrInvalidSlot is returned when an editor button names a slot outside 1-4
// or one already taken by another button.
var ErrInvalidSlot = errors.New("button slot must be unique and between 1 and 4")

// EditorButton is a button as entered in a form. Slot pins the button to a
// manifest slot; zero means the slot matching its list position.
type EditorButton struct {
	Slot   int    `json:"slot,omitempty"`
	Label  string `json:"label"`
	Action Action `json:"action,omitempty"`
	Target string `json:"target,omitempty"`
}

// Editor is the form state a frame builder collects. The frame image doubles
// as the Open Graph preview image.
type Editor struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Image       string         `json:"image"`
	PostURL     string         `json:"postUrl"`
	Buttons     []EditorButton `json:"buttons"`
}

// Build converts form state to a manifest. The default post action is left
// implicit and empty targets are omitted.
func (e Editor) Build() (*Manifest, error) {
	if len(e.Buttons) > MaxButtons {
		return nil, ErrTooManyButtons
	}
	m := &Manifest{
		Version:      Text(Version),
		Image:        Text(e.Image),
		Title:        Text(e.Title),
		Description:  Text(e.Description),
		PreviewImage: Text(e.Image),
	}
	if e.PostURL != "" {
		m.PostURL = Text(e.PostURL)
	}
	var taken [MaxButtons]bool
	for i, b := range e.Buttons {
		n := b.Slot
		if n == 0 {
			n = i + 1
		}
		if n < 1 || n > MaxButtons || taken[n-1] {
			return nil, ErrInvalidSlot
		}
		taken[n-1] = true
		slot := &m.Buttons[n-1]
		slot.Label = Text(b.Label)
		if b.Action != "" && b.Action != ActionPost {
			slot.Action = Text(string(b.Action))
		}
		if t := strings.TrimSpace(b.Target); t != "" {
			slot.Target = Text(t)
		}
	}
	return m, nil
}

// EditorFrom recovers form state from a manifest, dropping extra keys. Each
// button keeps its slot so Build reproduces gaps. A nil manifest yields an
// empty editor.
func EditorFrom(m *Manifest) Editor {
	if m == nil {
		return Editor{}
	}
	e := Editor{
		Title:       m.Title.Value,
		Description: m.Description.Value,
		Image:       m.Image.Value,
		PostURL:     m.PostURL.Value,
	}
	for _, b := range ExtractButtons(m) {
		e.Buttons = append(e.Buttons, EditorButton{
			Slot:   b.Index,
			Label:  b.Label.Value,
			Action: b.Action,
			Target: b.Target.Value,
		})
	}
	return e
}
