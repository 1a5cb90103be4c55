package manifest

import "fmt"

// Result is the diagnostic verdict for a manifest.
type Result struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// ValidateFrame reports whether raw is a valid manifest. It stops at the
// first violated rule.
func ValidateFrame(raw any) bool {
	m, err := Parse(raw)
	if err != nil {
		return false
	}
	return len(check(m, true)) == 0
}

// ValidateFrameWithErrors evaluates every rule and returns all violations in
// a fixed order. Non-object input produces the single structural message.
func ValidateFrameWithErrors(raw any) Result {
	m, err := Parse(raw)
	if err != nil {
		return Result{IsValid: false, Errors: []string{err.Error()}}
	}
	return m.Validate()
}

// Validate runs the full rule set against m.
func (m *Manifest) Validate() Result {
	errs := check(m, false)
	return Result{IsValid: len(errs) == 0, Errors: errs}
}

// Valid is the short-circuiting form of Validate.
func (m *Manifest) Valid() bool {
	return len(check(m, true)) == 0
}

type checker struct {
	failFast bool
	errs     []string
}

// fail records msg and reports whether checking should stop.
func (c *checker) fail(msg string) bool {
	c.errs = append(c.errs, msg)
	return c.failFast
}

func (c *checker) url(f Field, key string) bool {
	if !f.Truthy() {
		return c.fail(key + " is required")
	}
	if !urlField(f) {
		return c.fail(key + " must be a valid URL")
	}
	return false
}

func (c *checker) text(f Field, key string) bool {
	if !f.Truthy() {
		return c.fail(key + " is required")
	}
	if f.Blank() {
		return c.fail(key + " must be a non-empty string")
	}
	return false
}

func check(m *Manifest, failFast bool) []string {
	c := &checker{failFast: failFast, errs: []string{}}
	if m == nil {
		c.fail((&StructuralError{}).Error())
		return c.errs
	}

	if !m.Version.IsString() || m.Version.Value != Version {
		if c.fail(fmt.Sprintf("%s must be %q", KeyVersion, Version)) {
			return c.errs
		}
	}
	if c.url(m.Image, KeyImage) ||
		c.text(m.Title, KeyTitle) ||
		c.text(m.Description, KeyDescription) ||
		c.url(m.PreviewImage, KeyPreviewImage) {
		return c.errs
	}

	buttons := ExtractButtons(m)
	hasPost := false
	for _, b := range buttons {
		if b.Label.Blank() {
			if c.fail(fmt.Sprintf("Button %d label must be a non-empty string", b.Index)) {
				return c.errs
			}
		}
		if !b.Action.Valid() {
			if c.fail(fmt.Sprintf("Button %d action must be 'post', 'post_redirect', or 'link'", b.Index)) {
				return c.errs
			}
		}
		if b.Action == ActionLink && !(b.Target.Truthy() && urlField(b.Target)) {
			if c.fail(fmt.Sprintf("Button %d with 'link' action must have a valid target URL", b.Index)) {
				return c.errs
			}
		}
		hasPost = hasPost || b.Action.Posts()
	}

	if len(buttons) == 0 {
		if c.fail("At least one button is required") {
			return c.errs
		}
	}

	if hasPost && !(m.PostURL.Truthy() && urlField(m.PostURL)) {
		c.fail(KeyPostURL + " is required when using post or post_redirect actions")
	}
	return c.errs
}
