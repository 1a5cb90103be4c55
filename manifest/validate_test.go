package manifest

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validFrame() map[string]any {
	return map[string]any{
		"fc:frame":          "vNext",
		"fc:frame:image":    "https://example.com/frame.png",
		"og:title":          "Hello",
		"og:description":    "A frame",
		"og:image":          "https://example.com/frame.png",
		"fc:frame:button:1": "Click",
		"fc:frame:post_url": "https://example.com/api/frame",
	}
}

func TestValidFrame(t *testing.T) {
	frame := validFrame()
	if !ValidateFrame(frame) {
		t.Fatal("expected frame to be valid")
	}
	res := ValidateFrameWithErrors(frame)
	if !res.IsValid {
		t.Fatalf("expected valid result, got %v", res.Errors)
	}
	if res.Errors == nil || len(res.Errors) != 0 {
		t.Fatalf("expected empty non-nil error list, got %#v", res.Errors)
	}
}

func TestWrongVersion(t *testing.T) {
	frame := validFrame()
	frame["fc:frame"] = "v1"

	assert.False(t, ValidateFrame(frame))
	res := ValidateFrameWithErrors(frame)
	assert.False(t, res.IsValid)
	assert.Equal(t, []string{`fc:frame must be "vNext"`}, res.Errors)
}

func TestLinkButtonWithoutTarget(t *testing.T) {
	frame := validFrame()
	delete(frame, "fc:frame:post_url")
	frame["fc:frame:button:1:action"] = "link"

	res := ValidateFrameWithErrors(frame)
	assert.Equal(t, []string{"Button 1 with 'link' action must have a valid target URL"}, res.Errors)

	frame["fc:frame:button:1:target"] = "https://example.com/docs"
	assert.True(t, ValidateFrame(frame), "post_url is not needed for link-only frames")
}

func TestPostActionWithoutPostURL(t *testing.T) {
	frame := validFrame()
	delete(frame, "fc:frame:post_url")

	res := ValidateFrameWithErrors(frame)
	assert.Equal(t, []string{"fc:frame:post_url is required when using post or post_redirect actions"}, res.Errors)

	frame["fc:frame:button:1:action"] = "post_redirect"
	frame["fc:frame:post_url"] = "not a url"
	res = ValidateFrameWithErrors(frame)
	assert.Equal(t, []string{"fc:frame:post_url is required when using post or post_redirect actions"}, res.Errors)
}

func TestZeroButtons(t *testing.T) {
	frame := validFrame()
	delete(frame, "fc:frame:button:1")

	res := ValidateFrameWithErrors(frame)
	assert.Equal(t, []string{"At least one button is required"}, res.Errors)
	assert.False(t, ValidateFrame(frame))
}

func TestNonObjectInput(t *testing.T) {
	for _, in := range []any{nil, "a string", 42, []string{"x"}, (*Manifest)(nil), map[int]string{1: "x"}} {
		assert.False(t, ValidateFrame(in), "%#v", in)
		res := ValidateFrameWithErrors(in)
		assert.Equal(t, Result{IsValid: false, Errors: []string{"Frame must be an object"}}, res, "%#v", in)
	}
}

func TestReportsEveryViolation(t *testing.T) {
	frame := validFrame()
	delete(frame, "og:title")
	frame["og:description"] = ""
	frame["fc:frame:button:1:action"] = "tap"

	res := ValidateFrameWithErrors(frame)
	assert.Equal(t, []string{
		"og:title is required",
		"og:description is required",
		"Button 1 action must be 'post', 'post_redirect', or 'link'",
	}, res.Errors)
}

func TestErrorOrderIsFixed(t *testing.T) {
	frame := map[string]any{
		"fc:frame":                 "v2",
		"fc:frame:image":           "nope",
		"og:title":                 "   ",
		"og:description":           7,
		"og:image":                 "ftp://x.com",
		"fc:frame:button:2":        "",
		"fc:frame:button:3":        "Go",
		"fc:frame:button:3:action": "link",
	}
	res := ValidateFrameWithErrors(frame)
	assert.Equal(t, []string{
		`fc:frame must be "vNext"`,
		"fc:frame:image must be a valid URL",
		"og:title must be a non-empty string",
		"og:description must be a non-empty string",
		"og:image must be a valid URL",
		"Button 2 label must be a non-empty string",
		"Button 3 with 'link' action must have a valid target URL",
		"fc:frame:post_url is required when using post or post_redirect actions",
	}, res.Errors)
	assert.False(t, ValidateFrame(frame))
}

func TestFourButtonsCheckedIndependently(t *testing.T) {
	frame := validFrame()
	frame["fc:frame:button:2"] = "Two"
	frame["fc:frame:button:2:action"] = "link"
	frame["fc:frame:button:2:target"] = "https://example.com/2"
	frame["fc:frame:button:3"] = "Three"
	frame["fc:frame:button:3:action"] = "post_redirect"
	frame["fc:frame:button:4"] = "Four"
	frame["fc:frame:button:4:action"] = "link"

	res := ValidateFrameWithErrors(frame)
	assert.Equal(t, []string{"Button 4 with 'link' action must have a valid target URL"}, res.Errors)

	frame["fc:frame:button:4:target"] = "https://example.com/4"
	frame["fc:frame:button:5"] = "ignored"
	assert.True(t, ValidateFrame(frame))
}

func TestOnlySecondSlotPopulated(t *testing.T) {
	frame := validFrame()
	delete(frame, "fc:frame:button:1")
	frame["fc:frame:button:2"] = "Only"

	assert.True(t, ValidateFrame(frame))

	m, err := Parse(frame)
	require.NoError(t, err)
	buttons := ExtractButtons(m)
	require.Len(t, buttons, 1)
	assert.Equal(t, 2, buttons[0].Index)
	assert.Equal(t, ActionPost, buttons[0].Action)
}

func TestPresentButEmptyLabelPopulatesSlot(t *testing.T) {
	frame := validFrame()
	frame["fc:frame:button:1"] = nil

	res := ValidateFrameWithErrors(frame)
	assert.Equal(t, []string{"Button 1 label must be a non-empty string"}, res.Errors)
}

func TestEmptyActionDefaultsToPost(t *testing.T) {
	frame := validFrame()
	frame["fc:frame:button:1:action"] = ""
	delete(frame, "fc:frame:post_url")

	res := ValidateFrameWithErrors(frame)
	assert.Equal(t, []string{"fc:frame:post_url is required when using post or post_redirect actions"}, res.Errors)
}

func TestNonStringValues(t *testing.T) {
	frame := validFrame()
	frame["fc:frame:image"] = 123
	frame["fc:frame:button:1"] = 5
	frame["fc:frame:button:1:action"] = true

	res := ValidateFrameWithErrors(frame)
	assert.Equal(t, []string{
		"fc:frame:image must be a valid URL",
		"Button 1 label must be a non-empty string",
		"Button 1 action must be 'post', 'post_redirect', or 'link'",
	}, res.Errors)
}

func TestValidationIsIdempotent(t *testing.T) {
	frame := validFrame()
	frame["og:title"] = ""
	first := ValidateFrameWithErrors(frame)
	second := ValidateFrameWithErrors(frame)
	assert.Equal(t, first, second)
	assert.Equal(t, ValidateFrame(frame), ValidateFrame(frame))
	assert.Equal(t, "", frame["og:title"])
}

func TestConcurrentValidation(t *testing.T) {
	m, err := Parse(validFrame())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !m.Valid() || !m.Validate().IsValid {
				t.Error("expected valid manifest")
			}
		}()
	}
	wg.Wait()
}

func TestBooleanFormAgreesWithDiagnosticForm(t *testing.T) {
	mutations := []func(map[string]any){
		func(f map[string]any) {},
		func(f map[string]any) { f["fc:frame"] = "vnext" },
		func(f map[string]any) { delete(f, "og:image") },
		func(f map[string]any) { f["og:description"] = "\t\n" },
		func(f map[string]any) { f["fc:frame:button:1:action"] = "link" },
		func(f map[string]any) { f["fc:frame:button:3"] = "  " },
		func(f map[string]any) { f["fc:frame:post_url"] = "/relative" },
	}
	for i, mutate := range mutations {
		frame := validFrame()
		mutate(frame)
		assert.Equal(t, ValidateFrameWithErrors(frame).IsValid, ValidateFrame(frame), "mutation %d", i)
	}
}

func TestSelfReferencingValue(t *testing.T) {
	inner := map[string]any{"a": 1}
	inner["self"] = inner
	frame := validFrame()
	frame["og:title"] = inner

	assert.False(t, ValidateFrame(frame))
	res := ValidateFrameWithErrors(frame)
	assert.False(t, res.IsValid)
	assert.Equal(t, []string{"og:title must be a non-empty string"}, res.Errors)
}

func TestNilMapsAreNotObjects(t *testing.T) {
	tests := []struct {
		name string
		raw  any
	}{
		{"untyped nil", nil},
		{"nil map[string]any", map[string]any(nil)},
		{"nil map[string]string", map[string]string(nil)},
		{"nil map[string]int", map[string]int(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, ValidateFrame(tt.raw))
			res := ValidateFrameWithErrors(tt.raw)
			assert.Equal(t, []string{"Frame must be an object"}, res.Errors)
		})
	}
}
