package manifest

import (
	"fmt"
	"html"
	"strings"
)

// RenderMetaTags renders the <meta> block a page embeds to publish m, one
// tag per present key in canonical order.
func RenderMetaTags(m *Manifest) string {
	var b strings.Builder
	for _, e := range m.Entries() {
		fmt.Fprintf(&b, "<meta property=\"%s\" content=\"%s\" />\n",
			html.EscapeString(e.Key), html.EscapeString(e.Field.Value))
	}
	return b.String()
}

// Summary is the condensed view used in frame listings.
type Summary struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	ImageURL     string `json:"image_url"`
	ButtonLabel  string `json:"button_label,omitempty"`
	ButtonTarget string `json:"button_target,omitempty"`
	ButtonCount  int    `json:"button_count"`
	PostURL      string `json:"post_url,omitempty"`
}

// Summarize condenses m around its first button.
func Summarize(m *Manifest) Summary {
	s := Summary{
		Title:       m.Title.Value,
		Description: m.Description.Value,
		ImageURL:    m.Image.Value,
		PostURL:     m.PostURL.Value,
	}
	buttons := ExtractButtons(m)
	s.ButtonCount = len(buttons)
	if len(buttons) > 0 {
		s.ButtonLabel = buttons[0].Label.Value
		s.ButtonTarget = buttons[0].Target.Value
	}
	return s
}
