// Package embed generates the snippets that place a frame on another site.
package embed

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"strings"

	"github.com/R3E-Network/framestore/internal/app/domain/frame"
	"github.com/R3E-Network/framestore/internal/errors"
	"github.com/R3E-Network/framestore/pkg/logger"
)

const (
	DefaultWidth  = 400
	DefaultHeight = 300
	maxDimension  = 4096
)

// Theme is the embed colour scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Options control snippet generation. Zero values take the defaults:
// 400x300, light theme, title and stats shown.
type Options struct {
	Width     int
	Height    int
	Theme     Theme
	ShowTitle *bool
	ShowStats *bool
}

// Code is a generated embed.
type Code struct {
	FrameID string `json:"frame_id"`
	URL     string `json:"url"`
	IFrame  string `json:"iframe"`
	Script  string `json:"script"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Theme   Theme  `json:"theme"`
}

// FrameGetter loads frames.
type FrameGetter interface {
	GetFrame(ctx context.Context, id string) (frame.Frame, error)
}

var iframeTmpl = template.Must(template.New("iframe").Parse(`<iframe
  src="{{.URL}}"
  width="{{.Width}}"
  height="{{.Height}}"
  frameborder="0"
  allowtransparency="true"
  sandbox="allow-scripts allow-same-origin"
  title="{{.Title}} - FrameStore Embed">
</iframe>`))

var scriptTmpl = template.Must(template.New("script").Parse(`<script>
  (function() {
    var script = document.createElement('script');
    script.src = '{{.ScriptURL}}';
    script.setAttribute('data-frame-id', '{{.FrameID}}');
    script.setAttribute('data-width', '{{.Width}}');
    script.setAttribute('data-height', '{{.Height}}');
    script.setAttribute('data-theme', '{{.Theme}}');
    document.head.appendChild(script);
  })();
</script>`))

// Service builds embed snippets against the public base URL.
type Service struct {
	frames  FrameGetter
	baseURL string
	log     *logger.Logger
}

// New constructs an embed service.
func New(frames FrameGetter, baseURL string, log *logger.Logger) (*Service, error) {
	if log == nil {
		log = logger.NewDefault("embed")
	}
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("embed base URL must be an absolute http(s) URL, got %q", baseURL)
	}
	return &Service{frames: frames, baseURL: strings.TrimRight(u.String(), "/"), log: log}, nil
}

// ParseOptions reads options from query-style strings. Empty values keep
// the defaults.
func ParseOptions(width, height, theme, title, stats string) (Options, error) {
	var opts Options
	var err error
	if opts.Width, err = parseDimension("width", width); err != nil {
		return Options{}, err
	}
	if opts.Height, err = parseDimension("height", height); err != nil {
		return Options{}, err
	}
	opts.Theme = Theme(strings.ToLower(strings.TrimSpace(theme)))
	if opts.ShowTitle, err = parseFlag("title", title); err != nil {
		return Options{}, err
	}
	if opts.ShowStats, err = parseFlag("stats", stats); err != nil {
		return Options{}, err
	}
	return opts, nil
}

func parseDimension(name, raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.InvalidFormat(name, "must be a positive integer")
	}
	return n, nil
}

func parseFlag(name, raw string) (*bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errors.InvalidFormat(name, "must be true or false")
	}
	return &b, nil
}

func (o Options) normalize() (Options, error) {
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.Width < 0 || o.Width > maxDimension {
		return o, errors.InvalidFormat("width", fmt.Sprintf("must be between 1 and %d", maxDimension))
	}
	if o.Height < 0 || o.Height > maxDimension {
		return o, errors.InvalidFormat("height", fmt.Sprintf("must be between 1 and %d", maxDimension))
	}
	switch o.Theme {
	case "":
		o.Theme = ThemeLight
	case ThemeLight, ThemeDark:
	default:
		return o, errors.InvalidFormat("theme", "must be light or dark")
	}
	if o.ShowTitle == nil {
		o.ShowTitle = boolPtr(true)
	}
	if o.ShowStats == nil {
		o.ShowStats = boolPtr(true)
	}
	return o, nil
}

func boolPtr(b bool) *bool { return &b }

// Generate returns iframe and script snippets for the frame.
func (s *Service) Generate(ctx context.Context, frameID string, opts Options) (Code, error) {
	opts, err := opts.normalize()
	if err != nil {
		return Code{}, err
	}
	f, err := s.frames.GetFrame(ctx, frameID)
	if err != nil {
		return Code{}, fmt.Errorf("get frame: %w", err)
	}

	q := url.Values{}
	q.Set("theme", string(opts.Theme))
	q.Set("title", strconv.FormatBool(*opts.ShowTitle))
	q.Set("stats", strconv.FormatBool(*opts.ShowStats))
	embedURL := fmt.Sprintf("%s/embed/%s?%s", s.baseURL, url.PathEscape(f.ID), q.Encode())

	data := map[string]any{
		"URL":       template.URL(embedURL),
		"ScriptURL": s.baseURL + "/embed.js",
		"FrameID":   f.ID,
		"Width":     opts.Width,
		"Height":    opts.Height,
		"Theme":     string(opts.Theme),
		"Title":     f.Title,
	}

	var iframe, script bytes.Buffer
	if err := iframeTmpl.Execute(&iframe, data); err != nil {
		return Code{}, errors.Internal("render iframe embed", err)
	}
	if err := scriptTmpl.Execute(&script, data); err != nil {
		return Code{}, errors.Internal("render script embed", err)
	}

	return Code{
		FrameID: f.ID,
		URL:     embedURL,
		IFrame:  iframe.String(),
		Script:  script.String(),
		Width:   opts.Width,
		Height:  opts.Height,
		Theme:   opts.Theme,
	}, nil
}
