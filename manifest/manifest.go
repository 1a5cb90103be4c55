// Package manifest models Frame manifests: the flat fc:frame / og: key-value
// documents that social clients render as interactive posts. It converts
// between the wire form and an explicit structure and validates the result.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// ButtonSlot is one of the fixed button positions. A slot is populated when
// its label key is present on the wire.
type ButtonSlot struct {
	Label  Field
	Action Field
	Target Field
}

// Populated reports whether the slot's label key was present.
func (s ButtonSlot) Populated() bool { return s.Label.Present() }

// Manifest is the structured form of a Frame manifest.
type Manifest struct {
	Version      Field
	Image        Field
	PostURL      Field
	Title        Field
	Description  Field
	PreviewImage Field
	Buttons      [MaxButtons]ButtonSlot

	// Extra holds keys this package does not interpret, such as input or
	// aspect-ratio hints. They survive a parse/serialize round trip.
	Extra map[string]Field
}

// StructuralError reports input that is not object shaped. No validation
// rule can run against such input.
type StructuralError struct {
	Got string
}

func (e *StructuralError) Error() string { return "Frame must be an object" }

func structural(v any) *StructuralError {
	if v == nil {
		return &StructuralError{Got: "null"}
	}
	return &StructuralError{Got: fmt.Sprintf("%T", v)}
}

// Set stores f under a wire key. It is the only place that understands the
// dynamic button key layout.
func (m *Manifest) Set(key string, f Field) {
	if idx, part, ok := splitButtonKey(key); ok {
		slot := &m.Buttons[idx-1]
		switch part {
		case partLabel:
			slot.Label = f
		case partAction:
			slot.Action = f
		case partTarget:
			slot.Target = f
		}
		return
	}
	switch key {
	case KeyVersion:
		m.Version = f
	case KeyImage:
		m.Image = f
	case KeyPostURL:
		m.PostURL = f
	case KeyTitle:
		m.Title = f
	case KeyDescription:
		m.Description = f
	case KeyPreviewImage:
		m.PreviewImage = f
	default:
		if m.Extra == nil {
			m.Extra = make(map[string]Field)
		}
		m.Extra[key] = f
	}
}

// Entry is a wire key with its value.
type Entry struct {
	Key   string
	Field Field
}

// Entries lists the present fields in canonical order: protocol fields,
// buttons by slot, Open Graph fields, then extra keys sorted.
func (m *Manifest) Entries() []Entry {
	out := make([]Entry, 0, 16)
	add := func(key string, f Field) {
		if f.Present() {
			out = append(out, Entry{Key: key, Field: f})
		}
	}
	add(KeyVersion, m.Version)
	add(KeyImage, m.Image)
	add(KeyPostURL, m.PostURL)
	for i, slot := range m.Buttons {
		add(ButtonLabelKey(i+1), slot.Label)
		add(ButtonActionKey(i+1), slot.Action)
		add(ButtonTargetKey(i+1), slot.Target)
	}
	add(KeyTitle, m.Title)
	add(KeyDescription, m.Description)
	add(KeyPreviewImage, m.PreviewImage)

	keys := make([]string, 0, len(m.Extra))
	for k := range m.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		add(k, m.Extra[k])
	}
	return out
}

// Wire returns the flat string-keyed form. Non-string values are rendered
// as their JSON text.
func (m *Manifest) Wire() map[string]string {
	entries := m.Entries()
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.Key] = e.Field.Value
	}
	return out
}

// Clone returns a deep copy.
func (m *Manifest) Clone() *Manifest {
	cp := *m
	if m.Extra != nil {
		cp.Extra = make(map[string]Field, len(m.Extra))
		for k, v := range m.Extra {
			cp.Extra[k] = v
		}
	}
	return &cp
}

// MarshalJSON writes the wire object with keys in canonical order. Values
// keep their original JSON kind.
func (m Manifest) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m.Entries() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if e.Field.Kind == KindString || !json.Valid([]byte(e.Field.Value)) {
			val, err := json.Marshal(e.Field.Value)
			if err != nil {
				return nil, err
			}
			buf.Write(val)
		} else {
			buf.WriteString(e.Field.Value)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON parses a wire object into m.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}
	parsed, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*m = *parsed
	return nil
}

// Parse converts a decoded document into a Manifest. It accepts string keyed
// maps (as produced by encoding/json, yaml.v3 or form handling) and existing
// manifests. Anything else yields a *StructuralError.
func Parse(raw any) (*Manifest, error) {
	switch v := raw.(type) {
	case nil:
		return nil, structural(nil)
	case *Manifest:
		if v == nil {
			return nil, structural(nil)
		}
		return v.Clone(), nil
	case Manifest:
		return v.Clone(), nil
	case map[string]string:
		if v == nil {
			return nil, structural(nil)
		}
		m := &Manifest{}
		for k, s := range v {
			m.Set(k, Text(s))
		}
		return m, nil
	case map[string]any:
		if v == nil {
			return nil, structural(nil)
		}
		m := &Manifest{}
		for k, val := range v {
			m.Set(k, fieldOf(val))
		}
		return m, nil
	}

	rv := reflect.ValueOf(raw)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, structural(nil)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, structural(raw)
	}
	if rv.IsNil() {
		return nil, structural(nil)
	}
	m := &Manifest{}
	iter := rv.MapRange()
	for iter.Next() {
		m.Set(iter.Key().String(), fieldOf(iter.Value().Interface()))
	}
	return m, nil
}

func fieldOf(v any) Field {
	switch val := v.(type) {
	case nil:
		return Field{Value: "null", Kind: KindNull}
	case string:
		return Text(val)
	case bool:
		return Field{Value: fmt.Sprint(val), Kind: KindBool}
	case json.Number:
		return Field{Value: val.String(), Kind: KindNumber}
	case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return Field{Value: fmt.Sprint(val), Kind: KindNumber}
	case Field:
		return val
	}
	// Cyclic and unencodable values keep only their type name; printing them
	// would recurse without bound.
	raw, err := json.Marshal(v)
	if err != nil {
		return Field{Value: fmt.Sprintf("%T", v), Kind: KindComposite}
	}
	return Field{Value: string(raw), Kind: KindComposite}
}

// ParseJSON parses wire JSON. Malformed JSON is an ordinary error; valid JSON
// that is not an object yields a *StructuralError.
func ParseJSON(data []byte) (*Manifest, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("parse frame JSON: malformed document")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		if doc.Type == gjson.Null {
			return nil, structural(nil)
		}
		return nil, &StructuralError{Got: doc.Type.String()}
	}

	m := &Manifest{}
	doc.ForEach(func(key, value gjson.Result) bool {
		m.Set(key.String(), fieldFromJSON(value))
		return true
	})
	return m, nil
}

func fieldFromJSON(r gjson.Result) Field {
	switch r.Type {
	case gjson.String:
		return Text(r.String())
	case gjson.Number:
		return Field{Value: r.Raw, Kind: KindNumber}
	case gjson.True, gjson.False:
		return Field{Value: r.Raw, Kind: KindBool}
	case gjson.Null:
		return Field{Value: "null", Kind: KindNull}
	default:
		return Field{Value: r.Raw, Kind: KindComposite}
	}
}

// ParseYAML parses a YAML mapping with wire keys.
func ParseYAML(data []byte) (*Manifest, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse frame YAML: %w", err)
	}
	return Parse(doc)
}

// Load reads a manifest file. The format follows the extension; files with
// any other extension are tried as JSON and then as YAML.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	}
	if m, err := ParseJSON(data); err == nil {
		return m, nil
	}
	return ParseYAML(data)
}
