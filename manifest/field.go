package manifest

import (
	"strconv"
	"strings"
	"unicode"
)

// Kind classifies the wire value a Field was parsed from.
type Kind int

const (
	// KindAbsent marks a key that does not appear in the manifest.
	KindAbsent Kind = iota
	KindString
	KindNumber
	KindBool
	KindNull
	// KindComposite covers objects and arrays. Value holds their raw JSON.
	KindComposite
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindNull:
		return "null"
	case KindComposite:
		return "composite"
	default:
		return "unknown"
	}
}

// Field is one manifest value. Manifests come from loosely typed documents,
// so a Field remembers whether its key was present and what kind of value
// it held, not just its text.
type Field struct {
	Value string
	Kind  Kind
}

// Text returns a present string field.
func Text(s string) Field {
	return Field{Value: s, Kind: KindString}
}

// Present reports whether the key appeared on the wire, whatever its value.
func (f Field) Present() bool { return f.Kind != KindAbsent }

// IsString reports whether the value is a string.
func (f Field) IsString() bool { return f.Kind == KindString }

// Truthy follows the loose truthiness manifest producers rely on: empty
// strings, zero, false, null and absent keys are all "not set".
func (f Field) Truthy() bool {
	switch f.Kind {
	case KindString:
		return f.Value != ""
	case KindNumber:
		n, err := strconv.ParseFloat(f.Value, 64)
		return err != nil || n != 0
	case KindBool:
		return f.Value == "true"
	case KindComposite:
		return true
	default:
		return false
	}
}

// Blank reports whether the field is not a string or is whitespace only.
func (f Field) Blank() bool {
	return f.Kind != KindString || trimSpace(f.Value) == ""
}

func trimSpace(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	})
}
