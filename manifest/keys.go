package manifest

import (
	"fmt"
	"strconv"
	"strings"
)

// Wire keys. These strings are the interchange format read by Frame
// rendering clients and must not change.
const (
	KeyVersion      = "fc:frame"
	KeyImage        = "fc:frame:image"
	KeyPostURL      = "fc:frame:post_url"
	KeyTitle        = "og:title"
	KeyDescription  = "og:description"
	KeyPreviewImage = "og:image"

	buttonPrefix = "fc:frame:button:"
)

// Version is the only protocol version token a valid manifest may carry.
const Version = "vNext"

// MaxButtons is the number of button slots a manifest has.
const MaxButtons = 4

// ButtonLabelKey returns the wire key of slot i's label.
func ButtonLabelKey(i int) string { return fmt.Sprintf("%s%d", buttonPrefix, i) }

// ButtonActionKey returns the wire key of slot i's action.
func ButtonActionKey(i int) string { return ButtonLabelKey(i) + ":action" }

// ButtonTargetKey returns the wire key of slot i's target.
func ButtonTargetKey(i int) string { return ButtonLabelKey(i) + ":target" }

type buttonPart int

const (
	partLabel buttonPart = iota
	partAction
	partTarget
)

// splitButtonKey maps "fc:frame:button:<n>[:action|:target]" to its slot
// index and part. Keys for slots outside 1..MaxButtons are not button keys.
func splitButtonKey(key string) (int, buttonPart, bool) {
	rest, ok := strings.CutPrefix(key, buttonPrefix)
	if !ok {
		return 0, 0, false
	}
	num, suffix, _ := strings.Cut(rest, ":")
	if len(num) != 1 {
		return 0, 0, false
	}
	idx, err := strconv.Atoi(num)
	if err != nil || idx < 1 || idx > MaxButtons {
		return 0, 0, false
	}
	switch {
	case rest == num:
		return idx, partLabel, true
	case suffix == "action":
		return idx, partAction, true
	case suffix == "target":
		return idx, partTarget, true
	default:
		return 0, 0, false
	}
}
