// Package plate canonicalizes license plate strings. The canonical
// form is the key used everywhere a plate is stored or looked up so
// that "mh12 ab1234" and "MH12AB1234" name the same vehicle.
package plate

import (
	"strings"
	"unicode"
)

// Normalize converts raw operator input to canonical form: uppercase
// with every whitespace rune removed, leading, trailing and internal
// alike. Normalize is idempotent.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToUpper(raw) {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
