package schema

import (
	"strings"
	"unicode"
)

// NormalizeName prepares a user supplied tab or pane name for the host.
// Control characters are dropped since hosts render names on a single line.
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
