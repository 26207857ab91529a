// Package slug turns artwork titles into URL path segments.
package slug

import (
	"strconv"
	"strings"
	"unicode"
)

// Generate lowercases and trims title, drops everything but ASCII letters,
// digits, whitespace and hyphens, and joins the remaining words with single
// hyphens. The result matches ^[a-z0-9]+(-[a-z0-9]+)*$ or is empty.
func Generate(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	sep := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if sep && b.Len() > 0 {
				b.WriteByte('-')
			}
			sep = false
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			sep = true
		}
	}
	return b.String()
}

// GenerateUnique returns Generate(title) or, when that is taken, the base
// slug suffixed with the first free integer starting at 1.
// The caller persists the result before it counts as taken.
func GenerateUnique(title string, existing []string) string {
	taken := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		taken[s] = struct{}{}
	}

	base := Generate(title)
	candidate := base
	for n := 1; ; n++ {
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
		candidate = base + "-" + strconv.Itoa(n)
	}
}
