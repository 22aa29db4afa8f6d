package blob

import (
	"path"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SafeName folds a client-supplied file name into a key segment: directory
// parts are dropped, accents are removed, whitespace becomes "_", anything
// outside [a-z0-9._-] is dropped and the result is lowercased.
func SafeName(name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, base)
	if err != nil {
		folded = base
	}

	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte('_')
		}
	}

	s := strings.TrimLeft(b.String(), ".")
	if s == "" {
		return "file"
	}
	return s
}
