package bot

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName folds a face name for comparison: lowercase, accents
// stripped, surrounding whitespace trimmed.
func NormalizeName(name string) string {
	folded, _, err := transform.String(deaccent, name)
	if err != nil {
		folded = name
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// mentionsName reports whether the message body mentions the face
// name, compared in normalized form.
func mentionsName(body, faceName string) bool {
	return strings.Contains(NormalizeName(body), NormalizeName(faceName))
}
