package localize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// municipalityAliases maps folded Valencian and Spanish spellings to the
// name stored for the municipality.
var municipalityAliases = map[string]string{
	"javea":       "Jávea",
	"xabia":       "Jávea",
	"denia":       "Dénia",
	"benitatxell": "Benitachell",
	"benitachell": "Benitachell",
	"teulada":     "Teulada",
}

// CanonicalMunicipality returns the stored spelling for a municipality name.
// Unknown names are returned trimmed but otherwise unchanged.
func CanonicalMunicipality(name string) string {
	if canonical, ok := municipalityAliases[Fold(name)]; ok {
		return canonical
	}
	return strings.TrimSpace(name)
}

// Fold normalizes a place name for lookups: trimmed, lower-cased and
// without diacritics, so "Jávea" and "javea" fold to the same key.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}
