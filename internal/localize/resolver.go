package localize

import (
	"strings"

	"golang.org/x/text/language"
)

// Source is an entity whose text fields can be looked up by key. A key is
// either the base field name ("title") or an override key produced by a Scheme.
type Source interface {
	Text(key string) string
	List(key string) []string
}

// Scheme builds the override key for a field in a language.
type Scheme func(field, lang string) string

// SnakeScheme produces database-style keys: title_es.
func SnakeScheme(field, lang string) string {
	return field + "_" + lang
}

// CamelScheme produces keys used by the bundled static data: titleEs.
func CamelScheme(field, lang string) string {
	parts := strings.Split(field, "_")
	for i := 1; i < len(parts); i++ {
		parts[i] = upperFirst(parts[i])
	}
	return strings.Join(parts, "") + upperFirst(lang)
}

// DefaultSchemes lists the naming conventions probed at every fallback step.
var DefaultSchemes = []Scheme{SnakeScheme, CamelScheme}

// Resolver picks the display text for an entity field in a requested language.
// The zero value is not usable; build it with NewResolver.
type Resolver struct {
	defaultLang string
	schemes     []Scheme
}

// NewResolver creates a resolver whose fallback chain is requested language,
// defaultLang, English, then the base field.
func NewResolver(defaultLang string, schemes ...Scheme) Resolver {
	if len(schemes) == 0 {
		schemes = DefaultSchemes
	}
	base := baseLanguage(defaultLang)
	if base == "" {
		base = "es"
	}
	return Resolver{defaultLang: base, schemes: schemes}
}

// DefaultLanguage returns the normalized default language code.
func (r Resolver) DefaultLanguage() string {
	return r.defaultLang
}

// Text resolves a string field. It returns "" when nothing is found.
func (r Resolver) Text(src Source, field, lang string) string {
	for _, key := range r.keys(field, lang) {
		if v := src.Text(key); v != "" {
			return v
		}
	}
	return src.Text(field)
}

// List resolves a list field. It returns an empty, non-nil slice when nothing is found.
func (r Resolver) List(src Source, field, lang string) []string {
	for _, key := range r.keys(field, lang) {
		if v := src.List(key); len(v) > 0 {
			return v
		}
	}
	if v := src.List(field); len(v) > 0 {
		return v
	}
	return []string{}
}

// keys returns override keys in probe order: every scheme for the requested
// language, then the default language, then English.
func (r Resolver) keys(field, lang string) []string {
	langs := make([]string, 0, 3)
	for _, l := range []string{baseLanguage(lang), r.defaultLang, "en"} {
		if l == "" || contains(langs, l) {
			continue
		}
		langs = append(langs, l)
	}

	keys := make([]string, 0, len(langs)*len(r.schemes))
	for _, l := range langs {
		for _, scheme := range r.schemes {
			keys = append(keys, scheme(field, l))
		}
	}
	return keys
}

// baseLanguage reduces a BCP 47 tag such as "es-ES" to "es". Unparseable input yields "".
func baseLanguage(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return ""
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return ""
	}
	return base.String()
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// PreferredLanguage picks the explicit lang parameter, then the highest
// weighted Accept-Language entry. It returns "" when neither is usable.
func PreferredLanguage(param, acceptLanguage string) string {
	if base := baseLanguage(param); base != "" {
		return base
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return ""
	}
	base, confidence := tags[0].Base()
	if confidence == language.No {
		return ""
	}
	return base.String()
}
