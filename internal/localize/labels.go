package localize

import (
	"golang.org/x/text/language"
)

var labelLanguages = []language.Tag{language.Spanish, language.English, language.Russian}

var labelMatcher = language.NewMatcher(labelLanguages)

// generic names shown when a listing has no title in any language
var categoryLabels = map[string]map[string]string{
	"apartment": {"es": "Apartamento", "en": "Apartment", "ru": "Квартира"},
	"house":     {"es": "Casa", "en": "House", "ru": "Дом"},
	"commerce":  {"es": "Local comercial", "en": "Commercial property", "ru": "Коммерческая недвижимость"},
	"plot":      {"es": "Parcela", "en": "Plot", "ru": "Участок"},
}

// CategoryLabel returns the generic label for a sub category in the closest
// supported language. Unknown categories fall back to the apartment label.
func CategoryLabel(lang, subCategory string) string {
	labels, ok := categoryLabels[subCategory]
	if !ok {
		labels = categoryLabels["apartment"]
	}
	return labels[matchLabelLanguage(lang)]
}

func matchLabelLanguage(lang string) string {
	tags, _, err := language.ParseAcceptLanguage(lang)
	if err != nil || len(tags) == 0 {
		return "es"
	}
	_, index, _ := labelMatcher.Match(tags...)
	base, _ := labelLanguages[index].Base()
	return base.String()
}

// Labeled is a Source that also knows its sub category.
type Labeled interface {
	Source
	Category() string
}

// DisplayTitle resolves the title and falls back to the category label.
func (r Resolver) DisplayTitle(src Labeled, lang string) string {
	if title := r.Text(src, "title", lang); title != "" {
		return title
	}
	return CategoryLabel(lang, src.Category())
}
