package localize

import (
	"testing"
)

type fakeSource struct {
	texts    map[string]string
	lists    map[string][]string
	category string
}

func (f fakeSource) Text(key string) string   { return f.texts[key] }
func (f fakeSource) List(key string) []string { return f.lists[key] }
func (f fakeSource) Category() string         { return f.category }

func TestResolverFallbackChain(t *testing.T) {
	r := NewResolver("es")

	full := map[string]string{
		"title":    "Base title",
		"title_ru": "Русский",
		"title_es": "Español",
		"titleEn":  "English",
	}

	tests := []struct {
		name   string
		remove []string
		lang   string
		want   string
	}{
		{"requested language", nil, "ru", "Русский"},
		{"region subtag reduced", nil, "ru-RU", "Русский"},
		{"falls to default language", []string{"title_ru"}, "ru", "Español"},
		{"falls to english", []string{"title_ru", "title_es"}, "ru", "English"},
		{"falls to base field", []string{"title_ru", "title_es", "titleEn"}, "ru", "Base title"},
		{"unknown language uses default", nil, "de", "Español"},
		{"garbage language uses default", nil, "!!", "Español"},
		{"empty language uses default", nil, "", "Español"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			texts := make(map[string]string, len(full))
			for k, v := range full {
				texts[k] = v
			}
			for _, k := range tt.remove {
				delete(texts, k)
			}
			src := fakeSource{texts: texts}
			got := r.Text(src, "title", tt.lang)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if again := r.Text(src, "title", tt.lang); again != got {
				t.Errorf("not deterministic: %q then %q", got, again)
			}
		})
	}
}

func TestResolverProbesBothSchemesPerStep(t *testing.T) {
	r := NewResolver("es")
	// camel override for the requested language must win over the snake default-language override
	src := fakeSource{texts: map[string]string{
		"descriptionRu":  "camel ru",
		"description_es": "snake es",
	}}
	if got := r.Text(src, "description", "ru"); got != "camel ru" {
		t.Errorf("got %q, want camel ru", got)
	}
}

func TestResolverEmptyWhenAbsent(t *testing.T) {
	r := NewResolver("es")
	src := fakeSource{}

	if got := r.Text(src, "title", "en"); got != "" {
		t.Errorf("Text: got %q, want empty", got)
	}
	got := r.List(src, "features", "en")
	if got == nil || len(got) != 0 {
		t.Errorf("List: got %#v, want empty non-nil slice", got)
	}
}

func TestResolverList(t *testing.T) {
	r := NewResolver("es")
	src := fakeSource{lists: map[string][]string{
		"features":    {"pool"},
		"features_en": {"pool", "garden"},
		"featuresEs":  {},
	}}
	got := r.List(src, "features", "fr")
	if len(got) != 2 || got[1] != "garden" {
		t.Errorf("got %v, want english list", got)
	}
}

func TestCamelScheme(t *testing.T) {
	tests := map[string]string{
		CamelScheme("title", "es"):       "titleEs",
		CamelScheme("rent_period", "en"): "rentPeriodEn",
		SnakeScheme("features", "ru"):    "features_ru",
	}
	for got, want := range tests {
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}

func TestDisplayTitleFallsBackToCategoryLabel(t *testing.T) {
	r := NewResolver("es")
	src := fakeSource{category: "plot"}

	if got := r.DisplayTitle(src, "en"); got != "Plot" {
		t.Errorf("en: got %q", got)
	}
	if got := r.DisplayTitle(src, "ru"); got != "Участок" {
		t.Errorf("ru: got %q", got)
	}
	if got := r.DisplayTitle(src, "fr"); got != "Parcela" {
		t.Errorf("fr: got %q", got)
	}
}

func TestCategoryLabelUnknownCategory(t *testing.T) {
	if got := CategoryLabel("en", "castle"); got != "Apartment" {
		t.Errorf("got %q", got)
	}
}

func TestFold(t *testing.T) {
	tests := map[string]string{
		"Jávea":         "javea",
		"  XÀBIA ":      "xabia",
		"Benitachell":   "benitachell",
		"Gràcia, Jávea": "gracia, javea",
	}
	for in, want := range tests {
		if got := Fold(in); got != want {
			t.Errorf("Fold(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCanonicalMunicipality(t *testing.T) {
	tests := map[string]string{
		"Xàbia":   "Jávea",
		"xabia":   "Jávea",
		"Jávea":   "Jávea",
		"DENIA":   "Dénia",
		" Altea ": "Altea",
		"":        "",
	}
	for in, want := range tests {
		if got := CanonicalMunicipality(in); got != want {
			t.Errorf("CanonicalMunicipality(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPreferredLanguage(t *testing.T) {
	tests := []struct {
		param, header, want string
	}{
		{"ru", "en-GB,en;q=0.9", "ru"},
		{"", "en-GB,en;q=0.9", "en"},
		{"", "de;q=0.5,ru-RU", "ru"},
		{"not a tag!", "es-ES", "es"},
		{"", "", ""},
	}
	for _, tt := range tests {
		if got := PreferredLanguage(tt.param, tt.header); got != tt.want {
			t.Errorf("PreferredLanguage(%q, %q) = %q, want %q", tt.param, tt.header, got, tt.want)
		}
	}
}
