package translation

import "testing"

type listingBackend struct {
	*scriptedBackend
	codes []string
}

func (b listingBackend) SupportedLanguages() []string {
	return b.codes
}

func TestTranslationLanguageOptionsMergesBackendCodes(t *testing.T) {
	t.Parallel()

	lister := listingBackend{scriptedBackend: echoBackend("libre"), codes: []string{"EU", "auto", "pt-BR", ""}}
	registry := newTestRegistry(t, nil, lister)

	options := TranslationLanguageOptions(registry)
	byCode := map[string]LanguageOption{}
	for i, option := range options {
		if i > 0 && options[i-1].Code >= option.Code {
			t.Fatalf("options not sorted at %d: %q >= %q", i, options[i-1].Code, option.Code)
		}
		byCode[option.Code] = option
	}
	if len(options) != len(knownLanguages)+1 {
		t.Fatalf("expected %d options, got %d", len(knownLanguages)+1, len(options))
	}
	if got := byCode["eu"]; got.Label != "EU" || got.Native != "" {
		t.Fatalf("unexpected fallback option: %+v", got)
	}
	if got := byCode["ja"]; got.Label != "Japanese" || got.Native != "日本語" {
		t.Fatalf("unexpected ja option: %+v", got)
	}
	if _, ok := byCode[AutoLang]; ok {
		t.Fatalf("auto must not be listed")
	}
}

func TestTranslationLanguageOptionsWithoutRegistry(t *testing.T) {
	t.Parallel()

	if got := TranslationLanguageOptions(nil); len(got) != len(knownLanguages) {
		t.Fatalf("expected built-in languages only, got %d", len(got))
	}
}
