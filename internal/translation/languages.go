package translation

import (
	"maps"
	"slices"
	"strings"

	"horse.fit/celltrans/internal/language"
)

type LanguageOption struct {
	Code   string `json:"code"`
	Label  string `json:"label"`
	Native string `json:"native,omitempty"`
}

type languageInfo struct {
	name   string
	native string
	// zh is the Chinese name used in HY-MT prompts.
	zh string
}

var knownLanguages = map[string]languageInfo{
	"ar": {name: "Arabic", native: "العربية", zh: "阿拉伯语"},
	"cs": {name: "Czech", native: "Čeština", zh: "捷克语"},
	"da": {name: "Danish", native: "Dansk", zh: "丹麦语"},
	"de": {name: "German", native: "Deutsch", zh: "德语"},
	"el": {name: "Greek", native: "Ελληνικά", zh: "希腊语"},
	"en": {name: "English", native: "English", zh: "英语"},
	"es": {name: "Spanish", native: "Español", zh: "西班牙语"},
	"fr": {name: "French", native: "Français", zh: "法语"},
	"he": {name: "Hebrew", native: "עברית", zh: "希伯来语"},
	"hi": {name: "Hindi", native: "हिन्दी", zh: "印地语"},
	"id": {name: "Indonesian", native: "Bahasa Indonesia", zh: "印度尼西亚语"},
	"it": {name: "Italian", native: "Italiano", zh: "意大利语"},
	"ja": {name: "Japanese", native: "日本語", zh: "日语"},
	"ko": {name: "Korean", native: "한국어", zh: "韩语"},
	"nl": {name: "Dutch", native: "Nederlands", zh: "荷兰语"},
	"pl": {name: "Polish", native: "Polski", zh: "波兰语"},
	"pt": {name: "Portuguese", native: "Português", zh: "葡萄牙语"},
	"ru": {name: "Russian", native: "Русский", zh: "俄语"},
	"sv": {name: "Swedish", native: "Svenska", zh: "瑞典语"},
	"th": {name: "Thai", native: "ไทย", zh: "泰语"},
	"tr": {name: "Turkish", native: "Türkçe", zh: "土耳其语"},
	"uk": {name: "Ukrainian", native: "Українська", zh: "乌克兰语"},
	"vi": {name: "Vietnamese", native: "Tiếng Việt", zh: "越南语"},
	"zh": {name: "Chinese", native: "中文", zh: "中文"},
}

func SupportedTranslationLanguageCodes() []string {
	return slices.Sorted(maps.Keys(knownLanguages))
}

// TranslationLanguageOptions lists the built-in languages plus any code a
// registered backend advertises, sorted by code.
func TranslationLanguageOptions(registry *Registry) []LanguageOption {
	codes := make(map[string]struct{}, len(knownLanguages))
	for code := range knownLanguages {
		codes[code] = struct{}{}
	}
	if registry != nil {
		for _, backend := range registry.Backends() {
			lister, ok := backend.(LanguageLister)
			if !ok {
				continue
			}
			for _, raw := range lister.SupportedLanguages() {
				if code := normalizeLangCode(raw); code != "" && code != AutoLang {
					codes[code] = struct{}{}
				}
			}
		}
	}

	options := make([]LanguageOption, 0, len(codes))
	for _, code := range slices.Sorted(maps.Keys(codes)) {
		options = append(options, languageOption(code))
	}
	return options
}

func languageOption(code string) LanguageOption {
	info, ok := knownLanguages[code]
	if !ok {
		return LanguageOption{Code: code, Label: strings.ToUpper(code)}
	}
	return LanguageOption{Code: code, Label: info.name, Native: info.native}
}

// normalizeLangCode keeps "auto" and reduces everything else to the primary
// subtag.
func normalizeLangCode(raw string) string {
	if isAutoLang(raw) {
		return AutoLang
	}
	return language.NormalizeCode(raw)
}

func isAutoLang(raw string) bool {
	return strings.EqualFold(strings.TrimSpace(raw), AutoLang)
}
