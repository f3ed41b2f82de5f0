package language

import "strings"

var headerNames = map[string]string{
	"english":    "en",
	"chinese":    "zh",
	"中文":         "zh",
	"japanese":   "ja",
	"日本語":        "ja",
	"korean":     "ko",
	"한국어":        "ko",
	"german":     "de",
	"french":     "fr",
	"spanish":    "es",
	"italian":    "it",
	"portuguese": "pt",
	"russian":    "ru",
	"dutch":      "nl",
	"ukrainian":  "uk",
	"arabic":     "ar",
	"vietnamese": "vi",
	"thai":       "th",
	"indonesian": "id",
	"turkish":    "tr",
	"polish":     "pl",
}

// FromColumnHeader infers a language code from a table column header such as
// "English", "Chinese (Simplified)", "ja" or "text_ko". Returns "" when the
// header names no known language.
func FromColumnHeader(header string) string {
	trimmed := strings.ToLower(strings.TrimSpace(header))
	if trimmed == "" {
		return ""
	}

	if code, ok := headerNames[trimmed]; ok {
		return code
	}

	words := strings.FieldsFunc(trimmed, func(r rune) bool {
		return r == ' ' || r == '(' || r == ')' || r == '_' || r == '/' || r == ':' || r == ','
	})
	for _, word := range words {
		if code, ok := headerNames[word]; ok {
			return code
		}
	}

	// Bare codes and tags ("ko", "zh-CN", "text_en"). An "ID" header is a row key.
	if trimmed == "id" {
		return ""
	}
	if code := NormalizeCode(trimmed); len(code) == 2 && knownCode(code) {
		return code
	}
	if len(words) > 0 {
		last := NormalizeCode(words[len(words)-1])
		if len(last) == 2 && knownCode(last) {
			return last
		}
	}
	return ""
}

func knownCode(code string) bool {
	for _, known := range headerNames {
		if known == code {
			return true
		}
	}
	return false
}
