package language

import "strings"

// maxSubtagLen is the longest subtag BCP 47 allows.
const maxSubtagLen = 8

// codeAliases maps country codes and retired ISO 639 codes that show up in
// spreadsheet headers and user input to the ISO 639-1 code.
var codeAliases = map[string]string{
	"jp": "ja",
	"kr": "ko",
	"cn": "zh",
	"tw": "zh",
	"ua": "uk",
	"gr": "el",
	"cz": "cs",
	"dk": "da",
	"iw": "he",
	"in": "id",
	"ji": "yi",
}

// NormalizeTag lowercases a language tag and joins subtags with "-".
// Returns "" for blank input or a tag with non-letter or oversized subtags.
func NormalizeTag(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}

	parts := strings.FieldsFunc(trimmed, func(r rune) bool { return r == '-' || r == '_' })
	if len(parts) == 0 {
		return ""
	}
	for _, part := range parts {
		if len(part) > maxSubtagLen || !isAlphaLower(part) {
			return ""
		}
	}
	return strings.Join(parts, "-")
}

// NormalizeCode returns the primary subtag of raw ("en" from "en-US"),
// resolving aliases such as "jp" to "ja".
func NormalizeCode(raw string) string {
	tag := NormalizeTag(raw)
	if tag == "" {
		return ""
	}
	primary, _, _ := strings.Cut(tag, "-")
	if alias, ok := codeAliases[primary]; ok {
		return alias
	}
	return primary
}

func isAlphaLower(value string) bool {
	for _, r := range value {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
