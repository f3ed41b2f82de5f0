package language

import "testing"

func TestNormalizeTag(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		" EN_us ":      "en-us",
		"zh-Hans":      "zh-hans",
		"en--US":       "en-us",
		"en_123":       "",
		"-":            "",
		"de-verylongx": "",
		"":             "",
	}
	for raw, want := range cases {
		if got := NormalizeTag(raw); got != want {
			t.Fatalf("NormalizeTag(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestNormalizeCode(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		" EN-us ": "en",
		"zh":      "zh",
		"JP":      "ja",
		"zh_CN":   "zh",
		"cn":      "zh",
		"iw":      "he",
		" ":       "",
	}
	for raw, want := range cases {
		if got := NormalizeCode(raw); got != want {
			t.Fatalf("NormalizeCode(%q) = %q, want %q", raw, got, want)
		}
	}
}
