package langdetect

import "testing"

func TestDetectISO6391SkipsShortSamples(t *testing.T) {
	t.Parallel()

	for _, sample := range []string{"", "   ", "42", "ok!", "SKU-1"} {
		if got := DetectISO6391(sample); got != "" {
			t.Fatalf("DetectISO6391(%q) = %q, want empty", sample, got)
		}
	}
}

func TestDetectISO6391RecognisesCommonLanguages(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"The quick brown fox jumps over the lazy dog.":  "en",
		"Der schnelle braune Fuchs springt über den Hund": "de",
		"今日はとても良い天気ですね。散歩に行きましょう。":                   "ja",
	}
	for sample, want := range cases {
		if got := DetectISO6391(sample); got != want {
			t.Fatalf("DetectISO6391(%q) = %q, want %q", sample, got, want)
		}
	}
}
