package auth

import "testing"

func TestHashAndVerifyToken(t *testing.T) {
	t.Parallel()

	hash, err := HashToken("changeme-changeme-123")
	if err != nil {
		t.Fatalf("hash token: %v", err)
	}
	if hash == "" {
		t.Fatalf("expected non-empty hash")
	}
	if !VerifyToken("changeme-changeme-123", hash) {
		t.Fatalf("expected token verification to succeed")
	}
	if VerifyToken("wrong-token-wrong-token", hash) {
		t.Fatalf("did not expect wrong token to verify")
	}
	if VerifyToken("", hash) || VerifyToken("changeme-changeme-123", "") {
		t.Fatalf("did not expect blank input to verify")
	}
}

func TestHashTokenRejectsShortTokens(t *testing.T) {
	t.Parallel()

	if _, err := HashToken("short"); err == nil {
		t.Fatalf("expected short token to be rejected")
	}
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	first, err := GenerateToken()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	second, _ := GenerateToken()
	if len(first) != 48 || first == second {
		t.Fatalf("unexpected tokens %q %q", first, second)
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"":             "",
		"Bearer":       "",
	}
	for header, want := range cases {
		if got := BearerToken(header); got != want {
			t.Fatalf("BearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}
