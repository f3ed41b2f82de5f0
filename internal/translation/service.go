package translation

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Backend performs single-string translation calls against one provider.
// Attempt makes exactly one outbound call and never returns raw transport
// errors: every failure is classified into the returned AttemptResult.
type Backend interface {
	Name() string
	Attempt(ctx context.Context, req Request) AttemptResult
}

// Prober is implemented by backends that expose a cheap liveness check.
type Prober interface {
	Probe(ctx context.Context) error
}

// LanguageLister is implemented by backends that know their language set.
type LanguageLister interface {
	SupportedLanguages() []string
}

// AutoLang asks the backend to detect the source language itself.
const AutoLang = "auto"

// Request describes one translation request.
type Request struct {
	Text       string
	SourceLang string // ISO 639-1 (for example: "zh", "en") or "auto"
	TargetLang string
}

// IsBlank reports whether the request text is empty or whitespace-only.
func (r Request) IsBlank() bool {
	return strings.TrimSpace(r.Text) == ""
}

// AttemptKind classifies the result of one backend call.
type AttemptKind int

const (
	AttemptSuccess AttemptKind = iota
	AttemptRateLimited
	AttemptTimeout
	AttemptTransientError
	AttemptPermanentError
)

func (k AttemptKind) String() string {
	switch k {
	case AttemptSuccess:
		return "success"
	case AttemptRateLimited:
		return "rate_limited"
	case AttemptTimeout:
		return "timeout"
	case AttemptTransientError:
		return "transient_error"
	case AttemptPermanentError:
		return "permanent_error"
	default:
		return fmt.Sprintf("attempt_kind(%d)", int(k))
	}
}

// Retryable reports whether a failure of this kind may succeed on retry.
func (k AttemptKind) Retryable() bool {
	switch k {
	case AttemptRateLimited, AttemptTimeout, AttemptTransientError:
		return true
	default:
		return false
	}
}

// AttemptResult is the classified result of one backend call.
type AttemptResult struct {
	Kind    AttemptKind
	Text    string
	Message string
	// RetryAfter is a provider hint attached to rate-limited responses.
	RetryAfter time.Duration
}

func (r AttemptResult) String() string {
	if r.Kind == AttemptSuccess {
		return r.Kind.String()
	}
	msg := strings.TrimSpace(r.Message)
	if msg == "" {
		return r.Kind.String()
	}
	return r.Kind.String() + ": " + msg
}

func success(text string) AttemptResult {
	return AttemptResult{Kind: AttemptSuccess, Text: text}
}

func rateLimited(msg string, retryAfter time.Duration) AttemptResult {
	return AttemptResult{Kind: AttemptRateLimited, Message: msg, RetryAfter: retryAfter}
}

func timedOut(msg string) AttemptResult {
	return AttemptResult{Kind: AttemptTimeout, Message: msg}
}

func transient(format string, args ...any) AttemptResult {
	return AttemptResult{Kind: AttemptTransientError, Message: fmt.Sprintf(format, args...)}
}

func permanent(format string, args ...any) AttemptResult {
	return AttemptResult{Kind: AttemptPermanentError, Message: fmt.Sprintf(format, args...)}
}
