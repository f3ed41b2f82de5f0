package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// LibreBackend translates through a LibreTranslate server.
type LibreBackend struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewLibreBackend(endpoint, apiKey string) *LibreBackend {
	return &LibreBackend{
		baseURL: normalizeBaseURL(endpoint, "http://127.0.0.1:5000"),
		apiKey:  strings.TrimSpace(apiKey),
		client:  &http.Client{},
	}
}

func (b *LibreBackend) Name() string {
	return "libre"
}

type libreRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error"`
}

func (b *LibreBackend) Attempt(ctx context.Context, req Request) AttemptResult {
	targetLang := normalizeLangCode(req.TargetLang)
	if targetLang == "" || targetLang == AutoLang {
		return permanent("invalid target language %q", req.TargetLang)
	}
	sourceLang := normalizeLangCode(req.SourceLang)
	if sourceLang == "" {
		sourceLang = AutoLang
	}

	reply, failure := sendJSON(ctx, b.client, http.MethodPost, b.baseURL+"/translate", libreRequest{
		Q:      req.Text,
		Source: sourceLang,
		Target: targetLang,
		Format: "text",
		APIKey: b.apiKey,
	}, nil)
	if failure != nil {
		return *failure
	}

	var parsed libreResponse
	decodeErr := json.Unmarshal(reply.Body, &parsed)

	if !reply.OK() {
		message := strings.TrimSpace(parsed.Error)
		if reply.Status != http.StatusTooManyRequests && mentionsRateLimit(message) {
			return rateLimited(fmt.Sprintf("status %d: %s", reply.Status, message), parseRetryAfter(reply.Header))
		}
		return classifyStatus(reply, message)
	}
	if decodeErr != nil {
		return transient("decode libretranslate response: %v", decodeErr)
	}

	translated := strings.TrimSpace(parsed.TranslatedText)
	if translated == "" {
		return transient("libretranslate response was empty")
	}
	return success(translated)
}

// Probe lists the server languages, which needs no API key.
func (b *LibreBackend) Probe(ctx context.Context) error {
	reply, failure := sendJSON(ctx, b.client, http.MethodGet, b.baseURL+"/languages", nil, nil)
	if failure != nil {
		return fmt.Errorf("libretranslate unreachable at %s: %s", b.baseURL, failure.Message)
	}
	if !reply.OK() {
		return fmt.Errorf("libretranslate at %s answered status %d", b.baseURL, reply.Status)
	}
	return nil
}
