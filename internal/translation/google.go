package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
)

// DefaultGoogleEndpoint is the Cloud Translation v2 REST endpoint.
const DefaultGoogleEndpoint = "https://translation.googleapis.com/language/translate/v2"

// GoogleBackend calls the Google Cloud Translation v2 REST API with an API key.
type GoogleBackend struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewGoogleBackend(endpoint, apiKey string) *GoogleBackend {
	trimmed := strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if trimmed == "" {
		trimmed = DefaultGoogleEndpoint
	}
	return &GoogleBackend{
		endpoint: trimmed,
		apiKey:   strings.TrimSpace(apiKey),
		client:   &http.Client{},
	}
}

func (b *GoogleBackend) Name() string {
	return "google"
}

func (b *GoogleBackend) SupportedLanguages() []string {
	return SupportedTranslationLanguageCodes()
}

type googleTranslateRequest struct {
	Q      []string `json:"q"`
	Target string   `json:"target"`
	Source string   `json:"source,omitempty"`
	Format string   `json:"format"`
}

type googleTranslateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText         string `json:"translatedText"`
			DetectedSourceLanguage string `json:"detectedSourceLanguage"`
		} `json:"translations"`
	} `json:"data"`
}

type googleErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

func (b *GoogleBackend) Attempt(ctx context.Context, req Request) AttemptResult {
	if b.apiKey == "" {
		return permanent("google api key is not configured")
	}
	targetLang := normalizeLangCode(req.TargetLang)
	if targetLang == "" || targetLang == AutoLang {
		return permanent("invalid target language %q", req.TargetLang)
	}
	sourceLang := normalizeLangCode(req.SourceLang)
	if sourceLang == AutoLang {
		sourceLang = ""
	}

	endpoint := b.endpoint + "?key=" + url.QueryEscape(b.apiKey)
	reply, failure := sendJSON(ctx, b.client, http.MethodPost, endpoint, googleTranslateRequest{
		Q:      []string{req.Text},
		Target: targetLang,
		Source: sourceLang,
		Format: "text",
	}, nil)
	if failure != nil {
		return *failure
	}

	if !reply.OK() {
		return classifyGoogleError(reply)
	}

	var parsed googleTranslateResponse
	if err := json.Unmarshal(reply.Body, &parsed); err != nil {
		return transient("decode google response: %v", err)
	}
	if len(parsed.Data.Translations) == 0 {
		return transient("google response missing translations")
	}
	translated := strings.TrimSpace(html.UnescapeString(parsed.Data.Translations[0].TranslatedText))
	if translated == "" {
		return transient("google response was empty")
	}
	return success(translated)
}

// classifyGoogleError applies Google's error shape on top of the generic
// status rules: quota errors arrive as 403 with a rate-limit reason.
func classifyGoogleError(reply httpReply) AttemptResult {
	var payload googleErrorResponse
	if err := json.Unmarshal(reply.Body, &payload); err != nil {
		return classifyStatus(reply, "")
	}

	message := strings.TrimSpace(payload.Error.Message)
	if payload.Error.Status == "RESOURCE_EXHAUSTED" {
		return rateLimited(fmt.Sprintf("status %d: %s", reply.Status, message), parseRetryAfter(reply.Header))
	}
	for _, detail := range payload.Error.Errors {
		switch detail.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded", "dailyLimitExceeded":
			return rateLimited(fmt.Sprintf("status %d: %s (%s)", reply.Status, message, detail.Reason), parseRetryAfter(reply.Header))
		case "backendError":
			return transient("status %d: %s (%s)", reply.Status, message, detail.Reason)
		}
	}
	return classifyStatus(reply, message)
}
