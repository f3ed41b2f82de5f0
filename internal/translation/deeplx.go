package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// DefaultDeepLXEndpoint is where a locally started DeepLX server listens.
const DefaultDeepLXEndpoint = "http://127.0.0.1:1188"

// DeepLXBackend translates through a DeepLX server.
type DeepLXBackend struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewDeepLXBackend(endpoint, token string) *DeepLXBackend {
	return &DeepLXBackend{
		baseURL: normalizeBaseURL(endpoint, DefaultDeepLXEndpoint),
		token:   strings.TrimSpace(token),
		client:  &http.Client{},
	}
}

func (b *DeepLXBackend) Name() string {
	return "deeplx"
}

func (b *DeepLXBackend) SupportedLanguages() []string {
	return SupportedTranslationLanguageCodes()
}

type deeplxRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

type deeplxResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
	Text    string `json:"text"`
}

func (b *DeepLXBackend) Attempt(ctx context.Context, req Request) AttemptResult {
	targetLang := normalizeLangCode(req.TargetLang)
	if targetLang == "" || targetLang == AutoLang {
		return permanent("invalid target language %q", req.TargetLang)
	}
	sourceLang := normalizeLangCode(req.SourceLang)
	if sourceLang == "" {
		sourceLang = AutoLang
	}

	headers := map[string]string{}
	if b.token != "" {
		headers["Authorization"] = "Bearer " + b.token
	}

	reply, failure := sendJSON(ctx, b.client, http.MethodPost, b.baseURL+"/translate", deeplxRequest{
		Text:       req.Text,
		SourceLang: strings.ToUpper(sourceLang),
		TargetLang: strings.ToUpper(targetLang),
	}, headers)
	if failure != nil {
		return *failure
	}

	var parsed deeplxResponse
	decodeErr := json.Unmarshal(reply.Body, &parsed)

	// DeepL answers an IP block with 503; DeepLX passes the code through.
	blocked := reply.Status == http.StatusServiceUnavailable ||
		(!reply.OK() && isDeepLXBlocked(reply.Body)) ||
		(decodeErr == nil && (parsed.Code == http.StatusTooManyRequests || parsed.Code == http.StatusServiceUnavailable))
	if blocked {
		return rateLimited(fmt.Sprintf("deeplx status %d: temporarily blocked", reply.Status), parseRetryAfter(reply.Header))
	}
	if !reply.OK() {
		return classifyStatus(reply, parsed.Message)
	}
	if decodeErr != nil {
		return transient("decode deeplx response: %v", decodeErr)
	}
	if parsed.Code != 0 && parsed.Code != http.StatusOK {
		return classifyStatus(httpReply{Status: parsed.Code, Header: reply.Header, Body: reply.Body}, parsed.Message)
	}

	translated := strings.TrimSpace(parsed.Data)
	if translated == "" {
		translated = strings.TrimSpace(parsed.Text)
	}
	if translated == "" {
		return transient("deeplx response was empty")
	}
	// DeepLX sometimes returns a redirect URL in place of the translation.
	if strings.HasPrefix(strings.ToLower(translated), "http") {
		return transient("deeplx returned a URL instead of a translation: %s", truncate(translated, 120))
	}
	return success(translated)
}

// Probe checks that the DeepLX server answers on its root path.
func (b *DeepLXBackend) Probe(ctx context.Context) error {
	reply, failure := sendJSON(ctx, b.client, http.MethodGet, b.baseURL+"/", nil, nil)
	if failure != nil {
		return fmt.Errorf("deeplx is not running at %s: %s", b.baseURL, failure.Message)
	}
	if reply.Status == http.StatusServiceUnavailable || isDeepLXBlocked(reply.Body) {
		return fmt.Errorf("deeplx at %s is temporarily blocked by DeepL", b.baseURL)
	}
	if reply.Status >= 500 {
		return fmt.Errorf("deeplx at %s answered status %d", b.baseURL, reply.Status)
	}
	return nil
}

func isDeepLXBlocked(body []byte) bool {
	return strings.Contains(strings.ToLower(string(body)), "blocked")
}

// normalizeBaseURL trims a trailing slash and "/translate" so callers may
// paste either the server root or the full endpoint.
func normalizeBaseURL(raw, fallback string) string {
	endpoint := strings.TrimSpace(raw)
	if endpoint == "" {
		endpoint = fallback
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || strings.TrimSpace(parsed.Host) == "" {
		return fallback
	}
	parsed.Path = strings.TrimSuffix(strings.TrimRight(parsed.Path, "/"), "/translate")
	parsed.RawQuery = ""
	return strings.TrimRight(parsed.String(), "/")
}
