package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	// DefaultLocalEndpoint points to a local OpenAI-compatible translation endpoint.
	DefaultLocalEndpoint = "http://127.0.0.1:8845/v1"
	// DefaultLocalModel is the default HY-MT model name.
	DefaultLocalModel = "tencent/HY-MT1.5-7B"

	hymtPromptZH = "将以下文本翻译为%s，注意只需要输出翻译后的结果，不要额外解释：\n\n%s"
	hymtPromptXX = "Translate the following segment into %s, without additional explanation.\n\n%s"
)

// LocalBackend sends each cell to an OpenAI-compatible chat completions
// server running a HY-MT style model.
type LocalBackend struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

func NewLocalBackend(endpoint, model, apiKey string) *LocalBackend {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultLocalModel
	}
	return &LocalBackend{
		baseURL: localBaseURL(endpoint),
		model:   model,
		apiKey:  strings.TrimSpace(apiKey),
		client:  &http.Client{},
	}
}

func (b *LocalBackend) Name() string {
	return "local"
}

func (b *LocalBackend) SupportedLanguages() []string {
	return SupportedTranslationLanguageCodes()
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	TopP        float64       `json:"top_p,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (b *LocalBackend) Attempt(ctx context.Context, req Request) AttemptResult {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return permanent("text is required")
	}
	source := normalizeLangCode(req.SourceLang)
	target := normalizeLangCode(req.TargetLang)
	if target == "" || target == AutoLang {
		return permanent("invalid target language %q", req.TargetLang)
	}

	reply, failure := sendJSON(ctx, b.client, http.MethodPost, b.baseURL+"/chat/completions", chatRequest{
		Model:       b.model,
		Messages:    []chatMessage{{Role: "user", Content: hymtPrompt(text, source, target)}},
		Temperature: 0.7,
		TopP:        0.6,
	}, b.headers())
	if failure != nil {
		return *failure
	}

	var parsed chatResponse
	decodeErr := json.Unmarshal(reply.Body, &parsed)

	if !reply.OK() {
		var message, kind string
		if decodeErr == nil && parsed.Error != nil {
			message = strings.TrimSpace(parsed.Error.Message)
			kind = parsed.Error.Type
		}
		if kind == "rate_limit_exceeded" || mentionsRateLimit(message) {
			return rateLimited(fmt.Sprintf("status %d: %s", reply.Status, message), parseRetryAfter(reply.Header))
		}
		return classifyStatus(reply, message)
	}

	switch {
	case decodeErr != nil:
		return transient("decode chat response: %v", decodeErr)
	case len(parsed.Choices) == 0:
		return transient("chat response has no choices")
	}
	translated := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if translated == "" {
		return transient("chat response was empty")
	}
	return success(translated)
}

// Probe lists the served models.
func (b *LocalBackend) Probe(ctx context.Context) error {
	reply, failure := sendJSON(ctx, b.client, http.MethodGet, b.baseURL+"/models", nil, b.headers())
	if failure != nil {
		return fmt.Errorf("local model server unreachable at %s: %s", b.baseURL, failure.Message)
	}
	if !reply.OK() {
		return fmt.Errorf("local model server at %s answered status %d", b.baseURL, reply.Status)
	}
	return nil
}

func (b *LocalBackend) headers() map[string]string {
	if b.apiKey == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + b.apiKey}
}

// hymtPrompt picks the Chinese instruction when either side is Chinese.
func hymtPrompt(text, source, target string) string {
	info, ok := knownLanguages[target]
	if !ok {
		info = languageInfo{name: target, zh: target}
	}
	if source == "zh" || target == "zh" {
		return fmt.Sprintf(hymtPromptZH, info.zh, text)
	}
	return fmt.Sprintf(hymtPromptXX, info.name, text)
}

// localBaseURL accepts a server root, a /v1 base or a full
// /chat/completions URL and returns the API base without a trailing slash.
func localBaseURL(raw string) string {
	trimmed := strings.TrimSuffix(strings.TrimRight(strings.TrimSpace(raw), "/"), "/chat/completions")
	base := normalizeBaseURL(trimmed, DefaultLocalEndpoint)
	if parsed, err := url.Parse(base); err == nil && parsed.Path == "" {
		base += "/v1"
	}
	return base
}
