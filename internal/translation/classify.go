package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	"horse.fit/celltrans/internal/globaltime"
)

const maxResponseBytes = 4 << 20

type httpReply struct {
	Status int
	Header http.Header
	Body   []byte
}

func (r httpReply) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// sendJSON performs exactly one HTTP call. A non-nil AttemptResult means the
// call failed before an HTTP status was available.
func sendJSON(
	ctx context.Context,
	client *http.Client,
	method string,
	endpoint string,
	payload any,
	headers map[string]string,
) (httpReply, *AttemptResult) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			res := permanent("marshal request: %v", err)
			return httpReply{}, &res
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		res := permanent("build request: %v", err)
		return httpReply{}, &res
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	for key, value := range headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		res := classifyTransportError(err)
		return httpReply{}, &res
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		res := classifyTransportError(fmt.Errorf("read response: %w", err))
		return httpReply{}, &res
	}

	return httpReply{Status: resp.StatusCode, Header: resp.Header, Body: respBody}, nil
}

func classifyTransportError(err error) AttemptResult {
	if err == nil {
		return transient("unknown transport failure")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return timedOut(err.Error())
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return timedOut(err.Error())
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return transient("connection failed: %v", err)
	}
	return transient("send request: %v", err)
}

// classifyStatus maps a non-2xx HTTP status onto an attempt kind.
func classifyStatus(reply httpReply, message string) AttemptResult {
	msg := strings.TrimSpace(message)
	if msg == "" {
		msg = truncate(strings.TrimSpace(string(reply.Body)), 300)
	}
	detail := fmt.Sprintf("status %d", reply.Status)
	if msg != "" {
		detail += ": " + msg
	}

	switch {
	case reply.Status == http.StatusTooManyRequests:
		return rateLimited(detail, parseRetryAfter(reply.Header))
	case reply.Status >= 500:
		return transient("%s", detail)
	case reply.Status >= 400:
		return permanent("%s", detail)
	default:
		return transient("unexpected %s", detail)
	}
}

func parseRetryAfter(header http.Header) time.Duration {
	if header == nil {
		return 0
	}
	raw := strings.TrimSpace(header.Get("Retry-After"))
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(raw); err == nil {
		if wait := at.Sub(globaltime.Now()); wait > 0 {
			return wait
		}
	}
	return 0
}

func mentionsRateLimit(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range []string{"rate limit", "ratelimit", "too many requests", "quota exceeded"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
