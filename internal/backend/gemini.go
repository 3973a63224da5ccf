// Package backend submits rendered prompts to the Gemini generateContent
// API and maps every failure onto a typed fault code. It is the only
// component in the engine that performs network I/O.
package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// GeminiClient implements Client against the Gemini REST API.
type GeminiClient struct {
	apiKey         string
	baseURL        string
	model          string
	retryBaseDelay time.Duration
	httpClient     *http.Client
	logger         *zap.Logger

	mu          sync.Mutex
	lastRequest time.Time
}

// NewGeminiClient creates a client with default configuration.
func NewGeminiClient(apiKey string, logger *zap.Logger) *GeminiClient {
	return NewGeminiClientWithConfig(DefaultGeminiConfig(apiKey), logger)
}

// NewGeminiClientWithConfig creates a client with custom configuration.
func NewGeminiClientWithConfig(config GeminiConfig, logger *zap.Logger) *GeminiClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultGeminiConfig(config.APIKey)
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.RetryBaseDelay <= 0 {
		config.RetryBaseDelay = defaults.RetryBaseDelay
	}
	return &GeminiClient{
		apiKey:         config.APIKey,
		baseURL:        config.BaseURL,
		model:          config.Model,
		retryBaseDelay: config.RetryBaseDelay,
		httpClient:     &http.Client{Timeout: config.Timeout},
		logger:         logger,
	}
}

// Model returns the default model used when a request names none.
func (c *GeminiClient) Model() string { return c.model }

const maxRetries = 3

// Generate sends one rendered prompt and returns the concatenated
// candidate text. All failures are *Fault values; raw API error bodies
// stay in Fault.Detail for server-side logging only.
func (c *GeminiClient) Generate(ctx context.Context, req *Request) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	startTime := time.Now()

	if c.apiKey == "" {
		return "", newFault(FaultAuth, 0, "API key not configured")
	}

	model := req.Model
	if model == "" {
		model = c.model
	}

	parts := []geminiPart{{Text: req.Text}}
	for _, m := range req.Media {
		parts = append(parts, geminiPart{InlineData: &geminiBlob{
			MimeType: m.MIME,
			Data:     base64.StdEncoding.EncodeToString(m.Data),
		}})
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxOutputTokens,
		},
	}
	if req.System != "" {
		reqBody.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	if req.Schema != nil {
		reqBody.GenerationConfig.ResponseMimeType = "application/json"
		reqBody.GenerationConfig.ResponseSchema = req.Schema
	}

	c.logger.Debug("gemini request",
		zap.String("model", model),
		zap.Int("text_len", len(req.Text)),
		zap.Int("media_parts", len(req.Media)),
		zap.Bool("structured", req.Schema != nil))

	// Minimum spacing between requests, shared across goroutines.
	c.mu.Lock()
	if elapsed := time.Since(c.lastRequest); elapsed < 100*time.Millisecond {
		time.Sleep(100*time.Millisecond - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", newFault(FaultInternal, 0, "failed to marshal request: %v", err)
	}

	var lastErr *Fault
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryBaseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctxFault(ctx.Err())
			}
		}

		text, fault := c.doRequest(ctx, url, jsonData)
		if fault == nil {
			c.logger.Debug("gemini response",
				zap.String("model", model),
				zap.Duration("elapsed", time.Since(startTime)),
				zap.Int("response_len", len(text)))
			return text, nil
		}
		if !fault.retryable() {
			c.logger.Warn("gemini request failed",
				zap.String("model", model),
				zap.String("fault", string(fault.Code)),
				zap.Int("status", fault.Status),
				zap.Duration("elapsed", time.Since(startTime)))
			return "", fault
		}
		lastErr = fault
	}

	c.logger.Error("gemini retries exhausted",
		zap.String("model", model),
		zap.Duration("elapsed", time.Since(startTime)),
		zap.Error(lastErr))
	exhausted := newFault(FaultNetwork, lastErr.Status, "retries exhausted: %s", lastErr.Detail)
	exhausted.Err = lastErr
	return "", exhausted
}

// retryable: rate limits, 5xx, and transport failures. A cancelled or
// timed-out context exits through the backoff select instead.
func (f *Fault) retryable() bool {
	return f.Code == FaultNetwork
}

func (c *GeminiClient) doRequest(ctx context.Context, url string, body []byte) (string, *Fault) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", newFault(FaultInternal, 0, "failed to create request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", ctxFault(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", ctxFault(err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyHTTP(resp.StatusCode, respBody)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", newFault(FaultMalformed, resp.StatusCode, "unparseable response body: %v", err)
	}
	if parsed.Error != nil {
		return "", classifyAPIError(resp.StatusCode, parsed.Error)
	}
	if parsed.PromptFeedback != nil && parsed.PromptFeedback.BlockReason != "" {
		return "", newFault(FaultSafety, resp.StatusCode, "prompt blocked: %s", parsed.PromptFeedback.BlockReason)
	}
	if len(parsed.Candidates) == 0 {
		return "", newFault(FaultMalformed, resp.StatusCode, "no candidates returned")
	}

	cand := parsed.Candidates[0]
	switch cand.FinishReason {
	case "SAFETY", "PROHIBITED_CONTENT", "BLOCKLIST":
		return "", newFault(FaultSafety, resp.StatusCode, "candidate blocked: %s", cand.FinishReason)
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		sb.WriteString(part.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", newFault(FaultMalformed, resp.StatusCode, "empty completion (finish reason %s)", cand.FinishReason)
	}
	return text, nil
}

// ctxFault folds transport errors into the network fault, preserving the
// underlying error so cancellation stays observable via errors.Is.
func ctxFault(err error) *Fault {
	f := newFault(FaultNetwork, 0, "request failed: %v", err)
	f.Err = err
	if errors.Is(err, context.Canceled) {
		f.Detail = "request cancelled by caller"
	}
	return f
}

func classifyHTTP(status int, body []byte) *Fault {
	var parsed struct {
		Error *geminiError `json:"error"`
	}
	_ = json.Unmarshal(body, &parsed)
	if parsed.Error != nil {
		return classifyAPIError(status, parsed.Error)
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return newFault(FaultAuth, status, "credentials rejected")
	case status == http.StatusTooManyRequests:
		return newFault(FaultNetwork, status, "rate limit exceeded")
	case status >= 500:
		return newFault(FaultNetwork, status, "backend unavailable")
	default:
		return newFault(FaultInternal, status, "unexpected status: %s", truncate(string(body), 256))
	}
}

// classifyAPIError maps a structured Gemini error onto a fault code using
// the status and detail reason fields, never the message text.
func classifyAPIError(httpStatus int, apiErr *geminiError) *Fault {
	for _, d := range apiErr.Details {
		if d.Reason == "API_KEY_INVALID" || d.Reason == "API_KEY_SERVICE_BLOCKED" {
			return newFault(FaultAuth, httpStatus, "API key rejected")
		}
	}
	switch apiErr.Status {
	case "UNAUTHENTICATED", "PERMISSION_DENIED":
		return newFault(FaultAuth, httpStatus, "credentials rejected: %s", apiErr.Status)
	case "RESOURCE_EXHAUSTED":
		return newFault(FaultNetwork, httpStatus, "rate limit exceeded")
	case "UNAVAILABLE", "DEADLINE_EXCEEDED", "INTERNAL":
		return newFault(FaultNetwork, httpStatus, "backend unavailable: %s", apiErr.Status)
	default:
		return newFault(FaultInternal, httpStatus, "API error %s: %s", apiErr.Status, truncate(apiErr.Message, 256))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
