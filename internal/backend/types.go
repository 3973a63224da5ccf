package backend

import (
	"context"
	"time"

	"studyflow/internal/prompt"
)

// Request is one rendered prompt plus model configuration, constructed
// fresh per call and discarded after the backend responds.
type Request struct {
	System      string
	Text        string
	Media       []prompt.Media
	Model       string
	Temperature float64
	// Schema, when non-nil, switches the call to structured output
	// constrained by this JSON Schema document.
	Schema          map[string]any
	MaxOutputTokens int
}

// Client is the generative backend the flow engine invokes. Generate is
// the single blocking stage of a flow; implementations must honor context
// cancellation and report failures as *Fault.
type Client interface {
	Generate(ctx context.Context, req *Request) (string, error)
}

// Wire types for the Gemini generateContent endpoint.

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *geminiBlob `json:"inlineData,omitempty"`
}

type geminiBlob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type geminiGenerationConfig struct {
	Temperature      float64        `json:"temperature"`
	MaxOutputTokens  int            `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseJsonSchema,omitempty"`
}

type geminiResponse struct {
	Candidates     []geminiCandidate     `json:"candidates"`
	PromptFeedback *geminiPromptFeedback `json:"promptFeedback,omitempty"`
	Error          *geminiError          `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiPromptFeedback struct {
	BlockReason string `json:"blockReason"`
}

type geminiError struct {
	Code    int                `json:"code"`
	Message string             `json:"message"`
	Status  string             `json:"status"`
	Details []geminiErrDetails `json:"details"`
}

type geminiErrDetails struct {
	Reason string `json:"reason"`
}

// GeminiConfig configures the HTTP client.
type GeminiConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// RetryBaseDelay is the first backoff step for retryable statuses.
	RetryBaseDelay time.Duration
}

// DefaultGeminiConfig returns sensible defaults.
func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey:         apiKey,
		BaseURL:        "https://generativelanguage.googleapis.com/v1beta",
		Model:          "gemini-2.0-flash",
		Timeout:        2 * time.Minute,
		RetryBaseDelay: time.Second,
	}
}
