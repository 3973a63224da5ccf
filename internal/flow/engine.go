package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"studyflow/internal/backend"
	"studyflow/internal/prompt"
	"studyflow/internal/schema"
	"studyflow/internal/taxonomy"
	"studyflow/internal/variant"
)

// Engine owns the immutable flow table and executes requests against it.
// It is stateless per request: concurrent Run calls share nothing but the
// read-only registry and the backend client.
type Engine struct {
	client  backend.Client
	logger  *zap.Logger
	timeout time.Duration
	flows   map[string]*Flow
	order   []string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger attaches a logger. Defaults to a nop logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithTimeout bounds the backend call when the caller's context carries
// no deadline of its own.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// New creates an engine around a backend client.
func New(client backend.Client, opts ...Option) *Engine {
	e := &Engine{
		client:  client,
		logger:  zap.NewNop(),
		timeout: 2 * time.Minute,
		flows:   make(map[string]*Flow),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register adds a flow. All registration happens at startup, before any
// Run call; the table is read-only afterwards.
func (e *Engine) Register(f *Flow) error {
	if f.Name == "" {
		return fmt.Errorf("flow without a name")
	}
	if _, exists := e.flows[f.Name]; exists {
		return fmt.Errorf("flow %q already registered", f.Name)
	}
	if f.Input == nil || f.Output == nil {
		return fmt.Errorf("flow %q needs both input and output shapes", f.Name)
	}
	if f.Variants == nil {
		return fmt.Errorf("flow %q has no variants", f.Name)
	}
	e.flows[f.Name] = f
	e.order = append(e.order, f.Name)
	return nil
}

// Flows lists registered flow names in registration order.
func (e *Engine) Flows() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

// Lookup returns a registered flow, or nil.
func (e *Engine) Lookup(name string) *Flow { return e.flows[name] }

// Run executes one flow invocation. On success the returned map conforms
// exactly to the flow's output shape. On failure the returned error is
// always a *taxonomy.Error; no internal error type, stack trace, or
// backend detail crosses this boundary.
func (e *Engine) Run(ctx context.Context, name string, input map[string]any) (result map[string]any, err error) {
	requestID := uuid.NewString()
	logger := e.logger.With(zap.String("flow", name), zap.String("request_id", requestID))
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("flow panicked", zap.Any("panic", r))
			result, err = nil, taxonomy.New(taxonomy.Unknown, fmt.Errorf("panic: %v", r))
		}
		if err != nil {
			terr := taxonomy.Classify(err)
			err = terr
			logger.Warn("flow failed",
				zap.String("category", string(terr.Category)),
				zap.Duration("elapsed", time.Since(started)),
				zap.Error(terr.Unwrap()))
		} else {
			logger.Info("flow succeeded", zap.Duration("elapsed", time.Since(started)))
		}
	}()

	f := e.flows[name]
	if f == nil {
		return nil, taxonomy.New(taxonomy.ValidationFailure, fmt.Errorf("unknown flow %q", name))
	}

	// Validating.
	validated, verr := schema.Validate(f.Input, input)
	if verr != nil {
		return nil, taxonomy.New(taxonomy.ValidationFailure, verr)
	}
	cleaned := validated.(map[string]any)
	if f.Normalize != nil {
		cleaned = f.Normalize(cleaned)
	}

	// Input-driven short circuit: answer trivial requests without ever
	// contacting the backend.
	if f.PreCheck != nil {
		if payload, ok := f.PreCheck(cleaned); ok {
			logger.Debug("flow short-circuited before backend call")
			return e.acceptOutput(f, payload)
		}
	}

	// Rendering.
	v, serr := f.Variants.Select(cleaned)
	if serr != nil {
		return nil, taxonomy.Classify(serr)
	}
	rendered, rerr := prompt.Render(f.Name+"/"+v.Name, v.Template, cleaned, v.Helpers)
	if rerr != nil {
		return nil, taxonomy.Classify(rerr)
	}
	logger.Debug("prompt rendered",
		zap.String("variant", v.Name),
		zap.Int("text_len", len(rendered.Text)),
		zap.Int("media_parts", len(rendered.Media)))

	// Invoking: the single blocking stage.
	callCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && e.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	req := &backend.Request{
		System:          v.System,
		Text:            rendered.Text,
		Media:           rendered.Media,
		Model:           v.Config.Model,
		Temperature:     v.Config.Temperature,
		MaxOutputTokens: v.Config.MaxOutputTokens,
	}
	if v.Config.OutputFormat != variant.FormatText {
		req.Schema = schema.JSONSchema(f.Output)
	}
	raw, berr := e.client.Generate(callCtx, req)
	if berr != nil {
		return nil, taxonomy.Classify(berr)
	}

	// ValidatingOutput.
	payload, perr := decodeOutput(f, v, raw)
	if perr != nil {
		return nil, taxonomy.New(taxonomy.OutputMalformed, perr)
	}
	return e.acceptOutput(f, payload)
}

// acceptOutput runs shape validation and the flow's minimum-content
// checks. Rejection is total: a result failing any check is discarded.
func (e *Engine) acceptOutput(f *Flow, payload map[string]any) (map[string]any, error) {
	if len(payload) == 0 {
		return nil, taxonomy.New(taxonomy.OutputMalformed, fmt.Errorf("empty payload"))
	}
	validated, err := schema.Validate(f.Output, payload)
	if err != nil {
		return nil, taxonomy.New(taxonomy.OutputMalformed, err)
	}
	out := validated.(map[string]any)
	if f.Check != nil {
		if err := f.Check(out); err != nil {
			return nil, taxonomy.New(taxonomy.OutputMalformed, err)
		}
	}
	return out, nil
}

func decodeOutput(f *Flow, v *variant.Variant, raw string) (map[string]any, error) {
	if v.Config.OutputFormat == variant.FormatText {
		if f.TextField == "" {
			return nil, fmt.Errorf("flow %q has a text variant but no TextField", f.Name)
		}
		return map[string]any{f.TextField: raw}, nil
	}

	doc, ok := extractJSON(raw)
	if !ok {
		return nil, fmt.Errorf("no JSON object in completion")
	}
	var payload map[string]any
	if err := json.Unmarshal(doc, &payload); err != nil {
		return nil, fmt.Errorf("completion is not a JSON object: %w", err)
	}
	return payload, nil
}
