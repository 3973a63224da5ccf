// Package taxonomy normalizes every fault the engine can produce into a
// small stable set of categories, each carrying one fixed user-safe
// message. Classification is driven by typed errors, never by matching
// substrings of fault messages.
package taxonomy

import (
	"context"
	"errors"

	"studyflow/internal/backend"
	"studyflow/internal/prompt"
	"studyflow/internal/schema"
	"studyflow/internal/variant"
)

// Category is the public failure vocabulary of the engine.
type Category string

const (
	// ValidationFailure: the caller sent an input that does not satisfy
	// the flow's input shape. A caller bug, 4xx-equivalent.
	ValidationFailure Category = "validation_failure"
	// SafetyBlocked: the backend refused the request on content grounds.
	// Not retryable without changing the input.
	SafetyBlocked Category = "safety_blocked"
	// AuthConfigInvalid: deployment or configuration problem with the
	// backend credentials. Operator-visible, not user-actionable.
	AuthConfigInvalid Category = "auth_config_invalid"
	// NetworkTransient: timeout, connectivity loss, or retry exhaustion.
	// Retryable by the caller.
	NetworkTransient Category = "network_transient"
	// OutputMalformed: the backend answered but the payload failed the
	// output contract. Retryable by the caller.
	OutputMalformed Category = "output_malformed"
	// Unknown: everything unrecognized. Full detail goes to server-side
	// logs; the caller sees only the generic message.
	Unknown Category = "unknown"
)

// User-facing messages. Exactly one per category, supportive and
// non-technical; no backend detail ever appears here.
var messages = map[Category]string{
	ValidationFailure: "We couldn't process that request. Please check your input and try again.",
	SafetyBlocked:     "That request couldn't be completed. Try rephrasing it around your study material.",
	AuthConfigInvalid: "The AI service isn't configured correctly right now. Please contact support.",
	NetworkTransient:  "We're having trouble reaching the AI service. Please try again in a moment.",
	OutputMalformed:   "The AI response didn't come through correctly. Please try again.",
	Unknown:           "Something unexpected went wrong. Please try again.",
}

// Message returns the fixed user-facing message for a category.
func Message(cat Category) string {
	if msg, ok := messages[cat]; ok {
		return msg
	}
	return messages[Unknown]
}

// Error is the only failure shape that leaves the flow façade.
type Error struct {
	Category Category
	Message  string
	cause    error
}

func (e *Error) Error() string { return string(e.Category) + ": " + e.Message }

// Unwrap exposes the original fault for server-side logging and tests.
// Transport layers must serialize only Category and Message.
func (e *Error) Unwrap() error { return e.cause }

// New builds a taxonomy error with the category's fixed message.
func New(cat Category, cause error) *Error {
	return &Error{Category: cat, Message: Message(cat), cause: cause}
}

// Classify maps any error onto its category. Typed faults from the
// backend, renderer, selector, and schema validator each have an exact
// mapping; anything else is Unknown.
func Classify(err error) *Error {
	var terr *Error
	if errors.As(err, &terr) {
		return terr
	}

	var fault *backend.Fault
	if errors.As(err, &fault) {
		switch fault.Code {
		case backend.FaultSafety:
			return New(SafetyBlocked, err)
		case backend.FaultAuth:
			return New(AuthConfigInvalid, err)
		case backend.FaultNetwork:
			return New(NetworkTransient, err)
		case backend.FaultMalformed:
			return New(OutputMalformed, err)
		default:
			return New(Unknown, err)
		}
	}

	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		return New(ValidationFailure, err)
	}

	var tmplErr *prompt.TemplateError
	if errors.As(err, &tmplErr) {
		// Rendering faults are engine bugs; surface the generic message.
		return New(Unknown, err)
	}

	if errors.Is(err, variant.ErrNoVariant) {
		// Shape validation should have rejected the input already.
		return New(Unknown, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return New(NetworkTransient, err)
	}

	return New(Unknown, err)
}
