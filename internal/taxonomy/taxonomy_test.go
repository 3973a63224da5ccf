package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"studyflow/internal/backend"
	"studyflow/internal/prompt"
	"studyflow/internal/schema"
	"studyflow/internal/variant"
)

func TestClassify_BackendFaults(t *testing.T) {
	cases := []struct {
		code backend.FaultCode
		want Category
	}{
		{backend.FaultSafety, SafetyBlocked},
		{backend.FaultAuth, AuthConfigInvalid},
		{backend.FaultNetwork, NetworkTransient},
		{backend.FaultMalformed, OutputMalformed},
		{backend.FaultInternal, Unknown},
	}
	for _, tc := range cases {
		err := &backend.Fault{Code: tc.code, Detail: "secret internal detail"}
		got := Classify(err)
		if got.Category != tc.want {
			t.Fatalf("Classify(%s) = %s, want %s", tc.code, got.Category, tc.want)
		}
		if strings.Contains(got.Message, "secret") {
			t.Fatalf("fault detail leaked into user message: %q", got.Message)
		}
	}
}

func TestClassify_ValidationError(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &schema.ValidationError{
		Errors: []schema.FieldError{{Path: "questionCount", Message: "must be at most 20"}},
	})
	got := Classify(err)
	if got.Category != ValidationFailure {
		t.Fatalf("category = %s, want %s", got.Category, ValidationFailure)
	}
}

func TestClassify_TemplateError(t *testing.T) {
	err := &prompt.TemplateError{Template: "tutor", Err: errors.New("function \"frobnicate\" not defined")}
	got := Classify(err)
	if got.Category != Unknown {
		t.Fatalf("category = %s, want %s", got.Category, Unknown)
	}
	if strings.Contains(got.Message, "frobnicate") {
		t.Fatalf("template internals leaked: %q", got.Message)
	}
}

func TestClassify_NoVariant(t *testing.T) {
	if got := Classify(variant.ErrNoVariant); got.Category != Unknown {
		t.Fatalf("category = %s, want %s", got.Category, Unknown)
	}
}

func TestClassify_Timeout(t *testing.T) {
	if got := Classify(context.DeadlineExceeded); got.Category != NetworkTransient {
		t.Fatalf("category = %s, want %s", got.Category, NetworkTransient)
	}
}

func TestClassify_PassesThroughExisting(t *testing.T) {
	orig := New(SafetyBlocked, errors.New("inner"))
	if got := Classify(fmt.Errorf("wrap: %w", orig)); got != orig {
		t.Fatalf("existing taxonomy error was re-wrapped")
	}
}

func TestClassify_UnknownFallback(t *testing.T) {
	got := Classify(errors.New("mystery"))
	if got.Category != Unknown {
		t.Fatalf("category = %s, want %s", got.Category, Unknown)
	}
}

func TestMessages_FixedPerCategory(t *testing.T) {
	for _, cat := range []Category{ValidationFailure, SafetyBlocked, AuthConfigInvalid, NetworkTransient, OutputMalformed, Unknown} {
		if Message(cat) == "" {
			t.Fatalf("category %s has no message", cat)
		}
		if Message(cat) != New(cat, nil).Message {
			t.Fatalf("category %s message not fixed", cat)
		}
	}
}
