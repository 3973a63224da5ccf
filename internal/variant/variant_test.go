package variant

import (
	"errors"
	"strings"
	"testing"
)

func mimeOf(input map[string]any) string {
	s, _ := input["fileType"].(string)
	return s
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(
		Variant{
			Name:     "vision",
			Match:    func(in map[string]any) bool { return strings.HasPrefix(mimeOf(in), "image/") },
			Template: "describe the image",
		},
		Variant{
			Name:     "document",
			Template: "summarize the document",
		},
	)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return r
}

func TestSelect_FirstMatchWins(t *testing.T) {
	r := testRegistry(t)

	v, err := r.Select(map[string]any{"fileType": "image/png"})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if v.Name != "vision" {
		t.Fatalf("variant = %q, want vision", v.Name)
	}

	v, err = r.Select(map[string]any{"fileType": "application/pdf"})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if v.Name != "document" {
		t.Fatalf("variant = %q, want document (PDF must not hit the vision variant)", v.Name)
	}
}

func TestSelect_NoMatch(t *testing.T) {
	r, err := NewRegistry(Variant{
		Name:     "vision",
		Match:    func(in map[string]any) bool { return false },
		Template: "x",
	})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	_, err = r.Select(map[string]any{})
	if !errors.Is(err, ErrNoVariant) {
		t.Fatalf("error = %v, want ErrNoVariant", err)
	}
}

func TestNewRegistry_Rejections(t *testing.T) {
	if _, err := NewRegistry(); err == nil {
		t.Fatal("empty registry accepted")
	}
	if _, err := NewRegistry(Variant{Name: "a", Template: "t"}, Variant{Name: "a", Template: "t"}); err == nil {
		t.Fatal("duplicate variant names accepted")
	}
	if _, err := NewRegistry(Variant{Name: "a"}); err == nil {
		t.Fatal("variant without template accepted")
	}
}
