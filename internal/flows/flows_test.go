package flows

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"studyflow/internal/backend"
	"studyflow/internal/flow"
	"studyflow/internal/taxonomy"
)

type scriptedClient struct {
	calls    atomic.Int32
	lastReq  *backend.Request
	response string
	err      error
}

func (c *scriptedClient) Generate(ctx context.Context, req *backend.Request) (string, error) {
	c.calls.Add(1)
	c.lastReq = req
	if c.err != nil {
		return "", c.err
	}
	return c.response, nil
}

func newEngine(t *testing.T, client backend.Client) *flow.Engine {
	t.Helper()
	e := flow.New(client)
	if err := Register(e); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return e
}

func pdfDataURI(content string) string {
	return "data:application/pdf;base64," + base64.StdEncoding.EncodeToString([]byte(content))
}

func TestRegister_AllFlows(t *testing.T) {
	e := newEngine(t, &scriptedClient{})
	want := []string{
		"tutor-reply",
		"quiz-generation",
		"quiz-reflection",
		"document-explanation",
		"document-summarization",
		"document-search",
	}
	if diff := cmp.Diff(want, e.Flows()); diff != "" {
		t.Fatalf("registered flows mismatch (-want +got):\n%s", diff)
	}
}

func TestTutorFlow_RenderedPrompt(t *testing.T) {
	client := &scriptedClient{response: `{"response":"Chlorophyll absorbs light."}`}
	e := newEngine(t, client)

	out, err := e.Run(context.Background(), "tutor-reply", map[string]any{
		"history": []any{
			map[string]any{"role": "User", "content": "  What is photosynthesis?  "},
			map[string]any{"role": "assistant", "content": "Good question!"},
		},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out["response"] != "Chlorophyll absorbs light." {
		t.Fatalf("response = %v", out["response"])
	}
	// Roles are canonicalized and content trimmed before rendering.
	if !strings.Contains(client.lastReq.Text, "User: What is photosynthesis?") {
		t.Fatalf("prompt missing normalized student line:\n%s", client.lastReq.Text)
	}
	if !strings.Contains(client.lastReq.Text, "Tutor: Good question!") {
		t.Fatalf("prompt missing tutor line:\n%s", client.lastReq.Text)
	}
}

func TestQuizFlow_CountBoundFailsBeforeRendering(t *testing.T) {
	client := &scriptedClient{}
	e := newEngine(t, client)

	_, err := e.Run(context.Background(), "quiz-generation", map[string]any{
		"textbookContent": strings.Repeat("Mitochondria are the powerhouse of the cell. ", 3),
		"questionCount":   float64(25),
	})
	var terr *taxonomy.Error
	if !errors.As(err, &terr) || terr.Category != taxonomy.ValidationFailure {
		t.Fatalf("error = %v, want validation_failure", err)
	}
	if client.calls.Load() != 0 {
		t.Fatal("backend reached despite invalid questionCount")
	}
}

func TestQuizFlow_DefaultsApplied(t *testing.T) {
	client := &scriptedClient{response: `{"quiz":[{"question":"Is water wet?","type":"trueFalse","correctAnswer":"true"}]}`}
	e := newEngine(t, client)

	out, err := e.Run(context.Background(), "quiz-generation", map[string]any{
		"textbookContent": strings.Repeat("Water covers most of the planet's surface. ", 3),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(client.lastReq.Text, "5 quiz questions") {
		t.Fatalf("default questionCount not rendered:\n%s", client.lastReq.Text)
	}
	if !strings.Contains(client.lastReq.Text, "medium difficulty") {
		t.Fatalf("default difficulty not rendered:\n%s", client.lastReq.Text)
	}
	quiz := out["quiz"].([]any)
	if len(quiz) != 1 {
		t.Fatalf("quiz length = %d", len(quiz))
	}
}

func TestQuizFlow_RejectsInconsistentMultipleChoice(t *testing.T) {
	client := &scriptedClient{response: `{"quiz":[{"question":"Pick one","type":"multipleChoice","options":["a","b"],"correctAnswer":"z"}]}`}
	e := newEngine(t, client)

	_, err := e.Run(context.Background(), "quiz-generation", map[string]any{
		"textbookContent": strings.Repeat("Photosynthesis happens in chloroplasts. ", 3),
	})
	var terr *taxonomy.Error
	if !errors.As(err, &terr) || terr.Category != taxonomy.OutputMalformed {
		t.Fatalf("error = %v, want output_malformed", err)
	}
}

func reflectionInput(answers []any) map[string]any {
	return map[string]any{
		"questions": []any{
			map[string]any{"question": "Capital of France?", "type": "shortAnswer", "correctAnswer": "Paris"},
			map[string]any{"question": "2+2?", "type": "shortAnswer", "correctAnswer": "4"},
		},
		"userAnswers":    answers,
		"score":          float64(len(answers)),
		"totalQuestions": float64(2),
	}
}

func TestReflectionFlow_AllCorrectShortCircuit(t *testing.T) {
	client := &scriptedClient{}
	e := newEngine(t, client)

	out, err := e.Run(context.Background(), "quiz-reflection", reflectionInput([]any{" paris ", "4"}))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out["feedback"] != AllCorrectFeedback {
		t.Fatalf("feedback = %v, want canned message", out["feedback"])
	}
	if client.calls.Load() != 0 {
		t.Fatalf("backend invoked %d times for an all-correct quiz", client.calls.Load())
	}
}

func TestReflectionFlow_WrongAnswerRendersReview(t *testing.T) {
	client := &scriptedClient{response: `{"feedback":"You mixed up the capital cities; review European geography."}`}
	e := newEngine(t, client)

	input := reflectionInput([]any{"London"})
	input["score"] = float64(0)
	_, err := e.Run(context.Background(), "quiz-reflection", input)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if client.calls.Load() != 1 {
		t.Fatal("backend not invoked for an imperfect quiz")
	}
	if !strings.Contains(client.lastReq.Text, "Student answered: London (incorrect)") {
		t.Fatalf("prompt missing incorrect marking:\n%s", client.lastReq.Text)
	}
	// The second question was never answered: sentinel, not a crash.
	if !strings.Contains(client.lastReq.Text, "Student answered: Not answered") {
		t.Fatalf("prompt missing unanswered sentinel:\n%s", client.lastReq.Text)
	}
}

func TestSummarizeFlow_VariantDispatch(t *testing.T) {
	f := SummarizeFlow()

	v, err := f.Variants.Select(map[string]any{"fileType": "application/pdf"})
	if err != nil {
		t.Fatalf("Select(pdf) error = %v", err)
	}
	if v.Name != "document" {
		t.Fatalf("PDF selected %q, want document variant", v.Name)
	}

	v, err = f.Variants.Select(map[string]any{"fileType": "image/png"})
	if err != nil {
		t.Fatalf("Select(png) error = %v", err)
	}
	if v.Name != "vision" {
		t.Fatalf("PNG selected %q, want vision variant", v.Name)
	}
}

func TestSummarizeFlow_AttachesMedia(t *testing.T) {
	longPart := strings.Repeat("This chapter describes the water cycle in detail. ", 4)
	client := &scriptedClient{response: `{"textSummary":"` + longPart + `","audioSummary":"` + longPart + `","mindMap":"Water cycle -> evaporation -> condensation"}`}
	e := newEngine(t, client)

	out, err := e.Run(context.Background(), "document-summarization", map[string]any{
		"fileDataUri": pdfDataURI("fake pdf bytes"),
		"fileType":    "application/pdf",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(client.lastReq.Media) != 1 || client.lastReq.Media[0].MIME != "application/pdf" {
		t.Fatalf("media = %+v, want one PDF part", client.lastReq.Media)
	}
	if out["mindMap"] == "" {
		t.Fatal("mindMap missing from output")
	}
}

func TestSummarizeFlow_AcceptsUnpaddedDataURI(t *testing.T) {
	longPart := strings.Repeat("This chapter describes the water cycle in detail. ", 4)
	client := &scriptedClient{response: `{"textSummary":"` + longPart + `","audioSummary":"` + longPart + `","mindMap":"Water cycle -> evaporation -> condensation"}`}
	e := newEngine(t, client)

	_, err := e.Run(context.Background(), "document-summarization", map[string]any{
		"fileDataUri": "data:application/pdf;base64,AAA",
		"fileType":    "application/pdf",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(client.lastReq.Media) != 1 || client.lastReq.Media[0].MIME != "application/pdf" {
		t.Fatalf("media = %+v, want one PDF part", client.lastReq.Media)
	}
}

func TestSummarizeFlow_RejectsDisallowedType(t *testing.T) {
	e := newEngine(t, &scriptedClient{})
	_, err := e.Run(context.Background(), "document-summarization", map[string]any{
		"fileDataUri": "data:video/mp4;base64,AAAA",
		"fileType":    "video/mp4",
	})
	var terr *taxonomy.Error
	if !errors.As(err, &terr) || terr.Category != taxonomy.ValidationFailure {
		t.Fatalf("error = %v, want validation_failure", err)
	}
}

func TestExplainFlow_PartialOutputRejected(t *testing.T) {
	long := strings.Repeat("The document explains cell division step by step. ", 4)
	client := &scriptedClient{response: `{"textExplanation":"` + long + `","audioExplanationScript":"` + long + `"}`}
	e := newEngine(t, client)

	_, err := e.Run(context.Background(), "document-explanation", map[string]any{
		"fileDataUri": pdfDataURI("fake pdf bytes"),
	})
	var terr *taxonomy.Error
	if !errors.As(err, &terr) || terr.Category != taxonomy.OutputMalformed {
		t.Fatalf("error = %v, want output_malformed for missing mind map", err)
	}
}

func TestSearchFlow_NotFoundIsSuccess(t *testing.T) {
	client := &scriptedClient{response: `{"status":"not_found","results":[]}`}
	e := newEngine(t, client)

	out, err := e.Run(context.Background(), "document-search", map[string]any{
		"fileDataUri": pdfDataURI("fake pdf bytes"),
		"question":    "What is the boiling point of water?",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out["status"] != "not_found" {
		t.Fatalf("status = %v", out["status"])
	}
	if results := out["results"].([]any); len(results) != 0 {
		t.Fatalf("results = %v, want empty", results)
	}
}

func TestSearchFlow_InconsistentStatusRejected(t *testing.T) {
	client := &scriptedClient{response: `{"status":"success","results":[]}`}
	e := newEngine(t, client)

	_, err := e.Run(context.Background(), "document-search", map[string]any{
		"fileDataUri": pdfDataURI("fake pdf bytes"),
		"question":    "What is covered in chapter two?",
	})
	var terr *taxonomy.Error
	if !errors.As(err, &terr) || terr.Category != taxonomy.OutputMalformed {
		t.Fatalf("error = %v, want output_malformed", err)
	}
}

func TestSearchFlow_ShortQuestionRejected(t *testing.T) {
	e := newEngine(t, &scriptedClient{})
	_, err := e.Run(context.Background(), "document-search", map[string]any{
		"fileDataUri": pdfDataURI("fake pdf bytes"),
		"question":    "why",
	})
	var terr *taxonomy.Error
	if !errors.As(err, &terr) || terr.Category != taxonomy.ValidationFailure {
		t.Fatalf("error = %v, want validation_failure", err)
	}
}
