package flows

import (
	"studyflow/internal/flow"
	"studyflow/internal/prompt"
	"studyflow/internal/schema"
	"studyflow/internal/variant"
)

const reflectionSystem = `You are a supportive study coach. Review the
student's quiz results and write short, encouraging feedback: name what
went well, explain the misunderstood questions, and suggest what to
review next. Address the student directly.`

const reflectionTemplate = `The student scored {{.score}} out of {{.totalQuestions}}{{if .difficulty}} on a {{.difficulty}} quiz{{end}}{{if .grade}} (grade level {{.grade}}){{end}}.

Question review:
{{range $i, $q := .questions}}{{seq $i}}. {{$q.question}}
   Correct answer: {{$q.correctAnswer}}
   Student answered: {{lookup $.userAnswers $i}} ({{if eqFold (lookup $.userAnswers $i) $q.correctAnswer}}correct{{else}}incorrect{{end}})
{{end}}
Write feedback for the student.`

// AllCorrectFeedback is returned without contacting the backend when
// every answer was already right. Cost optimization, not correctness:
// there is nothing to reflect on.
const AllCorrectFeedback = "Perfect score! You answered every question correctly, so you " +
	"clearly understand this material. Ready to try a harder quiz?"

// ReflectionFlow writes feedback on a completed quiz.
func ReflectionFlow() *flow.Flow {
	return &flow.Flow{
		Name:        "quiz-reflection",
		Description: "Generate feedback on a student's quiz results",
		Input: schema.Object(
			schema.Field{Name: "questions", Shape: &schema.Shape{
				Kind:     schema.TypeArray,
				MinItems: 1,
				Items:    quizQuestionShape(),
			}},
			schema.Field{Name: "userAnswers", Shape: schema.Array(schema.String())},
			schema.Field{Name: "score", Shape: &schema.Shape{Kind: schema.TypeNumber, Min: schema.Bound(0)}},
			schema.Field{Name: "totalQuestions", Shape: schema.IntRange(1, 100)},
			schema.Field{Name: "difficulty", Shape: schema.StringEnum("easy", "medium", "hard"), Optional: true},
			schema.Field{Name: "grade", Shape: schema.String(), Optional: true},
		),
		Output: schema.Object(
			schema.Field{Name: "feedback", Shape: schema.Text(20)},
		),
		PreCheck: reflectionPreCheck,
		Variants: variant.MustRegistry(variant.Variant{
			Name:     "default",
			System:   reflectionSystem,
			Template: reflectionTemplate,
			Helpers:  prompt.StandardHelpers(),
			Config: variant.Config{
				Temperature:  0.8,
				OutputFormat: variant.FormatStructured,
			},
		}),
	}
}

// reflectionPreCheck short-circuits when every answer matches its
// question's correct answer, compared case- and whitespace-insensitively.
// A missing answer counts as incorrect.
func reflectionPreCheck(input map[string]any) (map[string]any, bool) {
	questions, _ := input["questions"].([]any)
	answers, _ := input["userAnswers"].([]any)
	if len(questions) == 0 || len(answers) < len(questions) {
		return nil, false
	}
	for i, raw := range questions {
		q, ok := raw.(map[string]any)
		if !ok {
			return nil, false
		}
		if !prompt.EqFold(answers[i], q["correctAnswer"]) {
			return nil, false
		}
	}
	return map[string]any{"feedback": AllCorrectFeedback}, true
}
