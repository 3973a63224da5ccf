package flows

import (
	"fmt"

	"studyflow/internal/flow"
	"studyflow/internal/prompt"
	"studyflow/internal/schema"
	"studyflow/internal/variant"
)

const quizSystem = `You are a quiz author for students. Write clear,
unambiguous questions grounded strictly in the provided study material.
Never invent facts that are not in the material.`

const quizTemplate = `Write {{.questionCount}} quiz questions at {{.difficulty}} difficulty
from the following study material. Mix question types where the material
allows. Every multiple-choice question needs plausible distractors.

Study material:
{{.textbookContent}}`

// quizQuestionShape is shared by quiz generation output and reflection
// input: the engine validates model output and caller input with the
// same contract.
func quizQuestionShape() *schema.Shape {
	return schema.Object(
		schema.Field{Name: "question", Shape: schema.Text(1)},
		schema.Field{Name: "type", Shape: schema.StringEnum("multipleChoice", "trueFalse", "shortAnswer")},
		schema.Field{Name: "options", Shape: schema.Array(schema.Text(1)), Optional: true},
		schema.Field{Name: "correctAnswer", Shape: schema.Text(1)},
		schema.Field{Name: "explanation", Shape: schema.String(), Optional: true},
	)
}

// QuizFlow turns study material into a quiz.
func QuizFlow() *flow.Flow {
	return &flow.Flow{
		Name:        "quiz-generation",
		Description: "Generate a quiz from study material",
		Input: schema.Object(
			schema.Field{Name: "textbookContent", Shape: schema.Text(50)},
			schema.Field{Name: "questionCount", Shape: schema.IntRange(1, 20), Optional: true, Default: float64(5)},
			schema.Field{Name: "difficulty", Shape: schema.StringEnum("easy", "medium", "hard"), Optional: true, Default: "medium"},
		),
		Output: schema.Object(
			schema.Field{Name: "quiz", Shape: &schema.Shape{
				Kind:     schema.TypeArray,
				MinItems: 1,
				Items:    quizQuestionShape(),
			}},
		),
		Check: checkQuizContent,
		Variants: variant.MustRegistry(variant.Variant{
			Name:     "default",
			System:   quizSystem,
			Template: quizTemplate,
			Helpers:  prompt.StandardHelpers(),
			Config: variant.Config{
				Temperature:  0.5,
				OutputFormat: variant.FormatStructured,
			},
		}),
	}
}

// checkQuizContent enforces the cross-field rules the shape alone cannot
// express: multiple-choice questions must carry enough options and the
// correct answer must be one of them.
func checkQuizContent(output map[string]any) error {
	quiz, _ := output["quiz"].([]any)
	for i, raw := range quiz {
		q, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("quiz[%d]: not an object", i)
		}
		if q["type"] != "multipleChoice" {
			continue
		}
		options, _ := q["options"].([]any)
		if len(options) < 2 {
			return fmt.Errorf("quiz[%d]: multiple-choice question needs at least 2 options", i)
		}
		found := false
		for _, opt := range options {
			if prompt.EqFold(opt, q["correctAnswer"]) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("quiz[%d]: correct answer is not among the options", i)
		}
	}
	return nil
}
