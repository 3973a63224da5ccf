// Package flows declares the six study flows and registers them with the
// engine: tutor replies, quiz generation, quiz reflection, document
// explanation, document summarization, and in-document search.
package flows

import (
	"strings"

	"studyflow/internal/flow"
)

// MIME types accepted by the document flows.
var documentMIMETypes = []string{
	"application/pdf",
	"text/plain",
	"image/png",
	"image/jpeg",
	"image/webp",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// Register adds every flow to the engine. Called once at startup.
func Register(e *flow.Engine) error {
	for _, f := range []*flow.Flow{
		TutorFlow(),
		QuizFlow(),
		ReflectionFlow(),
		ExplainFlow(),
		SummarizeFlow(),
		SearchFlow(),
	} {
		if err := e.Register(f); err != nil {
			return err
		}
	}
	return nil
}

func isImageMIME(mime string) bool {
	return strings.HasPrefix(mime, "image/")
}
