package repositories

import "context"

// AnswerGenerator abstracts the generative AI text endpoint.
type AnswerGenerator interface {
	// Question submits the recognized user text, optionally with a JPEG
	// image, and returns the reply split into ordered lines. Empty lines
	// are retained at this stage.
	Question(ctx context.Context, text string, jpeg []byte) ([]string, error)
}
