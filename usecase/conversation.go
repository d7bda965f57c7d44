package usecase

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FairyDevicesRD/ai.chat.kmp/domain"
	"github.com/FairyDevicesRD/ai.chat.kmp/domain/repositories"
)

// ConversationCallback receives intermediate results of a conversation
// turn as each pipeline stage completes.
type ConversationCallback interface {
	OnAsrRecognized(text string)
	OnAiAnswer(text string)
	OnTtsSynthesized(pcm []byte)
}

// ConversationUseCase runs one conversation turn: recognize the recorded
// question, ask the AI agent, then synthesize the reply line by line.
type ConversationUseCase struct {
	recognizer  repositories.SpeechRecognizer
	agent       repositories.AnswerGenerator
	synthesizer repositories.SpeechSynthesizer
	logger      *zap.Logger
}

// NewConversationUseCase creates a new conversation use case.
func NewConversationUseCase(
	recognizer repositories.SpeechRecognizer,
	agent repositories.AnswerGenerator,
	synthesizer repositories.SpeechSynthesizer,
	logger *zap.Logger,
) *ConversationUseCase {
	return &ConversationUseCase{
		recognizer:  recognizer,
		agent:       agent,
		synthesizer: synthesizer,
		logger:      logger,
	}
}

// Execute processes one recorded question (PCM audio plus an optional JPEG
// image) and drives callback as results arrive. It stops at the first
// failing stage, except that individual synthesis failures only skip
// their line.
func (u *ConversationUseCase) Execute(
	ctx context.Context,
	pcm []byte,
	jpeg []byte,
	callback ConversationCallback,
) error {
	logger := u.logger.With(zap.String("turn", uuid.NewString()))

	question, err := u.recognizer.Recognize(ctx, pcm)
	if err != nil {
		return err
	}
	if question == "" {
		return domain.NewEmptyAsrError()
	}
	logger.Debug("speech recognized", zap.String("text", question))
	callback.OnAsrRecognized(question)

	lines, err := u.agent.Question(ctx, question, jpeg)
	if err != nil {
		return err
	}
	logger.Debug("answer generated", zap.Int("lines", len(lines)))
	callback.OnAiAnswer(strings.Join(lines, "\n"))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = StripMarkdown(line)
		if line == "" {
			continue
		}
		audio, err := u.synthesizer.Synthesize(ctx, line)
		if err != nil {
			if domain.IsCancellation(err) {
				return err
			}
			logger.Warn("synthesis failed, skipping line", zap.Error(err))
			continue
		}
		callback.OnTtsSynthesized(audio)
	}
	return nil
}
