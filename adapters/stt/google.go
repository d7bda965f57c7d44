// Package stt provides an alternate speech recognizer backed by Google
// Cloud Speech-to-Text, selectable via ASR_ENGINE=google. Authentication
// uses application default credentials instead of the mimi token flow.
package stt

import (
	"context"
	"fmt"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/FairyDevicesRD/ai.chat.kmp/domain"
	"github.com/FairyDevicesRD/ai.chat.kmp/domain/repositories"
)

const defaultLanguage = "ja-JP"

// GoogleRecognizer implements repositories.SpeechRecognizer for Google
// Cloud Speech-to-Text.
type GoogleRecognizer struct {
	language string
	logger   *zap.Logger
}

var _ repositories.SpeechRecognizer = (*GoogleRecognizer)(nil)

// NewGoogleRecognizer creates a new Google Cloud recognizer. An empty
// language falls back to Japanese.
func NewGoogleRecognizer(language string, logger *zap.Logger) *GoogleRecognizer {
	if language == "" {
		language = defaultLanguage
	}
	return &GoogleRecognizer{language: language, logger: logger}
}

// Recognize transcribes PCM audio and returns the first result's best
// alternative. An empty transcript is returned without error so the
// caller can treat it as an empty recognition.
func (g *GoogleRecognizer) Recognize(ctx context.Context, pcm []byte) (string, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return "", domain.NewAsrError(fmt.Errorf("failed to create speech client: %w", err))
	}
	defer client.Close()

	response, err := client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz: repositories.SampleRate,
			LanguageCode:    g.language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: pcm},
		},
	})
	if err != nil {
		return "", domain.NewAsrError(err)
	}

	for _, result := range response.Results {
		if len(result.Alternatives) > 0 {
			transcript := result.Alternatives[0].Transcript
			g.logger.Debug("recognition completed", zap.String("text", transcript))
			return transcript, nil
		}
	}
	return "", nil
}
