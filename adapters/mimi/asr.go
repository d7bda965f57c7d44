package mimi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/FairyDevicesRD/ai.chat.kmp/domain"
	"github.com/FairyDevicesRD/ai.chat.kmp/domain/repositories"
)

// asrResponse mirrors the NICT ASR result envelope. Only the first
// result's text is used.
type asrResponse struct {
	Response []struct {
		Result string `json:"result"`
	} `json:"response"`
}

// ASRService implements repositories.SpeechRecognizer against the mimi
// NICT ASR HTTP service.
type ASRService struct {
	serviceURL string
	tokens     repositories.TokenProvider
	httpClient *http.Client
	logger     *zap.Logger
}

var _ repositories.SpeechRecognizer = (*ASRService)(nil)

// NewASRService creates a new speech recognizer.
func NewASRService(config Config, tokens repositories.TokenProvider, logger *zap.Logger) *ASRService {
	config = config.withDefaults()
	return &ASRService{
		serviceURL: config.ServiceURL,
		tokens:     tokens,
		httpClient: newHTTPClient(),
		logger:     logger,
	}
}

// Recognize submits PCM audio and returns the first transcription result.
// A token failure surfaces unchanged; any other failure becomes an ASR
// error, except cancellation which propagates as-is.
func (s *ASRService) Recognize(ctx context.Context, pcm []byte) (string, error) {
	token, err := s.tokens.GetOrCreateToken(ctx)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.serviceURL, bytes.NewReader(pcm))
	if err != nil {
		return "", domain.NewAsrError(fmt.Errorf("failed to create recognition request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", pcmContentType)
	req.Header.Set("x-mimi-process", "nict-asr")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", domain.NewAsrError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", domain.NewAsrError(fmt.Errorf("asr endpoint returned %d: %s", resp.StatusCode, body))
	}

	var parsed asrResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", domain.NewAsrError(fmt.Errorf("failed to decode recognition response: %w", err))
	}
	if len(parsed.Response) == 0 {
		return "", domain.NewAsrError(fmt.Errorf("recognition response carries no result"))
	}

	s.logger.Debug("recognition completed",
		zap.Int("audioBytes", len(pcm)),
		zap.String("text", parsed.Response[0].Result))
	return parsed.Response[0].Result, nil
}
