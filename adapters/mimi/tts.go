package mimi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/FairyDevicesRD/ai.chat.kmp/domain"
	"github.com/FairyDevicesRD/ai.chat.kmp/domain/repositories"
)

// Fixed voice parameters: Japanese, raw little-endian PCM, female voice,
// normal rate.
const (
	ttsLanguage    = "ja"
	ttsEngine      = "nict"
	ttsAudioFormat = "raw"
	ttsAudioEndian = "little"
	ttsGender      = "female"
	ttsRate        = "1.0"
)

// TTSService implements repositories.SpeechSynthesizer against the mimi
// NICT TTS HTTP service.
type TTSService struct {
	serviceURL string
	tokens     repositories.TokenProvider
	httpClient *http.Client
	logger     *zap.Logger
}

var _ repositories.SpeechSynthesizer = (*TTSService)(nil)

// NewTTSService creates a new speech synthesizer.
func NewTTSService(config Config, tokens repositories.TokenProvider, logger *zap.Logger) *TTSService {
	config = config.withDefaults()
	return &TTSService{
		serviceURL: config.ServiceURL,
		tokens:     tokens,
		httpClient: newHTTPClient(),
		logger:     logger,
	}
}

// Synthesize converts one line of text into raw PCM audio. A token failure
// surfaces unchanged; any other failure becomes a TTS error, except
// cancellation which propagates as-is.
func (s *TTSService) Synthesize(ctx context.Context, text string) ([]byte, error) {
	token, err := s.tokens.GetOrCreateToken(ctx)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("text", text)
	form.Set("lang", ttsLanguage)
	form.Set("engine", ttsEngine)
	form.Set("audio_format", ttsAudioFormat)
	form.Set("audio_endian", ttsAudioEndian)
	form.Set("gender", ttsGender)
	form.Set("rate", ttsRate)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.serviceURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, domain.NewTtsError(fmt.Errorf("failed to create synthesis request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("x-mimi-process", "nict-tts")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewTtsError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, domain.NewTtsError(fmt.Errorf("tts endpoint returned %d: %s", resp.StatusCode, body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewTtsError(fmt.Errorf("failed to read synthesized audio: %w", err))
	}

	s.logger.Debug("synthesis completed",
		zap.Int("textLength", len(text)),
		zap.Int("audioBytes", len(audio)))
	return audio, nil
}
