package mimi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/FairyDevicesRD/ai.chat.kmp/domain"
	"github.com/FairyDevicesRD/ai.chat.kmp/domain/repositories"
)

// issuedToken is one issuance result. The cache slot is replaced wholesale
// on refresh, never mutated.
type issuedToken struct {
	AccessToken    string `json:"accessToken"`
	StartTimestamp int64  `json:"startTimestamp"`
	ExpiresIn      int64  `json:"expiresIn"`
}

func (t *issuedToken) validAt(now int64) bool {
	return t.StartTimestamp+t.ExpiresIn > now
}

// TokenService implements repositories.TokenProvider against the mimi
// token issuance endpoint with a single-slot cache.
//
// The mutex only guards the cache slot. The network call runs outside the
// lock, so concurrent callers during a refresh may both hit the endpoint.
// Issuance is idempotent and the duplicate is tolerated.
type TokenService struct {
	authURL     string
	credentials repositories.Credentials
	httpClient  *http.Client
	clock       repositories.Clock
	logger      *zap.Logger

	mu    sync.Mutex
	cache *issuedToken
}

var _ repositories.TokenProvider = (*TokenService)(nil)

// NewTokenService creates a new token service.
func NewTokenService(config Config, clock repositories.Clock, logger *zap.Logger) (*TokenService, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}
	config = config.withDefaults()

	return &TokenService{
		authURL:     config.AuthURL,
		credentials: config.Credentials,
		httpClient:  newHTTPClient(),
		clock:       clock,
		logger:      logger,
	}, nil
}

// GetOrCreateToken returns the cached access token while it is still
// valid, otherwise issues a new one and replaces the cache. The cache is
// left untouched when issuance fails.
func (s *TokenService) GetOrCreateToken(ctx context.Context) (string, error) {
	if token, ok := s.cachedToken(); ok {
		s.logger.Debug("token cache hit")
		return token, nil
	}

	issued, err := s.issue(ctx)
	if err != nil {
		return "", domain.NewTokenError(err)
	}

	s.mu.Lock()
	s.cache = issued
	s.mu.Unlock()

	s.logger.Info("access token issued", zap.Int64("expiresIn", issued.ExpiresIn))
	return issued.AccessToken, nil
}

func (s *TokenService) cachedToken() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache != nil && s.cache.validAt(s.clock.Now().Unix()) {
		return s.cache.AccessToken, true
	}
	return "", false
}

func (s *TokenService) issue(ctx context.Context) (*issuedToken, error) {
	form := url.Values{}
	form.Set("grant_type", grantType)
	form.Set("client_id", s.credentials.ApplicationID+":"+s.credentials.ClientID)
	form.Set("client_secret", s.credentials.ClientSecret)
	form.Set("scope", strings.Join(s.credentials.Scopes, " "))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call token endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, body)
	}

	var issued issuedToken
	if err := json.NewDecoder(resp.Body).Decode(&issued); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if issued.AccessToken == "" {
		return nil, fmt.Errorf("token response carries no access token")
	}
	return &issued, nil
}
