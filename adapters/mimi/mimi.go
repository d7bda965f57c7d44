// Package mimi talks to the mimi(R) cloud: token issuance, NICT speech
// recognition and NICT speech synthesis over the HTTP API.
package mimi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/FairyDevicesRD/ai.chat.kmp/domain/repositories"
)

const (
	defaultAuthURL    = "https://auth.mimi.fd.ai/v2/token"
	defaultServiceURL = "https://service.mimi.fd.ai"

	grantType = "https://auth.mimi.fd.ai/grant_type/client_credentials"

	// Content type of the PCM payload sent to the recognizer.
	pcmContentType = "audio/x-pcm;bit=16;rate=16000;channels=1"
)

// Config holds the connection settings shared by the mimi adapters.
// AuthURL and ServiceURL default to the public cloud endpoints.
type Config struct {
	AuthURL     string
	ServiceURL  string
	Credentials repositories.Credentials
}

// ValidateConfig checks that the credentials required for token issuance
// are present.
func ValidateConfig(config Config) error {
	if config.Credentials.ApplicationID == "" {
		return fmt.Errorf("mimi application id is required")
	}
	if config.Credentials.ClientID == "" {
		return fmt.Errorf("mimi client id is required")
	}
	if config.Credentials.ClientSecret == "" {
		return fmt.Errorf("mimi client secret is required")
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.AuthURL == "" {
		c.AuthURL = defaultAuthURL
	}
	if c.ServiceURL == "" {
		c.ServiceURL = defaultServiceURL
	}
	if len(c.Credentials.Scopes) == 0 {
		c.Credentials.Scopes = repositories.DefaultScopes
	}
	return c
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}
