package repositories

import "context"

// Default scopes requested at token issuance: speech recognition and
// synthesis over the HTTP API.
var DefaultScopes = []string{
	"https://apis.mimi.fd.ai/auth/nict-asr/http-api-service",
	"https://apis.mimi.fd.ai/auth/nict-tts/http-api-service",
}

// Credentials identifies the application against the speech backend.
// Supplied once at process start, never renegotiated.
type Credentials struct {
	ApplicationID string
	ClientID      string
	ClientSecret  string
	Scopes        []string
}

// TokenProvider obtains and caches a bearer credential for the speech
// backend, refreshing it on expiry.
type TokenProvider interface {
	// GetOrCreateToken returns a valid access token, issuing a new one
	// when the cached token has expired.
	GetOrCreateToken(ctx context.Context) (string, error)
}
