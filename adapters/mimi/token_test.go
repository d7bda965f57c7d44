package mimi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/FairyDevicesRD/ai.chat.kmp/domain"
	"github.com/FairyDevicesRD/ai.chat.kmp/domain/repositories"
)

type fixedClock struct {
	epoch int64
}

func (c *fixedClock) Now() time.Time { return time.Unix(c.epoch, 0) }

func testConfig(authURL string) Config {
	return Config{
		AuthURL: authURL,
		Credentials: repositories.Credentials{
			ApplicationID: "app",
			ClientID:      "client",
			ClientSecret:  "secret",
		},
	}
}

func TestTokenServiceRequiresCredentials(t *testing.T) {
	_, err := NewTokenService(Config{}, &fixedClock{}, zaptest.NewLogger(t))
	if err == nil {
		t.Error("Expected error when credentials are missing")
	}
}

func TestTokenServiceIssuesAndCaches(t *testing.T) {
	issued := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("Failed to parse form: %v", err)
		}
		if got := r.PostForm.Get("client_id"); got != "app:client" {
			t.Errorf("Expected composed client id app:client, got %q", got)
		}
		if got := r.PostForm.Get("grant_type"); got != grantType {
			t.Errorf("Unexpected grant type %q", got)
		}
		issued++
		fmt.Fprintf(w, `{"accessToken":"token-%d","startTimestamp":100,"expiresIn":50}`, issued)
	}))
	defer server.Close()

	clock := &fixedClock{epoch: 100}
	service, err := NewTokenService(testConfig(server.URL), clock, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create token service: %v", err)
	}

	token, err := service.GetOrCreateToken(context.Background())
	if err != nil {
		t.Fatalf("First issuance failed: %v", err)
	}
	if token != "token-1" {
		t.Errorf("Expected token-1, got %q", token)
	}

	// issuedAt=100, ttl=50: still valid at now=140, no network call.
	clock.epoch = 140
	token, err = service.GetOrCreateToken(context.Background())
	if err != nil {
		t.Fatalf("Cache hit failed: %v", err)
	}
	if token != "token-1" {
		t.Errorf("Expected cached token-1, got %q", token)
	}
	if issued != 1 {
		t.Errorf("Expected exactly one issuance, got %d", issued)
	}

	// Expired at now=151: re-issuance.
	clock.epoch = 151
	token, err = service.GetOrCreateToken(context.Background())
	if err != nil {
		t.Fatalf("Re-issuance failed: %v", err)
	}
	if token != "token-2" {
		t.Errorf("Expected fresh token-2, got %q", token)
	}
	if issued != 2 {
		t.Errorf("Expected two issuances, got %d", issued)
	}
}

func TestTokenServiceFailureKeepsCacheUntouched(t *testing.T) {
	fail := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"accessToken":"token-1","startTimestamp":100,"expiresIn":50}`)
	}))
	defer server.Close()

	clock := &fixedClock{epoch: 100}
	service, err := NewTokenService(testConfig(server.URL), clock, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create token service: %v", err)
	}

	if _, err := service.GetOrCreateToken(context.Background()); err != nil {
		t.Fatalf("Initial issuance failed: %v", err)
	}

	clock.epoch = 200 // expired
	fail = true
	_, err = service.GetOrCreateToken(context.Background())
	if domain.KindOf(err) != domain.KindToken {
		t.Fatalf("Expected token error, got %v", err)
	}

	// The stale cache was not replaced: recovery issues a fresh token.
	fail = false
	token, err := service.GetOrCreateToken(context.Background())
	if err != nil {
		t.Fatalf("Recovery issuance failed: %v", err)
	}
	if token != "token-1" {
		t.Errorf("Expected token-1 after recovery, got %q", token)
	}
}
