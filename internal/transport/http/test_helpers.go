package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dmchat/dmchat-server/internal/auth"
	"github.com/dmchat/dmchat-server/internal/config"
	"github.com/dmchat/dmchat-server/internal/core"
	"github.com/dmchat/dmchat-server/internal/store"
	"github.com/dmchat/dmchat-server/internal/store/sqlite"
)

// createTestStore creates an in-memory SQLite store with the schema applied.
func createTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	return st
}

// createTestAuthService creates an auth service for testing.
func createTestAuthService(t *testing.T, st store.Store, jwtSecret string) *auth.Service {
	t.Helper()

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(jwtSecret),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}

	return auth.NewService(st, jwtConfig)
}

// startTestServer wires a full server over an in-memory store.
func startTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	st := createTestStore(t)
	authService := createTestAuthService(t, st, "test-secret")

	nop := zerolog.Nop()
	presence := core.NewPresence()
	router := core.NewRouter(presence, st, st, &nop)

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second

	server := NewServer(router, presence, authService, st, &cfg, &nop)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return ts
}

// registerUser registers a user via the REST API and returns the token.
func registerUser(t *testing.T, ts *httptest.Server, username, password string) string {
	t.Helper()

	body, _ := json.Marshal(RegisterRequest{Username: username, Password: password})
	resp, err := ts.Client().Post(ts.URL+"/api/register", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("register request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: unexpected status %d", username, resp.StatusCode)
	}

	var authResp AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	if authResp.Token == "" {
		t.Fatalf("register %s: empty token", username)
	}

	return authResp.Token
}
