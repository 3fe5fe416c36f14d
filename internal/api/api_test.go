package api_test

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/humanproof/humanproof/internal/api"
	"github.com/humanproof/humanproof/internal/api/middleware"
	"github.com/humanproof/humanproof/internal/challenge"
	"github.com/humanproof/humanproof/internal/domain"
	"github.com/humanproof/humanproof/internal/geoip"
	"github.com/humanproof/humanproof/internal/scoring"
	"github.com/humanproof/humanproof/internal/storage/memory"
)

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// testServer wires the API over in-memory storage with the deterministic
// scorer so responses are stable.
type testServer struct {
	handler http.Handler
	store   *memory.Store
	issuer  *challenge.Issuer
	apiKey  string
}

func newTestServer(t *testing.T, opts ...func(*serverConfig)) *testServer {
	t.Helper()

	cfg := &serverConfig{
		rateLimit: 1000,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	store := memory.New()

	issuer, err := challenge.NewIssuer([]byte("test-secret"), challenge.WithClock(cfg.clock))
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}

	geo := geoip.NewStatic(map[string]string{"203.0.113.5": "DE"})
	limiter := middleware.NewRateLimiter(time.Minute, cfg.rateLimit)

	handler := api.NewRouter(store, issuer, scoring.NewDeterministic(), geo, "verify.test", limiter, nil)

	ts := &testServer{
		handler: handler,
		store:   store,
		issuer:  issuer,
		apiKey:  "hp_test_0123456789abcdef",
	}
	ts.seedAPIKey(t, ts.apiKey, true)
	return ts
}

type serverConfig struct {
	rateLimit int
	clock     func() time.Time
}

func withRateLimit(n int) func(*serverConfig) {
	return func(c *serverConfig) { c.rateLimit = n }
}

func withClock(now func() time.Time) func(*serverConfig) {
	return func(c *serverConfig) { c.clock = now }
}

func (ts *testServer) seedAPIKey(t *testing.T, plaintext string, active bool) {
	t.Helper()

	hash := sha256.Sum256([]byte(plaintext))
	err := ts.store.CreateAPIKey(t.Context(), &domain.APIKey{
		ID:          "key-" + plaintext[len(plaintext)-4:],
		UserID:      "user-1",
		Name:        "test",
		KeyHash:     hex.EncodeToString(hash[:]),
		KeyPrefix:   plaintext[:12],
		Environment: domain.EnvironmentTest,
		Active:      active,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		t.Fatalf("seeding API key: %v", err)
	}
}

func (ts *testServer) request(method, path string, body any, apiKey string) *httptest.ResponseRecorder {
	var reqBody io.Reader
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewReader(jsonBytes)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", browserUA)
	if apiKey != "" {
		req.Header.Set(middleware.APIKeyHeader, apiKey)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding response %q: %v", rr.Body.String(), err)
	}
	return out
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	body := decodeBody[map[string]string](t, rr)
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestDocsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/docs", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)
	ts.seedAPIKey(t, "hp_test_inactive0000000", false)

	tests := []struct {
		name     string
		key      string
		wantCode string
		wantMsg  string
	}{
		{"missing key", "", domain.ErrCodeMissingKey, "API key required"},
		{"unknown key", "hp_test_wrong", domain.ErrCodeInvalidKey, "invalid API key"},
		{"inactive key", "hp_test_inactive0000000", domain.ErrCodeKeyInactive, "API key is inactive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.request(http.MethodPost, "/api/v1/challenge", nil, tt.key)
			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rr.Code)
			}
			apiErr := decodeBody[domain.APIError](t, rr)
			if apiErr.Success {
				t.Error("success = true on auth error")
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("error = %q, want %q", apiErr.Code, tt.wantCode)
			}
			if apiErr.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", apiErr.Message, tt.wantMsg)
			}
		})
	}
}

func TestInvalidKeyRecordsSecurityEvent(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/challenge", nil, "hp_test_wrong_key_value")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}

	// Invalid key events have no key row to attach to
	events, err := ts.store.ListRecentSecurityEvents(t.Context(), "", 10)
	if err != nil {
		t.Fatalf("ListRecentSecurityEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d security events, want 1", len(events))
	}
	if events[0].Kind != domain.EventInvalidKey {
		t.Errorf("event kind = %q, want %q", events[0].Kind, domain.EventInvalidKey)
	}
	if !strings.Contains(events[0].Detail, "hp_test_wron") {
		t.Errorf("detail %q missing key prefix", events[0].Detail)
	}
	if strings.Contains(events[0].Detail, "hp_test_wrong_key_value") {
		t.Error("detail leaks the full presented key")
	}
}

func TestChallengeIssue(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/challenge",
		map[string]string{"type": "invisible", "difficulty": "hard"}, ts.apiKey)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	type challengeBody struct {
		Challenge struct {
			Token     string `json:"token"`
			Type      string `json:"type"`
			ExpiresIn int    `json:"expires_in"`
		} `json:"challenge"`
	}
	body := decodeBody[challengeBody](t, rr)
	if body.Challenge.Token == "" {
		t.Fatal("expected a token")
	}
	if body.Challenge.Type != domain.ChallengeTypeInvisible {
		t.Errorf("type = %q, want invisible", body.Challenge.Type)
	}
	if body.Challenge.ExpiresIn != 300 {
		t.Errorf("expires_in = %d, want 300", body.Challenge.ExpiresIn)
	}

	ch, err := ts.issuer.Parse(body.Challenge.Token)
	if err != nil {
		t.Fatalf("issued token does not parse: %v", err)
	}
	if ch.Difficulty != domain.DifficultyHard {
		t.Errorf("difficulty = %q, want hard", ch.Difficulty)
	}
}

func TestChallengeDefaultsOnEmptyBody(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/challenge", nil, ts.apiKey)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
}

func TestVerifyFlow(t *testing.T) {
	ts := newTestServer(t)

	token := ts.issueToken(t)
	rr := ts.request(http.MethodPost, "/api/v1/verify", map[string]string{
		"token":     token,
		"response":  "checkbox",
		"userAgent": browserUA,
		"ipAddress": "203.0.113.5",
	}, ts.apiKey)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	type verifyBody struct {
		Success          bool    `json:"success"`
		Score            float64 `json:"score"`
		Action           string  `json:"action"`
		ChallengeTS      int64   `json:"challenge_ts"`
		Hostname         string  `json:"hostname"`
		VerificationTime int64   `json:"verification_time"`
	}
	body := decodeBody[verifyBody](t, rr)
	if !body.Success {
		t.Error("expected success for a clean browser agent")
	}
	if body.Action != domain.ActionAllow {
		t.Errorf("action = %q, want allow", body.Action)
	}
	if body.Score != 0.7 {
		t.Errorf("score = %v, want 0.7", body.Score)
	}
	if body.Hostname != "verify.test" {
		t.Errorf("hostname = %q, want verify.test", body.Hostname)
	}
	if body.ChallengeTS == 0 {
		t.Error("expected challenge_ts")
	}

	// The outcome lands in the log with the resolved country
	outcomes, err := ts.store.ListOutcomesSince(t.Context(), "key-cdef", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("ListOutcomesSince: %v", err)
	}
	if len(outcomes) != 1 {
		t.Fatalf("got %d outcomes, want 1", len(outcomes))
	}
	if outcomes[0].Country != "DE" {
		t.Errorf("country = %q, want DE", outcomes[0].Country)
	}
	if outcomes[0].Result != domain.ResultSuccess {
		t.Errorf("result = %q, want success", outcomes[0].Result)
	}
}

func TestVerifyBlockedRecordsSecurityEvent(t *testing.T) {
	ts := newTestServer(t)

	token := ts.issueToken(t)
	rr := ts.request(http.MethodPost, "/api/v1/verify", map[string]string{
		"token":     token,
		"userAgent": "bot crawler spider",
	}, ts.apiKey)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	type verifyBody struct {
		Success bool   `json:"success"`
		Action  string `json:"action"`
	}
	body := decodeBody[verifyBody](t, rr)
	if body.Success {
		t.Error("expected failure for scraper agent")
	}
	if body.Action != domain.ActionBlock {
		t.Errorf("action = %q, want block", body.Action)
	}

	events, err := ts.store.ListRecentSecurityEvents(t.Context(), "key-cdef", 10)
	if err != nil {
		t.Fatalf("ListRecentSecurityEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d security events, want 1", len(events))
	}
	if events[0].Kind != domain.EventBlockedRequest {
		t.Errorf("event kind = %q", events[0].Kind)
	}
}

func TestVerifyTokenErrors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name     string
		body     any
		wantCode string
	}{
		{"missing token", map[string]string{"response": "checkbox"}, domain.ErrCodeMissingToken},
		{"malformed token", map[string]string{"token": "garbage"}, domain.ErrCodeTokenMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.request(http.MethodPost, "/api/v1/verify", tt.body, ts.apiKey)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rr.Code)
			}
			apiErr := decodeBody[domain.APIError](t, rr)
			if apiErr.Code != tt.wantCode {
				t.Errorf("error = %q, want %q", apiErr.Code, tt.wantCode)
			}
		})
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	now := time.Now()
	clock := now
	ts := newTestServer(t, withClock(func() time.Time { return clock }))

	token := ts.issueToken(t)
	clock = now.Add(domain.ChallengeTTL + time.Minute)

	rr := ts.request(http.MethodPost, "/api/v1/verify", map[string]string{"token": token}, ts.apiKey)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	apiErr := decodeBody[domain.APIError](t, rr)
	if apiErr.Code != domain.ErrCodeTokenExpired {
		t.Errorf("error = %q, want %q", apiErr.Code, domain.ErrCodeTokenExpired)
	}
}

func TestStatsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	// One verification so the summary is non-empty
	token := ts.issueToken(t)
	ts.request(http.MethodPost, "/api/v1/verify", map[string]string{
		"token":     token,
		"userAgent": browserUA,
	}, ts.apiKey)

	rr := ts.request(http.MethodGet, "/api/v1/stats?period=7d", nil, ts.apiKey)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	type statsBody struct {
		Period             string `json:"period"`
		TotalVerifications int    `json:"total_verifications"`
		SuccessCount       int    `json:"success_count"`
	}
	body := decodeBody[statsBody](t, rr)
	if body.Period != "7d" {
		t.Errorf("period = %q, want 7d", body.Period)
	}
	if body.TotalVerifications != 1 {
		t.Errorf("total = %d, want 1", body.TotalVerifications)
	}
	if body.SuccessCount != 1 {
		t.Errorf("success_count = %d, want 1", body.SuccessCount)
	}
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, withRateLimit(2))

	for i := 0; i < 2; i++ {
		rr := ts.request(http.MethodGet, "/api/v1/stats", nil, ts.apiKey)
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, rr.Code)
		}
	}

	rr := ts.request(http.MethodGet, "/api/v1/stats", nil, ts.apiKey)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rr.Code)
	}
	apiErr := decodeBody[domain.APIError](t, rr)
	if apiErr.Code != domain.ErrCodeRateLimited {
		t.Errorf("error = %q, want %q", apiErr.Code, domain.ErrCodeRateLimited)
	}
}

func (ts *testServer) issueToken(t *testing.T) string {
	t.Helper()

	rr := ts.request(http.MethodPost, "/api/v1/challenge", nil, ts.apiKey)
	if rr.Code != http.StatusOK {
		t.Fatalf("issuing challenge: status %d, body %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Challenge struct {
			Token string `json:"token"`
		} `json:"challenge"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding challenge: %v", err)
	}
	return body.Challenge.Token
}
