package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lingo-hub/lingo-progress-hub/internal/application/command"
	"github.com/lingo-hub/lingo-progress-hub/internal/application/query"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/account"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/badge"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
	"github.com/lingo-hub/lingo-progress-hub/internal/infrastructure/messaging"
	"github.com/lingo-hub/lingo-progress-hub/internal/infrastructure/persistence/memory"
	"github.com/lingo-hub/lingo-progress-hub/pkg/logger"
)

// newTestServer wires a server over the in-memory stores.
func newTestServer(t *testing.T, config Config) (*Server, *memory.AccountRepository) {
	t.Helper()

	accounts := memory.NewAccountRepository()
	awards := memory.NewAwardRepository()
	view := memory.NewRankingView(accounts)
	cache := memory.NewRankingCache()

	evaluator, err := badge.NewEvaluator(badge.DefaultCatalog())
	require.NoError(t, err)

	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{
		Logger: logger.Nop(),
	})
	t.Cleanup(func() { _ = bus.Close() })

	log := logger.Nop()

	deps := Dependencies{
		ApplyCompletionHandler: command.NewApplyCompletionHandler(accounts, awards, evaluator, bus, cache, log),
		CreateAccountHandler:   command.NewCreateAccountHandler(accounts, log),
		GetLeaderboardHandler:  query.NewGetLeaderboardHandler(view),
		GetAccountRankHandler:  query.NewGetAccountRankHandler(view),
		GetSnapshotHandler:     query.NewGetSnapshotHandler(accounts),
		ListBadgesHandler:      query.NewListBadgesHandler(evaluator, awards),
		Logger:                 log,
	}

	return NewServer(config, deps), accounts
}

func testConfig() Config {
	config := DefaultConfig()
	config.EnableMetrics = false
	config.RateLimitPerSecond = 0
	return config
}

func doRequest(srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) JSONResponse {
	t.Helper()

	var resp JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestServer_HealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	for _, path := range []string{"/health", "/healthz", "/live"} {
		rec := doRequest(srv, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestServer_CreateAccountAndCompletion(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := doRequest(srv, http.MethodPost, "/api/v1/accounts", createAccountRequest{
		DisplayName: "Aruzhan",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decodeResponse(t, rec)
	require.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	accountID := data["account_id"].(string)
	require.NotEmpty(t, accountID)

	rec = doRequest(srv, http.MethodPost, "/api/v1/completions", applyCompletionRequest{
		AccountID: accountID,
		Kind:      string(account.CompletionUnit),
		Points:    150,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp = decodeResponse(t, rec)
	result := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(150), result["total_points"])
	assert.Equal(t, float64(2), result["level"])
	assert.Equal(t, true, result["leveled_up"])

	// Snapshot reflects the committed state
	rec = doRequest(srv, http.MethodGet, "/api/v1/accounts/"+accountID+"/snapshot", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Rank is available through the view
	rec = doRequest(srv, http.MethodGet, "/api/v1/accounts/"+accountID+"/rank", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestServer_CompletionValidation(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	t.Run("malformed account id", func(t *testing.T) {
		rec := doRequest(srv, http.MethodPost, "/api/v1/completions", applyCompletionRequest{
			AccountID: "not-a-uuid",
			Kind:      string(account.CompletionUnit),
			Points:    10,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("negative points", func(t *testing.T) {
		rec := doRequest(srv, http.MethodPost, "/api/v1/completions", applyCompletionRequest{
			AccountID: uuid.NewString(),
			Kind:      string(account.CompletionUnit),
			Points:    -5,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown account", func(t *testing.T) {
		rec := doRequest(srv, http.MethodPost, "/api/v1/completions", applyCompletionRequest{
			AccountID: uuid.NewString(),
			Kind:      string(account.CompletionUnit),
			Points:    10,
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown kind", func(t *testing.T) {
		rec := doRequest(srv, http.MethodPost, "/api/v1/completions", applyCompletionRequest{
			AccountID: uuid.NewString(),
			Kind:      "marathon",
			Points:    10,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_Leaderboard(t *testing.T) {
	srv, accounts := newTestServer(t, testConfig())

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		acc, err := account.NewAccount(account.NewAccountParams{
			ID:          shared.AccountID(uuid.NewString()),
			DisplayName: fmt.Sprintf("player-%d", i),
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		require.NoError(t, accounts.Create(context.Background(), acc))
	}

	rec := doRequest(srv, http.MethodGet, "/api/v1/leaderboard?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeResponse(t, rec)
	entries := resp.Data.([]interface{})
	assert.Len(t, entries, 2)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 3, resp.Meta.TotalCount)
	assert.True(t, resp.Meta.HasMore)
}

func TestServer_BadgeCatalog(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := doRequest(srv, http.MethodGet, "/api/v1/badges", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	badges := data["badges"].([]interface{})
	assert.Equal(t, len(badge.DefaultCatalog()), len(badges))
}

func TestServer_APIKeyAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("sekret"), bcrypt.MinCost)
	require.NoError(t, err)

	config := testConfig()
	config.APIKeyHashes = []string{string(hash)}

	srv, _ := newTestServer(t, config)

	body := createAccountRequest{DisplayName: "Dana"}

	t.Run("rejects missing key", func(t *testing.T) {
		rec := doRequest(srv, http.MethodPost, "/api/v1/accounts", body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects wrong key", func(t *testing.T) {
		var buf bytes.Buffer
		_ = json.NewEncoder(&buf).Encode(body)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts", &buf)
		req.Header.Set("X-API-Key", "wrong")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("accepts valid key", func(t *testing.T) {
		var buf bytes.Buffer
		_ = json.NewEncoder(&buf).Encode(body)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts", &buf)
		req.Header.Set("X-API-Key", "sekret")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("read endpoints stay open", func(t *testing.T) {
		rec := doRequest(srv, http.MethodGet, "/api/v1/leaderboard", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestServer_RateLimit(t *testing.T) {
	config := testConfig()
	config.RateLimitPerSecond = 1
	config.RateLimitBurst = 2

	srv, _ := newTestServer(t, config)

	// Burst of 2 passes, third request is throttled.
	for i := 0; i < 2; i++ {
		rec := doRequest(srv, http.MethodGet, "/live", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doRequest(srv, http.MethodGet, "/live", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
