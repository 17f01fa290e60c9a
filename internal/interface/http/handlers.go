// Package http implements the REST API for Lingo Progress Hub.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/lingo-hub/lingo-progress-hub/internal/application/command"
	"github.com/lingo-hub/lingo-progress-hub/internal/application/query"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/account"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
	"github.com/lingo-hub/lingo-progress-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "Lingo Progress Hub API",
		"version":     "v1",
		"description": "Progression and ranking engine for language course completions",
		"endpoints": map[string]string{
			"health":      "/health",
			"leaderboard": "/api/v1/leaderboard",
			"badges":      "/api/v1/badges",
			"completions": "/api/v1/completions",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": "v1",
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// ACCOUNT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// createAccountRequest is the payload for POST /api/v1/accounts.
type createAccountRequest struct {
	AccountID   string `json:"account_id,omitempty"`
	DisplayName string `json:"display_name"`
}

// handleCreateAccount handles POST /api/v1/accounts.
func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	if s.deps.CreateAccountHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Account handler not configured")
		return
	}

	var req createAccountRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	result, err := s.deps.CreateAccountHandler.Handle(r.Context(), command.CreateAccountCommand{
		AccountID:   req.AccountID,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusCreated, result, nil)
}

// handleGetSnapshot handles GET /api/v1/accounts/{id}/snapshot.
func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetSnapshotHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Snapshot handler not configured")
		return
	}

	result, err := s.deps.GetSnapshotHandler.Handle(r.Context(), query.GetSnapshotQuery{
		AccountID: mux.Vars(r)["id"],
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, nil)
}

// handleGetAccountRank handles GET /api/v1/accounts/{id}/rank.
func (s *Server) handleGetAccountRank(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetAccountRankHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Rank handler not configured")
		return
	}

	result, err := s.deps.GetAccountRankHandler.Handle(r.Context(), query.GetAccountRankQuery{
		AccountID: mux.Vars(r)["id"],
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, nil)
}

// handleGetAccountBadges handles GET /api/v1/accounts/{id}/badges.
func (s *Server) handleGetAccountBadges(w http.ResponseWriter, r *http.Request) {
	s.listBadges(w, r, mux.Vars(r)["id"])
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// applyCompletionRequest is the payload for POST /api/v1/completions.
type applyCompletionRequest struct {
	AccountID  string     `json:"account_id"`
	Kind       string     `json:"kind"`
	Points     int        `json:"points"`
	Perfect    bool       `json:"perfect,omitempty"`
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
}

// handleApplyCompletion handles POST /api/v1/completions.
// This is the single write path into the progression ledger.
func (s *Server) handleApplyCompletion(w http.ResponseWriter, r *http.Request) {
	if s.deps.ApplyCompletionHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Completion handler not configured")
		return
	}

	var req applyCompletionRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	accountID, err := shared.NewAccountID(req.AccountID)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_account_id", err.Error())
		return
	}

	cmd := command.ApplyCompletionCommand{
		AccountID:     accountID,
		Kind:          account.CompletionKind(req.Kind),
		Points:        req.Points,
		Perfect:       req.Perfect,
		CorrelationID: getRequestID(r.Context()),
	}
	if req.OccurredAt != nil {
		cmd.OccurredAt = *req.OccurredAt
	}

	result, err := s.deps.ApplyCompletionHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, nil)
}

// ══════════════════════════════════════════════════════════════════════════════
// RANKING & BADGE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetLeaderboard handles GET /api/v1/leaderboard.
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetLeaderboardHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Leaderboard handler not configured")
		return
	}

	q := query.GetLeaderboardQuery{
		Limit:  getQueryParamInt(r, "limit", shared.DefaultPageSize),
		Offset: getQueryParamInt(r, "offset", 0),
	}

	result, err := s.deps.GetLeaderboardHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	meta := &ResponseMeta{
		TotalCount: result.TotalCount,
		Offset:     result.Offset,
		Limit:      result.Limit,
		HasMore:    result.HasMore,
	}
	writeJSONWithMeta(w, r, http.StatusOK, result.Entries, meta)
}

// handleListBadges handles GET /api/v1/badges.
// An optional account_id query parameter overlays earned status.
func (s *Server) handleListBadges(w http.ResponseWriter, r *http.Request) {
	s.listBadges(w, r, r.URL.Query().Get("account_id"))
}

func (s *Server) listBadges(w http.ResponseWriter, r *http.Request, accountID string) {
	if s.deps.ListBadgesHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Badge handler not configured")
		return
	}

	result, err := s.deps.ListBadgesHandler.Handle(r.Context(), query.ListBadgesQuery{
		AccountID: accountID,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, nil)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeDomainError maps domain errors to HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, shared.ErrAccountNotFound),
		errors.Is(err, shared.ErrAccountNotRanked),
		errors.Is(err, shared.ErrBadgeNotFound):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())

	case errors.Is(err, shared.ErrAccountAlreadyExists):
		writeJSONError(w, http.StatusConflict, "already_exists", err.Error())

	// Transient: the client should retry with backoff.
	case errors.Is(err, shared.ErrContention):
		w.Header().Set("Retry-After", "1")
		writeJSONError(w, http.StatusServiceUnavailable, "contention", "Account is under heavy write contention, retry later")

	case errors.Is(err, shared.ErrTimeout):
		writeJSONError(w, http.StatusGatewayTimeout, "timeout", "Operation did not complete in time")

	case errors.Is(err, shared.ErrInvalidID),
		errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrNegativeValue),
		errors.Is(err, shared.ErrValidation):
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())

	case errors.Is(err, shared.ErrStoreUnavailable):
		writeJSONError(w, http.StatusServiceUnavailable, "store_unavailable", "Backing store is unavailable")

	default:
		s.logger.Error("unhandled request error",
			logger.Err(err),
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// decodeJSONBody decodes a JSON request body with a size cap.
func decodeJSONBody(r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(nil, r.Body, 1<<20)
	defer func() {
		_, _ = io.Copy(io.Discard, body)
	}()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
