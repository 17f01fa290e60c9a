// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"time"

	"github.com/lingo-hub/lingo-progress-hub/internal/domain/ranking"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Возвращает страницу рейтинга в каноническом порядке:
// очки по убыванию, при равенстве выше более старый аккаунт.
// ══════════════════════════════════════════════════════════════════════════════

// GetLeaderboardQuery содержит параметры запроса рейтинга.
type GetLeaderboardQuery struct {
	// Limit - количество записей (по умолчанию 20, максимум 100).
	Limit int

	// Offset - смещение для пагинации.
	Offset int
}

// LeaderboardEntryDTO - DTO для строки рейтинга.
type LeaderboardEntryDTO struct {
	// Rank - позиция в рейтинге (начиная с 1).
	Rank int `json:"rank"`

	// AccountID - идентификатор аккаунта.
	AccountID string `json:"account_id"`

	// DisplayName - отображаемое имя.
	DisplayName string `json:"display_name"`

	// Points - очки аккаунта.
	Points int `json:"points"`

	// Level - уровень аккаунта.
	Level int `json:"level"`

	// Streak - текущая серия.
	Streak int `json:"streak"`
}

// GetLeaderboardResult содержит результат запроса рейтинга.
type GetLeaderboardResult struct {
	// Entries - строки рейтинга.
	Entries []LeaderboardEntryDTO `json:"entries"`

	// TotalCount - общее количество участников.
	TotalCount int `json:"total_count"`

	// Offset - применённое смещение.
	Offset int `json:"offset"`

	// Limit - применённый размер страницы.
	Limit int `json:"limit"`

	// HasMore - есть ли записи за этой страницей.
	HasMore bool `json:"has_more"`

	// GeneratedAt - время генерации результата.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetLeaderboardHandler обрабатывает запрос рейтинга.
type GetLeaderboardHandler struct {
	view ranking.View
}

// NewGetLeaderboardHandler создаёт обработчик запроса рейтинга.
func NewGetLeaderboardHandler(view ranking.View) *GetLeaderboardHandler {
	return &GetLeaderboardHandler{view: view}
}

// Handle выполняет запрос.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	p := shared.Pagination{Offset: q.Offset, Limit: q.Limit}.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	page, err := h.view.GetPage(ctx, p)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntryDTO, 0, len(page.Entries))
	for _, e := range page.Entries {
		entries = append(entries, LeaderboardEntryDTO{
			Rank:        int(e.Rank),
			AccountID:   e.AccountID.String(),
			DisplayName: e.DisplayName,
			Points:      e.Points,
			Level:       e.Level,
			Streak:      e.Streak,
		})
	}

	return &GetLeaderboardResult{
		Entries:     entries,
		TotalCount:  page.Total,
		Offset:      page.Offset,
		Limit:       page.Limit,
		HasMore:     page.HasMore(),
		GeneratedAt: time.Now().UTC(),
	}, nil
}
