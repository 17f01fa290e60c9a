package query

import (
	"context"
	"time"

	"github.com/lingo-hub/lingo-progress-hub/internal/domain/ranking"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ACCOUNT RANK QUERY
// Возвращает позицию одного аккаунта в тотальном порядке рейтинга.
// ══════════════════════════════════════════════════════════════════════════════

// GetAccountRankQuery содержит параметры запроса позиции.
type GetAccountRankQuery struct {
	// AccountID - аккаунт, чью позицию запрашивают.
	AccountID string
}

// GetAccountRankResult содержит позицию аккаунта.
type GetAccountRankResult struct {
	// AccountID - идентификатор аккаунта.
	AccountID string `json:"account_id"`

	// DisplayName - отображаемое имя.
	DisplayName string `json:"display_name"`

	// Rank - позиция, начиная с 1.
	Rank int `json:"rank"`

	// Points - очки аккаунта.
	Points int `json:"points"`

	// Level - уровень аккаунта.
	Level int `json:"level"`

	// TotalCount - общее количество участников.
	TotalCount int `json:"total_count"`

	// GeneratedAt - время генерации результата.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetAccountRankHandler обрабатывает запрос позиции.
type GetAccountRankHandler struct {
	view ranking.View
}

// NewGetAccountRankHandler создаёт обработчик запроса позиции.
func NewGetAccountRankHandler(view ranking.View) *GetAccountRankHandler {
	return &GetAccountRankHandler{view: view}
}

// Handle выполняет запрос.
// Возвращает shared.ErrAccountNotRanked для отсутствующего аккаунта.
func (h *GetAccountRankHandler) Handle(ctx context.Context, q GetAccountRankQuery) (*GetAccountRankResult, error) {
	id, err := shared.NewAccountID(q.AccountID)
	if err != nil {
		return nil, err
	}

	entry, err := h.view.GetRank(ctx, id)
	if err != nil {
		return nil, err
	}

	total, err := h.view.TotalCount(ctx)
	if err != nil {
		return nil, err
	}

	return &GetAccountRankResult{
		AccountID:   entry.AccountID.String(),
		DisplayName: entry.DisplayName,
		Rank:        int(entry.Rank),
		Points:      entry.Points,
		Level:       entry.Level,
		TotalCount:  total,
		GeneratedAt: time.Now().UTC(),
	}, nil
}
