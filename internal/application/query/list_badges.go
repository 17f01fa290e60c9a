package query

import (
	"context"
	"time"

	"github.com/lingo-hub/lingo-progress-hub/internal/domain/badge"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST BADGES QUERY
// Каталог бейджей с отметкой, какие из них уже выданы аккаунту.
// ══════════════════════════════════════════════════════════════════════════════

// ListBadgesQuery содержит параметры запроса бейджей.
type ListBadgesQuery struct {
	// AccountID - аккаунт, чьи выдачи накладываются на каталог.
	// Пустая строка - вернуть каталог без выдач.
	AccountID string
}

// BadgeDTO - бейдж каталога со статусом выдачи.
type BadgeDTO struct {
	// ID - идентификатор бейджа.
	ID string `json:"id"`

	// Name - название.
	Name string `json:"name"`

	// Description - описание условия.
	Description string `json:"description"`

	// CriterionType - поле статистики критерия.
	CriterionType string `json:"criterion_type"`

	// Threshold - порог критерия.
	Threshold int `json:"threshold"`

	// Earned - выдан ли бейдж аккаунту.
	Earned bool `json:"earned"`

	// EarnedAt - время выдачи (если выдан).
	EarnedAt *time.Time `json:"earned_at,omitempty"`
}

// ListBadgesResult содержит каталог с выдачами.
type ListBadgesResult struct {
	// Badges - бейджи в порядке каталога.
	Badges []BadgeDTO `json:"badges"`

	// EarnedCount - сколько бейджей выдано аккаунту.
	EarnedCount int `json:"earned_count"`
}

// ListBadgesHandler обрабатывает запрос бейджей.
type ListBadgesHandler struct {
	evaluator *badge.Evaluator
	awards    badge.AwardRepository
}

// NewListBadgesHandler создаёт обработчик запроса бейджей.
func NewListBadgesHandler(evaluator *badge.Evaluator, awards badge.AwardRepository) *ListBadgesHandler {
	return &ListBadgesHandler{evaluator: evaluator, awards: awards}
}

// Handle выполняет запрос.
func (h *ListBadgesHandler) Handle(ctx context.Context, q ListBadgesQuery) (*ListBadgesResult, error) {
	earnedAt := make(map[shared.BadgeID]time.Time)
	if q.AccountID != "" {
		id, err := shared.NewAccountID(q.AccountID)
		if err != nil {
			return nil, err
		}

		awards, err := h.awards.ListByAccount(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, a := range awards {
			earnedAt[a.BadgeID] = a.EarnedAt
		}
	}

	catalog := h.evaluator.Catalog()
	badges := make([]BadgeDTO, 0, len(catalog))
	for _, def := range catalog {
		dto := BadgeDTO{
			ID:            def.ID.String(),
			Name:          def.Name,
			Description:   def.Description,
			CriterionType: string(def.Criterion.Type),
			Threshold:     def.Criterion.Threshold,
		}
		if at, ok := earnedAt[def.ID]; ok {
			dto.Earned = true
			t := at
			dto.EarnedAt = &t
		}
		badges = append(badges, dto)
	}

	return &ListBadgesResult{
		Badges:      badges,
		EarnedCount: len(earnedAt),
	}, nil
}
