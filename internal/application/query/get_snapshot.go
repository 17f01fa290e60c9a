package query

import (
	"context"
	"time"

	"github.com/lingo-hub/lingo-progress-hub/internal/domain/account"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/progression"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET SNAPSHOT QUERY
// Полный снимок прогресса аккаунта: очки, уровень с прогрессом до
// следующего порога, серия и счётчики достижений.
// ══════════════════════════════════════════════════════════════════════════════

// GetSnapshotQuery содержит параметры запроса снимка.
type GetSnapshotQuery struct {
	// AccountID - запрашиваемый аккаунт.
	AccountID string
}

// LevelProgressDTO - прогресс внутри текущего уровня.
type LevelProgressDTO struct {
	// Level - текущий уровень.
	Level int `json:"level"`

	// PointsIntoLevel - набрано очков сверх порога текущего уровня.
	PointsIntoLevel int `json:"points_into_level"`

	// PointsForNext - ширина интервала до следующего уровня.
	PointsForNext int `json:"points_for_next"`
}

// SnapshotResult содержит снимок прогресса.
type SnapshotResult struct {
	// AccountID - идентификатор аккаунта.
	AccountID string `json:"account_id"`

	// DisplayName - отображаемое имя.
	DisplayName string `json:"display_name"`

	// Points - суммарные очки.
	Points int `json:"points"`

	// Progress - уровень и прогресс до следующего.
	Progress LevelProgressDTO `json:"progress"`

	// Streak - текущая серия.
	Streak int `json:"streak"`

	// BestStreak - лучшая серия за всё время.
	BestStreak int `json:"best_streak"`

	// LastActivityAt - последняя засчитанная активность.
	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`

	// UnitsCompleted - завершённые юниты.
	UnitsCompleted int `json:"units_completed"`

	// PerfectScores - идеальные результаты.
	PerfectScores int `json:"perfect_scores"`

	// CampsCompleted - завершённые интенсивы.
	CampsCompleted int `json:"camps_completed"`

	// AISessions - AI-сессии.
	AISessions int `json:"ai_sessions"`

	// CreatedAt - время создания аккаунта.
	CreatedAt time.Time `json:"created_at"`
}

// GetSnapshotHandler обрабатывает запрос снимка.
type GetSnapshotHandler struct {
	accounts account.Repository
}

// NewGetSnapshotHandler создаёт обработчик запроса снимка.
func NewGetSnapshotHandler(accounts account.Repository) *GetSnapshotHandler {
	return &GetSnapshotHandler{accounts: accounts}
}

// Handle выполняет запрос.
func (h *GetSnapshotHandler) Handle(ctx context.Context, q GetSnapshotQuery) (*SnapshotResult, error) {
	id, err := shared.NewAccountID(q.AccountID)
	if err != nil {
		return nil, err
	}

	acc, err := h.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	gained, span, err := progression.ProgressWithinLevel(acc.Points)
	if err != nil {
		return nil, err
	}

	return &SnapshotResult{
		AccountID:   acc.ID.String(),
		DisplayName: acc.DisplayName,
		Points:      acc.Points,
		Progress: LevelProgressDTO{
			Level:           int(acc.Level),
			PointsIntoLevel: gained,
			PointsForNext:   span,
		},
		Streak:         acc.Streak,
		BestStreak:     acc.BestStreak,
		LastActivityAt: acc.LastActivityAt,
		UnitsCompleted: acc.UnitsCompleted,
		PerfectScores:  acc.PerfectScores,
		CampsCompleted: acc.CampsCompleted,
		AISessions:     acc.AISessions,
		CreatedAt:      acc.CreatedAt,
	}, nil
}
