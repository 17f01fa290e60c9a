// Package badge содержит каталог бейджей и оценку критериев их выдачи.
package badge

import (
	"time"

	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CRITERIA
// ══════════════════════════════════════════════════════════════════════════════

// CriterionType определяет поле статистики, по которому оценивается бейдж.
type CriterionType string

const (
	// CriterionPoints - суммарные очки опыта.
	CriterionPoints CriterionType = "points"
	// CriterionLevel - достигнутый уровень.
	CriterionLevel CriterionType = "level"
	// CriterionStreakDays - текущая серия дней активности.
	CriterionStreakDays CriterionType = "streak_days"
	// CriterionUnitsCompleted - завершённые юниты.
	CriterionUnitsCompleted CriterionType = "units_completed"
	// CriterionPerfectScores - завершения с идеальным результатом.
	CriterionPerfectScores CriterionType = "perfect_scores"
	// CriterionCampsCompleted - завершённые интенсивы.
	CriterionCampsCompleted CriterionType = "camps_completed"
	// CriterionAISessions - проведённые AI-сессии.
	CriterionAISessions CriterionType = "ai_sessions"
)

// IsValid проверяет, что тип критерия известен движку.
func (t CriterionType) IsValid() bool {
	switch t {
	case CriterionPoints, CriterionLevel, CriterionStreakDays,
		CriterionUnitsCompleted, CriterionPerfectScores,
		CriterionCampsCompleted, CriterionAISessions:
		return true
	default:
		return false
	}
}

// Criterion - пороговое условие выдачи: stats[Type] >= Threshold.
type Criterion struct {
	Type      CriterionType
	Threshold int
}

// Met возвращает true, если статистика удовлетворяет критерию.
// Неизвестный тип критерия никогда не срабатывает.
func (c Criterion) Met(stats map[string]int) bool {
	if !c.Type.IsValid() {
		return false
	}
	return stats[string(c.Type)] >= c.Threshold
}

// ══════════════════════════════════════════════════════════════════════════════
// DEFINITION & AWARD
// ══════════════════════════════════════════════════════════════════════════════

// Definition описывает бейдж в каталоге.
type Definition struct {
	// ID - стабильный машинный идентификатор бейджа.
	ID shared.BadgeID

	// Name - человекочитаемое название.
	Name string

	// Description - за что выдаётся.
	Description string

	// Criterion - условие выдачи.
	Criterion Criterion
}

// Validate проверяет корректность определения.
func (d Definition) Validate() error {
	if err := d.ID.Validate(); err != nil {
		return err
	}
	if d.Name == "" {
		return shared.NewDomainError("badge", "validate", shared.ErrValidation,
			"badge name is required")
	}
	if !d.Criterion.Type.IsValid() {
		return shared.ErrUnknownCriterion
	}
	if d.Criterion.Threshold <= 0 {
		return shared.NewDomainError("badge", "validate", shared.ErrValidation,
			"criterion threshold must be positive")
	}
	return nil
}

// Award - факт выдачи бейджа аккаунту. Пара (AccountID, BadgeID) уникальна:
// один бейдж выдаётся аккаунту не более одного раза.
type Award struct {
	AccountID shared.AccountID
	BadgeID   shared.BadgeID
	EarnedAt  time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DEFAULT CATALOG
// Порядок определений фиксирован: в этом порядке оцениваются критерии
// и публикуются события о новых бейджах.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultCatalog возвращает встроенный каталог бейджей.
func DefaultCatalog() []Definition {
	return []Definition{
		{
			ID:          "first_steps",
			Name:        "First Steps",
			Description: "Earn your first 50 points",
			Criterion:   Criterion{Type: CriterionPoints, Threshold: 50},
		},
		{
			ID:          "centurion",
			Name:        "Centurion",
			Description: "Reach 100 points",
			Criterion:   Criterion{Type: CriterionPoints, Threshold: 100},
		},
		{
			ID:          "point_collector",
			Name:        "Point Collector",
			Description: "Reach 1000 points",
			Criterion:   Criterion{Type: CriterionPoints, Threshold: 1000},
		},
		{
			ID:          "level_five",
			Name:        "High Five",
			Description: "Reach level 5",
			Criterion:   Criterion{Type: CriterionLevel, Threshold: 5},
		},
		{
			ID:          "level_ten",
			Name:        "Double Digits",
			Description: "Reach level 10",
			Criterion:   Criterion{Type: CriterionLevel, Threshold: 10},
		},
		{
			ID:          "week_streak",
			Name:        "Week Warrior",
			Description: "Keep a 7-day streak",
			Criterion:   Criterion{Type: CriterionStreakDays, Threshold: 7},
		},
		{
			ID:          "month_streak",
			Name:        "Iron Will",
			Description: "Keep a 30-day streak",
			Criterion:   Criterion{Type: CriterionStreakDays, Threshold: 30},
		},
		{
			ID:          "unit_finisher",
			Name:        "Unit Finisher",
			Description: "Complete 10 units",
			Criterion:   Criterion{Type: CriterionUnitsCompleted, Threshold: 10},
		},
		{
			ID:          "perfectionist",
			Name:        "Perfectionist",
			Description: "Get 5 perfect scores",
			Criterion:   Criterion{Type: CriterionPerfectScores, Threshold: 5},
		},
		{
			ID:          "camp_survivor",
			Name:        "Camp Survivor",
			Description: "Complete a camp",
			Criterion:   Criterion{Type: CriterionCampsCompleted, Threshold: 1},
		},
		{
			ID:          "ai_explorer",
			Name:        "AI Explorer",
			Description: "Hold 10 AI tutor sessions",
			Criterion:   Criterion{Type: CriterionAISessions, Threshold: 10},
		},
	}
}
