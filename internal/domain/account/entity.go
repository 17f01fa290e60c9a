// Package account содержит доменную модель учебного аккаунта.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package account

import (
	"strings"
	"time"

	"github.com/lingo-hub/lingo-progress-hub/internal/domain/progression"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: ACCOUNT
// ══════════════════════════════════════════════════════════════════════════════

// Account - центральная сущность движка прогресса: один учащийся,
// его очки, серия активности и счётчики достижений.
type Account struct {
	// ID - внутренний уникальный идентификатор (UUID в строковом формате).
	ID shared.AccountID

	// DisplayName - отображаемое имя учащегося.
	DisplayName string

	// Points - суммарные очки опыта. Никогда не отрицательные.
	Points int

	// Level - кэшированный уровень, производный от Points.
	// Источник истины - progression.LevelOf; поле хранится для
	// чтения без пересчёта.
	Level progression.Level

	// Streak - текущая серия дней подряд с активностью.
	Streak int

	// BestStreak - максимальная серия за всё время.
	BestStreak int

	// LastActivityAt - время последнего засчитанного завершения.
	// nil, если активности ещё не было.
	LastActivityAt *time.Time

	// UnitsCompleted - количество завершённых юнитов.
	UnitsCompleted int

	// PerfectScores - количество завершений с идеальным результатом.
	PerfectScores int

	// CampsCompleted - количество завершённых интенсивов.
	CampsCompleted int

	// AISessions - количество проведённых AI-сессий.
	AISessions int

	// Version - счётчик версий для оптимистичной блокировки.
	Version int

	// CreatedAt - время создания аккаунта. Участвует в разрешении
	// ничьих в рейтинге: из двух равных по очкам выше более старый.
	CreatedAt time.Time

	// UpdatedAt - время последнего обновления.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewAccountParams содержит параметры для создания нового аккаунта.
type NewAccountParams struct {
	ID          shared.AccountID
	DisplayName string
	CreatedAt   time.Time
}

// NewAccount создаёт новый аккаунт с валидацией всех полей.
// Свежий аккаунт стартует с нулевыми очками на первом уровне.
func NewAccount(params NewAccountParams) (*Account, error) {
	if err := params.ID.Validate(); err != nil {
		return nil, err
	}

	displayName := strings.TrimSpace(params.DisplayName)
	if len(displayName) == 0 || len(displayName) > 100 {
		return nil, shared.NewDomainError("account", "new", shared.ErrValidation,
			"display name must be 1-100 chars")
	}

	createdAt := params.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return &Account{
		ID:          params.ID,
		DisplayName: displayName,
		Points:      0,
		Level:       progression.MinLevel,
		Streak:      0,
		Version:     1,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// BUSINESS METHODS
// ══════════════════════════════════════════════════════════════════════════════

// ApplyGain начисляет очки и пересчитывает уровень.
// Отрицательная дельта - ошибка вызывающей стороны, состояние не меняется.
// Возвращает true, если уровень вырос.
func (a *Account) ApplyGain(delta int) (leveledUp bool, err error) {
	if delta < 0 {
		return false, shared.ErrNegativeDelta
	}

	before := a.Level
	a.Points += delta

	after, err := progression.LevelOf(a.Points)
	if err != nil {
		return false, err
	}
	a.Level = after

	return after > before, nil
}

// ApplyStreak записывает результат резолюции серии и сдвигает
// LastActivityAt на момент события.
func (a *Account) ApplyStreak(res progression.StreakResolution, at time.Time) {
	a.Streak = res.Streak
	if a.Streak > a.BestStreak {
		a.BestStreak = a.Streak
	}
	t := at
	a.LastActivityAt = &t
}

// RecordCompletion увеличивает счётчики достижений по типу завершения.
func (a *Account) RecordCompletion(kind CompletionKind, perfect bool) {
	switch kind {
	case CompletionUnit:
		a.UnitsCompleted++
	case CompletionCamp:
		a.CampsCompleted++
	case CompletionAISession:
		a.AISessions++
	}
	if perfect {
		a.PerfectScores++
	}
}

// Touch обновляет UpdatedAt и инкрементирует версию.
// Вызывается перед сохранением через UpdateProgress.
func (a *Account) Touch(now time.Time) {
	a.UpdatedAt = now
	a.Version++
}

// Stats возвращает снимок счётчиков для оценки критериев бейджей.
func (a *Account) Stats() map[string]int {
	return map[string]int{
		StatPoints:         a.Points,
		StatLevel:          int(a.Level),
		StatStreakDays:     a.Streak,
		StatUnitsCompleted: a.UnitsCompleted,
		StatPerfectScores:  a.PerfectScores,
		StatCampsCompleted: a.CampsCompleted,
		StatAISessions:     a.AISessions,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETION KINDS & STAT FIELDS
// ══════════════════════════════════════════════════════════════════════════════

// CompletionKind определяет тип завершённой учебной единицы.
type CompletionKind string

const (
	// CompletionUnit - обычный учебный юнит.
	CompletionUnit CompletionKind = "unit"
	// CompletionCamp - интенсив (camp).
	CompletionCamp CompletionKind = "camp"
	// CompletionAISession - сессия с AI-тьютором.
	CompletionAISession CompletionKind = "ai_session"
)

// IsValid проверяет, что тип завершения корректен.
func (k CompletionKind) IsValid() bool {
	switch k {
	case CompletionUnit, CompletionCamp, CompletionAISession:
		return true
	default:
		return false
	}
}

// Имена полей статистики, по которым оцениваются критерии бейджей.
const (
	StatPoints         = "points"
	StatLevel          = "level"
	StatStreakDays     = "streak_days"
	StatUnitsCompleted = "units_completed"
	StatPerfectScores  = "perfect_scores"
	StatCampsCompleted = "camps_completed"
	StatAISessions     = "ai_sessions"
)
