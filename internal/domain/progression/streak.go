package progression

import "time"

// ══════════════════════════════════════════════════════════════════════════════
// STREAK RESOLVER
// Чистая функция перехода серии по часовому разрыву от последней активности.
// Политика:
//   - первой активности нет  -> серия = 1, changed = true
//   - h < 24   -> тот же день, серия не меняется, changed = false
//   - 24..48   -> следующее окно, серия +1, changed = true
//   - h >= 48  -> день пропущен, серия = 1, changed = true
// Резолвер НЕ обновляет lastActivity - это делает Progression Ledger
// в той же атомарной записи, что и резолвнутую серию.
// ══════════════════════════════════════════════════════════════════════════════

// Часовые границы окна серии.
const (
	streakKeepWindow  = 24 * time.Hour
	streakResetWindow = 48 * time.Hour
)

// StreakResolution описывает результат перехода серии.
type StreakResolution struct {
	// Streak - новая серия активных дней.
	Streak int

	// Changed - изменилось ли значение серии.
	Changed bool

	// Broken - была ли серия сброшена (h >= 48 при ненулевой серии).
	Broken bool
}

// ResolveStreak вычисляет новую серию по сохранённому lastActivity.
// lastActivity == nil означает самое первое событие аккаунта.
// Оба конкурентных события должны резолвиться против СОХРАНЁННОГО
// lastActivity на момент применения каждого из них, поэтому вызов
// обязан выполняться внутри атомарного обновления записи.
func ResolveStreak(lastActivity *time.Time, currentStreak int, now time.Time) StreakResolution {
	if lastActivity == nil || lastActivity.IsZero() {
		return StreakResolution{Streak: 1, Changed: true}
	}

	elapsed := now.Sub(*lastActivity)

	switch {
	case elapsed < streakKeepWindow:
		// Несколько юнитов за один день не должны накручивать серию.
		return StreakResolution{Streak: currentStreak, Changed: false}
	case elapsed < streakResetWindow:
		return StreakResolution{Streak: currentStreak + 1, Changed: true}
	default:
		return StreakResolution{
			Streak:  1,
			Changed: true,
			Broken:  currentStreak > 1,
		}
	}
}
