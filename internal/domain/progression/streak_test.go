package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveStreak_FirstEverEvent(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	res := ResolveStreak(nil, 0, now)

	assert.Equal(t, 1, res.Streak)
	assert.True(t, res.Changed)
	assert.False(t, res.Broken)
}

func TestResolveStreak_SameDayKeepsStreak(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	last := now.Add(-10 * time.Hour)

	res := ResolveStreak(&last, 4, now)

	assert.Equal(t, 4, res.Streak)
	assert.False(t, res.Changed)
}

func TestResolveStreak_NextWindowIncrements(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	last := now.Add(-30 * time.Hour)

	res := ResolveStreak(&last, 4, now)

	assert.Equal(t, 5, res.Streak)
	assert.True(t, res.Changed)
	assert.False(t, res.Broken)
}

func TestResolveStreak_MissedDayResets(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	last := now.Add(-50 * time.Hour)

	res := ResolveStreak(&last, 4, now)

	assert.Equal(t, 1, res.Streak)
	assert.True(t, res.Changed)
	assert.True(t, res.Broken)
}

func TestResolveStreak_ExactBoundaries(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	// Ровно 24 часа - уже следующее окно.
	last := now.Add(-24 * time.Hour)
	res := ResolveStreak(&last, 2, now)
	assert.Equal(t, 3, res.Streak)
	assert.True(t, res.Changed)

	// Ровно 48 часов - уже сброс.
	last = now.Add(-48 * time.Hour)
	res = ResolveStreak(&last, 2, now)
	assert.Equal(t, 1, res.Streak)
	assert.True(t, res.Broken)
}

// Два события в одном тике процесса, но по разные стороны границы
// относительно СОХРАНЁННОГО lastActivity: каждое резолвится против
// значения, записанного на момент его применения.
func TestResolveStreak_StoredValueSemantics(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	stored := now.Add(-25 * time.Hour)

	// Первое событие: инкремент против сохранённого значения.
	first := ResolveStreak(&stored, 6, now)
	assert.Equal(t, 7, first.Streak)

	// Ledger записал lastActivity = now; второе событие в тот же тик
	// резолвится уже против нового значения и серию не трогает.
	second := ResolveStreak(&now, first.Streak, now)
	assert.Equal(t, 7, second.Streak)
	assert.False(t, second.Changed)
}

func TestResolveStreak_ResetFromStreakOneIsNotBroken(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	last := now.Add(-72 * time.Hour)

	res := ResolveStreak(&last, 1, now)

	assert.Equal(t, 1, res.Streak)
	assert.False(t, res.Broken)
}
