package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelOf_ZeroPointsIsLevelOne(t *testing.T) {
	level, err := LevelOf(0)
	require.NoError(t, err)
	assert.Equal(t, MinLevel, level)
}

func TestLevelOf_NegativePointsRejected(t *testing.T) {
	_, err := LevelOf(-1)
	assert.Error(t, err)
}

func TestLevelOf_NonDecreasing(t *testing.T) {
	prev := MinLevel
	for points := 0; points <= 20000; points += 37 {
		level, err := LevelOf(points)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, level, prev, "points=%d", points)
		prev = level
	}
}

func TestPointsRequiredFor_StrictlyIncreasing(t *testing.T) {
	for l := MinLevel; l < 40; l++ {
		assert.Less(t, PointsRequiredFor(l), PointsRequiredFor(l+1), "level=%d", l)
	}
}

func TestPointsRequiredFor_SuperLinearGrowth(t *testing.T) {
	// Каждый уровень должен требовать строго больше дополнительных очков,
	// чем предыдущий.
	prevStep := 0
	for l := MinLevel + 1; l < 40; l++ {
		step := PointsRequiredFor(l) - PointsRequiredFor(l-1)
		assert.Greater(t, step, prevStep, "level=%d", l)
		prevStep = step
	}
}

func TestLevelOf_RoundTripWithPointsRequiredFor(t *testing.T) {
	for l := MinLevel; l <= 50; l++ {
		level, err := LevelOf(PointsRequiredFor(l))
		require.NoError(t, err)
		assert.Equal(t, l, level, "threshold of level %d", l)

		// Одно очко до порога следующего уровня - всё ещё текущий уровень.
		level, err = LevelOf(PointsRequiredFor(l+1) - 1)
		require.NoError(t, err)
		assert.Equal(t, l, level)
	}
}

func TestLevelOf_SpecExample(t *testing.T) {
	level, err := LevelOf(PointsRequiredFor(5))
	require.NoError(t, err)
	assert.Equal(t, Level(5), level)
}

func TestProgressWithinLevel(t *testing.T) {
	// Уровень 2 начинается на 100 и заканчивается перед 400.
	gained, span, err := ProgressWithinLevel(150)
	require.NoError(t, err)
	assert.Equal(t, 50, gained)
	assert.Equal(t, 300, span)

	_, _, err = ProgressWithinLevel(-5)
	assert.Error(t, err)
}
