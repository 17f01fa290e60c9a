package badge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
)

func testCatalog() []Definition {
	return []Definition{
		{
			ID:        "first_steps",
			Name:      "First Steps",
			Criterion: Criterion{Type: CriterionPoints, Threshold: 50},
		},
		{
			ID:        "centurion",
			Name:      "Centurion",
			Criterion: Criterion{Type: CriterionPoints, Threshold: 100},
		},
		{
			ID:        "week_streak",
			Name:      "Week Warrior",
			Criterion: Criterion{Type: CriterionStreakDays, Threshold: 7},
		},
	}
}

func TestEvaluateNewlyEarned_ThresholdIsInclusive(t *testing.T) {
	ev, err := NewEvaluator(testCatalog())
	require.NoError(t, err)

	// Ровно на пороге - бейдж выдаётся.
	earned := ev.EvaluateNewlyEarned(map[string]int{"points": 50}, nil)
	require.Len(t, earned, 1)
	assert.Equal(t, shared.BadgeID("first_steps"), earned[0].ID)

	// Чуть ниже порога - нет.
	earned = ev.EvaluateNewlyEarned(map[string]int{"points": 49}, nil)
	assert.Empty(t, earned)
}

func TestEvaluateNewlyEarned_SkipsAlreadyOwned(t *testing.T) {
	ev, err := NewEvaluator(testCatalog())
	require.NoError(t, err)

	earned := ev.EvaluateNewlyEarned(
		map[string]int{"points": 150},
		[]shared.BadgeID{"first_steps"},
	)

	require.Len(t, earned, 1)
	assert.Equal(t, shared.BadgeID("centurion"), earned[0].ID)
}

func TestEvaluateNewlyEarned_CatalogOrder(t *testing.T) {
	ev, err := NewEvaluator(testCatalog())
	require.NoError(t, err)

	earned := ev.EvaluateNewlyEarned(map[string]int{"points": 200, "streak_days": 10}, nil)

	require.Len(t, earned, 3)
	assert.Equal(t, shared.BadgeID("first_steps"), earned[0].ID)
	assert.Equal(t, shared.BadgeID("centurion"), earned[1].ID)
	assert.Equal(t, shared.BadgeID("week_streak"), earned[2].ID)
}

func TestEvaluateNewlyEarned_MissingStatFieldTreatedAsZero(t *testing.T) {
	ev, err := NewEvaluator(testCatalog())
	require.NoError(t, err)

	earned := ev.EvaluateNewlyEarned(map[string]int{"points": 60}, nil)

	require.Len(t, earned, 1)
	assert.Equal(t, shared.BadgeID("first_steps"), earned[0].ID)
}

func TestCriterion_UnknownTypeNeverFires(t *testing.T) {
	c := Criterion{Type: "galactic_domination", Threshold: 1}
	assert.False(t, c.Met(map[string]int{"galactic_domination": 100}))
}

func TestNewEvaluator_RejectsDuplicateIDs(t *testing.T) {
	_, err := NewEvaluator([]Definition{
		{ID: "dup", Name: "A", Criterion: Criterion{Type: CriterionPoints, Threshold: 1}},
		{ID: "dup", Name: "B", Criterion: Criterion{Type: CriterionLevel, Threshold: 1}},
	})
	assert.Error(t, err)
}

func TestNewEvaluator_RejectsUnknownCriterionType(t *testing.T) {
	_, err := NewEvaluator([]Definition{
		{ID: "bad", Name: "Bad", Criterion: Criterion{Type: "nope", Threshold: 1}},
	})
	assert.ErrorIs(t, err, shared.ErrUnknownCriterion)
}

func TestDefaultCatalog_IsValid(t *testing.T) {
	ev, err := NewEvaluator(DefaultCatalog())
	require.NoError(t, err)
	assert.NotEmpty(t, ev.Catalog())
}

func TestGetDefinition_UnknownID(t *testing.T) {
	ev, err := NewEvaluator(testCatalog())
	require.NoError(t, err)

	_, err = ev.GetDefinition("no_such_badge")
	assert.ErrorIs(t, err, shared.ErrBadgeNotFound)
}
