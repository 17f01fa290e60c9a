package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingo-hub/lingo-progress-hub/internal/domain/ranking"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
)

func newRankingCacheTest(t *testing.T) *RankingCache {
	t.Helper()

	mr := miniredis.RunT(t)
	cache, err := NewCache(context.Background(), Options{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	return NewRankingCache(cache)
}

func rankedEntry(id string, points int, createdAt time.Time) ranking.Entry {
	return ranking.Entry{
		AccountID:   shared.AccountID(id),
		DisplayName: "acc-" + id,
		Points:      points,
		Level:       1,
		CreatedAt:   createdAt,
	}
}

func TestRankingCache_PageFollowsCanonicalOrder(t *testing.T) {
	rc := newRankingCacheTest(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	// При равных очках выше более старый аккаунт.
	require.NoError(t, rc.UpsertScore(ctx, rankedEntry("b", 500, base.Add(48*time.Hour))))
	require.NoError(t, rc.UpsertScore(ctx, rankedEntry("a", 500, base)))
	require.NoError(t, rc.UpsertScore(ctx, rankedEntry("c", 700, base.Add(72*time.Hour))))

	page, err := rc.GetPage(ctx, shared.Pagination{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Entries, 3)
	assert.Equal(t, 3, page.Total)

	assert.Equal(t, "c", page.Entries[0].AccountID.String())
	assert.Equal(t, "a", page.Entries[1].AccountID.String())
	assert.Equal(t, "b", page.Entries[2].AccountID.String())

	assert.Equal(t, ranking.Rank(1), page.Entries[0].Rank)
	assert.Equal(t, ranking.Rank(2), page.Entries[1].Rank)
	assert.Equal(t, ranking.Rank(3), page.Entries[2].Rank)
}

func TestRankingCache_PageOffset(t *testing.T) {
	rc := newRankingCacheTest(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, rc.UpsertScore(ctx, rankedEntry("a", 300, base)))
	require.NoError(t, rc.UpsertScore(ctx, rankedEntry("b", 200, base)))
	require.NoError(t, rc.UpsertScore(ctx, rankedEntry("c", 100, base)))

	page, err := rc.GetPage(ctx, shared.Pagination{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "b", page.Entries[0].AccountID.String())
	assert.Equal(t, ranking.Rank(2), page.Entries[0].Rank)
	assert.Equal(t, 3, page.Total)
	assert.True(t, page.HasMore())
}

func TestRankingCache_StaleWriterDoesNotRegressScore(t *testing.T) {
	rc := newRankingCacheTest(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, rc.UpsertScore(ctx, rankedEntry("a", 110, base)))

	// Отставший писатель зафиксировал прогресс раньше, а в кеш пришёл позже.
	require.NoError(t, rc.UpsertScore(ctx, rankedEntry("a", 100, base)))

	entry, err := rc.GetRank(ctx, shared.AccountID("a"))
	require.NoError(t, err)
	assert.Equal(t, 110, entry.Points)

	page, err := rc.GetPage(ctx, shared.Pagination{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, 110, page.Entries[0].Points)
}

func TestRankingCache_RebuildMergesMonotonically(t *testing.T) {
	rc := newRankingCacheTest(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	// Аккаунт обновился после снятия среза в авторитетном источнике.
	require.NoError(t, rc.UpsertScore(ctx, rankedEntry("a", 110, base)))

	require.NoError(t, rc.Rebuild(ctx, []ranking.Entry{
		rankedEntry("a", 100, base),
		rankedEntry("b", 50, base),
	}))

	entry, err := rc.GetRank(ctx, shared.AccountID("a"))
	require.NoError(t, err)
	assert.Equal(t, 110, entry.Points)

	total, err := rc.TotalCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestRankingCache_GetRankUnknownAccount(t *testing.T) {
	rc := newRankingCacheTest(t)

	_, err := rc.GetRank(context.Background(), shared.AccountID("ghost"))
	assert.ErrorIs(t, err, shared.ErrAccountNotRanked)
}

func TestRankingCache_InvalidateEmptiesRanking(t *testing.T) {
	rc := newRankingCacheTest(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, rc.UpsertScore(ctx, rankedEntry("a", 100, base)))
	require.NoError(t, rc.Invalidate(ctx))

	total, err := rc.TotalCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)

	page, err := rc.GetPage(ctx, shared.Pagination{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Entries)

	_, err = rc.GetRank(ctx, shared.AccountID("a"))
	assert.ErrorIs(t, err, shared.ErrAccountNotRanked)
}
