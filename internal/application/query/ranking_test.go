package query

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingo-hub/lingo-progress-hub/internal/domain/account"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/progression"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
	"github.com/lingo-hub/lingo-progress-hub/internal/infrastructure/persistence/memory"
)

func seedAccount(t *testing.T, repo *memory.AccountRepository, name string, points int, createdAt time.Time) shared.AccountID {
	t.Helper()

	id, err := shared.NewAccountID(uuid.NewString())
	require.NoError(t, err)

	acc, err := account.NewAccount(account.NewAccountParams{
		ID:          id,
		DisplayName: name,
		CreatedAt:   createdAt,
	})
	require.NoError(t, err)

	acc.Points = points
	acc.Level, err = progression.LevelOf(points)
	require.NoError(t, err)

	require.NoError(t, repo.Create(context.Background(), acc))
	return id
}

func TestGetLeaderboard_TieBreakByAccountAge(t *testing.T) {
	repo := memory.NewAccountRepository()
	base := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	idA := seedAccount(t, repo, "A", 500, base)
	idB := seedAccount(t, repo, "B", 500, base.Add(24*time.Hour))
	idC := seedAccount(t, repo, "C", 700, base.Add(48*time.Hour))

	view := memory.NewRankingView(repo)
	lb := NewGetLeaderboardHandler(view)

	res, err := lb.Handle(context.Background(), GetLeaderboardQuery{})
	require.NoError(t, err)

	require.Len(t, res.Entries, 3)
	assert.Equal(t, idC.String(), res.Entries[0].AccountID)
	assert.Equal(t, idA.String(), res.Entries[1].AccountID)
	assert.Equal(t, idB.String(), res.Entries[2].AccountID)
	assert.Equal(t, 3, res.TotalCount)
	assert.False(t, res.HasMore)

	rank := NewGetAccountRankHandler(view)

	rc, err := rank.Handle(context.Background(), GetAccountRankQuery{AccountID: idC.String()})
	require.NoError(t, err)
	assert.Equal(t, 1, rc.Rank)

	ra, err := rank.Handle(context.Background(), GetAccountRankQuery{AccountID: idA.String()})
	require.NoError(t, err)
	assert.Equal(t, 2, ra.Rank)

	rb, err := rank.Handle(context.Background(), GetAccountRankQuery{AccountID: idB.String()})
	require.NoError(t, err)
	assert.Equal(t, 3, rb.Rank)
}

func TestGetLeaderboard_Pagination(t *testing.T) {
	repo := memory.NewAccountRepository()
	base := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 25; i++ {
		seedAccount(t, repo, "acc", 1000-i*10, base.Add(time.Duration(i)*time.Hour))
	}

	view := memory.NewRankingView(repo)
	h := NewGetLeaderboardHandler(view)

	first, err := h.Handle(context.Background(), GetLeaderboardQuery{Limit: 10})
	require.NoError(t, err)
	require.Len(t, first.Entries, 10)
	assert.Equal(t, 1, first.Entries[0].Rank)
	assert.True(t, first.HasMore)

	last, err := h.Handle(context.Background(), GetLeaderboardQuery{Limit: 10, Offset: 20})
	require.NoError(t, err)
	require.Len(t, last.Entries, 5)
	assert.Equal(t, 21, last.Entries[0].Rank)
	assert.False(t, last.HasMore)

	// Смещение за концом рейтинга - пустая страница, не ошибка.
	beyond, err := h.Handle(context.Background(), GetLeaderboardQuery{Limit: 10, Offset: 100})
	require.NoError(t, err)
	assert.Empty(t, beyond.Entries)
}

func TestGetAccountRank_UnknownAccount(t *testing.T) {
	repo := memory.NewAccountRepository()
	view := memory.NewRankingView(repo)
	h := NewGetAccountRankHandler(view)

	_, err := h.Handle(context.Background(), GetAccountRankQuery{AccountID: uuid.NewString()})
	assert.ErrorIs(t, err, shared.ErrAccountNotRanked)
}

func TestGetSnapshot(t *testing.T) {
	repo := memory.NewAccountRepository()
	id := seedAccount(t, repo, "Dana", 150, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))

	h := NewGetSnapshotHandler(repo)
	res, err := h.Handle(context.Background(), GetSnapshotQuery{AccountID: id.String()})
	require.NoError(t, err)

	assert.Equal(t, 150, res.Points)
	assert.Equal(t, 2, res.Progress.Level)
	assert.Equal(t, 50, res.Progress.PointsIntoLevel)
	assert.Equal(t, 300, res.Progress.PointsForNext)
}
