package ranking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
)

// stubView - управляемая реализация View для проверки отката.
type stubView struct {
	page  Page
	entry Entry
	total int
	err   error

	pageCalls  int
	rankCalls  int
	totalCalls int
}

func (s *stubView) GetPage(context.Context, shared.Pagination) (Page, error) {
	s.pageCalls++
	if s.err != nil {
		return Page{}, s.err
	}
	return s.page, nil
}

func (s *stubView) GetRank(context.Context, shared.AccountID) (Entry, error) {
	s.rankCalls++
	if s.err != nil {
		return Entry{}, s.err
	}
	return s.entry, nil
}

func (s *stubView) TotalCount(context.Context) (int, error) {
	s.totalCalls++
	if s.err != nil {
		return 0, s.err
	}
	return s.total, nil
}

func seededStub(points int) *stubView {
	entry := Entry{
		AccountID:   "a",
		DisplayName: "Aruzhan",
		Points:      points,
		CreatedAt:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Rank:        1,
	}
	return &stubView{
		page:  Page{Entries: []Entry{entry}, Limit: 20, Total: 1},
		entry: entry,
		total: 1,
	}
}

func TestFallbackView_ColdCacheServedFromAuthoritative(t *testing.T) {
	ctx := context.Background()
	cold := &stubView{}
	auth := seededStub(500)
	view := NewFallbackView(cold, auth)

	page, err := view.GetPage(ctx, shared.Pagination{Limit: 20})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, 500, page.Entries[0].Points)

	total, err := view.TotalCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestFallbackView_CacheMissFallsThroughOnRank(t *testing.T) {
	ctx := context.Background()
	cold := &stubView{err: shared.ErrAccountNotRanked}
	auth := seededStub(500)
	view := NewFallbackView(cold, auth)

	entry, err := view.GetRank(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, Rank(1), entry.Rank)
	assert.Equal(t, 1, auth.rankCalls)
}

func TestFallbackView_WarmCacheSkipsAuthoritative(t *testing.T) {
	ctx := context.Background()
	warm := seededStub(700)
	auth := seededStub(500)
	view := NewFallbackView(warm, auth)

	page, err := view.GetPage(ctx, shared.Pagination{Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 700, page.Entries[0].Points)

	entry, err := view.GetRank(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 700, entry.Points)

	assert.Zero(t, auth.pageCalls)
	assert.Zero(t, auth.rankCalls)
}

func TestFallbackView_CacheErrorFallsThrough(t *testing.T) {
	ctx := context.Background()
	broken := &stubView{err: errors.New("connection refused")}
	auth := seededStub(500)
	view := NewFallbackView(broken, auth)

	page, err := view.GetPage(ctx, shared.Pagination{Limit: 20})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)

	_, err = view.GetRank(ctx, "a")
	require.NoError(t, err)

	total, err := view.TotalCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}
