package ranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortEntries_TieBreaksByAccountAge(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	entries := []Entry{
		{AccountID: "b", Points: 500, CreatedAt: base.Add(48 * time.Hour)},
		{AccountID: "c", Points: 700, CreatedAt: base.Add(72 * time.Hour)},
		{AccountID: "a", Points: 500, CreatedAt: base},
	}

	SortEntries(entries)

	require.Len(t, entries, 3)
	assert.Equal(t, "c", entries[0].AccountID.String())
	assert.Equal(t, "a", entries[1].AccountID.String())
	assert.Equal(t, "b", entries[2].AccountID.String())

	assert.Equal(t, Rank(1), entries[0].Rank)
	assert.Equal(t, Rank(2), entries[1].Rank)
	assert.Equal(t, Rank(3), entries[2].Rank)
}

func TestPage_HasMore(t *testing.T) {
	p := Page{Entries: make([]Entry, 20), Offset: 0, Limit: 20, Total: 45}
	assert.True(t, p.HasMore())

	last := Page{Entries: make([]Entry, 5), Offset: 40, Limit: 20, Total: 45}
	assert.False(t, last.HasMore())
}
