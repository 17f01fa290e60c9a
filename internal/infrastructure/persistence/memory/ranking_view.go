package memory

import (
	"context"

	"github.com/lingo-hub/lingo-progress-hub/internal/domain/ranking"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
)

// RankingView - представление рейтинга поверх in-memory хранилища аккаунтов.
// Строит каноничный порядок на каждый запрос: для тестов и локальной
// разработки этого достаточно.
type RankingView struct {
	accounts *AccountRepository
}

// NewRankingView создаёт представление поверх хранилища аккаунтов.
func NewRankingView(accounts *AccountRepository) *RankingView {
	return &RankingView{accounts: accounts}
}

func (v *RankingView) snapshot(ctx context.Context) ([]ranking.Entry, error) {
	accs, err := v.accounts.All(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]ranking.Entry, 0, len(accs))
	for _, acc := range accs {
		entries = append(entries, ranking.Entry{
			AccountID:   acc.ID,
			DisplayName: acc.DisplayName,
			Points:      acc.Points,
			Level:       int(acc.Level),
			Streak:      acc.Streak,
			CreatedAt:   acc.CreatedAt,
		})
	}

	ranking.SortEntries(entries)
	return entries, nil
}

// GetPage возвращает страницу рейтинга.
func (v *RankingView) GetPage(ctx context.Context, p shared.Pagination) (ranking.Page, error) {
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return ranking.Page{}, err
	}

	entries, err := v.snapshot(ctx)
	if err != nil {
		return ranking.Page{}, err
	}

	total := len(entries)
	start := p.Offset
	if start > total {
		start = total
	}
	end := start + p.Limit
	if end > total {
		end = total
	}

	return ranking.Page{
		Entries: entries[start:end],
		Offset:  p.Offset,
		Limit:   p.Limit,
		Total:   total,
	}, nil
}

// GetRank возвращает строку рейтинга для аккаунта.
func (v *RankingView) GetRank(ctx context.Context, accountID shared.AccountID) (ranking.Entry, error) {
	entries, err := v.snapshot(ctx)
	if err != nil {
		return ranking.Entry{}, err
	}

	for _, e := range entries {
		if e.AccountID == accountID {
			return e, nil
		}
	}
	return ranking.Entry{}, shared.ErrAccountNotRanked
}

// TotalCount возвращает количество участников рейтинга.
func (v *RankingView) TotalCount(ctx context.Context) (int, error) {
	return v.accounts.Count(ctx)
}
