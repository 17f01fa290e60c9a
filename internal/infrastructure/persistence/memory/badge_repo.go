package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/lingo-hub/lingo-progress-hub/internal/domain/badge"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
)

type awardKey struct {
	account shared.AccountID
	badge   shared.BadgeID
}

// AwardRepository - потокобезопасное in-memory хранилище выдач бейджей.
// Повторная выдача той же пары - no-op, как ON CONFLICT DO NOTHING в postgres.
type AwardRepository struct {
	mu     sync.RWMutex
	awards map[awardKey]badge.Award
}

// NewAwardRepository создаёт пустое хранилище выдач.
func NewAwardRepository() *AwardRepository {
	return &AwardRepository{
		awards: make(map[awardKey]badge.Award),
	}
}

// Award записывает выдачу бейджа идемпотентно.
func (r *AwardRepository) Award(ctx context.Context, a badge.Award) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := awardKey{account: a.AccountID, badge: a.BadgeID}
	if _, exists := r.awards[key]; exists {
		return false, nil
	}

	r.awards[key] = a
	return true, nil
}

// ListByAccount возвращает выдачи аккаунта, старые первыми.
func (r *AwardRepository) ListByAccount(ctx context.Context, accountID shared.AccountID) ([]badge.Award, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []badge.Award
	for key, a := range r.awards {
		if key.account == accountID {
			out = append(out, a)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].EarnedAt.Equal(out[j].EarnedAt) {
			return out[i].EarnedAt.Before(out[j].EarnedAt)
		}
		return out[i].BadgeID < out[j].BadgeID
	})
	return out, nil
}

// ListIDsByAccount возвращает идентификаторы выданных бейджей.
func (r *AwardRepository) ListIDsByAccount(ctx context.Context, accountID shared.AccountID) ([]shared.BadgeID, error) {
	awards, err := r.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	ids := make([]shared.BadgeID, 0, len(awards))
	for _, a := range awards {
		ids = append(ids, a.BadgeID)
	}
	return ids, nil
}

// CountByBadge возвращает количество аккаунтов с бейджем.
func (r *AwardRepository) CountByBadge(ctx context.Context, badgeID shared.BadgeID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for key := range r.awards {
		if key.badge == badgeID {
			count++
		}
	}
	return count, nil
}
