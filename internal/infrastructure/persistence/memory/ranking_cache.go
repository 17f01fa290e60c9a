package memory

import (
	"context"
	"sync"

	"github.com/lingo-hub/lingo-progress-hub/internal/domain/ranking"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
)

// RankingCache - in-memory аналог redis-кеша рейтинга.
type RankingCache struct {
	mu      sync.RWMutex
	entries map[shared.AccountID]ranking.Entry
}

// NewRankingCache создаёт пустой кеш.
func NewRankingCache() *RankingCache {
	return &RankingCache{
		entries: make(map[shared.AccountID]ranking.Entry),
	}
}

// UpsertScore обновляет позицию аккаунта. Отставшая запись с меньшими
// очками отбрасывается: видимый счёт не регрессирует.
func (c *RankingCache) UpsertScore(ctx context.Context, entry ranking.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cur, ok := c.entries[entry.AccountID]; ok && cur.Points > entry.Points {
		return nil
	}
	c.entries[entry.AccountID] = entry
	return nil
}

// Rebuild доливает в кеш полный срез; более свежие записи (по очкам)
// не затираются.
func (c *RankingCache) Rebuild(ctx context.Context, entries []ranking.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range entries {
		if cur, ok := c.entries[e.AccountID]; ok && cur.Points > e.Points {
			continue
		}
		c.entries[e.AccountID] = e
	}
	return nil
}

// Invalidate сбрасывает кеш.
func (c *RankingCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[shared.AccountID]ranking.Entry)
	return nil
}

// Size возвращает количество записей в кеше.
func (c *RankingCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
