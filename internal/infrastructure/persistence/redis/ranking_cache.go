package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lingo-hub/lingo-progress-hub/internal/domain/ranking"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RANKING CACHE
//
// Архитектура:
//   - Sorted Set "ranking:scores" хранит accountID -> композитный счёт
//   - Hash "ranking:info" хранит accountID -> JSON строки рейтинга
//
// Композитный счёт кодирует оба ключа порядка в один float64:
//
//   score = points * 1e9 + (tieEpoch - createdAtUnix)
//
// Очки доминируют, а из двух равных по очкам выше тот, кто создан
// раньше (большая добавка). Для points < 2^23 и разумных дат счёт
// остаётся в пределах точной целой арифметики float64 (2^53).
//
// Все записи и постраничные чтения выполняются Lua-скриптами: пара
// zset+hash меняется и читается атомарно, а счёт аккаунта в кеше
// никогда не уменьшается - отставший писатель или устаревший срез
// rebuild-а не затирают более свежую запись.
// ══════════════════════════════════════════════════════════════════════════════

const (
	keyRankingScores = PrefixRanking + "scores"
	keyRankingInfo   = PrefixRanking + "info"

	// tieEpoch - верхняя граница createdAt для тай-брейка (2033-05-18).
	tieEpoch = int64(2_000_000_000)

	pointsScale = float64(1_000_000_000)
)

// compositeScore кодирует (points DESC, createdAt ASC) в один счёт.
func compositeScore(points int, createdAt time.Time) float64 {
	return float64(points)*pointsScale + float64(tieEpoch-createdAt.Unix())
}

// upsertScript записывает счёт и строку одного аккаунта, только если
// новый счёт не ниже текущего. KEYS = {scores, info},
// ARGV = {accountID, score, json}.
var upsertScript = redis.NewScript(`
local cur = redis.call('ZSCORE', KEYS[1], ARGV[1])
if cur and tonumber(ARGV[2]) < tonumber(cur) then
  return 0
end
redis.call('ZADD', KEYS[1], ARGV[2], ARGV[1])
redis.call('HSET', KEYS[2], ARGV[1], ARGV[3])
return 1
`)

// mergeScript - upsertScript для полного среза: ARGV - тройки
// {accountID, score, json}. Срез из авторитетного источника доливает
// отставшие и отсутствующие записи, не затирая более свежие.
var mergeScript = redis.NewScript(`
for i = 1, #ARGV, 3 do
  local cur = redis.call('ZSCORE', KEYS[1], ARGV[i])
  if not cur or tonumber(ARGV[i+1]) >= tonumber(cur) then
    redis.call('ZADD', KEYS[1], ARGV[i+1], ARGV[i])
    redis.call('HSET', KEYS[2], ARGV[i], ARGV[i+2])
  end
end
return 1
`)

// pageScript возвращает {total, id1, json1, id2, json2, ...} одним
// атомарным шагом: порядок и строки сняты в один момент времени.
// ARGV = {start, stop} (индексы ZREVRANGE).
var pageScript = redis.NewScript(`
local out = {redis.call('ZCARD', KEYS[1])}
local ids = redis.call('ZREVRANGE', KEYS[1], ARGV[1], ARGV[2])
for _, id in ipairs(ids) do
  out[#out+1] = id
  local info = redis.call('HGET', KEYS[2], id)
  if info then out[#out+1] = info else out[#out+1] = '' end
end
return out
`)

// rankScript возвращает {rank, json} одного аккаунта атомарно,
// false - если аккаунта нет в рейтинге. ARGV = {accountID}.
var rankScript = redis.NewScript(`
local rank = redis.call('ZREVRANK', KEYS[1], ARGV[1])
if not rank then return false end
local info = redis.call('HGET', KEYS[2], ARGV[1])
if info then return {rank, info} else return {rank, ''} end
`)

var rankingKeys = []string{keyRankingScores, keyRankingInfo}

// cachedEntry - сериализованная строка рейтинга в хеше.
type cachedEntry struct {
	AccountID   string    `json:"account_id"`
	DisplayName string    `json:"display_name"`
	Points      int       `json:"points"`
	Level       int       `json:"level"`
	Streak      int       `json:"streak"`
	CreatedAt   time.Time `json:"created_at"`
}

func marshalEntry(e ranking.Entry) ([]byte, error) {
	data, err := json.Marshal(cachedEntry{
		AccountID:   e.AccountID.String(),
		DisplayName: e.DisplayName,
		Points:      e.Points,
		Level:       e.Level,
		Streak:      e.Streak,
		CreatedAt:   e.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("ranking_cache: marshal failed: %w", err)
	}
	return data, nil
}

// RankingCache реализует ranking.Cache и читающие операции рейтинга
// поверх Redis Sorted Set. Ранги и страницы считаются за O(log N).
type RankingCache struct {
	cache *Cache
}

// NewRankingCache создаёт кеш рейтинга.
func NewRankingCache(cache *Cache) *RankingCache {
	return &RankingCache{cache: cache}
}

// ──────────────────────────────────────────────────────────────────────────────
// WRITE SIDE (ranking.Cache)
// ──────────────────────────────────────────────────────────────────────────────

// UpsertScore обновляет позицию аккаунта в кеше. Запись с более низким
// счётом, чем уже видимый, молча отбрасывается: очки аккаунта в кеше
// не регрессируют.
func (r *RankingCache) UpsertScore(ctx context.Context, entry ranking.Entry) error {
	data, err := marshalEntry(entry)
	if err != nil {
		return err
	}

	return upsertScript.Run(ctx, r.cache.Client(), rankingKeys,
		entry.AccountID.String(),
		compositeScore(entry.Points, entry.CreatedAt),
		data,
	).Err()
}

// Rebuild доливает в кеш полный срез из авторитетного источника.
// Слияние монотонно по счёту: записи, обновлённые после снятия среза,
// остаются как есть. Полный сброс делает Invalidate.
func (r *RankingCache) Rebuild(ctx context.Context, entries []ranking.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	argv := make([]interface{}, 0, len(entries)*3)
	for _, e := range entries {
		data, err := marshalEntry(e)
		if err != nil {
			return err
		}
		argv = append(argv, e.AccountID.String(), compositeScore(e.Points, e.CreatedAt), data)
	}

	return mergeScript.Run(ctx, r.cache.Client(), rankingKeys, argv...).Err()
}

// Invalidate сбрасывает кеш целиком.
func (r *RankingCache) Invalidate(ctx context.Context) error {
	return r.cache.Client().Del(ctx, keyRankingScores, keyRankingInfo).Err()
}

// ──────────────────────────────────────────────────────────────────────────────
// READ SIDE (ranking.View поверх тёплого кеша)
// ──────────────────────────────────────────────────────────────────────────────

// GetPage возвращает страницу рейтинга из кеша. Порядок, счёт и строки
// сняты одним атомарным шагом: страница не смешивает состояния аккаунта
// до и после конкурентного обновления.
func (r *RankingCache) GetPage(ctx context.Context, p shared.Pagination) (ranking.Page, error) {
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return ranking.Page{}, err
	}

	start := int64(p.Offset)
	end := start + int64(p.Limit) - 1

	raw, err := pageScript.Run(ctx, r.cache.Client(), rankingKeys, start, end).Slice()
	if err != nil {
		return ranking.Page{}, err
	}
	if len(raw) == 0 {
		return ranking.Page{}, fmt.Errorf("ranking_cache: empty page reply")
	}

	total, ok := raw[0].(int64)
	if !ok {
		return ranking.Page{}, fmt.Errorf("ranking_cache: unexpected total type %T", raw[0])
	}

	entries := make([]ranking.Entry, 0, (len(raw)-1)/2)
	for i := 1; i+1 < len(raw); i += 2 {
		info, _ := raw[i+1].(string)
		entry, ok := unmarshalEntry(info)
		if !ok {
			// Рассинхронизация zset и хеша: запись пропускаем,
			// следующий rebuild её вернёт.
			continue
		}
		entry.Rank = ranking.Rank(p.Offset + (i-1)/2 + 1)
		entries = append(entries, entry)
	}

	return ranking.Page{
		Entries: entries,
		Offset:  p.Offset,
		Limit:   p.Limit,
		Total:   int(total),
	}, nil
}

// GetRank возвращает строку рейтинга одного аккаунта из кеша.
func (r *RankingCache) GetRank(ctx context.Context, accountID shared.AccountID) (ranking.Entry, error) {
	raw, err := rankScript.Run(ctx, r.cache.Client(), rankingKeys, accountID.String()).Slice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ranking.Entry{}, shared.ErrAccountNotRanked
		}
		return ranking.Entry{}, err
	}
	if len(raw) != 2 {
		return ranking.Entry{}, fmt.Errorf("ranking_cache: unexpected rank reply length %d", len(raw))
	}

	// ZREVRANK считает с нуля, ранги в домене - с единицы.
	pos, ok := raw[0].(int64)
	if !ok {
		return ranking.Entry{}, fmt.Errorf("ranking_cache: unexpected rank type %T", raw[0])
	}

	info, _ := raw[1].(string)
	entry, ok := unmarshalEntry(info)
	if !ok {
		return ranking.Entry{}, shared.ErrAccountNotRanked
	}
	entry.Rank = ranking.Rank(pos + 1)
	return entry, nil
}

// TotalCount возвращает количество участников в кеше.
func (r *RankingCache) TotalCount(ctx context.Context) (int, error) {
	n, err := r.cache.Client().ZCard(ctx, keyRankingScores).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// unmarshalEntry разбирает JSON строки рейтинга; пустая строка -
// отсутствующая запись хеша.
func unmarshalEntry(info string) (ranking.Entry, bool) {
	if info == "" {
		return ranking.Entry{}, false
	}

	var ce cachedEntry
	if err := json.Unmarshal([]byte(info), &ce); err != nil {
		return ranking.Entry{}, false
	}

	return ranking.Entry{
		AccountID:   shared.AccountID(ce.AccountID),
		DisplayName: ce.DisplayName,
		Points:      ce.Points,
		Level:       ce.Level,
		Streak:      ce.Streak,
		CreatedAt:   ce.CreatedAt,
	}, true
}
