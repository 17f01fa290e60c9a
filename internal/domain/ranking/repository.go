package ranking

import (
	"context"

	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VIEW & CACHE INTERFACES
// Реализации находятся в infrastructure слое (PostgreSQL, Redis, memory).
// ══════════════════════════════════════════════════════════════════════════════

// View - читающая сторона рейтинга. Порядок всегда канонический:
// очки по убыванию, при равенстве - более старый аккаунт выше.
type View interface {
	// GetPage возвращает страницу рейтинга по offset/limit.
	// Offset за концом рейтинга - пустая страница, не ошибка.
	GetPage(ctx context.Context, p shared.Pagination) (Page, error)

	// GetRank возвращает строку рейтинга для аккаунта.
	// Возвращает shared.ErrAccountNotRanked, если аккаунт не входит
	// в рейтинг (или не существует).
	GetRank(ctx context.Context, accountID shared.AccountID) (Entry, error)

	// TotalCount возвращает количество участников рейтинга.
	TotalCount(ctx context.Context) (int, error)
}

// Cache - быстрая (допускающая отставание) копия рейтинга.
// Обновления best-effort: ошибка кеша не роняет запись прогресса.
type Cache interface {
	// UpsertScore обновляет позицию аккаунта в кеше.
	UpsertScore(ctx context.Context, entry Entry) error

	// Rebuild доливает в кеш полный срез из авторитетного источника.
	// Записи, обновлённые после снятия среза, не затираются: видимый
	// счёт аккаунта не уменьшается. Полный сброс делает Invalidate.
	Rebuild(ctx context.Context, entries []Entry) error

	// Invalidate сбрасывает кеш целиком.
	Invalidate(ctx context.Context) error
}
