package badge

import (
	"context"

	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// AwardRepository хранит факты выдачи бейджей.
type AwardRepository interface {
	// Award записывает выдачу бейджа. Повторная выдача той же пары
	// (аккаунт, бейдж) - no-op: возвращает inserted=false без ошибки.
	Award(ctx context.Context, award Award) (inserted bool, err error)

	// ListByAccount возвращает выдачи аккаунта, отсортированные по
	// времени получения (старые первыми).
	ListByAccount(ctx context.Context, accountID shared.AccountID) ([]Award, error)

	// ListIDsByAccount возвращает только идентификаторы выданных бейджей.
	ListIDsByAccount(ctx context.Context, accountID shared.AccountID) ([]shared.BadgeID, error)

	// CountByBadge возвращает, скольким аккаунтам выдан бейдж.
	CountByBadge(ctx context.Context, badgeID shared.BadgeID) (int, error)
}
