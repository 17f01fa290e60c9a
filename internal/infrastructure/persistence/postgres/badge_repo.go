package postgres

import (
	"context"

	"github.com/lingo-hub/lingo-progress-hub/internal/domain/badge"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGE AWARD REPOSITORY
// Идемпотентность выдачи держится на первичном ключе (account_id, badge_id):
// INSERT ... ON CONFLICT DO NOTHING. Проигравший гонку получает inserted=false.
// ══════════════════════════════════════════════════════════════════════════════

// AwardRepository реализует badge.AwardRepository поверх PostgreSQL.
type AwardRepository struct {
	conn *Connection
}

// NewAwardRepository создаёт репозиторий выдач.
func NewAwardRepository(conn *Connection) *AwardRepository {
	return &AwardRepository{conn: conn}
}

// Award записывает выдачу бейджа идемпотентно.
func (r *AwardRepository) Award(ctx context.Context, a badge.Award) (bool, error) {
	query := `
		INSERT INTO badge_awards (account_id, badge_id, earned_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id, badge_id) DO NOTHING`

	tag, err := r.conn.Exec(ctx, query, a.AccountID.String(), a.BadgeID.String(), a.EarnedAt)
	if err != nil {
		return false, shared.WrapError("badge", "award", shared.ErrStoreUnavailable, "insert failed", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListByAccount возвращает выдачи аккаунта, старые первыми.
func (r *AwardRepository) ListByAccount(ctx context.Context, accountID shared.AccountID) ([]badge.Award, error) {
	query := `
		SELECT account_id, badge_id, earned_at
		FROM badge_awards
		WHERE account_id = $1
		ORDER BY earned_at ASC, badge_id ASC`

	rows, err := r.conn.Query(ctx, query, accountID.String())
	if err != nil {
		return nil, shared.WrapError("badge", "list_by_account", shared.ErrStoreUnavailable, "query failed", err)
	}
	defer rows.Close()

	var awards []badge.Award
	for rows.Next() {
		var a badge.Award
		var accID, badgeID string

		if err := rows.Scan(&accID, &badgeID, &a.EarnedAt); err != nil {
			return nil, shared.WrapError("badge", "list_by_account", shared.ErrStoreUnavailable, "scan failed", err)
		}
		a.AccountID = shared.AccountID(accID)
		a.BadgeID = shared.BadgeID(badgeID)
		awards = append(awards, a)
	}
	return awards, rows.Err()
}

// ListIDsByAccount возвращает идентификаторы выданных бейджей.
func (r *AwardRepository) ListIDsByAccount(ctx context.Context, accountID shared.AccountID) ([]shared.BadgeID, error) {
	query := `SELECT badge_id FROM badge_awards WHERE account_id = $1 ORDER BY earned_at ASC`

	rows, err := r.conn.Query(ctx, query, accountID.String())
	if err != nil {
		return nil, shared.WrapError("badge", "list_ids", shared.ErrStoreUnavailable, "query failed", err)
	}
	defer rows.Close()

	var ids []shared.BadgeID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, shared.WrapError("badge", "list_ids", shared.ErrStoreUnavailable, "scan failed", err)
		}
		ids = append(ids, shared.BadgeID(id))
	}
	return ids, rows.Err()
}

// CountByBadge возвращает количество аккаунтов с бейджем.
func (r *AwardRepository) CountByBadge(ctx context.Context, badgeID shared.BadgeID) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		"SELECT COUNT(*) FROM badge_awards WHERE badge_id = $1", badgeID.String()).Scan(&count)
	if err != nil {
		return 0, shared.WrapError("badge", "count_by_badge", shared.ErrStoreUnavailable, "query failed", err)
	}
	return count, nil
}

// SyncCatalog записывает каталог бейджей в справочную таблицу.
// Таблица информационная: источником истины остаётся встроенный каталог.
func (r *AwardRepository) SyncCatalog(ctx context.Context, catalog []badge.Definition) error {
	query := `
		INSERT INTO badge_catalog (id, name, description, criterion_type, threshold, position)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			criterion_type = EXCLUDED.criterion_type,
			threshold = EXCLUDED.threshold,
			position = EXCLUDED.position`

	for i, def := range catalog {
		_, err := r.conn.Exec(ctx, query,
			def.ID.String(),
			def.Name,
			def.Description,
			string(def.Criterion.Type),
			def.Criterion.Threshold,
			i,
		)
		if err != nil {
			return shared.WrapError("badge", "sync_catalog", shared.ErrStoreUnavailable, "upsert failed", err)
		}
	}
	return nil
}
