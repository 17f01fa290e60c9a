package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lingo-hub/lingo-progress-hub/internal/domain/account"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/progression"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACCOUNT REPOSITORY
// Авторитетное хранилище аккаунтов. Версионная запись через
// compare-and-swap: UPDATE ... WHERE id = $1 AND version = $2.
// ══════════════════════════════════════════════════════════════════════════════

// AccountRepository реализует account.Repository поверх PostgreSQL.
type AccountRepository struct {
	conn *Connection
}

// NewAccountRepository создаёт репозиторий аккаунтов.
func NewAccountRepository(conn *Connection) *AccountRepository {
	return &AccountRepository{conn: conn}
}

const accountColumns = `
	id, display_name, points, level, streak, best_streak, last_activity_at,
	units_completed, perfect_scores, camps_completed, ai_sessions,
	version, created_at, updated_at`

// Create создаёт новый аккаунт.
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO accounts (
			id, display_name, points, level, streak, best_streak, last_activity_at,
			units_completed, perfect_scores, camps_completed, ai_sessions,
			version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.conn.Exec(ctx, query,
		acc.ID.String(),
		acc.DisplayName,
		acc.Points,
		int(acc.Level),
		acc.Streak,
		acc.BestStreak,
		acc.LastActivityAt,
		acc.UnitsCompleted,
		acc.PerfectScores,
		acc.CampsCompleted,
		acc.AISessions,
		acc.Version,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAccountAlreadyExists
		}
		return shared.WrapError("account", "create", shared.ErrStoreUnavailable, "insert failed", err)
	}
	return nil
}

// GetByID возвращает аккаунт по ID.
func (r *AccountRepository) GetByID(ctx context.Context, id shared.AccountID) (*account.Account, error) {
	query := fmt.Sprintf("SELECT %s FROM accounts WHERE id = $1", accountColumns)
	return r.scanAccount(r.conn.QueryRow(ctx, query, id.String()))
}

// UpdateProgress сохраняет аккаунт со сравнением версии.
// Возвращает shared.ErrOptimisticLock, если версия в хранилище ушла вперёд.
func (r *AccountRepository) UpdateProgress(ctx context.Context, acc *account.Account) error {
	query := `
		UPDATE accounts SET
			display_name = $3,
			points = $4,
			level = $5,
			streak = $6,
			best_streak = $7,
			last_activity_at = $8,
			units_completed = $9,
			perfect_scores = $10,
			camps_completed = $11,
			ai_sessions = $12,
			version = $13,
			updated_at = $14
		WHERE id = $1 AND version = $2`

	tag, err := r.conn.Exec(ctx, query,
		acc.ID.String(),
		acc.Version-1,
		acc.DisplayName,
		acc.Points,
		int(acc.Level),
		acc.Streak,
		acc.BestStreak,
		acc.LastActivityAt,
		acc.UnitsCompleted,
		acc.PerfectScores,
		acc.CampsCompleted,
		acc.AISessions,
		acc.Version,
		acc.UpdatedAt,
	)
	if err != nil {
		return shared.WrapError("account", "update_progress", shared.ErrStoreUnavailable, "update failed", err)
	}

	if tag.RowsAffected() == 0 {
		// Либо аккаунта нет, либо версия устарела - различаем явно.
		exists, err := r.Exists(ctx, acc.ID)
		if err != nil {
			return err
		}
		if !exists {
			return shared.ErrAccountNotFound
		}
		return shared.ErrOptimisticLock
	}
	return nil
}

// Exists проверяет существование аккаунта.
func (r *AccountRepository) Exists(ctx context.Context, id shared.AccountID) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)", id.String()).Scan(&exists)
	if err != nil {
		return false, shared.WrapError("account", "exists", shared.ErrStoreUnavailable, "query failed", err)
	}
	return exists, nil
}

// Count возвращает общее количество аккаунтов.
func (r *AccountRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx, "SELECT COUNT(*) FROM accounts").Scan(&count)
	if err != nil {
		return 0, shared.WrapError("account", "count", shared.ErrStoreUnavailable, "query failed", err)
	}
	return count, nil
}

// scanAccount читает одну строку в доменную сущность.
func (r *AccountRepository) scanAccount(row pgx.Row) (*account.Account, error) {
	var acc account.Account
	var id string
	var level int

	err := row.Scan(
		&id,
		&acc.DisplayName,
		&acc.Points,
		&level,
		&acc.Streak,
		&acc.BestStreak,
		&acc.LastActivityAt,
		&acc.UnitsCompleted,
		&acc.PerfectScores,
		&acc.CampsCompleted,
		&acc.AISessions,
		&acc.Version,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrAccountNotFound
		}
		return nil, shared.WrapError("account", "scan", shared.ErrStoreUnavailable, "scan failed", err)
	}

	acc.ID = shared.AccountID(id)
	acc.Level = progression.Level(level)
	return &acc, nil
}
