package postgres

import (
	"context"

	"github.com/lingo-hub/lingo-progress-hub/internal/domain/ranking"
	"github.com/lingo-hub/lingo-progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RANKING VIEW
// Читающая сторона рейтинга поверх таблицы accounts. Порядок задаёт
// индекс idx_accounts_ranking: points DESC, created_at ASC.
// ══════════════════════════════════════════════════════════════════════════════

// RankingView реализует ranking.View поверх PostgreSQL.
type RankingView struct {
	conn *Connection
}

// NewRankingView создаёт представление рейтинга.
func NewRankingView(conn *Connection) *RankingView {
	return &RankingView{conn: conn}
}

// GetPage возвращает страницу рейтинга.
func (v *RankingView) GetPage(ctx context.Context, p shared.Pagination) (ranking.Page, error) {
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return ranking.Page{}, err
	}

	query := `
		SELECT id, display_name, points, level, streak, created_at,
		       ROW_NUMBER() OVER (ORDER BY points DESC, created_at ASC) AS rank
		FROM accounts
		ORDER BY points DESC, created_at ASC
		LIMIT $1 OFFSET $2`

	rows, err := v.conn.Query(ctx, query, p.Limit, p.Offset)
	if err != nil {
		return ranking.Page{}, shared.WrapError("ranking", "get_page", shared.ErrStoreUnavailable, "query failed", err)
	}
	defer rows.Close()

	entries := make([]ranking.Entry, 0, p.Limit)
	for rows.Next() {
		var e ranking.Entry
		var id string
		var rank int64

		if err := rows.Scan(&id, &e.DisplayName, &e.Points, &e.Level, &e.Streak, &e.CreatedAt, &rank); err != nil {
			return ranking.Page{}, shared.WrapError("ranking", "get_page", shared.ErrStoreUnavailable, "scan failed", err)
		}
		e.AccountID = shared.AccountID(id)
		e.Rank = ranking.Rank(rank)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return ranking.Page{}, shared.WrapError("ranking", "get_page", shared.ErrStoreUnavailable, "rows failed", err)
	}

	total, err := v.TotalCount(ctx)
	if err != nil {
		return ranking.Page{}, err
	}

	return ranking.Page{
		Entries: entries,
		Offset:  p.Offset,
		Limit:   p.Limit,
		Total:   total,
	}, nil
}

// GetRank возвращает строку рейтинга одного аккаунта.
// Оконная функция считает ранг по всему отношению, затем срез по ID.
func (v *RankingView) GetRank(ctx context.Context, accountID shared.AccountID) (ranking.Entry, error) {
	query := `
		SELECT id, display_name, points, level, streak, created_at, rank FROM (
			SELECT id, display_name, points, level, streak, created_at,
			       ROW_NUMBER() OVER (ORDER BY points DESC, created_at ASC) AS rank
			FROM accounts
		) ranked
		WHERE id = $1`

	var e ranking.Entry
	var id string
	var rank int64

	err := v.conn.QueryRow(ctx, query, accountID.String()).
		Scan(&id, &e.DisplayName, &e.Points, &e.Level, &e.Streak, &e.CreatedAt, &rank)
	if err != nil {
		if IsNoRows(err) {
			return ranking.Entry{}, shared.ErrAccountNotRanked
		}
		return ranking.Entry{}, shared.WrapError("ranking", "get_rank", shared.ErrStoreUnavailable, "query failed", err)
	}

	e.AccountID = shared.AccountID(id)
	e.Rank = ranking.Rank(rank)
	return e, nil
}

// TotalCount возвращает количество участников рейтинга.
func (v *RankingView) TotalCount(ctx context.Context) (int, error) {
	var count int
	err := v.conn.QueryRow(ctx, "SELECT COUNT(*) FROM accounts").Scan(&count)
	if err != nil {
		return 0, shared.WrapError("ranking", "total_count", shared.ErrStoreUnavailable, "query failed", err)
	}
	return count, nil
}

// AllEntries возвращает весь рейтинг в каноническом порядке.
// Используется воркером перестройки кеша.
func (v *RankingView) AllEntries(ctx context.Context) ([]ranking.Entry, error) {
	query := `
		SELECT id, display_name, points, level, streak, created_at,
		       ROW_NUMBER() OVER (ORDER BY points DESC, created_at ASC) AS rank
		FROM accounts
		ORDER BY points DESC, created_at ASC`

	rows, err := v.conn.Query(ctx, query)
	if err != nil {
		return nil, shared.WrapError("ranking", "all_entries", shared.ErrStoreUnavailable, "query failed", err)
	}
	defer rows.Close()

	var entries []ranking.Entry
	for rows.Next() {
		var e ranking.Entry
		var id string
		var rank int64

		if err := rows.Scan(&id, &e.DisplayName, &e.Points, &e.Level, &e.Streak, &e.CreatedAt, &rank); err != nil {
			return nil, shared.WrapError("ranking", "all_entries", shared.ErrStoreUnavailable, "scan failed", err)
		}
		e.AccountID = shared.AccountID(id)
		e.Rank = ranking.Rank(rank)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
