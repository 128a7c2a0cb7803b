package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"pixelmint/api/internal/models"
)

// insertLedgerSQL is shared with the user and image repositories so every
// balance mutation appends its entry inside the same transaction.
const insertLedgerSQL = `
	INSERT INTO credit_ledger (
		id, user_id, delta, balance_after, kind, reason, actor_id, created_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, NOW()
	)
`

const selectLedgerColumns = `
	SELECT id, user_id, delta, balance_after, kind, reason, actor_id, created_at
	FROM credit_ledger
`

type LedgerRepository struct {
	pool *pgxpool.Pool
}

func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

func (r *LedgerRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.CreditEntry, int, error) {
	const query = selectLedgerColumns + `
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries, err := scanLedgerEntries(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM credit_ledger WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *LedgerRepository) List(ctx context.Context, limit, offset int) ([]models.CreditEntry, int, error) {
	const query = selectLedgerColumns + `
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries, err := scanLedgerEntries(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM credit_ledger`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanLedgerEntries(rows pgxRows) ([]models.CreditEntry, error) {
	var entries []models.CreditEntry
	for rows.Next() {
		var entry models.CreditEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Delta,
			&entry.BalanceAfter,
			&entry.Kind,
			&entry.Reason,
			&entry.ActorID,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
