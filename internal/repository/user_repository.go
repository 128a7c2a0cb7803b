package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pixelmint/api/internal/ids"
	"pixelmint/api/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")

	// ErrInsufficientCredits is returned by any debit whose conditional
	// update matched no row because the balance was below the cost.
	ErrInsufficientCredits = errors.New("insufficient credits")
)

const selectUserColumns = `
	SELECT id, email, password_hash, display_name, role, credits, avatar_url, created_at, updated_at
	FROM users
`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts the user and, when signupBonus > 0, the starting balance's
// ledger entry in the same transaction.
func (r *UserRepository) Create(ctx context.Context, user models.User, signupBonus int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertUser = `
		INSERT INTO users (
			id, email, password_hash, display_name, role, credits, avatar_url, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW(), NOW()
		)
	`
	if _, err := tx.Exec(ctx, insertUser,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.DisplayName,
		user.Role,
		user.Credits,
		user.AvatarURL,
	); err != nil {
		return err
	}

	if signupBonus > 0 {
		if _, err := tx.Exec(ctx, insertLedgerSQL,
			ids.New(), user.ID, signupBonus, user.Credits, models.CreditEntrySignupBonus, nil, nil,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	row := r.pool.QueryRow(ctx, selectUserColumns+`WHERE email = $1`, email)
	return scanUser(row)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	row := r.pool.QueryRow(ctx, selectUserColumns+`WHERE id = $1`, id)
	return scanUser(row)
}

// List returns a page of users, newest first, optionally filtered by a
// case-insensitive match on email or display name.
func (r *UserRepository) List(ctx context.Context, search string, limit, offset int) ([]models.User, int, error) {
	const query = selectUserColumns + `
		WHERE ($1 = '' OR email ILIKE '%' || $1 || '%' OR display_name ILIKE '%' || $1 || '%')
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, search, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	const countQuery = `
		SELECT COUNT(*) FROM users
		WHERE ($1 = '' OR email ILIKE '%' || $1 || '%' OR display_name ILIKE '%' || $1 || '%')
	`
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, search).Scan(&total); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserRepository) CreditBalance(ctx context.Context, id string) (int, error) {
	var credits int
	if err := r.pool.QueryRow(ctx, `SELECT credits FROM users WHERE id = $1`, id).Scan(&credits); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return credits, nil
}

// DebitCredits is the single authoritative charge path: an atomic
// "decrement if balance >= cost" with a ledger append in one transaction.
// On ErrInsufficientCredits the returned balance is the current one.
func (r *UserRepository) DebitCredits(ctx context.Context, userID string, cost int, kind models.CreditEntryKind) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	remaining, err := debitCreditsTx(ctx, tx, userID, cost, kind)
	if err != nil {
		return remaining, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return remaining, nil
}

// GrantCredits increments the target's balance and records who granted it
// and why. Returns the updated user.
func (r *UserRepository) GrantCredits(ctx context.Context, userID string, amount int, reason *string, actorID string) (models.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const update = `
		UPDATE users SET credits = credits + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING credits
	`
	var balance int
	if err := tx.QueryRow(ctx, update, userID, amount).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}

	if _, err := tx.Exec(ctx, insertLedgerSQL,
		ids.New(), userID, amount, balance, models.CreditEntryAdminGrant, reason, actorID,
	); err != nil {
		return models.User{}, err
	}

	row := tx.QueryRow(ctx, selectUserColumns+`WHERE id = $1`, userID)
	user, err := scanUser(row)
	if err != nil {
		return models.User{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// debitCreditsTx runs the conditional decrement plus ledger append inside an
// existing transaction. Shared with the image repository's charge transaction.
func debitCreditsTx(ctx context.Context, tx pgx.Tx, userID string, cost int, kind models.CreditEntryKind) (int, error) {
	const update = `
		UPDATE users SET credits = credits - $2, updated_at = NOW()
		WHERE id = $1 AND credits >= $2
		RETURNING credits
	`
	var remaining int
	if err := tx.QueryRow(ctx, update, userID, cost).Scan(&remaining); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return 0, err
		}
		var balance int
		if err := tx.QueryRow(ctx, `SELECT credits FROM users WHERE id = $1`, userID).Scan(&balance); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return 0, ErrUserNotFound
			}
			return 0, err
		}
		return balance, ErrInsufficientCredits
	}

	if _, err := tx.Exec(ctx, insertLedgerSQL,
		ids.New(), userID, -cost, remaining, kind, nil, nil,
	); err != nil {
		return 0, err
	}
	return remaining, nil
}

type pgxRow interface {
	Scan(dest ...any) error
}

func scanUser(row pgxRow) (models.User, error) {
	var user models.User
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.Role,
		&user.Credits,
		&user.AvatarURL,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}
