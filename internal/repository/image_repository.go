package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pixelmint/api/internal/models"
)

var ErrImageNotFound = errors.New("image not found")

const selectImageColumns = `
	SELECT id, user_id, url, prompt, object_key, width, height, size_bytes, created_at
	FROM images
`

type ImageRepository struct {
	pool *pgxpool.Pool
}

func NewImageRepository(pool *pgxpool.Pool) *ImageRepository {
	return &ImageRepository{pool: pool}
}

// CreateWithCharge inserts the image row and debits the owner's balance as a
// single transaction. Either both happen or neither does; a balance below
// cost at decrement time rolls everything back.
func (r *ImageRepository) CreateWithCharge(ctx context.Context, image models.Image, cost int) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const insert = `
		INSERT INTO images (
			id, user_id, url, prompt, object_key, width, height, size_bytes, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, NOW()
		)
	`
	if _, err := tx.Exec(ctx, insert,
		image.ID,
		image.UserID,
		image.URL,
		image.Prompt,
		image.ObjectKey,
		image.Width,
		image.Height,
		image.SizeBytes,
	); err != nil {
		return 0, err
	}

	remaining, err := debitCreditsTx(ctx, tx, image.UserID, cost, models.CreditEntryGeneration)
	if err != nil {
		return remaining, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return remaining, nil
}

func (r *ImageRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Image, int, error) {
	const query = selectImageColumns + `
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var images []models.Image
	for rows.Next() {
		image, err := scanImage(rows)
		if err != nil {
			return nil, 0, err
		}
		images = append(images, image)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM images WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	return images, total, nil
}

// DeleteOwned removes the image only when it belongs to userID. A miss does
// not distinguish "absent" from "someone else's"; both are ErrImageNotFound.
func (r *ImageRepository) DeleteOwned(ctx context.Context, imageID string, userID string) (models.Image, error) {
	const query = `
		DELETE FROM images
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, url, prompt, object_key, width, height, size_bytes, created_at
	`

	row := r.pool.QueryRow(ctx, query, imageID, userID)
	image, err := scanImage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Image{}, ErrImageNotFound
		}
		return models.Image{}, err
	}
	return image, nil
}

func scanImage(row pgxRow) (models.Image, error) {
	var image models.Image
	if err := row.Scan(
		&image.ID,
		&image.UserID,
		&image.URL,
		&image.Prompt,
		&image.ObjectKey,
		&image.Width,
		&image.Height,
		&image.SizeBytes,
		&image.CreatedAt,
	); err != nil {
		return models.Image{}, err
	}
	return image, nil
}
