package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"linklite/internal/database"
	"linklite/internal/entities"
)

const pqUniqueViolation = "23505"

const linkColumns = "id, user_id, original_url, short_code, clicks, is_active, created_at, updated_at"

// LinkRepository defines the interface for link database operations.
// Claim is the only writer that allocates a short code; Update and
// Delete enforce ownership in the query itself.
type LinkRepository interface {
	Claim(ctx context.Context, ownerID int64, originalURL, code string) (*entities.Link, error)
	FindByCode(ctx context.Context, code string) (*entities.Link, error)
	FindByID(ctx context.Context, id int64) (*entities.Link, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*entities.Link, error)
	Update(ctx context.Context, link *entities.Link) error
	Delete(ctx context.Context, id, ownerID int64) error
	IncrementClicks(ctx context.Context, id int64) error
}

type linkRepository struct {
	txm *database.TxManager
}

// NewLinkRepository creates a new link repository
func NewLinkRepository(txm *database.TxManager) LinkRepository {
	return &linkRepository{txm: txm}
}

// Claim attempts to insert a new row with the given code. The whole
// attempt runs in one transaction: a SELECT ... FOR UPDATE on the code
// closes the check-then-insert race window, and the UNIQUE constraint
// on short_code backstops anything the lock misses. A taken code, by
// either path, surfaces as entities.ErrCodeCollision after rollback.
func (r *linkRepository) Claim(ctx context.Context, ownerID int64, originalURL, code string) (*entities.Link, error) {
	var link entities.Link

	err := r.txm.WithinTx(ctx, func(ctx context.Context) error {
		q := r.txm.Querier(ctx)

		var existingID int64
		err := q.QueryRowContext(ctx,
			"SELECT id FROM urls WHERE short_code = $1 FOR UPDATE", code,
		).Scan(&existingID)
		if err == nil {
			return entities.ErrCodeCollision
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check short code: %w", err)
		}

		err = q.QueryRowContext(ctx, `
			INSERT INTO urls (user_id, original_url, short_code)
			VALUES ($1, $2, $3)
			RETURNING `+linkColumns,
			ownerID, originalURL, code,
		).Scan(
			&link.ID,
			&link.OwnerID,
			&link.OriginalURL,
			&link.ShortCode,
			&link.Clicks,
			&link.IsActive,
			&link.CreatedAt,
			&link.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return entities.ErrCodeCollision
			}
			return fmt.Errorf("failed to insert link: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &link, nil
}

// FindByCode finds a link by its short code. Inactive rows are not
// visible here; this is the accessor the public resolution path uses.
func (r *linkRepository) FindByCode(ctx context.Context, code string) (*entities.Link, error) {
	query := `
		SELECT ` + linkColumns + `
		FROM urls
		WHERE short_code = $1 AND is_active = TRUE
	`
	return r.scanOne(ctx, query, code)
}

// FindByID finds a link by id regardless of active state. Used for
// ownership checks on update/delete.
func (r *linkRepository) FindByID(ctx context.Context, id int64) (*entities.Link, error) {
	query := `
		SELECT ` + linkColumns + `
		FROM urls
		WHERE id = $1
	`
	return r.scanOne(ctx, query, id)
}

func (r *linkRepository) scanOne(ctx context.Context, query string, arg any) (*entities.Link, error) {
	var link entities.Link
	err := r.txm.Querier(ctx).QueryRowContext(ctx, query, arg).Scan(
		&link.ID,
		&link.OwnerID,
		&link.OriginalURL,
		&link.ShortCode,
		&link.Clicks,
		&link.IsActive,
		&link.CreatedAt,
		&link.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entities.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find link: %w", err)
	}
	return &link, nil
}

// ListByOwner retrieves all links for a specific owner, newest first
func (r *linkRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*entities.Link, error) {
	query := `
		SELECT ` + linkColumns + `
		FROM urls
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.txm.Querier(ctx).QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	var links []*entities.Link
	for rows.Next() {
		var link entities.Link
		err := rows.Scan(
			&link.ID,
			&link.OwnerID,
			&link.OriginalURL,
			&link.ShortCode,
			&link.Clicks,
			&link.IsActive,
			&link.CreatedAt,
			&link.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, &link)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}

	return links, nil
}

// Update persists original_url and is_active. Everything else is
// immutable after creation. The WHERE clause re-checks ownership so a
// stale or forged id/owner pair cannot touch someone else's row.
func (r *linkRepository) Update(ctx context.Context, link *entities.Link) error {
	return r.txm.WithinTx(ctx, func(ctx context.Context) error {
		result, err := r.txm.Querier(ctx).ExecContext(ctx, `
			UPDATE urls
			SET original_url = $1, is_active = $2, updated_at = NOW()
			WHERE id = $3 AND user_id = $4
		`, link.OriginalURL, link.IsActive, link.ID, link.OwnerID)
		if err != nil {
			return fmt.Errorf("failed to update link: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return entities.ErrNotFound
		}
		return nil
	})
}

// Delete removes the row, ownership enforced at the query level
func (r *linkRepository) Delete(ctx context.Context, id, ownerID int64) error {
	return r.txm.WithinTx(ctx, func(ctx context.Context) error {
		result, err := r.txm.Querier(ctx).ExecContext(ctx,
			"DELETE FROM urls WHERE id = $1 AND user_id = $2", id, ownerID)
		if err != nil {
			return fmt.Errorf("failed to delete link: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return entities.ErrNotFound
		}
		return nil
	})
}

// IncrementClicks bumps the click counter atomically. Callers treat a
// failure here as non-fatal accounting loss.
func (r *linkRepository) IncrementClicks(ctx context.Context, id int64) error {
	result, err := r.txm.Querier(ctx).ExecContext(ctx,
		"UPDATE urls SET clicks = clicks + 1 WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to increment clicks: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return entities.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
