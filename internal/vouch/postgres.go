package vouch

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores vouches in the vouches table.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository returns a repository over db.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert implements Repository.
func (r *PostgresRepository) Insert(ctx context.Context, v Vouch) error {
	const q = `
		INSERT INTO vouches (id, from_id, target_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.Exec(ctx, q, v.ID, v.FromID, v.TargetID, v.Rating, v.Comment, v.CreatedAt); err != nil {
		return fmt.Errorf("insert vouch %s: %w", v.ID, err)
	}
	return nil
}

// Stats implements Repository.
func (r *PostgresRepository) Stats(ctx context.Context, targetID string) (int64, int64, error) {
	const q = `
		SELECT COUNT(*), COALESCE(SUM(rating), 0)
		FROM vouches
		WHERE target_id = $1
	`
	var count, sum int64
	if err := r.db.QueryRow(ctx, q, targetID).Scan(&count, &sum); err != nil {
		return 0, 0, fmt.Errorf("vouch stats for %s: %w", targetID, err)
	}
	return count, sum, nil
}

// Recent implements Repository.
func (r *PostgresRepository) Recent(ctx context.Context, targetID string, limit int) ([]Vouch, error) {
	const q = `
		SELECT id, from_id, target_id, rating, comment, created_at
		FROM vouches
		WHERE target_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, q, targetID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent vouches for %s: %w", targetID, err)
	}
	defer rows.Close()

	out := []Vouch{}
	for rows.Next() {
		var v Vouch
		if err := rows.Scan(&v.ID, &v.FromID, &v.TargetID, &v.Rating, &v.Comment, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan vouch: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vouches: %w", err)
	}
	return out, nil
}

var _ Repository = (*PostgresRepository)(nil)
