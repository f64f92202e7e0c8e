package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Xavierhuang/FounderEvents-sub002/pkg/database"
)

// PostgresLikeRepository implements LikeRepository using PostgreSQL.
// Toggling touches only like_count and never takes the capacity lock.
type PostgresLikeRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresLikeRepository creates a new PostgresLikeRepository
func NewPostgresLikeRepository(pool *pgxpool.Pool) *PostgresLikeRepository {
	return &PostgresLikeRepository{pool: pool}
}

// Toggle flips the like and returns the new state with the updated count
func (r *PostgresLikeRepository) Toggle(ctx context.Context, userID, eventID string) (bool, int, error) {
	var (
		liked bool
		count int
	)
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `DELETE FROM event_likes WHERE user_id = $1 AND event_id = $2`, userID, eventID)
		if err != nil {
			return err
		}

		delta := -1
		if result.RowsAffected() == 0 {
			inserted, err := tx.Exec(ctx, `
				INSERT INTO event_likes (user_id, event_id, created_at)
				VALUES ($1, $2, NOW())
				ON CONFLICT (user_id, event_id) DO NOTHING
			`, userID, eventID)
			if err != nil {
				return err
			}
			liked = true
			delta = 1
			if inserted.RowsAffected() == 0 {
				delta = 0
			}
		}

		return tx.QueryRow(ctx, `
			UPDATE public_events
			SET like_count = GREATEST(like_count + $2, 0)
			WHERE id = $1
			RETURNING like_count
		`, eventID, delta).Scan(&count)
	})
	if err != nil {
		return false, 0, err
	}
	return liked, count, nil
}

// Exists reports whether the user likes the event
func (r *PostgresLikeRepository) Exists(ctx context.Context, userID, eventID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM event_likes WHERE user_id = $1 AND event_id = $2)`,
		userID, eventID,
	).Scan(&exists)
	return exists, err
}
