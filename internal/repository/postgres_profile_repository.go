package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Xavierhuang/FounderEvents-sub002/internal/domain"
)

// PostgresProfileRepository implements ProfileRepository using PostgreSQL
type PostgresProfileRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresProfileRepository creates a new PostgresProfileRepository
func NewPostgresProfileRepository(pool *pgxpool.Pool) *PostgresProfileRepository {
	return &PostgresProfileRepository{pool: pool}
}

// Create creates a new organizer profile
func (r *PostgresProfileRepository) Create(ctx context.Context, p *domain.OrganizerProfile) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO organizer_profiles (user_id, display_name, bio, website, total_events, total_attendees, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, 0, $5, $6)
	`, p.UserID, p.DisplayName, p.Bio, p.Website, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "") {
			return ErrProfileExists
		}
		return err
	}
	return nil
}

// GetByUserID retrieves an organizer profile
func (r *PostgresProfileRepository) GetByUserID(ctx context.Context, userID string) (*domain.OrganizerProfile, error) {
	p := &domain.OrganizerProfile{}
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, display_name, bio, website, total_events, total_attendees, created_at, updated_at
		FROM organizer_profiles
		WHERE user_id = $1
	`, userID).Scan(
		&p.UserID,
		&p.DisplayName,
		&p.Bio,
		&p.Website,
		&p.TotalEvents,
		&p.TotalAttendees,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// AdjustTotals applies the deltas to the informational aggregates
func (r *PostgresProfileRepository) AdjustTotals(ctx context.Context, userID string, attendeesDelta, eventsDelta int) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE organizer_profiles
		SET total_attendees = GREATEST(total_attendees + $2, 0),
		    total_events = GREATEST(total_events + $3, 0),
		    updated_at = NOW()
		WHERE user_id = $1
	`, userID, attendeesDelta, eventsDelta)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}
