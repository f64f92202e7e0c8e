package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Xavierhuang/FounderEvents-sub002/internal/domain"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/database"
)

const (
	activeEmailIndex = "event_registrations_active_email_key"

	registrationColumns = `
		id::text, event_id::text, user_id, first_name, last_name, email, quantity,
		total_amount::float8, payment_status, status, created_at, updated_at`
)

// querier is the subset of pgx shared by the pool and a transaction
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

func scanRegistration(row rowScanner) (*domain.Registration, error) {
	reg := &domain.Registration{}
	err := row.Scan(
		&reg.ID,
		&reg.EventID,
		&reg.UserID,
		&reg.FirstName,
		&reg.LastName,
		&reg.Email,
		&reg.Quantity,
		&reg.TotalAmount,
		&reg.PaymentStatus,
		&reg.Status,
		&reg.CreatedAt,
		&reg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func findActiveByUser(ctx context.Context, q querier, eventID, userID string) (*domain.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM event_registrations
		WHERE event_id = $1 AND user_id = $2 AND status IN ('PENDING', 'CONFIRMED')
		ORDER BY created_at DESC
		LIMIT 1
	`
	reg, err := scanRegistration(q.QueryRow(ctx, query, eventID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return reg, nil
}

// PostgresRegistrationRepository implements RegistrationRepository using PostgreSQL.
// The per-event lock is a row lock on public_events taken with SELECT ... FOR UPDATE.
type PostgresRegistrationRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRegistrationRepository creates a new PostgresRegistrationRepository
func NewPostgresRegistrationRepository(pool *pgxpool.Pool) *PostgresRegistrationRepository {
	return &PostgresRegistrationRepository{pool: pool}
}

// WithinEventLock runs fn in a transaction holding the event row lock
func (r *PostgresRegistrationRepository) WithinEventLock(ctx context.Context, slug string, fn func(LedgerTx, *domain.Event) error) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := `SELECT ` + eventColumns + ` FROM public_events WHERE slug = $1 FOR UPDATE`
		event, err := scanEvent(tx.QueryRow(ctx, query, slug))
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return err
			}
			event = nil
		}
		return fn(&postgresLedgerTx{tx: tx}, event)
	})
}

// FindActiveByUser returns the user's active registration
func (r *PostgresRegistrationRepository) FindActiveByUser(ctx context.Context, eventID, userID string) (*domain.Registration, error) {
	return findActiveByUser(ctx, r.pool, eventID, userID)
}

// ListByEvent returns all registrations of an event
func (r *PostgresRegistrationRepository) ListByEvent(ctx context.Context, eventID string) ([]*domain.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM event_registrations
		WHERE event_id = $1
		ORDER BY created_at DESC, id
	`
	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	regs := make([]*domain.Registration, 0)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

type postgresLedgerTx struct {
	tx pgx.Tx
}

func (l *postgresLedgerTx) ConfirmedQuantity(ctx context.Context, eventID string) (int, error) {
	var total int
	err := l.tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity), 0)::int
		FROM event_registrations
		WHERE event_id = $1 AND status = 'CONFIRMED'
	`, eventID).Scan(&total)
	return total, err
}

func (l *postgresLedgerTx) FindActiveByEmail(ctx context.Context, eventID, email string) (*domain.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM event_registrations
		WHERE event_id = $1 AND lower(email) = lower($2) AND status IN ('PENDING', 'CONFIRMED')
	`
	reg, err := scanRegistration(l.tx.QueryRow(ctx, query, eventID, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return reg, nil
}

func (l *postgresLedgerTx) FindActiveByUser(ctx context.Context, eventID, userID string) (*domain.Registration, error) {
	return findActiveByUser(ctx, l.tx, eventID, userID)
}

func (l *postgresLedgerTx) Insert(ctx context.Context, reg *domain.Registration) error {
	_, err := l.tx.Exec(ctx, `
		INSERT INTO event_registrations (
			id, event_id, user_id, first_name, last_name, email, quantity,
			total_amount, payment_status, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		reg.ID,
		reg.EventID,
		reg.UserID,
		reg.FirstName,
		reg.LastName,
		reg.Email,
		reg.Quantity,
		reg.TotalAmount,
		reg.PaymentStatus,
		reg.Status,
		reg.CreatedAt,
		reg.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, activeEmailIndex) {
			return ErrDuplicateActiveRegistration
		}
		return err
	}
	return nil
}

func (l *postgresLedgerTx) UpdateStatus(ctx context.Context, reg *domain.Registration, from string) error {
	result, err := l.tx.Exec(ctx, `
		UPDATE event_registrations
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`, reg.ID, from, reg.Status, reg.UpdatedAt)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrStaleRegistration
	}
	return nil
}

func (l *postgresLedgerTx) AdjustRegistrationCount(ctx context.Context, eventID string, delta int) (int, error) {
	var count int
	err := l.tx.QueryRow(ctx, `
		UPDATE public_events
		SET registration_count = registration_count + $2, updated_at = NOW()
		WHERE id = $1 AND registration_count + $2 >= 0
		RETURNING registration_count
	`, eventID, delta).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNegativeCount
		}
		return 0, err
	}
	return count, nil
}
