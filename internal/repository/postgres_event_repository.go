package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Xavierhuang/FounderEvents-sub002/internal/domain"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/database"
)

const (
	eventSlugConstraint = "public_events_slug_key"

	eventColumns = `
		id::text, slug, organizer_id, title, description, location, category, image_url,
		start_date, end_date, timezone, registration_deadline, status, visibility,
		is_featured, published_at, capacity, requires_approval, price::float8, currency,
		registration_count, view_count, like_count, created_at, updated_at`
)

// rowScanner is satisfied by pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	err := row.Scan(
		&e.ID,
		&e.Slug,
		&e.OrganizerID,
		&e.Title,
		&e.Description,
		&e.Location,
		&e.Category,
		&e.ImageURL,
		&e.StartDate,
		&e.EndDate,
		&e.Timezone,
		&e.RegistrationDeadline,
		&e.Status,
		&e.Visibility,
		&e.IsFeatured,
		&e.PublishedAt,
		&e.Capacity,
		&e.RequiresApproval,
		&e.Price,
		&e.Currency,
		&e.RegistrationCount,
		&e.ViewCount,
		&e.LikeCount,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// isUniqueViolation reports whether err is a unique violation, optionally on a named constraint
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// PostgresEventRepository implements EventRepository using PostgreSQL
type PostgresEventRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEventRepository creates a new PostgresEventRepository
func NewPostgresEventRepository(pool *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{pool: pool}
}

// Create inserts a new event. The slug unique constraint makes allocation race-safe.
func (r *PostgresEventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO public_events (
			id, slug, organizer_id, title, description, location, category, image_url,
			start_date, end_date, timezone, registration_deadline, status, visibility,
			is_featured, published_at, capacity, requires_approval, price, currency,
			registration_count, view_count, like_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, 0, 0, 0, $21, $22)
	`
	_, err := r.pool.Exec(ctx, query,
		e.ID,
		e.Slug,
		e.OrganizerID,
		e.Title,
		e.Description,
		e.Location,
		e.Category,
		e.ImageURL,
		e.StartDate,
		e.EndDate,
		e.Timezone,
		e.RegistrationDeadline,
		e.Status,
		e.Visibility,
		e.IsFeatured,
		e.PublishedAt,
		e.Capacity,
		e.RequiresApproval,
		e.Price,
		e.Currency,
		e.CreatedAt,
		e.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, eventSlugConstraint) {
			return ErrSlugTaken
		}
		return err
	}
	return nil
}

// GetByID retrieves an event by ID
func (r *PostgresEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM public_events WHERE id = $1`
	e, err := scanEvent(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

// GetBySlug retrieves an event by slug
func (r *PostgresEventRepository) GetBySlug(ctx context.Context, slug string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM public_events WHERE slug = $1`
	e, err := scanEvent(r.pool.QueryRow(ctx, query, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

// Update locks the row, applies fn and writes back the editable columns
func (r *PostgresEventRepository) Update(ctx context.Context, slug string, fn func(*domain.Event) error) (*domain.Event, error) {
	var updated *domain.Event
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := `SELECT ` + eventColumns + ` FROM public_events WHERE slug = $1 FOR UPDATE`
		e, err := scanEvent(tx.QueryRow(ctx, query, slug))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}

		if err := fn(e); err != nil {
			return err
		}
		e.UpdatedAt = time.Now()

		_, err = tx.Exec(ctx, `
			UPDATE public_events
			SET title = $2, description = $3, location = $4, category = $5, image_url = $6,
			    start_date = $7, end_date = $8, timezone = $9, registration_deadline = $10,
			    status = $11, visibility = $12, is_featured = $13, published_at = $14,
			    capacity = $15, requires_approval = $16, price = $17, currency = $18, updated_at = $19
			WHERE id = $1
		`,
			e.ID,
			e.Title,
			e.Description,
			e.Location,
			e.Category,
			e.ImageURL,
			e.StartDate,
			e.EndDate,
			e.Timezone,
			e.RegistrationDeadline,
			e.Status,
			e.Visibility,
			e.IsFeatured,
			e.PublishedAt,
			e.Capacity,
			e.RequiresApproval,
			e.Price,
			e.Currency,
			e.UpdatedAt,
		)
		if err != nil {
			return err
		}
		updated = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes an event
func (r *PostgresEventRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM public_events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("event %s not found", id)
	}
	return nil
}

var (
	filterColumns = map[string]string{
		domain.FieldStatus:      "status",
		domain.FieldVisibility:  "visibility",
		domain.FieldIsFeatured:  "is_featured",
		domain.FieldOrganizerID: "organizer_id",
		domain.FieldCategory:    "category",
		domain.FieldStartDate:   "start_date",
		domain.FieldTitle:       "title",
	}
	sortColumns = map[string]string{
		domain.FieldStartDate:         "start_date",
		domain.FieldTitle:             "lower(title)",
		domain.FieldCreatedAt:         "created_at",
		domain.FieldRegistrationCount: "registration_count",
		domain.FieldViewCount:         "view_count",
		domain.FieldLikeCount:         "like_count",
	}
	sqlOperators = map[string]string{
		domain.OpEq:  "=",
		domain.OpNeq: "<>",
		domain.OpGt:  ">",
		domain.OpGte: ">=",
		domain.OpLt:  "<",
		domain.OpLte: "<=",
	}
)

// buildWhere translates validated filters into a parameterised WHERE clause
func buildWhere(filters []domain.Filter) (string, []interface{}, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}

	clauses := make([]string, 0, len(filters))
	args := make([]interface{}, 0, len(filters))
	argIndex := 1

	for _, f := range filters {
		column, ok := filterColumns[f.Field]
		if !ok {
			return "", nil, fmt.Errorf("unknown filter field %q", f.Field)
		}

		if f.Operator == domain.OpContains {
			s, _ := f.Value.(string)
			clauses = append(clauses, fmt.Sprintf("%s ILIKE $%d", column, argIndex))
			args = append(args, "%"+escapeLike(s)+"%")
			argIndex++
			continue
		}

		op, ok := sqlOperators[f.Operator]
		if !ok {
			return "", nil, fmt.Errorf("unknown operator %q", f.Operator)
		}
		clauses = append(clauses, fmt.Sprintf("%s %s $%d", column, op, argIndex))
		args = append(args, f.Value)
		argIndex++
	}

	return "WHERE " + strings.Join(clauses, " AND "), args, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// List retrieves one page of events for a validated query
func (r *PostgresEventRepository) List(ctx context.Context, q *domain.EventQuery) ([]*domain.Event, int, error) {
	whereClause, args, err := buildWhere(q.Filters)
	if err != nil {
		return nil, 0, err
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM public_events %s", whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortColumn, ok := sortColumns[q.Sort.Field]
	if !ok {
		sortColumn = "start_date"
	}
	direction := "ASC"
	if q.Sort.Desc {
		direction = "DESC"
	}

	argIndex := len(args) + 1
	query := fmt.Sprintf(`
		SELECT %s
		FROM public_events
		%s
		ORDER BY %s %s, id
		LIMIT $%d OFFSET $%d
	`, eventColumns, whereClause, sortColumn, direction, argIndex, argIndex+1)
	args = append(args, q.Limit, q.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

// IncrementViewCount bumps view_count in a single statement
func (r *PostgresEventRepository) IncrementViewCount(ctx context.Context, id string, delta int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE public_events SET view_count = view_count + $2 WHERE id = $1`, id, delta)
	return err
}
