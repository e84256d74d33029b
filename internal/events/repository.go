package events

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/pkg/utils"
)

// Repository handles event persistence. It also serves as the read-only
// event surface of the check-in engine.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `id, name, description, date, location, capacity, status, created_by, created_at, updated_at`

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.Name, &e.Description, &e.Date, &e.Location, &e.Capacity, &e.Status,
		&e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts a new event. Zero capacity gets the default.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	if e.ID == "" {
		e.ID = utils.NewID()
	}
	if e.Capacity <= 0 {
		e.Capacity = models.DefaultCapacity
	}
	if e.Status == "" {
		e.Status = models.EventStatusActive
	}
	const q = `INSERT INTO events (id, name, description, date, location, capacity, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, q, e.ID, e.Name, e.Description, e.Date, e.Location, e.Capacity, string(e.Status), e.CreatedBy).
		Scan(&e.CreatedAt, &e.UpdatedAt)
}

// GetEvent returns an event by ID, or nil when absent.
func (r *Repository) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	return scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
}

// List returns all events, newest first.
func (r *Repository) List(ctx context.Context) ([]models.Event, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+eventColumns+` FROM events ORDER BY date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.Date, &e.Location, &e.Capacity, &e.Status,
			&e.CreatedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// Update applies non-nil fields to an event.
func (r *Repository) Update(ctx context.Context, id string, name, description, location, status *string, capacity *int) error {
	const q = `UPDATE events SET
		name = COALESCE($2, name),
		description = COALESCE($3, description),
		location = COALESCE($4, location),
		status = COALESCE($5, status),
		capacity = COALESCE($6, capacity),
		updated_at = NOW()
		WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, name, description, location, status, capacity)
	return err
}

// Delete removes an event and, via cascade, its registrations and speakers.
func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	return err
}

// AddSpeaker adds a user to the event's speaker set.
func (r *Repository) AddSpeaker(ctx context.Context, eventID, userID string) error {
	const q = `INSERT INTO event_speakers (event_id, user_id) VALUES ($1, $2)
		ON CONFLICT (event_id, user_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, q, eventID, userID)
	return err
}

// RemoveSpeaker removes a user from the event's speaker set.
func (r *Repository) RemoveSpeaker(ctx context.Context, eventID, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM event_speakers WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	return err
}

// ListSpeakers returns the user IDs in the event's speaker set.
func (r *Repository) ListSpeakers(ctx context.Context, eventID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id FROM event_speakers WHERE event_id = $1`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
