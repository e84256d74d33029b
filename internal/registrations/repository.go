package registrations

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatherly/backend/internal/models"
)

// Repository persists registrations keyed by (event_id, user_id). It is the
// registration directory behind the check-in engine.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const regColumns = `event_id, user_id, name, email, phone, work, role, badge_role, ticket_type,
	status, checked_in, checked_in_at, COALESCE(checked_in_by,''), registered_at`

func scanRegistration(row pgx.Row) (*models.Registration, error) {
	var reg models.Registration
	err := row.Scan(&reg.EventID, &reg.UserID, &reg.Name, &reg.Email, &reg.Phone, &reg.Work,
		&reg.Role, &reg.BadgeRole, &reg.TicketType, &reg.Status, &reg.CheckedIn,
		&reg.CheckedInAt, &reg.CheckedInBy, &reg.RegisteredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// Create inserts a registration. Re-registering the same email updates the
// profile fields without touching check-in state.
func (r *Repository) Create(ctx context.Context, reg *models.Registration) error {
	const q = `INSERT INTO registrations (event_id, user_id, name, email, phone, work, role, badge_role, ticket_type)
		VALUES ($1, $2, $3, LOWER($4), $5, $6, $7, $8, $9)
		ON CONFLICT (event_id, user_id) DO UPDATE SET
			name = EXCLUDED.name, phone = EXCLUDED.phone, work = EXCLUDED.work,
			role = EXCLUDED.role, ticket_type = EXCLUDED.ticket_type
		RETURNING status, checked_in, registered_at`
	return r.pool.QueryRow(ctx, q, reg.EventID, reg.UserID, reg.Name, reg.Email, reg.Phone,
		reg.Work, reg.Role, reg.BadgeRole, reg.TicketType).
		Scan(&reg.Status, &reg.CheckedIn, &reg.RegisteredAt)
}

// Get returns the registration for (eventID, userID), or nil when absent.
func (r *Repository) Get(ctx context.Context, eventID, userID string) (*models.Registration, error) {
	const q = `SELECT ` + regColumns + ` FROM registrations WHERE event_id = $1 AND user_id = $2`
	return scanRegistration(r.pool.QueryRow(ctx, q, eventID, userID))
}

// FindByEmail returns the registration for (eventID, email), or nil when absent.
func (r *Repository) FindByEmail(ctx context.Context, eventID, email string) (*models.Registration, error) {
	const q = `SELECT ` + regColumns + ` FROM registrations WHERE event_id = $1 AND LOWER(email) = LOWER($2)`
	return scanRegistration(r.pool.QueryRow(ctx, q, eventID, email))
}

// List returns all registrations for an event.
func (r *Repository) List(ctx context.Context, eventID string) ([]models.Registration, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+regColumns+` FROM registrations WHERE event_id = $1 ORDER BY registered_at`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Registration
	for rows.Next() {
		var reg models.Registration
		if err := rows.Scan(&reg.EventID, &reg.UserID, &reg.Name, &reg.Email, &reg.Phone, &reg.Work,
			&reg.Role, &reg.BadgeRole, &reg.TicketType, &reg.Status, &reg.CheckedIn,
			&reg.CheckedInAt, &reg.CheckedInBy, &reg.RegisteredAt); err != nil {
			return nil, err
		}
		list = append(list, reg)
	}
	return list, rows.Err()
}

// Counts returns total and checked-in registration counts in one aggregate
// read so derived stats cannot drift from record state.
func (r *Repository) Counts(ctx context.Context, eventID string) (total, checkedIn int, err error) {
	const q = `SELECT COUNT(*), COUNT(*) FILTER (WHERE checked_in) FROM registrations WHERE event_id = $1`
	err = r.pool.QueryRow(ctx, q, eventID).Scan(&total, &checkedIn)
	return total, checkedIn, err
}

// ConditionalSetCheckedIn performs the compare-and-set check-in transition:
// the update applies only while the stored row still has checked_in = FALSE,
// so concurrent scanners produce exactly one applied write. It returns
// whether this call applied the transition and the current row either way;
// a nil current row means the registration no longer exists.
func (r *Repository) ConditionalSetCheckedIn(ctx context.Context, eventID, userID, actorID string) (bool, *models.Registration, error) {
	const q = `UPDATE registrations
		SET checked_in = TRUE, checked_in_at = NOW(), checked_in_by = $3, status = 'attended'
		WHERE event_id = $1 AND user_id = $2 AND checked_in = FALSE
		RETURNING ` + regColumns
	reg, err := scanRegistration(r.pool.QueryRow(ctx, q, eventID, userID, actorID))
	if err != nil {
		return false, nil, err
	}
	if reg != nil {
		return true, reg, nil
	}
	// Lost the race or the row is gone; re-read for the authoritative state.
	current, err := r.Get(ctx, eventID, userID)
	if err != nil {
		return false, nil, err
	}
	return false, current, nil
}

// SetBadgeRole sets or clears the manual badge override for a registration.
func (r *Repository) SetBadgeRole(ctx context.Context, eventID, userID, badgeRole string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE registrations SET badge_role = $3 WHERE event_id = $1 AND user_id = $2`,
		eventID, userID, badgeRole)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes a registration, only while not yet checked in. Check-in is
// terminal; cancellation of an attended registration is rejected.
func (r *Repository) Delete(ctx context.Context, eventID, userID string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM registrations WHERE event_id = $1 AND user_id = $2 AND checked_in = FALSE`, eventID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
