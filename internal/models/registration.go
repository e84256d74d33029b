package models

import "time"

// RegistrationStatus tracks whether an attendee has arrived.
type RegistrationStatus string

const (
	RegistrationStatusRegistered RegistrationStatus = "registered"
	RegistrationStatusAttended   RegistrationStatus = "attended"
)

// Registration is an attendee registration for an event, keyed by (event_id, user_id).
// Invariant: CheckedIn == true iff CheckedInAt is set iff Status == attended,
// and once set the check-in is terminal.
type Registration struct {
	EventID      string             `json:"event_id"`
	UserID       string             `json:"user_id"`
	Name         string             `json:"name"`
	Email        string             `json:"email"`
	Phone        string             `json:"phone,omitempty"`
	Work         string             `json:"work,omitempty"`
	Role         string             `json:"role,omitempty"`
	BadgeRole    string             `json:"badge_role,omitempty"`
	TicketType   string             `json:"ticket_type,omitempty"`
	Status       RegistrationStatus `json:"status"`
	CheckedIn    bool               `json:"checked_in"`
	CheckedInAt  *time.Time         `json:"checked_in_at,omitempty"`
	CheckedInBy  string             `json:"checked_in_by,omitempty"`
	RegisteredAt time.Time          `json:"registered_at"`
}
