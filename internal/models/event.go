package models

import "time"

// EventStatus is the lifecycle status of an event.
type EventStatus string

const (
	EventStatusActive    EventStatus = "active"
	EventStatusNonActive EventStatus = "non-active"
	EventStatusSoldOut   EventStatus = "sold-out"
	EventStatusCompleted EventStatus = "completed"
)

// DefaultCapacity is applied when an event is created without a capacity.
const DefaultCapacity = 100

// Event represents an event with zone-free, capacity-based registration.
type Event struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Date        time.Time   `json:"date"`
	Location    string      `json:"location"`
	Capacity    int         `json:"capacity"`
	Status      EventStatus `json:"status"`
	CreatedBy   string      `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// ValidStatus reports whether s is a known event status.
func ValidStatus(s string) bool {
	switch EventStatus(s) {
	case EventStatusActive, EventStatusNonActive, EventStatusSoldOut, EventStatusCompleted:
		return true
	}
	return false
}
