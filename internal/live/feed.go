package live

import "github.com/gatherly/backend/internal/checkin"

// Message kinds pushed to door dashboards.
const (
	KindCheckIn = "checkin"
	KindStats   = "stats"
)

// CheckInFeed adapts the hub to the check-in service's broadcaster.
type CheckInFeed struct {
	hub *Hub
}

// NewCheckInFeed wraps a hub for use by the check-in service.
func NewCheckInFeed(hub *Hub) *CheckInFeed {
	return &CheckInFeed{hub: hub}
}

func (f *CheckInFeed) BroadcastCheckIn(eventID string, result checkin.ScanResult) {
	f.hub.BroadcastAndPublish(eventID, KindCheckIn, result)
}

func (f *CheckInFeed) BroadcastStats(eventID string, stats checkin.Stats) {
	f.hub.BroadcastAndPublish(eventID, KindStats, stats)
}

var _ checkin.Broadcaster = (*CheckInFeed)(nil)
