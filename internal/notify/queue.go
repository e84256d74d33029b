package notify

import (
	"context"

	"github.com/gatherly/backend/pkg/queue"
)

// QueueNotifier hands arrival alerts to the Redis job queue so the scan
// response never waits on outbound webhooks. The alert worker drains the
// queue and fans out to the configured channels.
type QueueNotifier struct {
	q *queue.Queue
}

// NewQueueNotifier wraps a job queue as an arrival notifier.
func NewQueueNotifier(q *queue.Queue) *QueueNotifier {
	return &QueueNotifier{q: q}
}

// AttendeeArrived enqueues one alert job for the check-in.
func (n *QueueNotifier) AttendeeArrived(ctx context.Context, msg Message) error {
	return n.q.EnqueueArrivalAlert(ctx, queue.ArrivalAlertPayload{
		Text:         msg.Text,
		EventID:      msg.EventID,
		EventName:    msg.EventName,
		AttendeeName: msg.AttendeeName,
		Role:         msg.Role,
		Company:      msg.Company,
		CheckedInAt:  msg.Timestamp,
	})
}
