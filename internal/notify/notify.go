// Package notify delivers best-effort arrival alerts to external chat channels.
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gatherly/backend/internal/metrics"
)

// Message is the outbound arrival alert. Delivery is fire-and-forget from the
// check-in engine's perspective.
type Message struct {
	Text         string    `json:"text"`
	EventID      string    `json:"event_id"`
	EventName    string    `json:"event_name"`
	AttendeeName string    `json:"attendee_name"`
	Role         string    `json:"role"`
	Company      string    `json:"company,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Channel is a single outbound alert destination (e.g. a team chat webhook).
type Channel interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// DefaultChannelTimeout bounds each channel send when no timeout is configured.
const DefaultChannelTimeout = 3 * time.Second

// Fanout dispatches a message to every configured channel independently.
// A channel failure is logged and counted, never retried, and never affects
// the other channels or the caller.
type Fanout struct {
	channels []Channel
	timeout  time.Duration
	logger   *zap.Logger
}

// NewFanout creates a fan-out over the given channels.
func NewFanout(channels []Channel, timeout time.Duration, logger *zap.Logger) *Fanout {
	if timeout <= 0 {
		timeout = DefaultChannelTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fanout{channels: channels, timeout: timeout, logger: logger}
}

// Channels returns the number of configured channels.
func (f *Fanout) Channels() int {
	return len(f.channels)
}

// Dispatch sends msg to every channel concurrently, each with its own timeout,
// and returns once all attempts have finished.
func (f *Fanout) Dispatch(ctx context.Context, msg Message) {
	var wg sync.WaitGroup
	for _, ch := range f.channels {
		wg.Add(1)
		go func(ch Channel) {
			defer wg.Done()
			sendCtx, cancel := context.WithTimeout(ctx, f.timeout)
			defer cancel()
			if err := ch.Send(sendCtx, msg); err != nil {
				metrics.AlertFailuresTotal.WithLabelValues(ch.Name()).Inc()
				f.logger.Warn("arrival alert delivery failed",
					zap.String("channel", ch.Name()),
					zap.String("event", msg.EventName),
					zap.Error(err),
				)
				return
			}
			f.logger.Debug("arrival alert delivered",
				zap.String("channel", ch.Name()),
				zap.String("attendee", msg.AttendeeName),
			)
		}(ch)
	}
	wg.Wait()
}
