// Package worker drains the arrival alert queue and fans alerts out to the
// configured chat channels.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/gatherly/backend/internal/notify"
	"github.com/gatherly/backend/pkg/queue"
)

// AlertDispatcher consumes arrival alert jobs and delivers them.
type AlertDispatcher struct {
	queue  *queue.Queue
	fanout *notify.Fanout
	logger *zap.Logger
}

// NewAlertDispatcher creates a dispatcher over the given queue and fan-out.
func NewAlertDispatcher(q *queue.Queue, fanout *notify.Fanout, logger *zap.Logger) *AlertDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertDispatcher{queue: q, fanout: fanout, logger: logger}
}

// Run blocks on the queue until ctx is cancelled. Jobs that fail to process
// are re-enqueued with backoff and eventually dead-lettered.
func (d *AlertDispatcher) Run(ctx context.Context) error {
	d.logger.Info("alert dispatcher started", zap.Int("channels", d.fanout.Channels()))
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("alert dispatcher stopping")
			return ctx.Err()
		default:
		}

		job, _, err := d.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.logger.Error("dequeue failed", zap.Error(err))
			continue
		}
		if job == nil {
			continue
		}

		if err := d.Process(ctx, job); err != nil {
			d.logger.Warn("job processing failed",
				zap.String("job_id", job.ID),
				zap.String("type", string(job.Type)),
				zap.Error(err),
			)
			if rerr := d.queue.Retry(ctx, job); rerr != nil {
				d.logger.Error("job retry failed", zap.String("job_id", job.ID), zap.Error(rerr))
			}
		}
	}
}

// Process handles a single job.
func (d *AlertDispatcher) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeArrivalAlert:
		var payload queue.ArrivalAlertPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal arrival alert: %w", err)
		}
		d.fanout.Dispatch(ctx, notify.Message{
			Text:         payload.Text,
			EventID:      payload.EventID,
			EventName:    payload.EventName,
			AttendeeName: payload.AttendeeName,
			Role:         payload.Role,
			Company:      payload.Company,
			Timestamp:    payload.CheckedInAt,
		})
		return nil
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}
