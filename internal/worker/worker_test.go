package worker

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatherly/backend/internal/notify"
	"github.com/gatherly/backend/pkg/queue"
)

type countingChannel struct {
	sends atomic.Int32
	last  atomic.Value
}

func (c *countingChannel) Name() string { return "test" }

func (c *countingChannel) Send(ctx context.Context, msg notify.Message) error {
	c.sends.Add(1)
	c.last.Store(msg)
	return nil
}

func TestAlertDispatcherProcess(t *testing.T) {
	ch := &countingChannel{}
	fanout := notify.NewFanout([]notify.Channel{ch}, time.Second, nil)
	d := NewAlertDispatcher(nil, fanout, nil)

	t.Run("arrival alert fans out", func(t *testing.T) {
		payload, err := json.Marshal(queue.ArrivalAlertPayload{
			Text:         "alice (VIP) just arrived at Founders Summit",
			EventID:      "evt1",
			EventName:    "Founders Summit",
			AttendeeName: "alice",
			Role:         "vip",
		})
		require.NoError(t, err)

		job := &queue.Job{ID: "job1", Type: queue.JobTypeArrivalAlert, Payload: payload}
		require.NoError(t, d.Process(context.Background(), job))

		assert.Equal(t, int32(1), ch.sends.Load())
		msg := ch.last.Load().(notify.Message)
		assert.Equal(t, "vip", msg.Role)
		assert.Equal(t, "evt1", msg.EventID)
	})

	t.Run("malformed payload errors", func(t *testing.T) {
		job := &queue.Job{ID: "job2", Type: queue.JobTypeArrivalAlert, Payload: []byte("{")}
		assert.Error(t, d.Process(context.Background(), job))
	})

	t.Run("unknown job type errors", func(t *testing.T) {
		job := &queue.Job{ID: "job3", Type: "mystery", Payload: []byte("{}")}
		assert.Error(t, d.Process(context.Background(), job))
	})
}
