package notify

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubChannel struct {
	name  string
	err   error
	delay time.Duration
	sends atomic.Int32
}

func (c *stubChannel) Name() string { return c.name }

func (c *stubChannel) Send(ctx context.Context, msg Message) error {
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.sends.Add(1)
	return c.err
}

func TestFanoutDispatch(t *testing.T) {
	msg := Message{Text: "alice just arrived", EventName: "Founders Summit", AttendeeName: "alice", Role: "vip"}

	t.Run("delivers to every channel", func(t *testing.T) {
		a := &stubChannel{name: "slack"}
		b := &stubChannel{name: "discord"}
		f := NewFanout([]Channel{a, b}, time.Second, nil)

		f.Dispatch(context.Background(), msg)

		assert.Equal(t, int32(1), a.sends.Load())
		assert.Equal(t, int32(1), b.sends.Load())
	})

	t.Run("one failing channel does not block the others", func(t *testing.T) {
		failing := &stubChannel{name: "slack", err: errors.New("webhook 500")}
		healthy := &stubChannel{name: "discord"}
		f := NewFanout([]Channel{failing, healthy}, time.Second, nil)

		f.Dispatch(context.Background(), msg)

		assert.Equal(t, int32(1), healthy.sends.Load())
	})

	t.Run("slow channel is cut off at the timeout", func(t *testing.T) {
		slow := &stubChannel{name: "slack", delay: 5 * time.Second}
		fast := &stubChannel{name: "discord"}
		f := NewFanout([]Channel{slow, fast}, 50*time.Millisecond, nil)

		start := time.Now()
		f.Dispatch(context.Background(), msg)

		assert.Less(t, time.Since(start), time.Second)
		assert.Equal(t, int32(0), slow.sends.Load())
		assert.Equal(t, int32(1), fast.sends.Load())
	})

	t.Run("no channels is a no-op", func(t *testing.T) {
		f := NewFanout(nil, time.Second, nil)
		f.Dispatch(context.Background(), msg)
		assert.Equal(t, 0, f.Channels())
	})
}
