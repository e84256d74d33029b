package live

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/gatherly/backend/pkg/redis"
)

const eventChannelPrefix = "event:live:"

type pubsubEnvelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// RedisBridge carries dashboard broadcasts across server instances.
type RedisBridge struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewRedisBridge creates a pub/sub bridge on the shared Redis client.
func NewRedisBridge(rdb *redis.Client, logger *zap.Logger) *RedisBridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBridge{rdb: rdb, logger: logger}
}

// PublishEventUpdate implements Publisher.
func (b *RedisBridge) PublishEventUpdate(eventID, kind string, payload []byte) error {
	env := pubsubEnvelope{Kind: kind, Data: payload}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.rdb.Publish(context.Background(), eventChannelPrefix+eventID, data).Err()
}

// SubscribeEvent implements Subscriber. The returned cancel closes the
// subscription and stops the reader goroutine.
func (b *RedisBridge) SubscribeEvent(eventID string, handler func(kind string, payload []byte)) (func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	sub := b.rdb.Subscribe(ctx, eventChannelPrefix+eventID)
	if _, err := sub.Receive(ctx); err != nil {
		cancel()
		return nil, err
	}

	go func() {
		ch := sub.Channel()
		for msg := range ch {
			var env pubsubEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Warn("malformed live update dropped", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			handler(env.Kind, env.Data)
		}
	}()

	return func() {
		cancel()
		_ = sub.Close()
	}, nil
}

var _ Publisher = (*RedisBridge)(nil)
var _ Subscriber = (*RedisBridge)(nil)
