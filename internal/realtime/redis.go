package realtime

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const redisChannel = "houseway:rooms"

// redisEnvelope carries the event plus fields the client JSON deliberately
// omits: the exclusion hint and the originating instance.
type redisEnvelope struct {
	Event   Event  `json:"event"`
	Exclude uint   `json:"exclude,omitempty"`
	Source  string `json:"source"`
}

// RedisBridge is a Broadcaster that delivers locally through the hub and
// mirrors every event onto a redis channel so other instances' hubs see it
// too. With a single instance it degrades to plain hub delivery.
type RedisBridge struct {
	hub *Hub
	rdb *redis.Client
	id  string // instance id, used to drop our own events echoed by redis
}

func NewRedisBridge(hub *Hub, rdb *redis.Client) *RedisBridge {
	return &RedisBridge{hub: hub, rdb: rdb, id: uuid.NewString()}
}

// Publish delivers locally first, then mirrors to redis. Redis failures are
// logged and swallowed: broadcasts have no delivery guarantee.
func (b *RedisBridge) Publish(ctx context.Context, ev Event) {
	b.hub.Publish(ctx, ev)

	payload, err := json.Marshal(redisEnvelope{Event: ev, Exclude: ev.ExcludeUserID, Source: b.id})
	if err != nil {
		logrus.WithError(err).Warn("marshal realtime event for redis")
		return
	}
	if err := b.rdb.Publish(ctx, redisChannel, payload).Err(); err != nil {
		logrus.WithError(err).Warn("publish realtime event to redis")
	}
}

// Run subscribes to the redis channel and relays remote instances' events
// into the local hub until ctx is cancelled. Our own events come back through
// the subscription and are dropped by source id to avoid double delivery.
func (b *RedisBridge) Run(ctx context.Context) {
	sub := b.rdb.Subscribe(ctx, redisChannel)
	defer func() {
		if err := sub.Close(); err != nil {
			logrus.WithError(err).Debug("close redis subscription")
		}
	}()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env redisEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				logrus.WithError(err).Warn("decode realtime event from redis")
				continue
			}
			if env.Source == b.id {
				continue
			}
			env.Event.ExcludeUserID = env.Exclude
			b.hub.Publish(ctx, env.Event)
		}
	}
}
