package progress

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

// ChannelKeyFormat is the pub/sub channel pattern per job
const ChannelKeyFormat = "job:%s"

// Bus fans progress events out to all current subscribers of a job. There is
// no backlog: a subscriber that connects late misses earlier events.
type Bus interface {
	Publish(ctx context.Context, jobID string, event Event) error
	// Subscribe returns a live event channel and a stop function. The channel
	// closes when stop is called or the context ends. Stopping a subscription
	// never affects the underlying job.
	Subscribe(ctx context.Context, jobID string) (<-chan Event, func())
}

// RedisBus implements Bus on top of Redis pub/sub channels keyed by job id.
type RedisBus struct {
	client *redis.Client
}

func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

func (b *RedisBus) Publish(ctx context.Context, jobID string, event Event) error {
	channel := fmt.Sprintf(ChannelKeyFormat, jobID)
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal progress event: %w", err)
	}
	if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, jobID string) (<-chan Event, func()) {
	channel := fmt.Sprintf(ChannelKeyFormat, jobID)
	sub := b.client.Subscribe(ctx, channel)
	events := make(chan Event)

	go func() {
		defer close(events)
		for msg := range sub.Channel() {
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Errorf("[Progress] Dropping malformed event on %s: %v", channel, err)
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	stop := func() {
		_ = sub.Close()
	}
	return events, stop
}
