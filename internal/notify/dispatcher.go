package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"gigwork-engine/internal/telemetry"
)

// ChannelFor names the pub/sub channel a party's sessions subscribe to.
func ChannelFor(partyID string) string {
	return "notify:user:" + partyID
}

// Dispatcher drains the pending list and fans each event out to the
// per-recipient pub/sub channels the delivery layer listens on.
type Dispatcher struct {
	client *redis.Client
	queue  *Queue
}

// NewDispatcher builds a dispatcher sharing the queue's Redis client.
func NewDispatcher(client *redis.Client, q *Queue) *Dispatcher {
	return &Dispatcher{client: client, queue: q}
}

// Run loops until context cancellation. Dispatch is at-most-once: a failed
// publish is logged and the event is dropped, matching the fire-and-forget
// contract of the sink.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if depth, err := d.queue.Depth(ctx); err == nil {
			telemetry.NotifyQueueDepth.Set(float64(depth))
		}

		ev, err := d.queue.Pop(ctx, 2*time.Second)
		if err != nil {
			log.Printf("notify: pop: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if ev == nil {
			continue
		}
		d.dispatch(ctx, ev)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, ev *Event) {
	raw, err := json.Marshal(ev)
	if err != nil {
		telemetry.NotifyFailures.Inc()
		log.Printf("notify: marshal for dispatch %s: %v", ev.Name, err)
		return
	}
	for _, recipient := range ev.Recipients {
		if err := d.client.Publish(ctx, ChannelFor(recipient), raw).Err(); err != nil {
			telemetry.NotifyFailures.Inc()
			log.Printf("notify: publish %s to %s: %v", ev.Name, recipient, err)
			continue
		}
		telemetry.NotifyDispatched.Inc()
	}
	log.Printf("notify: dispatched %s to %d recipient(s)", ev.Name, len(ev.Recipients))
}
