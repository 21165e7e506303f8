// Package notify is the outbound edge toward the excluded delivery layer.
// Events are queued in Redis after the owning transaction commits; enqueue
// failures are logged and swallowed so delivery trouble never reaches the
// caller of a state transition.
package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"gigwork-engine/internal/telemetry"
)

// Event names emitted by the engine. Negotiation events are prefixed with
// the record kind, e.g. "application:discussion_started".
const (
	EventContractUpdated = "contract:updated"
	EventReviewSubmitted = "contract:review_submitted"
)

// Event is one fan-out unit: a name, the party ids to notify, and a payload.
type Event struct {
	Name       string         `json:"name"`
	Recipients []string       `json:"recipients"`
	Payload    map[string]any `json:"payload"`
	EmittedAt  time.Time      `json:"emitted_at"`
}

// Queue is the Redis-backed pending list producers push onto.
type Queue struct {
	client     *redis.Client
	pendingKey string
}

// NewQueue builds a queue on the given Redis client.
func NewQueue(client *redis.Client) *Queue {
	return &Queue{client: client, pendingKey: "notify:pending"}
}

// Emit appends the event to the pending list, best-effort. Failures are
// logged and counted, never returned.
func (q *Queue) Emit(ctx context.Context, ev Event) {
	if ev.EmittedAt.IsZero() {
		ev.EmittedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		telemetry.NotifyFailures.Inc()
		log.Printf("notify: marshal %s: %v", ev.Name, err)
		return
	}
	if err := q.client.RPush(ctx, q.pendingKey, raw).Err(); err != nil {
		telemetry.NotifyFailures.Inc()
		log.Printf("notify: enqueue %s: %v", ev.Name, err)
	}
}

// Pop blocks up to timeout for the next pending event. A nil event with nil
// error means the wait timed out.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*Event, error) {
	res, err := q.client.BLPop(ctx, timeout, q.pendingKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ev Event
	if err := json.Unmarshal([]byte(res[1]), &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// Depth returns the number of events waiting for dispatch.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.pendingKey).Result()
}
