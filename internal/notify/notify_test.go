package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testQueue(t *testing.T) (*Queue, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewQueue(client), client
}

func TestEmitAndPopRoundTrip(t *testing.T) {
	ctx := context.Background()
	q, _ := testQueue(t)

	q.Emit(ctx, Event{
		Name:       EventContractUpdated,
		Recipients: []string{"client-1", "worker-1"},
		Payload:    map[string]any{"contract_id": "c1", "status": "in_progress"},
	})

	depth, err := q.Depth(ctx)
	if err != nil || depth != 1 {
		t.Fatalf("depth = %d err = %v", depth, err)
	}

	ev, err := q.Pop(ctx, time.Second)
	if err != nil {
		t.Fatalf("pop: %v", err)
	}
	if ev == nil || ev.Name != EventContractUpdated || len(ev.Recipients) != 2 {
		t.Fatalf("event = %+v", ev)
	}
	if ev.EmittedAt.IsZero() {
		t.Fatal("emitted_at must be stamped")
	}
}

func TestEmitSwallowsBrokenRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	q := NewQueue(client)
	// Must not panic or return; failures are logged and dropped.
	q.Emit(context.Background(), Event{Name: EventContractUpdated})
}

func TestDispatchFansOutToRecipientChannels(t *testing.T) {
	ctx := context.Background()
	q, client := testQueue(t)
	d := NewDispatcher(client, q)

	sub := client.Subscribe(ctx, ChannelFor("worker-1"))
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	d.dispatch(ctx, &Event{
		Name:       EventReviewSubmitted,
		Recipients: []string{"worker-1"},
		Payload:    map[string]any{"review_id": "r1"},
	})

	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	var got Event
	if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Name != EventReviewSubmitted {
		t.Fatalf("event name = %s", got.Name)
	}
}
