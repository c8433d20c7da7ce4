package bus

import (
	"context"
	"testing"
	"time"
)

func TestMemoryPublishSubscribe(t *testing.T) {
	b := NewMemory()
	t.Cleanup(func() { b.Close() })

	messages, stop, err := b.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	t.Cleanup(stop)

	if err := b.Publish(context.Background(), "room-1", "player_joined", map[string]any{"n": 1}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-messages:
		if msg.RoomID != "room-1" || msg.Type != "player_joined" {
			t.Fatalf("unexpected message: %+v", msg)
		}
		if msg.Timestamp.IsZero() {
			t.Fatalf("expected a timestamp")
		}
	case <-time.After(time.Second):
		t.Fatalf("message never arrived")
	}
}

func TestMemoryStopUnsubscribes(t *testing.T) {
	b := NewMemory()
	t.Cleanup(func() { b.Close() })

	messages, stop, err := b.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	stop()
	// Stop is idempotent.
	stop()

	if _, open := <-messages; open {
		t.Fatalf("expected channel closed after stop")
	}
	if err := b.Publish(context.Background(), "room-1", "noop", nil); err != nil {
		t.Fatalf("publish after stop: %v", err)
	}
}

func TestMemoryPresence(t *testing.T) {
	b := NewMemory()
	t.Cleanup(func() { b.Close() })
	ctx := context.Background()

	members, err := b.Join(ctx, "room-1", "bob")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("expected 1 member, got %v", members)
	}
	if _, err := b.Join(ctx, "room-1", "alice"); err != nil {
		t.Fatalf("join: %v", err)
	}

	members, err = b.Members(ctx, "room-1")
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	// Member lists come back sorted.
	if len(members) != 2 || members[0] != "alice" || members[1] != "bob" {
		t.Fatalf("unexpected members: %v", members)
	}

	members, err = b.Leave(ctx, "room-1", "bob")
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	if len(members) != 1 || members[0] != "alice" {
		t.Fatalf("unexpected members after leave: %v", members)
	}

	members, err = b.Members(ctx, "room-2")
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("expected empty room, got %v", members)
	}
}
