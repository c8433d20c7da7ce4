package bus

import (
	"context"
	"time"
)

// Message is the envelope carried on a room's broadcast channel. Broadcasts
// are fire-and-forget: delivery is at-most-once per currently-subscribed
// client, with no guarantee to disconnected clients and no ordering across
// concurrent publishers. Room state in the database is the source of truth;
// messages only hint that something changed.
type Message struct {
	RoomID    string    `json:"roomId"`
	Type      string    `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Bus is a per-room topic broadcast plus ephemeral presence tracking.
type Bus interface {
	// Publish sends a message on the room's channel.
	Publish(ctx context.Context, roomID, eventType string, payload any) error
	// Subscribe returns a feed of messages for all rooms. The returned stop
	// function releases the subscription.
	Subscribe(ctx context.Context) (<-chan Message, func(), error)
	// Join marks a player as connected to a room and returns the member set.
	Join(ctx context.Context, roomID, playerID string) ([]string, error)
	// Leave removes a player from a room's member set and returns what remains.
	Leave(ctx context.Context, roomID, playerID string) ([]string, error)
	// Members lists the players currently connected to a room.
	Members(ctx context.Context, roomID string) ([]string, error)
	Close() error
}
