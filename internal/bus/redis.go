package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	channelPattern = "room:*"
	presenceTTL    = 24 * time.Hour
)

// RedisBus fans broadcasts out through Redis pub/sub so every server
// instance sees every room's messages, and tracks presence in per-room sets.
type RedisBus struct {
	client *redis.Client
}

func NewRedis(addr, password string, db int) (*RedisBus, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisBus{client: client}, nil
}

func (b *RedisBus) Publish(ctx context.Context, roomID, eventType string, payload any) error {
	msg := Message{
		RoomID:    roomID,
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal bus message: %w", err)
	}
	return b.client.Publish(ctx, channelName(roomID), data).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context) (<-chan Message, func(), error) {
	sub := b.client.PSubscribe(ctx, channelPattern)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis subscribe: %w", err)
	}
	out := make(chan Message, 64)
	go func() {
		defer close(out)
		for raw := range sub.Channel() {
			var msg Message
			if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
				log.Printf("bus message decode failed channel=%s error=%v", raw.Channel, err)
				continue
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()
	stop := func() { _ = sub.Close() }
	return out, stop, nil
}

func (b *RedisBus) Join(ctx context.Context, roomID, playerID string) ([]string, error) {
	key := presenceKey(roomID)
	if err := b.client.SAdd(ctx, key, playerID).Err(); err != nil {
		return nil, err
	}
	_ = b.client.Expire(ctx, key, presenceTTL).Err()
	return b.client.SMembers(ctx, key).Result()
}

func (b *RedisBus) Leave(ctx context.Context, roomID, playerID string) ([]string, error) {
	key := presenceKey(roomID)
	if err := b.client.SRem(ctx, key, playerID).Err(); err != nil {
		return nil, err
	}
	return b.client.SMembers(ctx, key).Result()
}

func (b *RedisBus) Members(ctx context.Context, roomID string) ([]string, error) {
	return b.client.SMembers(ctx, presenceKey(roomID)).Result()
}

func (b *RedisBus) Close() error {
	return b.client.Close()
}

func channelName(roomID string) string {
	return "room:" + roomID
}

func presenceKey(roomID string) string {
	return "room:" + roomID + ":presence"
}
