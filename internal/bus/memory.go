package bus

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryBus is a single-process Bus used in tests and when no Redis address
// is configured. It mirrors the Redis semantics: fan-out to current
// subscribers only, no replay.
type MemoryBus struct {
	mu       sync.Mutex
	subs     map[int]chan Message
	nextSub  int
	presence map[string]map[string]struct{}
	closed   bool
}

func NewMemory() *MemoryBus {
	return &MemoryBus{
		subs:     make(map[int]chan Message),
		presence: make(map[string]map[string]struct{}),
	}
}

func (b *MemoryBus) Publish(_ context.Context, roomID, eventType string, payload any) error {
	msg := Message{
		RoomID:    roomID,
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- msg:
		default:
			// Slow subscriber; drop rather than block the publisher.
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context) (<-chan Message, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextSub
	b.nextSub++
	ch := make(chan Message, 64)
	b.subs[id] = ch
	stop := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existing, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(existing)
		}
	}
	return ch, stop, nil
}

func (b *MemoryBus) Join(_ context.Context, roomID, playerID string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	members := b.presence[roomID]
	if members == nil {
		members = make(map[string]struct{})
		b.presence[roomID] = members
	}
	members[playerID] = struct{}{}
	return memberList(members), nil
}

func (b *MemoryBus) Leave(_ context.Context, roomID, playerID string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	members := b.presence[roomID]
	if members != nil {
		delete(members, playerID)
		if len(members) == 0 {
			delete(b.presence, roomID)
		}
	}
	return memberList(members), nil
}

func (b *MemoryBus) Members(_ context.Context, roomID string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return memberList(b.presence[roomID]), nil
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	return nil
}

func memberList(members map[string]struct{}) []string {
	list := make([]string, 0, len(members))
	for id := range members {
		list = append(list, id)
	}
	sort.Strings(list)
	return list
}
