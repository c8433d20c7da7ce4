package server

import (
	"context"
	"encoding/json"
	"log"

	"spyfall/internal/db"

	"gorm.io/datatypes"
)

// fanout records the event on the room's audit log and publishes it on the
// room's broadcast channel. Both are best-effort: the durable state change
// that triggered the event has already been committed, so failures here are
// logged and never surfaced to the caller.
func (s *Server) fanout(roomID string, playerID *string, eventType string, payload any) {
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("event payload marshal failed room_id=%s type=%s error=%v", roomID, eventType, err)
		return
	}
	event := db.Event{
		RoomID:   roomID,
		PlayerID: playerID,
		Type:     eventType,
		Payload:  datatypes.JSON(data),
	}
	if err := s.db.Create(&event).Error; err != nil {
		log.Printf("event persist failed room_id=%s type=%s error=%v", roomID, eventType, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.publishTimeout())
	defer cancel()
	if err := s.bus.Publish(ctx, roomID, eventType, payload); err != nil {
		log.Printf("broadcast failed room_id=%s type=%s error=%v", roomID, eventType, err)
	}
}
