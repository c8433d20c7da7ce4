package db

import (
	"time"

	"gorm.io/datatypes"
)

// Event is an append-only record of every broadcast a room has emitted.
// Clients that missed a broadcast reconcile from room state, not from
// events; the log exists for audit and debugging.
type Event struct {
	ID        uint           `gorm:"primaryKey"`
	RoomID    string         `gorm:"type:uuid;index;not null"`
	PlayerID  *string        `gorm:"type:uuid;index"`
	Type      string         `gorm:"size:64;not null"`
	Payload   datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time      `gorm:"not null"`
}
