package db

import "time"

// Vote rows are ephemeral: at most one per (room, voter), deleted at the
// end of every resolved voting round.
type Vote struct {
	ID        uint      `gorm:"primaryKey"`
	RoomID    string    `gorm:"type:uuid;index;not null;uniqueIndex:idx_votes_room_voter"`
	VoterID   string    `gorm:"type:uuid;not null;uniqueIndex:idx_votes_room_voter"`
	SuspectID string    `gorm:"type:uuid;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
