package db

import "time"

type Player struct {
	ID             string    `gorm:"type:uuid;primaryKey"`
	RoomID         string    `gorm:"type:uuid;index;not null;uniqueIndex:idx_players_room_nickname"`
	Nickname       string    `gorm:"size:20;not null;uniqueIndex:idx_players_room_nickname"`
	AvatarID       int       `gorm:"not null;default:1"`
	IsHost         bool      `gorm:"not null;default:false"`
	IsAlive        bool      `gorm:"not null;default:true"`
	IsSpy          bool      `gorm:"not null;default:false"`
	Role           *string   `gorm:"size:64"`
	WantsEarlyVote bool      `gorm:"not null;default:false"`
	AuthToken      string    `gorm:"size:64;not null"`
	JoinedAt       time.Time `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
	Votes          []Vote    `gorm:"foreignKey:VoterID"`
}
