package db

import (
	"time"

	"gorm.io/datatypes"
)

const (
	RoomWaiting  = "waiting"
	RoomPlaying  = "playing"
	RoomFinished = "finished"
)

const (
	VotingNone     = "none"
	VotingActive   = "active"
	VotingFinished = "finished"
)

const (
	WinnerCivilians = "civilians"
	WinnerSpies     = "spies"
)

type Room struct {
	ID               string          `gorm:"type:uuid;primaryKey"`
	Code             string          `gorm:"size:6;uniqueIndex;not null"`
	HostID           string          `gorm:"type:uuid;not null"`
	Status           string          `gorm:"size:16;not null;default:'waiting'"`
	Settings         datatypes.JSON  `gorm:"not null"`
	LocationID       *string         `gorm:"type:uuid"`
	SelectedTheme    *string         `gorm:"size:64"`
	SpyIDs           datatypes.JSON  // []string, empty outside an active round
	GameStartedAt    *time.Time
	GameEndsAt       *time.Time
	GamePausedAt     *time.Time
	RemainingTimeMS  *int64
	VotingStatus     string          `gorm:"size:16;not null;default:'none'"`
	VotingRound      int             `gorm:"not null;default:1"`
	RevoteCandidates datatypes.JSON  // []string, empty unless mid-tiebreak
	VotingStartedAt  *time.Time
	VotingEndsAt     *time.Time
	Winner           *string         `gorm:"size:16"`
	CreatedAt        time.Time       `gorm:"not null"`
	UpdatedAt        time.Time       `gorm:"not null"`
	Players          []Player
	Votes            []Vote
	Events           []Event
}
