package server

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const minPlayersToStart = 3

// Broadcast event catalog. One topic per room; clients reconcile from the
// room snapshot whenever they suspect a missed event.
const (
	eventPlayerJoined      = "player_joined"
	eventPlayerKicked      = "player_kicked"
	eventSettingsUpdated   = "settings_updated"
	eventGameStarted       = "game_started"
	eventEarlyVoteUpdated  = "early_vote_updated"
	eventVotingStarted     = "voting_started"
	eventVoteCast          = "vote_cast"
	eventAllVotesCollected = "all_votes_collected"
	eventVotingFinished    = "voting_finished"
	eventGamePaused        = "game_paused"
	eventGameResumed       = "game_resumed"
	eventGameEnded         = "game_ended"
	eventPresenceChanged   = "presence_changed"
)

// Settings is the room configuration stored as JSON on the room row.
// Durations are minutes; vote_duration allows fractions (30s minimum).
type Settings struct {
	SpyCount           int     `json:"spy_count"`
	GameDuration       int     `json:"game_duration"`
	VoteDuration       float64 `json:"vote_duration"`
	ModeRoles          bool    `json:"mode_roles"`
	ModeTheme          bool    `json:"mode_theme"`
	ModeSpyChaos       bool    `json:"mode_spy_chaos"`
	ModeHiddenThreat   bool    `json:"mode_hidden_threat"`
	ModeShadowAlliance bool    `json:"mode_shadow_alliance"`
	MaxPlayers         int     `json:"max_players"`
}

func defaultSettings() Settings {
	return Settings{
		SpyCount:     1,
		GameDuration: 15,
		VoteDuration: 1,
		MaxPlayers:   8,
	}
}

func (s Settings) voteWindow() time.Duration {
	return time.Duration(s.VoteDuration * float64(time.Minute))
}

func (s Settings) gameWindow() time.Duration {
	return time.Duration(s.GameDuration) * time.Minute
}

func decodeSettings(raw datatypes.JSON) Settings {
	settings := defaultSettings()
	if len(raw) == 0 {
		return settings
	}
	if err := json.Unmarshal(raw, &settings); err != nil {
		return defaultSettings()
	}
	return settings
}

func encodeSettings(settings Settings) datatypes.JSON {
	data, err := json.Marshal(settings)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(data)
}

func decodeIDList(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil
	}
	return ids
}

func encodeIDList(ids []string) datatypes.JSON {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(data)
}

type CreateRoomResult struct {
	RoomID       string `json:"roomId"`
	RoomCode     string `json:"roomCode"`
	HostPlayerID string `json:"hostPlayerId"`
	AuthToken    string `json:"authToken"`
}

type JoinRoomResult struct {
	RoomID    string `json:"roomId"`
	RoomCode  string `json:"roomCode"`
	PlayerID  string `json:"playerId"`
	AuthToken string `json:"authToken"`
}

type EarlyVoteResult struct {
	WantsVote     bool `json:"wantsVote"`
	VotingStarted bool `json:"votingStarted"`
}

const (
	outcomeTieRevote  = "tie_revote"
	outcomeTieFailed  = "tie_failed"
	outcomeEliminated = "eliminated"
)

// VoteOutcome is the single payload every client converges on when a ballot
// resolves, carried by the voting_finished broadcast.
type VoteOutcome struct {
	Type         string         `json:"type"`
	VoteCounts   map[string]int `json:"voteCounts"`
	Candidates   []string       `json:"candidates,omitempty"`
	RevoteEndsAt *time.Time     `json:"revoteEndsAt,omitempty"`
	EliminatedID string         `json:"eliminatedId,omitempty"`
	WasSpy       bool           `json:"wasSpy,omitempty"`
	IsFinal      bool           `json:"isFinal,omitempty"`
	Winner       string         `json:"winner,omitempty"`
}

// PlayerInfo is the public view of a player used in broadcasts and snapshots.
// Secret round state (is_spy, role) never travels through it.
type PlayerInfo struct {
	ID             string    `json:"id"`
	Nickname       string    `json:"nickname"`
	AvatarID       int       `json:"avatar_id"`
	IsHost         bool      `json:"is_host"`
	IsAlive        bool      `json:"is_alive"`
	WantsEarlyVote bool      `json:"wants_early_vote"`
	JoinedAt       time.Time `json:"joined_at"`
}
