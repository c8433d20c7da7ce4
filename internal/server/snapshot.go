package server

import (
	"context"
	"log"
	"time"

	"spyfall/internal/db"
)

// RoomState is the public shape of a room. Secrets (location, spy set) are
// withheld while a round is in progress and revealed once it finishes.
type RoomState struct {
	ID               string     `json:"id"`
	Code             string     `json:"code"`
	HostID           string     `json:"host_id"`
	Status           string     `json:"status"`
	Settings         Settings   `json:"settings"`
	GameStartedAt    *time.Time `json:"game_started_at,omitempty"`
	GameEndsAt       *time.Time `json:"game_ends_at,omitempty"`
	IsPaused         bool       `json:"is_paused"`
	RemainingTimeMS  *int64     `json:"remaining_time_ms,omitempty"`
	VotingStatus     string     `json:"voting_status"`
	VotingRound      int        `json:"voting_round"`
	RevoteCandidates []string   `json:"revote_candidates"`
	VotingEndsAt     *time.Time `json:"voting_ends_at,omitempty"`
	Winner           *string    `json:"winner,omitempty"`
	LocationName     string     `json:"location_name,omitempty"`
	SpyIDs           []string   `json:"spy_ids,omitempty"`
}

type voteProgress struct {
	TotalVotes   int `json:"totalVotes"`
	TotalPlayers int `json:"totalPlayers"`
}

// RoomSnapshot is the reconnect source of truth: everything a client needs
// to rebuild its view without having seen any broadcast.
type RoomSnapshot struct {
	Room      RoomState    `json:"room"`
	Players   []PlayerInfo `json:"players"`
	EarlyVote voteProgress `json:"earlyVote"`
	Votes     voteProgress `json:"votes"`
	Connected []string     `json:"connected"`
}

func (s *Server) Snapshot(ctx context.Context, roomID string) (RoomSnapshot, error) {
	room, err := s.roomByID(ctx, roomID)
	if err != nil {
		return RoomSnapshot{}, err
	}
	players, err := s.playersByRoom(ctx, roomID)
	if err != nil {
		return RoomSnapshot{}, err
	}

	state := RoomState{
		ID:               room.ID,
		Code:             room.Code,
		HostID:           room.HostID,
		Status:           room.Status,
		Settings:         decodeSettings(room.Settings),
		GameStartedAt:    room.GameStartedAt,
		GameEndsAt:       room.GameEndsAt,
		IsPaused:         room.GamePausedAt != nil,
		RemainingTimeMS:  room.RemainingTimeMS,
		VotingStatus:     room.VotingStatus,
		VotingRound:      room.VotingRound,
		RevoteCandidates: decodeIDList(room.RevoteCandidates),
		VotingEndsAt:     room.VotingEndsAt,
		Winner:           room.Winner,
	}
	if room.Status == db.RoomFinished {
		state.SpyIDs = decodeIDList(room.SpyIDs)
		if room.LocationID != nil {
			var location db.Location
			if err := s.db.WithContext(ctx).Where("id = ?", *room.LocationID).First(&location).Error; err == nil {
				state.LocationName = location.Name
			}
		}
	}

	infos := make([]PlayerInfo, 0, len(players))
	aliveCount, wantsCount := 0, 0
	for _, player := range players {
		infos = append(infos, playerInfo(player))
		if player.IsAlive {
			aliveCount++
			if player.WantsEarlyVote {
				wantsCount++
			}
		}
	}

	totalVotes, _, err := s.voteProgressCounts(ctx, roomID)
	if err != nil {
		return RoomSnapshot{}, err
	}

	connected, err := s.bus.Members(ctx, roomID)
	if err != nil {
		log.Printf("presence read failed room_id=%s error=%v", roomID, err)
		connected = []string{}
	}

	return RoomSnapshot{
		Room:      state,
		Players:   infos,
		EarlyVote: voteProgress{TotalVotes: wantsCount, TotalPlayers: aliveCount},
		Votes:     voteProgress{TotalVotes: totalVotes, TotalPlayers: aliveCount},
		Connected: connected,
	}, nil
}

// PlayerView is the secret per-player slice of round state, gated by the
// player's auth token. Spies never receive the location; civilians never
// receive the spy set.
type PlayerView struct {
	PlayerID     string     `json:"playerId"`
	Nickname     string     `json:"nickname"`
	IsSpy        bool       `json:"isSpy"`
	IsAlive      bool       `json:"isAlive"`
	Role         *string    `json:"role,omitempty"`
	LocationName string     `json:"locationName,omitempty"`
	Theme        *string    `json:"theme,omitempty"`
	SpyIDs       []string   `json:"spyIds,omitempty"`
	EndsAt       *time.Time `json:"endsAt,omitempty"`
	Settings     Settings   `json:"settings"`
}

func (s *Server) PlayerViewFor(ctx context.Context, roomID, playerID, token string) (PlayerView, error) {
	player, err := s.authenticatePlayer(ctx, roomID, playerID, token)
	if err != nil {
		return PlayerView{}, err
	}
	room, err := s.roomByID(ctx, roomID)
	if err != nil {
		return PlayerView{}, err
	}

	view := PlayerView{
		PlayerID: player.ID,
		Nickname: player.Nickname,
		IsSpy:    player.IsSpy,
		IsAlive:  player.IsAlive,
		Role:     player.Role,
		EndsAt:   room.GameEndsAt,
		Settings: decodeSettings(room.Settings),
		Theme:    room.SelectedTheme,
	}
	if player.IsSpy {
		view.SpyIDs = decodeIDList(room.SpyIDs)
	} else if room.LocationID != nil {
		var location db.Location
		if err := s.db.WithContext(ctx).Where("id = ?", *room.LocationID).First(&location).Error; err == nil {
			view.LocationName = location.Name
		}
	}
	return view, nil
}

func (s *Server) voteProgressCounts(ctx context.Context, roomID string) (int, int, error) {
	votes, alive, err := s.countBallot(ctx, roomID)
	if err != nil {
		return 0, 0, internalError("failed to count votes", err)
	}
	return votes, alive, nil
}
