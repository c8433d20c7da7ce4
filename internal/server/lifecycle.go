package server

import (
	"context"
	"errors"
	"log"

	"spyfall/internal/db"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"gorm.io/gorm"
)

const roomCodeAttempts = 5

// CreateRoom creates a waiting room with default settings and its host
// player. The host's player id doubles as the room's host_id.
func (s *Server) CreateRoom(ctx context.Context, nickname string, avatarID int) (CreateRoomResult, error) {
	name, err := validateNickname(nickname)
	if err != nil {
		return CreateRoomResult{}, err
	}

	hostID := uuid.NewString()
	room := db.Room{
		ID:               uuid.NewString(),
		HostID:           hostID,
		Status:           db.RoomWaiting,
		Settings:         encodeSettings(defaultSettings()),
		SpyIDs:           encodeIDList(nil),
		VotingStatus:     db.VotingNone,
		VotingRound:      1,
		RevoteCandidates: encodeIDList(nil),
	}

	// Collisions on the 6-char code are rare but real; retry with a fresh
	// code instead of surfacing the unique violation.
	created := false
	for attempt := 0; attempt < roomCodeAttempts; attempt++ {
		room.Code = newRoomCode()
		err := s.db.WithContext(ctx).Create(&room).Error
		if err == nil {
			created = true
			break
		}
		if isUniqueViolation(err) {
			continue
		}
		return CreateRoomResult{}, internalError("failed to create room", err)
	}
	if !created {
		return CreateRoomResult{}, internalError("failed to allocate room code", nil)
	}

	host := db.Player{
		ID:        hostID,
		RoomID:    room.ID,
		Nickname:  name,
		AvatarID:  normalizeAvatarID(avatarID),
		IsHost:    true,
		IsAlive:   true,
		AuthToken: newAuthToken(),
		JoinedAt:  timeNowUTC(),
	}
	if err := s.db.WithContext(ctx).Create(&host).Error; err != nil {
		// Roll the room back so the code is not burned on a half-made lobby.
		s.db.WithContext(ctx).Delete(&db.Room{}, "id = ?", room.ID)
		return CreateRoomResult{}, internalError("failed to create host player", err)
	}

	log.Printf("room created room_id=%s code=%s host_id=%s", room.ID, room.Code, hostID)
	return CreateRoomResult{
		RoomID:       room.ID,
		RoomCode:     room.Code,
		HostPlayerID: hostID,
		AuthToken:    host.AuthToken,
	}, nil
}

// JoinRoom admits a player into a waiting room by code.
func (s *Server) JoinRoom(ctx context.Context, code, nickname string, avatarID int) (JoinRoomResult, error) {
	name, err := validateNickname(nickname)
	if err != nil {
		return JoinRoomResult{}, err
	}

	var room db.Room
	if err := s.db.WithContext(ctx).Where("code = ?", code).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return JoinRoomResult{}, notFoundError("room not found")
		}
		return JoinRoomResult{}, internalError("failed to load room", err)
	}
	if room.Status != db.RoomWaiting {
		return JoinRoomResult{}, invalidStateError("game already started")
	}

	settings := decodeSettings(room.Settings)
	var count int64
	if err := s.db.WithContext(ctx).Model(&db.Player{}).Where("room_id = ?", room.ID).Count(&count).Error; err != nil {
		return JoinRoomResult{}, internalError("failed to count players", err)
	}
	if int(count) >= settings.MaxPlayers {
		return JoinRoomResult{}, capacityError("room is full")
	}

	player := db.Player{
		ID:        uuid.NewString(),
		RoomID:    room.ID,
		Nickname:  name,
		AvatarID:  normalizeAvatarID(avatarID),
		IsAlive:   true,
		AuthToken: newAuthToken(),
		JoinedAt:  timeNowUTC(),
	}
	if err := s.db.WithContext(ctx).Create(&player).Error; err != nil {
		if isUniqueViolation(err) {
			return JoinRoomResult{}, conflictError("nickname already taken in this room")
		}
		return JoinRoomResult{}, internalError("failed to create player", err)
	}

	log.Printf("player joined room_id=%s player_id=%s nickname=%q", room.ID, player.ID, name)
	s.fanout(room.ID, &player.ID, eventPlayerJoined, map[string]any{
		"player": playerInfo(player),
	})
	return JoinRoomResult{
		RoomID:    room.ID,
		RoomCode:  room.Code,
		PlayerID:  player.ID,
		AuthToken: player.AuthToken,
	}, nil
}

// KickPlayer removes a player from the room. Host only, no self-kick.
func (s *Server) KickPlayer(ctx context.Context, roomID, targetID, actingID string) error {
	room, err := s.roomByID(ctx, roomID)
	if err != nil {
		return err
	}
	if room.HostID != actingID {
		return forbiddenError("only the host can kick players")
	}
	if targetID == actingID {
		return validationError("cannot kick yourself")
	}

	var target db.Player
	if err := s.db.WithContext(ctx).Where("id = ? AND room_id = ?", targetID, roomID).First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundError("player not found in this room")
		}
		return internalError("failed to load player", err)
	}
	if err := s.db.WithContext(ctx).Delete(&db.Player{}, "id = ?", targetID).Error; err != nil {
		return internalError("failed to kick player", err)
	}

	log.Printf("player kicked room_id=%s player_id=%s nickname=%q", roomID, targetID, target.Nickname)
	s.fanout(roomID, &targetID, eventPlayerKicked, map[string]any{
		"playerId": targetID,
	})
	return nil
}

// UpdateSettings validates, clamps and persists new room settings.
func (s *Server) UpdateSettings(ctx context.Context, roomID, actingID string, raw Settings) (Settings, error) {
	room, err := s.roomByID(ctx, roomID)
	if err != nil {
		return Settings{}, err
	}
	if room.HostID != actingID {
		return Settings{}, forbiddenError("only the host can change settings")
	}
	if room.Status != db.RoomWaiting {
		return Settings{}, invalidStateError("cannot change settings during a game")
	}

	validated, err := validateSettings(raw)
	if err != nil {
		return Settings{}, err
	}
	if err := s.db.WithContext(ctx).Model(&db.Room{}).Where("id = ?", roomID).
		Update("settings", encodeSettings(validated)).Error; err != nil {
		return Settings{}, internalError("failed to update settings", err)
	}

	log.Printf("settings updated room_id=%s", roomID)
	s.fanout(roomID, &actingID, eventSettingsUpdated, map[string]any{
		"settings": validated,
	})
	return validated, nil
}

// EndGame resets the room to the lobby: all round-scoped room fields are
// cleared, every player's round-scoped fields reset, votes deleted.
func (s *Server) EndGame(ctx context.Context, roomID, hostID string) error {
	room, err := s.roomByID(ctx, roomID)
	if err != nil {
		return err
	}
	if room.HostID != hostID {
		return forbiddenError("only the host can end the game")
	}

	updates := map[string]any{
		"status":            db.RoomWaiting,
		"winner":            nil,
		"location_id":       nil,
		"selected_theme":    nil,
		"spy_ids":           encodeIDList(nil),
		"game_started_at":   nil,
		"game_ends_at":      nil,
		"game_paused_at":    nil,
		"remaining_time_ms": nil,
		"voting_status":     db.VotingNone,
		"voting_round":      1,
		"revote_candidates": encodeIDList(nil),
		"voting_started_at": nil,
		"voting_ends_at":    nil,
	}
	if err := s.db.WithContext(ctx).Model(&db.Room{}).Where("id = ?", roomID).Updates(updates).Error; err != nil {
		return internalError("failed to reset room", err)
	}
	if err := s.db.WithContext(ctx).Model(&db.Player{}).Where("room_id = ?", roomID).Updates(map[string]any{
		"is_spy":           false,
		"role":             nil,
		"is_alive":         true,
		"wants_early_vote": false,
	}).Error; err != nil {
		return internalError("failed to reset players", err)
	}
	if err := s.deleteVotes(ctx, roomID); err != nil {
		return err
	}

	log.Printf("game ended room_id=%s code=%s", roomID, room.Code)
	s.fanout(roomID, &hostID, eventGameEnded, map[string]any{
		"roomCode": room.Code,
	})
	return nil
}

func (s *Server) roomByID(ctx context.Context, roomID string) (*db.Room, error) {
	var room db.Room
	if err := s.db.WithContext(ctx).Where("id = ?", roomID).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("room not found")
		}
		return nil, internalError("failed to load room", err)
	}
	return &room, nil
}

func (s *Server) playersByRoom(ctx context.Context, roomID string) ([]db.Player, error) {
	var players []db.Player
	if err := s.db.WithContext(ctx).Where("room_id = ?", roomID).
		Order("joined_at asc").Find(&players).Error; err != nil {
		return nil, internalError("failed to load players", err)
	}
	return players, nil
}

func (s *Server) deleteVotes(ctx context.Context, roomID string) error {
	if err := s.db.WithContext(ctx).Delete(&db.Vote{}, "room_id = ?", roomID).Error; err != nil {
		return internalError("failed to delete votes", err)
	}
	return nil
}

func playerInfo(player db.Player) PlayerInfo {
	return PlayerInfo{
		ID:             player.ID,
		Nickname:       player.Nickname,
		AvatarID:       player.AvatarID,
		IsHost:         player.IsHost,
		IsAlive:        player.IsAlive,
		WantsEarlyVote: player.WantsEarlyVote,
		JoinedAt:       player.JoinedAt,
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
