package server

import (
	"context"
	"encoding/json"
	"log"

	"spyfall/internal/db"
)

// StartGame draws the round: location, optional theme, spy set and roles,
// then transitions the room to playing. The transition itself is a
// conditional update re-asserting status=waiting, so a host double-clicking
// start (or two racing requests) produces exactly one round; the loser gets
// InvalidState and no player state is touched by it.
func (s *Server) StartGame(ctx context.Context, roomID, hostID string) (string, error) {
	room, err := s.roomByID(ctx, roomID)
	if err != nil {
		return "", err
	}
	if room.HostID != hostID {
		return "", forbiddenError("only the host can start the game")
	}
	if room.Status != db.RoomWaiting {
		return "", invalidStateError("game already started")
	}

	players, err := s.playersByRoom(ctx, roomID)
	if err != nil {
		return "", err
	}
	if len(players) < minPlayersToStart {
		return "", validationError("need at least %d players", minPlayersToStart)
	}

	settings := decodeSettings(room.Settings)
	if settings.ModeShadowAlliance && len(players) < 4 {
		return "", validationError("shadow alliance needs at least 4 players")
	}

	var locations []db.Location
	if err := s.db.WithContext(ctx).Find(&locations).Error; err != nil {
		return "", internalError("failed to load locations", err)
	}
	if len(locations) == 0 {
		return "", internalError("no locations available", nil)
	}
	location := locations[s.intn(len(locations))]
	roles := decodeStringList(location.Roles)
	themes := decodeStringList(location.Themes)

	var theme *string
	if settings.ModeTheme && len(themes) > 0 {
		picked := themes[s.intn(len(themes))]
		theme = &picked
	}

	spyCount := s.drawSpyCount(settings, len(players))
	spyIDs := s.drawSpies(players, spyCount)
	spySet := make(map[string]struct{}, len(spyIDs))
	for _, id := range spyIDs {
		spySet[id] = struct{}{}
	}

	shuffledRoles := append([]string(nil), roles...)
	s.shuffle(len(shuffledRoles), func(i, j int) {
		shuffledRoles[i], shuffledRoles[j] = shuffledRoles[j], shuffledRoles[i]
	})

	now := timeNowUTC()
	endsAt := now.Add(settings.gameWindow())

	// Claim the round first: only the request that wins this conditional
	// update goes on to write player assignments.
	res := s.db.WithContext(ctx).Model(&db.Room{}).
		Where("id = ? AND status = ?", roomID, db.RoomWaiting).
		Updates(map[string]any{
			"status":            db.RoomPlaying,
			"location_id":       location.ID,
			"selected_theme":    theme,
			"spy_ids":           encodeIDList(spyIDs),
			"game_started_at":   now,
			"game_ends_at":      endsAt,
			"game_paused_at":    nil,
			"remaining_time_ms": nil,
			"voting_status":     db.VotingNone,
			"voting_round":      1,
			"revote_candidates": encodeIDList(nil),
			"winner":            nil,
		})
	if res.Error != nil {
		return "", internalError("failed to start game", res.Error)
	}
	if res.RowsAffected == 0 {
		return "", invalidStateError("game already started")
	}

	// Roles are dealt cyclically by join order from one shuffled deck.
	for i, player := range players {
		_, isSpy := spySet[player.ID]
		var role *string
		if settings.ModeRoles && len(shuffledRoles) > 0 {
			assigned := shuffledRoles[i%len(shuffledRoles)]
			role = &assigned
		}
		if err := s.db.WithContext(ctx).Model(&db.Player{}).Where("id = ?", player.ID).
			Updates(map[string]any{
				"is_spy":           isSpy,
				"role":             role,
				"is_alive":         true,
				"wants_early_vote": false,
			}).Error; err != nil {
			return "", internalError("failed to assign roles", err)
		}
	}

	log.Printf("game started room_id=%s code=%s players=%d spies=%d location=%q",
		roomID, room.Code, len(players), len(spyIDs), location.Name)
	// Secret assignments never ride the broadcast; each client reads its own
	// role through its authenticated view.
	s.fanout(roomID, &hostID, eventGameStarted, map[string]any{
		"roomCode": room.Code,
	})
	return room.Code, nil
}

// drawSpyCount resolves the effective spy count for this round. Never more
// spies than half the table, never zero.
func (s *Server) drawSpyCount(settings Settings, playerCount int) int {
	limit := playerCount / 2
	if limit < 1 {
		limit = 1
	}
	if settings.ModeSpyChaos {
		low := 1
		if settings.ModeShadowAlliance && limit >= 2 {
			low = 2
		}
		return low + s.intn(limit-low+1)
	}
	count := settings.SpyCount
	if count > limit {
		count = limit
	}
	if count < 1 {
		count = 1
	}
	return count
}

// drawSpies samples count players uniformly without replacement.
func (s *Server) drawSpies(players []db.Player, count int) []string {
	ids := make([]string, len(players))
	for i, player := range players {
		ids[i] = player.ID
	}
	s.shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
	if count > len(ids) {
		count = len(ids)
	}
	return ids[:count]
}

func decodeStringList(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}
	return list
}
