package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"spyfall/internal/db"

	"gorm.io/gorm"
)

// authenticatePlayer resolves a player in a room and checks the opaque
// token issued at join time. Used for reads that expose secret round state.
func (s *Server) authenticatePlayer(ctx context.Context, roomID, playerID, token string) (*db.Player, error) {
	if playerID == "" {
		return nil, validationError("player_id is required")
	}
	var player db.Player
	if err := s.db.WithContext(ctx).Where("id = ? AND room_id = ?", playerID, roomID).First(&player).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("player not found")
		}
		return nil, internalError("failed to load player", err)
	}
	provided := strings.TrimSpace(token)
	if provided == "" {
		return nil, forbiddenError("authentication required")
	}
	if subtle.ConstantTimeCompare([]byte(provided), []byte(player.AuthToken)) != 1 {
		return nil, forbiddenError("invalid player authentication")
	}
	return &player, nil
}
