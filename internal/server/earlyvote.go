package server

import (
	"context"
	"errors"
	"log"

	"spyfall/internal/db"

	"gorm.io/gorm"
)

// ToggleEarlyVote flips a living player's intent to force an early vote and,
// when the toggles reach quorum (ceil(alive/2)), opens the ballot within the
// same request. N clients can observe the threshold simultaneously; the
// conditional update inside openBallot makes sure the transition fires once.
func (s *Server) ToggleEarlyVote(ctx context.Context, roomID, playerID string) (EarlyVoteResult, error) {
	var player db.Player
	if err := s.db.WithContext(ctx).Where("id = ? AND room_id = ?", playerID, roomID).First(&player).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EarlyVoteResult{}, notFoundError("player not found")
		}
		return EarlyVoteResult{}, internalError("failed to load player", err)
	}
	if !player.IsAlive {
		return EarlyVoteResult{}, forbiddenError("eliminated players cannot vote")
	}

	wantsVote := !player.WantsEarlyVote
	if err := s.db.WithContext(ctx).Model(&db.Player{}).Where("id = ?", playerID).
		Update("wants_early_vote", wantsVote).Error; err != nil {
		return EarlyVoteResult{}, internalError("failed to update early vote", err)
	}

	var alive []db.Player
	if err := s.db.WithContext(ctx).Where("room_id = ? AND is_alive = ?", roomID, true).Find(&alive).Error; err != nil {
		return EarlyVoteResult{}, internalError("failed to load players", err)
	}
	wantsCount := 0
	for _, p := range alive {
		if p.WantsEarlyVote {
			wantsCount++
		}
	}

	log.Printf("early vote toggled room_id=%s player_id=%s wants=%t progress=%d/%d",
		roomID, playerID, wantsVote, wantsCount, len(alive))
	s.fanout(roomID, &playerID, eventEarlyVoteUpdated, map[string]any{
		"playerId":     playerID,
		"wantsVote":    wantsVote,
		"totalVotes":   wantsCount,
		"totalPlayers": len(alive),
	})

	votingStarted := false
	if wantsCount >= ceilHalf(len(alive)) {
		votingStarted = true
		if _, err := s.openBallot(ctx, roomID); err != nil {
			// The toggle itself stuck; opening the ballot is retried by the
			// next toggle or by clock expiry.
			log.Printf("open ballot failed room_id=%s error=%v", roomID, err)
		}
	}
	return EarlyVoteResult{WantsVote: wantsVote, VotingStarted: votingStarted}, nil
}

// StartVotingOnExpiry is the client-reported "game clock expired" action.
// Any connected client may call it; the server re-checks the clock and the
// conditional update keeps the transition at-most-once.
func (s *Server) StartVotingOnExpiry(ctx context.Context, roomID string) (bool, error) {
	room, err := s.roomByID(ctx, roomID)
	if err != nil {
		return false, err
	}
	if room.Status != db.RoomPlaying {
		return false, invalidStateError("game is not in progress")
	}
	if room.VotingStatus == db.VotingActive {
		// Already open; racing reporters are a benign no-op.
		return false, nil
	}
	if room.GamePausedAt != nil {
		return false, validationError("game clock is paused")
	}
	if room.GameEndsAt == nil || timeNowUTC().Before(*room.GameEndsAt) {
		return false, validationError("game clock has not expired")
	}
	return s.openBallot(ctx, roomID)
}

// openBallot transitions the room into an active vote exactly once. The
// guard re-asserts voting_status=none at write time; losing that race is a
// benign no-op, not an error.
func (s *Server) openBallot(ctx context.Context, roomID string) (bool, error) {
	room, err := s.roomByID(ctx, roomID)
	if err != nil {
		return false, err
	}
	settings := decodeSettings(room.Settings)
	now := timeNowUTC()
	endsAt := now.Add(settings.voteWindow())

	res := s.db.WithContext(ctx).Model(&db.Room{}).
		Where("id = ? AND status = ? AND voting_status = ?", roomID, db.RoomPlaying, db.VotingNone).
		Updates(map[string]any{
			"voting_status":     db.VotingActive,
			"voting_round":      1,
			"revote_candidates": encodeIDList(nil),
			"voting_started_at": now,
			"voting_ends_at":    endsAt,
		})
	if res.Error != nil {
		return false, internalError("failed to open ballot", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	if err := s.db.WithContext(ctx).Model(&db.Player{}).Where("room_id = ?", roomID).
		Update("wants_early_vote", false).Error; err != nil {
		log.Printf("early vote reset failed room_id=%s error=%v", roomID, err)
	}
	if err := s.pauseGame(ctx, room); err != nil {
		log.Printf("pause on ballot open failed room_id=%s error=%v", roomID, err)
	}

	log.Printf("voting started room_id=%s ends_at=%s", roomID, endsAt.Format("15:04:05"))
	s.fanout(roomID, nil, eventVotingStarted, map[string]any{
		"endsAt": endsAt,
	})
	return true, nil
}
