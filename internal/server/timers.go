package server

import (
	"context"
	"log"
	"time"

	"spyfall/internal/db"
)

// The game clock has no server-side scheduler: the room row carries the
// authoritative game_ends_at, clients render the countdown from it, and
// whichever client notices expiry first reports it as an explicit action.
// Pausing freezes the remaining duration on the row; resuming recomputes
// the end time from it. The invariant is remaining_time_ms set iff
// game_paused_at set.

// PauseTimer freezes the game clock.
func (s *Server) PauseTimer(ctx context.Context, roomID string) error {
	room, err := s.roomByID(ctx, roomID)
	if err != nil {
		return err
	}
	return s.pauseGame(ctx, room)
}

// ResumeTimer recomputes game_ends_at from the stored remaining duration.
// A resume with nothing paused logs and no-ops.
func (s *Server) ResumeTimer(ctx context.Context, roomID string) error {
	room, err := s.roomByID(ctx, roomID)
	if err != nil {
		return err
	}
	return s.resumeGame(ctx, room)
}

func (s *Server) pauseGame(ctx context.Context, room *db.Room) error {
	if room.GameEndsAt == nil {
		log.Printf("pause skipped, no game clock room_id=%s", room.ID)
		return nil
	}
	now := timeNowUTC()
	remaining := room.GameEndsAt.Sub(now).Milliseconds()
	if remaining < 0 {
		remaining = 0
	}
	if err := s.db.WithContext(ctx).Model(&db.Room{}).Where("id = ?", room.ID).
		Updates(map[string]any{
			"game_paused_at":    now,
			"remaining_time_ms": remaining,
		}).Error; err != nil {
		return internalError("failed to pause game timer", err)
	}
	log.Printf("game paused room_id=%s remaining_ms=%d", room.ID, remaining)
	s.fanout(room.ID, nil, eventGamePaused, nil)
	return nil
}

func (s *Server) resumeGame(ctx context.Context, room *db.Room) error {
	if room.RemainingTimeMS == nil {
		log.Printf("resume skipped, nothing paused room_id=%s", room.ID)
		return nil
	}
	newEndsAt := timeNowUTC().Add(time.Duration(*room.RemainingTimeMS) * time.Millisecond)
	if err := s.db.WithContext(ctx).Model(&db.Room{}).Where("id = ?", room.ID).
		Updates(map[string]any{
			"game_ends_at":      newEndsAt,
			"game_paused_at":    nil,
			"remaining_time_ms": nil,
		}).Error; err != nil {
		return internalError("failed to resume game timer", err)
	}
	log.Printf("game resumed room_id=%s ends_at=%s", room.ID, newEndsAt.Format(time.RFC3339))
	s.fanout(room.ID, nil, eventGameResumed, map[string]any{
		"endsAt": newEndsAt,
	})
	return nil
}
