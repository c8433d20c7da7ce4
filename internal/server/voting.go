package server

import (
	"context"
	"errors"
	"log"
	"slices"

	"spyfall/internal/db"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CastVote records one living player's accusation. A repeat cast overwrites
// the previous one; choices stay private until the tally.
func (s *Server) CastVote(ctx context.Context, roomID, voterID, suspectID string) error {
	var voter db.Player
	if err := s.db.WithContext(ctx).Where("id = ? AND room_id = ?", voterID, roomID).First(&voter).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundError("player not found")
		}
		return internalError("failed to load voter", err)
	}
	if !voter.IsAlive {
		return forbiddenError("eliminated players cannot vote")
	}

	room, err := s.roomByID(ctx, roomID)
	if err != nil {
		return err
	}
	if room.VotingStatus != db.VotingActive {
		return invalidStateError("voting is not active")
	}

	if room.VotingRound >= 2 {
		candidates := decodeIDList(room.RevoteCandidates)
		if !slices.Contains(candidates, suspectID) {
			return validationError("suspect is not a revote candidate")
		}
	} else {
		var suspect db.Player
		if err := s.db.WithContext(ctx).Where("id = ? AND room_id = ?", suspectID, roomID).First(&suspect).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return validationError("suspect is not in this room")
			}
			return internalError("failed to load suspect", err)
		}
		if !suspect.IsAlive {
			return validationError("suspect is already eliminated")
		}
	}

	vote := db.Vote{
		RoomID:    roomID,
		VoterID:   voterID,
		SuspectID: suspectID,
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}, {Name: "voter_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"suspect_id", "updated_at"}),
	}).Create(&vote).Error; err != nil {
		return internalError("failed to record vote", err)
	}

	log.Printf("vote cast room_id=%s voter_id=%s", roomID, voterID)
	s.fanout(roomID, &voterID, eventVoteCast, map[string]any{
		"voterId": voterID,
	})

	// Advisory signal only; finishing the round stays an explicit call.
	totalVotes, totalPlayers, err := s.countBallot(ctx, roomID)
	if err != nil {
		log.Printf("vote progress check failed room_id=%s error=%v", roomID, err)
		return nil
	}
	if totalVotes >= totalPlayers {
		log.Printf("all votes collected room_id=%s votes=%d", roomID, totalVotes)
		s.fanout(roomID, nil, eventAllVotesCollected, map[string]any{
			"totalVotes":   totalVotes,
			"totalPlayers": totalPlayers,
		})
	}
	return nil
}

// FinishVoting closes the ballot and resolves it: elimination, tiebreak
// revote, or a failed round. Multiple clients race to call this when the
// vote clock expires or the last vote lands; the conditional flip of
// voting_status active->finished picks exactly one winner to run the tally,
// and every later caller observes InvalidState.
func (s *Server) FinishVoting(ctx context.Context, roomID string) (VoteOutcome, error) {
	room, err := s.roomByID(ctx, roomID)
	if err != nil {
		return VoteOutcome{}, err
	}
	if room.VotingStatus != db.VotingActive {
		return VoteOutcome{}, invalidStateError("voting already finished")
	}

	var votes []db.Vote
	if err := s.db.WithContext(ctx).Where("room_id = ?", roomID).Find(&votes).Error; err != nil {
		return VoteOutcome{}, internalError("failed to load votes", err)
	}
	if len(votes) == 0 {
		return VoteOutcome{}, validationError("no votes cast")
	}

	res := s.db.WithContext(ctx).Model(&db.Room{}).
		Where("id = ? AND voting_status = ?", roomID, db.VotingActive).
		Update("voting_status", db.VotingFinished)
	if res.Error != nil {
		return VoteOutcome{}, internalError("failed to close ballot", res.Error)
	}
	if res.RowsAffected == 0 {
		return VoteOutcome{}, invalidStateError("voting already finished")
	}

	voteCounts := make(map[string]int)
	for _, vote := range votes {
		voteCounts[vote.SuspectID]++
	}
	maxVotes := 0
	for _, count := range voteCounts {
		if count > maxVotes {
			maxVotes = count
		}
	}
	var leaders []string
	for suspectID, count := range voteCounts {
		if count == maxVotes {
			leaders = append(leaders, suspectID)
		}
	}
	slices.Sort(leaders)

	var outcome VoteOutcome
	switch {
	case len(leaders) > 1 && room.VotingRound == 1:
		outcome, err = s.resolveTieRevote(ctx, room, leaders, voteCounts)
	case len(leaders) > 1:
		outcome, err = s.resolveTieFailed(ctx, room, voteCounts)
	default:
		outcome, err = s.resolveElimination(ctx, room, leaders[0], voteCounts)
	}
	if err != nil {
		return VoteOutcome{}, err
	}

	s.fanout(roomID, nil, eventVotingFinished, map[string]any{
		"result": outcome,
	})
	return outcome, nil
}

// resolveTieRevote opens the round-2 ballot restricted to the tied leaders.
// With exactly two leaders the revote is pre-seeded with their mutual
// accusations; a 3+ way tie opens unseeded.
func (s *Server) resolveTieRevote(ctx context.Context, room *db.Room, leaders []string, voteCounts map[string]int) (VoteOutcome, error) {
	settings := decodeSettings(room.Settings)
	now := timeNowUTC()
	revoteEndsAt := now.Add(settings.voteWindow())

	if err := s.db.WithContext(ctx).Model(&db.Room{}).Where("id = ?", room.ID).
		Updates(map[string]any{
			"voting_status":     db.VotingActive,
			"voting_round":      2,
			"revote_candidates": encodeIDList(leaders),
			"voting_started_at": now,
			"voting_ends_at":    revoteEndsAt,
		}).Error; err != nil {
		return VoteOutcome{}, internalError("failed to open revote", err)
	}
	if err := s.deleteVotes(ctx, room.ID); err != nil {
		return VoteOutcome{}, err
	}

	if len(leaders) == 2 {
		seeded := []db.Vote{
			{RoomID: room.ID, VoterID: leaders[0], SuspectID: leaders[1]},
			{RoomID: room.ID, VoterID: leaders[1], SuspectID: leaders[0]},
		}
		if err := s.db.WithContext(ctx).Create(&seeded).Error; err != nil {
			log.Printf("revote seed failed room_id=%s error=%v", room.ID, err)
		} else {
			for _, vote := range seeded {
				voterID := vote.VoterID
				s.fanout(room.ID, &voterID, eventVoteCast, map[string]any{
					"voterId": voterID,
				})
			}
		}
	}

	log.Printf("voting tied, revote opened room_id=%s candidates=%d", room.ID, len(leaders))
	return VoteOutcome{
		Type:         outcomeTieRevote,
		VoteCounts:   voteCounts,
		Candidates:   leaders,
		RevoteEndsAt: &revoteEndsAt,
	}, nil
}

// resolveTieFailed ends a round-2 tie with no elimination and puts the game
// back on the clock.
func (s *Server) resolveTieFailed(ctx context.Context, room *db.Room, voteCounts map[string]int) (VoteOutcome, error) {
	if err := s.resetVotingState(ctx, room.ID); err != nil {
		return VoteOutcome{}, err
	}
	if err := s.resumeGame(ctx, room); err != nil {
		log.Printf("resume after tie failed room_id=%s error=%v", room.ID, err)
	}
	log.Printf("voting tied twice, round failed room_id=%s", room.ID)
	return VoteOutcome{Type: outcomeTieFailed, VoteCounts: voteCounts}, nil
}

// resolveElimination removes the single leader and checks the win
// condition: a dead spy means civilians win; fewer than 3 survivors means
// the spies win by attrition; otherwise the round continues.
func (s *Server) resolveElimination(ctx context.Context, room *db.Room, eliminatedID string, voteCounts map[string]int) (VoteOutcome, error) {
	var eliminated db.Player
	if err := s.db.WithContext(ctx).Where("id = ? AND room_id = ?", eliminatedID, room.ID).First(&eliminated).Error; err != nil {
		return VoteOutcome{}, internalError("failed to load eliminated player", err)
	}
	if err := s.db.WithContext(ctx).Model(&db.Player{}).Where("id = ?", eliminatedID).
		Update("is_alive", false).Error; err != nil {
		return VoteOutcome{}, internalError("failed to eliminate player", err)
	}

	wasSpy := eliminated.IsSpy
	outcome := VoteOutcome{
		Type:         outcomeEliminated,
		VoteCounts:   voteCounts,
		EliminatedID: eliminatedID,
		WasSpy:       wasSpy,
	}

	if wasSpy {
		outcome.IsFinal = true
		outcome.Winner = db.WinnerCivilians
		if err := s.finishRoom(ctx, room.ID, db.WinnerCivilians); err != nil {
			return VoteOutcome{}, err
		}
	} else {
		var aliveCount int64
		if err := s.db.WithContext(ctx).Model(&db.Player{}).
			Where("room_id = ? AND is_alive = ?", room.ID, true).Count(&aliveCount).Error; err != nil {
			return VoteOutcome{}, internalError("failed to count players", err)
		}
		if aliveCount < minPlayersToStart {
			outcome.IsFinal = true
			outcome.Winner = db.WinnerSpies
			if err := s.finishRoom(ctx, room.ID, db.WinnerSpies); err != nil {
				return VoteOutcome{}, err
			}
		} else {
			if err := s.resetVotingState(ctx, room.ID); err != nil {
				return VoteOutcome{}, err
			}
			if err := s.resumeGame(ctx, room); err != nil {
				log.Printf("resume after elimination failed room_id=%s error=%v", room.ID, err)
			}
		}
	}

	if err := s.deleteVotes(ctx, room.ID); err != nil {
		return VoteOutcome{}, err
	}
	log.Printf("player eliminated room_id=%s player_id=%s was_spy=%t final=%t",
		room.ID, eliminatedID, wasSpy, outcome.IsFinal)
	return outcome, nil
}

// finishRoom records the terminal win condition.
func (s *Server) finishRoom(ctx context.Context, roomID, winner string) error {
	if err := s.db.WithContext(ctx).Model(&db.Room{}).Where("id = ?", roomID).
		Updates(map[string]any{
			"status":            db.RoomFinished,
			"winner":            winner,
			"voting_status":     db.VotingFinished,
			"voting_round":      1,
			"revote_candidates": encodeIDList(nil),
		}).Error; err != nil {
		return internalError("failed to finish room", err)
	}
	return nil
}

// resetVotingState returns the room to its between-votes shape: status none,
// round 1, no candidates, no early-vote intents, no vote rows.
func (s *Server) resetVotingState(ctx context.Context, roomID string) error {
	if err := s.db.WithContext(ctx).Model(&db.Room{}).Where("id = ?", roomID).
		Updates(map[string]any{
			"voting_status":     db.VotingNone,
			"voting_round":      1,
			"revote_candidates": encodeIDList(nil),
			"voting_started_at": nil,
			"voting_ends_at":    nil,
		}).Error; err != nil {
		return internalError("failed to reset voting state", err)
	}
	if err := s.db.WithContext(ctx).Model(&db.Player{}).Where("room_id = ?", roomID).
		Update("wants_early_vote", false).Error; err != nil {
		return internalError("failed to reset early votes", err)
	}
	return s.deleteVotes(ctx, roomID)
}

func (s *Server) countBallot(ctx context.Context, roomID string) (votes int, alive int, err error) {
	var voteCount int64
	if err := s.db.WithContext(ctx).Model(&db.Vote{}).Where("room_id = ?", roomID).Count(&voteCount).Error; err != nil {
		return 0, 0, err
	}
	var aliveCount int64
	if err := s.db.WithContext(ctx).Model(&db.Player{}).
		Where("room_id = ? AND is_alive = ?", roomID, true).Count(&aliveCount).Error; err != nil {
		return 0, 0, err
	}
	return int(voteCount), int(aliveCount), nil
}
