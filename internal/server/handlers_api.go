package server

import (
	"log"
	"net/http"
)

type createRoomRequest struct {
	Nickname string `json:"nickname" validate:"required,max=20"`
	AvatarID int    `json:"avatar_id" validate:"omitempty,min=1,max=16"`
}

type joinRoomRequest struct {
	RoomCode string `json:"room_code" validate:"required,len=6"`
	Nickname string `json:"nickname" validate:"required,max=20"`
	AvatarID int    `json:"avatar_id" validate:"omitempty,min=1,max=16"`
}

type kickRequest struct {
	PlayerID string `json:"player_id" validate:"required"`
	TargetID string `json:"target_id" validate:"required"`
}

type settingsRequest struct {
	PlayerID string   `json:"player_id" validate:"required"`
	Settings Settings `json:"settings"`
}

type playerActionRequest struct {
	PlayerID string `json:"player_id" validate:"required"`
}

type castVoteRequest struct {
	PlayerID  string `json:"player_id" validate:"required"`
	SuspectID string `json:"suspect_id" validate:"required"`
}

func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := readJSON(r.Body, dest); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := s.validate.Struct(dest); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return false
	}
	return true
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	if !s.enforceRateLimit(w, r) {
		return
	}
	var req createRoomRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	result, err := s.CreateRoom(r.Context(), req.Nickname, req.AvatarID)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	log.Printf("room created room_id=%s code=%s host=%q", result.RoomID, result.RoomCode, req.Nickname)
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	if !s.enforceRateLimit(w, r) {
		return
	}
	var req joinRoomRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	result, err := s.JoinRoom(r.Context(), req.RoomCode, req.Nickname, req.AvatarID)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Snapshot(r.Context(), r.PathValue("id"))
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handlePlayerView(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("player_id")
	token := r.Header.Get("X-Auth-Token")
	view, err := s.PlayerViewFor(r.Context(), r.PathValue("id"), playerID, token)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	applied, err := s.UpdateSettings(r.Context(), r.PathValue("id"), req.PlayerID, req.Settings)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": applied})
}

func (s *Server) handleKick(w http.ResponseWriter, r *http.Request) {
	var req kickRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	if err := s.KickPlayer(r.Context(), r.PathValue("id"), req.TargetID, req.PlayerID); err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"kicked": req.TargetID})
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	var req playerActionRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	code, err := s.StartGame(r.Context(), r.PathValue("id"), req.PlayerID)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"roomCode": code})
}

func (s *Server) handleEarlyVote(w http.ResponseWriter, r *http.Request) {
	var req playerActionRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	result, err := s.ToggleEarlyVote(r.Context(), r.PathValue("id"), req.PlayerID)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleVotingStart is how clients report the game clock reaching zero. The
// transition is conditional, so any number of clients may report expiry and
// at most one ballot opens.
func (s *Server) handleVotingStart(w http.ResponseWriter, r *http.Request) {
	opened, err := s.StartVotingOnExpiry(r.Context(), r.PathValue("id"))
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"votingStarted": opened})
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	var req castVoteRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	if err := s.CastVote(r.Context(), r.PathValue("id"), req.PlayerID, req.SuspectID); err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"recorded": true})
}

func (s *Server) handleFinishVoting(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.FinishVoting(r.Context(), r.PathValue("id"))
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if err := s.PauseTimer(r.Context(), r.PathValue("id")); err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": true})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if err := s.ResumeTimer(r.Context(), r.PathValue("id")); err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"resumed": true})
}

func (s *Server) handleEndGame(w http.ResponseWriter, r *http.Request) {
	var req playerActionRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	if err := s.EndGame(r.Context(), r.PathValue("id"), req.PlayerID); err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ended": true})
}
