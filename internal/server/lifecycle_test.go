package server

import (
	"context"
	"testing"

	"spyfall/internal/db"
)

func TestCreateRoomMakesHost(t *testing.T) {
	srv := newTestServer(t)
	created, err := srv.CreateRoom(context.Background(), "  Ada  ", 3)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if len(created.RoomCode) != 6 {
		t.Fatalf("expected 6-char code, got %q", created.RoomCode)
	}
	if created.AuthToken == "" {
		t.Fatalf("expected auth token")
	}

	room := roomRecord(t, srv, created.RoomID)
	if room.Status != db.RoomWaiting {
		t.Fatalf("expected waiting room, got %s", room.Status)
	}
	if room.HostID != created.HostPlayerID {
		t.Fatalf("host_id mismatch: %s vs %s", room.HostID, created.HostPlayerID)
	}

	host := playerRecord(t, srv, created.HostPlayerID)
	if !host.IsHost {
		t.Fatalf("expected host flag")
	}
	if host.Nickname != "Ada" {
		t.Fatalf("expected trimmed nickname, got %q", host.Nickname)
	}
	if host.AvatarID != 3 {
		t.Fatalf("expected avatar 3, got %d", host.AvatarID)
	}
}

func TestCreateRoomRejectsBadNickname(t *testing.T) {
	srv := newTestServer(t)
	if _, err := srv.CreateRoom(context.Background(), "   ", 1); !errorIs(err, errValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	long := "abcdefghijklmnopqrstu"
	if _, err := srv.CreateRoom(context.Background(), long, 1); !errorIs(err, errValidation) {
		t.Fatalf("expected validation error for long nickname, got %v", err)
	}
}

func TestCreateRoomNormalizesAvatar(t *testing.T) {
	srv := newTestServer(t)
	created, err := srv.CreateRoom(context.Background(), "Ada", 99)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if got := playerRecord(t, srv, created.HostPlayerID).AvatarID; got != defaultAvatarID {
		t.Fatalf("expected default avatar, got %d", got)
	}
}

func TestJoinRoomByCode(t *testing.T) {
	srv := newTestServer(t)
	created, _ := newTestRoom(t, srv, 1)

	joined, err := srv.JoinRoom(context.Background(), created.RoomCode, "Ben", 2)
	if err != nil {
		t.Fatalf("join room: %v", err)
	}
	if joined.RoomID != created.RoomID {
		t.Fatalf("joined the wrong room")
	}
	if joined.AuthToken == "" || joined.AuthToken == created.AuthToken {
		t.Fatalf("expected a fresh auth token")
	}
}

func TestJoinRoomUnknownCode(t *testing.T) {
	srv := newTestServer(t)
	if _, err := srv.JoinRoom(context.Background(), "ZZZZZZ", "Ben", 1); !errorIs(err, errNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestJoinRoomDuplicateNickname(t *testing.T) {
	srv := newTestServer(t)
	created, _ := newTestRoom(t, srv, 1)
	if _, err := srv.JoinRoom(context.Background(), created.RoomCode, "Host", 1); !errorIs(err, errConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestJoinRoomFull(t *testing.T) {
	srv := newTestServer(t)
	created, _ := newTestRoom(t, srv, 1)

	settings := defaultSettings()
	settings.MaxPlayers = 3
	if _, err := srv.UpdateSettings(context.Background(), created.RoomID, created.HostPlayerID, settings); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	for _, name := range []string{"Ben", "Cleo"} {
		if _, err := srv.JoinRoom(context.Background(), created.RoomCode, name, 1); err != nil {
			t.Fatalf("join room: %v", err)
		}
	}
	if _, err := srv.JoinRoom(context.Background(), created.RoomCode, "Dana", 1); !errorIs(err, errCapacity) {
		t.Fatalf("expected capacity error, got %v", err)
	}
}

func TestJoinRoomAfterStart(t *testing.T) {
	srv := newTestServer(t)
	created, _ := startTestGame(t, srv, 3)
	if _, err := srv.JoinRoom(context.Background(), created.RoomCode, "Late", 1); !errorIs(err, errInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestKickPlayer(t *testing.T) {
	srv := newTestServer(t)
	created, ids := newTestRoom(t, srv, 3)

	if err := srv.KickPlayer(context.Background(), created.RoomID, ids[1], created.HostPlayerID); err != nil {
		t.Fatalf("kick: %v", err)
	}
	players, err := srv.playersByRoom(context.Background(), created.RoomID)
	if err != nil {
		t.Fatalf("load players: %v", err)
	}
	if len(players) != 2 {
		t.Fatalf("expected 2 players after kick, got %d", len(players))
	}
}

func TestKickPlayerGuards(t *testing.T) {
	srv := newTestServer(t)
	created, ids := newTestRoom(t, srv, 3)

	if err := srv.KickPlayer(context.Background(), created.RoomID, ids[2], ids[1]); !errorIs(err, errForbidden) {
		t.Fatalf("expected forbidden for non-host, got %v", err)
	}
	if err := srv.KickPlayer(context.Background(), created.RoomID, created.HostPlayerID, created.HostPlayerID); !errorIs(err, errValidation) {
		t.Fatalf("expected validation for self-kick, got %v", err)
	}
	if err := srv.KickPlayer(context.Background(), created.RoomID, "missing", created.HostPlayerID); !errorIs(err, errNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateSettingsHostOnlyWhileWaiting(t *testing.T) {
	srv := newTestServer(t)
	created, ids := newTestRoom(t, srv, 3)

	settings := defaultSettings()
	settings.GameDuration = 5
	if _, err := srv.UpdateSettings(context.Background(), created.RoomID, ids[1], settings); !errorIs(err, errForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	applied, err := srv.UpdateSettings(context.Background(), created.RoomID, created.HostPlayerID, settings)
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if applied.GameDuration != 5 {
		t.Fatalf("expected duration 5, got %d", applied.GameDuration)
	}

	if _, err := srv.StartGame(context.Background(), created.RoomID, created.HostPlayerID); err != nil {
		t.Fatalf("start game: %v", err)
	}
	if _, err := srv.UpdateSettings(context.Background(), created.RoomID, created.HostPlayerID, settings); !errorIs(err, errInvalidState) {
		t.Fatalf("expected invalid state during game, got %v", err)
	}
}

func TestEndGameResetsRoom(t *testing.T) {
	srv := newTestServer(t)
	created, ids := startTestGame(t, srv, 4)
	openTestBallot(t, srv, created.RoomID)
	for _, id := range ids {
		if err := srv.CastVote(context.Background(), created.RoomID, id, ids[1]); err != nil {
			t.Fatalf("cast vote: %v", err)
		}
	}

	if err := srv.EndGame(context.Background(), created.RoomID, ids[1]); !errorIs(err, errForbidden) {
		t.Fatalf("expected forbidden for non-host, got %v", err)
	}
	if err := srv.EndGame(context.Background(), created.RoomID, created.HostPlayerID); err != nil {
		t.Fatalf("end game: %v", err)
	}

	room := roomRecord(t, srv, created.RoomID)
	if room.Status != db.RoomWaiting {
		t.Fatalf("expected waiting, got %s", room.Status)
	}
	if room.VotingStatus != db.VotingNone || room.VotingRound != 1 {
		t.Fatalf("expected voting reset, got %s round %d", room.VotingStatus, room.VotingRound)
	}
	if room.GameEndsAt != nil || room.Winner != nil {
		t.Fatalf("expected round fields cleared")
	}
	for _, id := range ids {
		player := playerRecord(t, srv, id)
		if player.IsSpy || !player.IsAlive || player.Role != nil || player.WantsEarlyVote {
			t.Fatalf("expected player %s reset, got %+v", id, player)
		}
	}
	votes, _, err := srv.countBallot(context.Background(), created.RoomID)
	if err != nil {
		t.Fatalf("count ballot: %v", err)
	}
	if votes != 0 {
		t.Fatalf("expected votes cleared, got %d", votes)
	}
}
