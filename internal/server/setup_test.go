package server

import (
	"context"
	"testing"

	"spyfall/internal/db"
)

func TestStartGameGuards(t *testing.T) {
	srv := newTestServer(t)
	created, ids := newTestRoom(t, srv, 2)

	if _, err := srv.StartGame(context.Background(), created.RoomID, ids[1]); !errorIs(err, errForbidden) {
		t.Fatalf("expected forbidden for non-host, got %v", err)
	}
	if _, err := srv.StartGame(context.Background(), created.RoomID, created.HostPlayerID); !errorIs(err, errValidation) {
		t.Fatalf("expected validation with 2 players, got %v", err)
	}
}

func TestStartGameAssignsRound(t *testing.T) {
	srv := newTestServer(t)
	created, ids := newTestRoom(t, srv, 4)

	settings := defaultSettings()
	settings.ModeRoles = true
	if _, err := srv.UpdateSettings(context.Background(), created.RoomID, created.HostPlayerID, settings); err != nil {
		t.Fatalf("update settings: %v", err)
	}

	code, err := srv.StartGame(context.Background(), created.RoomID, created.HostPlayerID)
	if err != nil {
		t.Fatalf("start game: %v", err)
	}
	if code != created.RoomCode {
		t.Fatalf("expected room code %q, got %q", created.RoomCode, code)
	}

	room := roomRecord(t, srv, created.RoomID)
	if room.Status != db.RoomPlaying {
		t.Fatalf("expected playing, got %s", room.Status)
	}
	if room.LocationID == nil {
		t.Fatalf("expected a location")
	}
	if room.GameStartedAt == nil || room.GameEndsAt == nil {
		t.Fatalf("expected game clock set")
	}
	spyIDs := decodeIDList(room.SpyIDs)
	if len(spyIDs) != 1 {
		t.Fatalf("expected 1 spy, got %d", len(spyIDs))
	}

	spies := 0
	for _, id := range ids {
		player := playerRecord(t, srv, id)
		if player.IsSpy {
			spies++
		}
		if !player.IsAlive {
			t.Fatalf("expected everyone alive at start")
		}
		if player.Role == nil {
			t.Fatalf("expected a role for %s", player.Nickname)
		}
	}
	if spies != 1 {
		t.Fatalf("expected 1 spy among players, got %d", spies)
	}
}

func TestStartGameTwiceFails(t *testing.T) {
	srv := newTestServer(t)
	created, _ := startTestGame(t, srv, 3)
	if _, err := srv.StartGame(context.Background(), created.RoomID, created.HostPlayerID); !errorIs(err, errInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestStartGameShadowAllianceNeedsFour(t *testing.T) {
	srv := newTestServer(t)
	created, _ := newTestRoom(t, srv, 3)

	settings := defaultSettings()
	settings.ModeShadowAlliance = true
	settings.SpyCount = 2
	if _, err := srv.UpdateSettings(context.Background(), created.RoomID, created.HostPlayerID, settings); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if _, err := srv.StartGame(context.Background(), created.RoomID, created.HostPlayerID); !errorIs(err, errValidation) {
		t.Fatalf("expected validation with 3 players, got %v", err)
	}
}

func TestStartGameSpyCountClamped(t *testing.T) {
	srv := newTestServer(t)
	created, ids := newTestRoom(t, srv, 4)

	settings := defaultSettings()
	settings.SpyCount = 10
	if _, err := srv.UpdateSettings(context.Background(), created.RoomID, created.HostPlayerID, settings); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if _, err := srv.StartGame(context.Background(), created.RoomID, created.HostPlayerID); err != nil {
		t.Fatalf("start game: %v", err)
	}

	spies := 0
	for _, id := range ids {
		if playerRecord(t, srv, id).IsSpy {
			spies++
		}
	}
	// Never more spies than half the table.
	if spies != 2 {
		t.Fatalf("expected spy count clamped to 2, got %d", spies)
	}
}

func TestStartGameThemeMode(t *testing.T) {
	srv := newTestServer(t)
	created, _ := newTestRoom(t, srv, 3)

	settings := defaultSettings()
	settings.ModeTheme = true
	if _, err := srv.UpdateSettings(context.Background(), created.RoomID, created.HostPlayerID, settings); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if _, err := srv.StartGame(context.Background(), created.RoomID, created.HostPlayerID); err != nil {
		t.Fatalf("start game: %v", err)
	}
	if roomRecord(t, srv, created.RoomID).SelectedTheme == nil {
		t.Fatalf("expected a theme")
	}
}

func TestDrawSpyCountBounds(t *testing.T) {
	srv := newTestServer(t)

	plain := defaultSettings()
	plain.SpyCount = 3
	if got := srv.drawSpyCount(plain, 10); got != 3 {
		t.Fatalf("expected configured count, got %d", got)
	}
	if got := srv.drawSpyCount(plain, 4); got != 2 {
		t.Fatalf("expected clamp to half, got %d", got)
	}

	chaos := defaultSettings()
	chaos.ModeSpyChaos = true
	for i := 0; i < 50; i++ {
		got := srv.drawSpyCount(chaos, 8)
		if got < 1 || got > 4 {
			t.Fatalf("chaos draw out of range: %d", got)
		}
	}

	chaosAlliance := chaos
	chaosAlliance.ModeShadowAlliance = true
	for i := 0; i < 50; i++ {
		if got := srv.drawSpyCount(chaosAlliance, 8); got < 2 {
			t.Fatalf("shadow alliance chaos draw below 2: %d", got)
		}
	}
}
