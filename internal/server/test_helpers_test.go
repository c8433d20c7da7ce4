package server

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"spyfall/internal/bus"
	"spyfall/internal/config"
	"spyfall/internal/db"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testLocations = []struct {
	name   string
	roles  []string
	themes []string
}{
	{
		name:   "Submarine",
		roles:  []string{"Captain", "Sonar Operator", "Cook", "Engineer", "Navigator"},
		themes: []string{"Deep Dive", "Silent Running"},
	},
	{
		name:   "Casino",
		roles:  []string{"Dealer", "Pit Boss", "Bartender", "Security Guard", "Gambler"},
		themes: []string{"High Stakes Night"},
	},
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	conn, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	for _, loc := range testLocations {
		record := db.Location{
			ID:     uuid.NewString(),
			Name:   loc.name,
			Roles:  encodeIDList(loc.roles),
			Themes: encodeIDList(loc.themes),
		}
		if err := conn.Create(&record).Error; err != nil {
			t.Fatalf("seed location: %v", err)
		}
	}
	srv := New(conn, bus.NewMemory(), config.Default())
	srv.seedRand(1)
	return srv
}

// newTestRoom creates a room with count players and returns the create and
// join results in join order (host first).
func newTestRoom(t *testing.T, srv *Server, count int) (CreateRoomResult, []string) {
	t.Helper()
	ctx := context.Background()
	created, err := srv.CreateRoom(ctx, "Host", 1)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	ids := []string{created.HostPlayerID}
	names := []string{"Ada", "Ben", "Cleo", "Dana", "Evan", "Finn", "Gwen"}
	for i := 0; i < count-1; i++ {
		joined, err := srv.JoinRoom(ctx, created.RoomCode, names[i], 2+i)
		if err != nil {
			t.Fatalf("join room: %v", err)
		}
		ids = append(ids, joined.PlayerID)
	}
	return created, ids
}

// startTestGame drives a fresh room of count players into playing state.
func startTestGame(t *testing.T, srv *Server, count int) (CreateRoomResult, []string) {
	t.Helper()
	created, ids := newTestRoom(t, srv, count)
	if _, err := srv.StartGame(context.Background(), created.RoomID, created.HostPlayerID); err != nil {
		t.Fatalf("start game: %v", err)
	}
	return created, ids
}

func roomRecord(t *testing.T, srv *Server, roomID string) db.Room {
	t.Helper()
	var room db.Room
	if err := srv.db.Where("id = ?", roomID).First(&room).Error; err != nil {
		t.Fatalf("load room: %v", err)
	}
	return room
}

func playerRecord(t *testing.T, srv *Server, playerID string) db.Player {
	t.Helper()
	var player db.Player
	if err := srv.db.Where("id = ?", playerID).First(&player).Error; err != nil {
		t.Fatalf("load player: %v", err)
	}
	return player
}

// openTestBallot force-expires the game clock and opens voting.
func openTestBallot(t *testing.T, srv *Server, roomID string) {
	t.Helper()
	expired := timeNowUTC().Add(-time.Second)
	if err := srv.db.Model(&db.Room{}).Where("id = ?", roomID).
		Update("game_ends_at", expired).Error; err != nil {
		t.Fatalf("expire game clock: %v", err)
	}
	opened, err := srv.StartVotingOnExpiry(context.Background(), roomID)
	if err != nil {
		t.Fatalf("start voting: %v", err)
	}
	if !opened {
		t.Fatalf("expected ballot to open")
	}
}
