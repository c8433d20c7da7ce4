package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialWS(t *testing.T, ts *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) wsEnvelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read ws: %v", err)
	}
	var envelope wsEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return envelope
}

// readUntil drains frames until the wanted event arrives.
func readUntil(t *testing.T, conn *websocket.Conn, event string) wsEnvelope {
	t.Helper()
	for i := 0; i < 20; i++ {
		envelope := readEnvelope(t, conn)
		if envelope.Event == event {
			return envelope
		}
	}
	t.Fatalf("event %q never arrived", event)
	return wsEnvelope{}
}

func TestWebsocketSnapshotOnConnect(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	created, _ := newTestRoom(t, srv, 2)
	conn := dialWS(t, ts, "/ws/rooms/"+created.RoomID)

	envelope := readEnvelope(t, conn)
	if envelope.Event != "snapshot" {
		t.Fatalf("expected snapshot first, got %q", envelope.Event)
	}
}

func TestWebsocketUnknownRoomRejected(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/rooms/missing"
	if _, _, err := websocket.DefaultDialer.Dial(url, nil); err == nil {
		t.Fatalf("expected dial to fail for unknown room")
	}
}

func TestWebsocketRelaysBroadcasts(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = srv.Run(ctx) }()

	created, _ := newTestRoom(t, srv, 1)
	conn := dialWS(t, ts, "/ws/rooms/"+created.RoomID+"?player_id="+created.HostPlayerID)

	if envelope := readEnvelope(t, conn); envelope.Event != "snapshot" {
		t.Fatalf("expected snapshot first, got %q", envelope.Event)
	}

	// Confirm the bus relay is live before triggering domain events. The
	// relay goroutine may still be subscribing, so probe until one lands.
	probeCtx, stopProbes := context.WithCancel(context.Background())
	defer stopProbes()
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			_ = srv.bus.Publish(probeCtx, created.RoomID, "probe", nil)
			select {
			case <-probeCtx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	readUntil(t, conn, "probe")
	stopProbes()

	if _, err := srv.JoinRoom(context.Background(), created.RoomCode, "Ben", 2); err != nil {
		t.Fatalf("join: %v", err)
	}
	envelope := readUntil(t, conn, eventPlayerJoined)
	payload, _ := envelope.Payload.(map[string]any)
	player, _ := payload["player"].(map[string]any)
	if player["nickname"] != "Ben" {
		t.Fatalf("unexpected join payload: %v", envelope.Payload)
	}
}

func TestWebsocketPresence(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	created, _ := newTestRoom(t, srv, 1)
	dialWS(t, ts, "/ws/rooms/"+created.RoomID+"?player_id="+created.HostPlayerID)

	deadline := time.Now().Add(3 * time.Second)
	for {
		members, err := srv.bus.Members(context.Background(), created.RoomID)
		if err != nil {
			t.Fatalf("members: %v", err)
		}
		if len(members) == 1 && members[0] == created.HostPlayerID {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("presence never recorded, got %v", members)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
