package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsEnvelope is the frame written to room websocket connections. Every bus
// message for a room is relayed as one envelope.
type wsEnvelope struct {
	Event     string    `json:"event"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

type wsHub struct {
	mu     sync.Mutex
	groups map[string]map[*websocket.Conn]struct{}
}

func newWSHub() *wsHub {
	return &wsHub{
		groups: make(map[string]map[*websocket.Conn]struct{}),
	}
}

func (h *wsHub) Add(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[roomID]
	if group == nil {
		group = make(map[*websocket.Conn]struct{})
		h.groups[roomID] = group
	}
	group[conn] = struct{}{}
}

func (h *wsHub) Remove(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[roomID]
	if group == nil {
		return
	}
	delete(group, conn)
	_ = conn.Close()
	if len(group) == 0 {
		delete(h.groups, roomID)
	}
}

func (h *wsHub) Send(conn *websocket.Conn, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, data)
}

func (h *wsHub) Broadcast(roomID string, payload any) {
	h.mu.Lock()
	group := h.groups[roomID]
	conns := make([]*websocket.Conn, 0, len(group))
	for conn := range group {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.Remove(roomID, conn)
		}
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	if _, err := s.roomByID(r.Context(), roomID); err != nil {
		writeAPIError(w, err)
		return
	}
	playerID := r.URL.Query().Get("player_id")
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	log.Printf("ws connected room_id=%s player_id=%s remote=%s", roomID, playerID, r.RemoteAddr)
	s.ws.Add(roomID, conn)
	if playerID != "" {
		members, err := s.bus.Join(r.Context(), roomID, playerID)
		if err != nil {
			log.Printf("presence join failed room_id=%s player_id=%s error=%v", roomID, playerID, err)
		} else {
			s.fanout(roomID, &playerID, eventPresenceChanged, map[string]any{
				"playerId":  playerID,
				"connected": true,
				"members":   members,
			})
		}
	}
	if snap, err := s.Snapshot(r.Context(), roomID); err == nil {
		s.ws.Send(conn, wsEnvelope{Event: "snapshot", Payload: snap, Timestamp: timeNowUTC()})
	}
	go s.readWS(roomID, playerID, conn)
}

func (s *Server) readWS(roomID, playerID string, conn *websocket.Conn) {
	defer func() {
		s.ws.Remove(roomID, conn)
		if playerID == "" {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.publishTimeout())
		defer cancel()
		members, err := s.bus.Leave(ctx, roomID, playerID)
		if err != nil {
			log.Printf("presence leave failed room_id=%s player_id=%s error=%v", roomID, playerID, err)
			return
		}
		s.fanout(roomID, &playerID, eventPresenceChanged, map[string]any{
			"playerId":  playerID,
			"connected": false,
			"members":   members,
		})
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Printf("ws disconnected room_id=%s player_id=%s error=%v", roomID, playerID, err)
			return
		}
	}
}
