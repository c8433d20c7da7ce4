package server

import (
	"context"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"spyfall/internal/bus"
	"spyfall/internal/config"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

type Server struct {
	db       *gorm.DB
	bus      bus.Bus
	ws       *wsHub
	cfg      config.Config
	limiter  *rateLimiter
	validate *validator.Validate
	randMu   sync.Mutex
	rand     *rand.Rand
}

func New(conn *gorm.DB, eventBus bus.Bus, cfg config.Config) *Server {
	return &Server{
		db:       conn,
		bus:      eventBus,
		ws:       newWSHub(),
		cfg:      cfg,
		limiter:  newRateLimiter(cfg.RoomRequestsPerMinute, cfg.RoomRequestBurst),
		validate: validator.New(),
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/rooms", s.handleCreateRoom)
	mux.HandleFunc("POST /api/rooms/join", s.handleJoinRoom)
	mux.HandleFunc("GET /api/rooms/{id}", s.handleSnapshot)
	mux.HandleFunc("GET /api/rooms/{id}/me", s.handlePlayerView)
	mux.HandleFunc("POST /api/rooms/{id}/settings", s.handleSettings)
	mux.HandleFunc("POST /api/rooms/{id}/kick", s.handleKick)
	mux.HandleFunc("POST /api/rooms/{id}/start", s.handleStartGame)
	mux.HandleFunc("POST /api/rooms/{id}/early-vote", s.handleEarlyVote)
	mux.HandleFunc("POST /api/rooms/{id}/voting/start", s.handleVotingStart)
	mux.HandleFunc("POST /api/rooms/{id}/votes", s.handleCastVote)
	mux.HandleFunc("POST /api/rooms/{id}/votes/finish", s.handleFinishVoting)
	mux.HandleFunc("POST /api/rooms/{id}/pause", s.handlePause)
	mux.HandleFunc("POST /api/rooms/{id}/resume", s.handleResume)
	mux.HandleFunc("POST /api/rooms/{id}/end", s.handleEndGame)
	mux.HandleFunc("GET /ws/rooms/{id}", s.handleWebsocket)
	return mux
}

// Run consumes the event bus and relays every room broadcast to the
// websocket connections this instance holds. It blocks until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	messages, stop, err := s.bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			s.ws.Broadcast(msg.RoomID, wsEnvelope{
				Event:     msg.Type,
				Payload:   msg.Payload,
				Timestamp: msg.Timestamp,
			})
		}
	}
}

func (s *Server) intn(n int) int {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return s.rand.Intn(n)
}

func (s *Server) shuffle(n int, swap func(i, j int)) {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	s.rand.Shuffle(n, swap)
}

// seedRand replaces the random source; tests use it for determinism.
func (s *Server) seedRand(seed int64) {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	s.rand = rand.New(rand.NewSource(seed))
}

func (s *Server) publishTimeout() time.Duration {
	seconds := s.cfg.PublishTimeoutSeconds
	if seconds <= 0 {
		seconds = 10
	}
	return time.Duration(seconds) * time.Second
}
