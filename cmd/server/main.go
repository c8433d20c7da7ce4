package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spyfall/internal/bus"
	"spyfall/internal/config"
	"spyfall/internal/db"
	"spyfall/internal/server"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg := config.Load()

	conn, err := db.Open()
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	if err := db.ConfigurePool(conn, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns,
		cfg.DBConnMaxLifetimeSeconds, cfg.DBConnMaxIdleTimeSeconds); err != nil {
		log.Fatalf("database pool setup failed: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	eventBus, err := newEventBus(cfg)
	if err != nil {
		log.Fatalf("event bus setup failed: %v", err)
	}
	defer eventBus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(conn, eventBus, cfg)
	go func() {
		if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("broadcast relay stopped: %v", err)
		}
	}()

	addr := ":8080"
	if env := os.Getenv("PORT"); env != "" {
		addr = ":" + env
	}
	httpServer := &http.Server{Addr: addr, Handler: srv.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Printf("spyfall server listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

// newEventBus picks the broadcast backend. Redis is the default; a single
// local instance can opt out with EVENT_BUS=memory.
func newEventBus(cfg config.Config) (bus.Bus, error) {
	if os.Getenv("EVENT_BUS") == "memory" {
		return bus.NewMemory(), nil
	}
	return bus.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
}
