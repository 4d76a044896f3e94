package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pictosong/pictosong-server/internal/config"
	"github.com/pictosong/pictosong-server/internal/game"
	"github.com/pictosong/pictosong-server/internal/handler"
	"github.com/pictosong/pictosong-server/internal/room"
	"github.com/pictosong/pictosong-server/internal/session"
	"github.com/pictosong/pictosong-server/internal/store"
	"github.com/pictosong/pictosong-server/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	st := openStore(cfg)
	defer st.Close()

	hub := ws.NewHub()
	rooms := room.NewRegistry()
	sessions := session.NewManager(rooms, st)
	ids := session.NewIdentities()
	router := handler.NewRouter(rooms, sessions, ids, st)

	hub.OnMessage = router.HandleMessage
	hub.OnDisconnect = router.HandleDisconnect

	go hub.Run()

	http.HandleFunc("/health", handleHealth)
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(hub, w, r)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	slog.Info("server starting", "addr", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// openStore connects to PostgreSQL when DATABASE_URL is set, otherwise runs
// on a seeded in-memory store.
func openStore(cfg *config.Config) store.Store {
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL not set, using in-memory store")
		return store.NewMemoryStore(seedSongs())
	}

	st, err := store.NewPostgresStore(context.Background(), cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	return st
}

func seedSongs() []game.Song {
	return []game.Song{
		{ID: "1", Title: "La Camisa Negra", Artist: "Juanes", Genre: "Rock", Difficulty: "Normal", Language: "es"},
		{ID: "2", Title: "Despacito", Artist: "Luis Fonsi", Genre: "Reggaeton", Difficulty: "Normal", Language: "es"},
		{ID: "3", Title: "Bailando", Artist: "Enrique Iglesias", Genre: "Pop", Difficulty: "Normal", Language: "es"},
		{ID: "4", Title: "Vivir Mi Vida", Artist: "Marc Anthony", Genre: "Salsa", Difficulty: "Normal", Language: "es"},
		{ID: "5", Title: "Bohemian Rhapsody", Artist: "Queen", Genre: "Rock", Difficulty: "Normal", Language: "en"},
		{ID: "6", Title: "Yellow Submarine", Artist: "The Beatles", Genre: "Rock", Difficulty: "Normal", Language: "en"},
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func handleWebSocket(hub *ws.Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	client := ws.NewClient(uuid.New().String(), hub, conn)
	hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}

func setupLogger(cfg *config.Config) {
	var h slog.Handler
	opts := &slog.HandlerOptions{}

	switch cfg.LogLevel {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	switch cfg.LogFormat {
	case "json":
		h = slog.NewJSONHandler(os.Stdout, opts)
	default:
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(h))
}
