package store

import (
	"context"

	"github.com/pictosong/pictosong-server/internal/game"
)

// Store bundles the external collaborators the game core consumes: room
// configuration lookup, the song catalog, and the statistics sink.
type Store interface {
	// RoomConfiguration returns the stored configuration for a room code.
	// Callers fall back to game.DefaultConfig on any error.
	RoomConfiguration(ctx context.Context, code string) (game.MatchConfig, error)
	// SaveRoomConfiguration stores the configuration a room was created with.
	SaveRoomConfiguration(ctx context.Context, code string, cfg game.MatchConfig) error
	// SongByID looks up one catalog entry.
	SongByID(ctx context.Context, id string) (game.Song, error)
	// RandomSong picks a catalog entry matching language and difficulty.
	RandomSong(ctx context.Context, language, difficulty string) (game.Song, error)
	// RecordMatchResult persists a player's final score and win flag.
	// Best effort: failures are logged by the caller, never retried inline.
	RecordMatchResult(ctx context.Context, playerID string, score int, won bool) error
	// Close releases store resources.
	Close() error
}
