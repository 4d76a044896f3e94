package store

import (
	"context"
	"math/rand"
	"sync"

	"github.com/pictosong/pictosong-server/internal/game"
)

// MemoryStore implements Store in memory. It backs the server when no
// DATABASE_URL is configured and doubles as the test store.
type MemoryStore struct {
	mu      sync.RWMutex
	songs   []game.Song
	configs map[string]game.MatchConfig
	results []MatchResult
}

// MatchResult is one persisted per-player outcome.
type MatchResult struct {
	PlayerID string
	Score    int
	Won      bool
}

// NewMemoryStore creates a MemoryStore seeded with the given songs.
func NewMemoryStore(songs []game.Song) *MemoryStore {
	return &MemoryStore{
		songs:   songs,
		configs: make(map[string]game.MatchConfig),
	}
}

// SaveRoomConfiguration stores the configuration a room was created with.
func (s *MemoryStore) SaveRoomConfiguration(_ context.Context, code string, cfg game.MatchConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[code] = cfg
	return nil
}

// RoomConfiguration returns the stored configuration for a room code.
func (s *MemoryStore) RoomConfiguration(_ context.Context, code string) (game.MatchConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[code]
	if !ok {
		return game.MatchConfig{}, ErrNotFound
	}
	return cfg, nil
}

// SongByID looks up one catalog entry.
func (s *MemoryStore) SongByID(_ context.Context, id string) (game.Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, song := range s.songs {
		if song.ID == id {
			return song, nil
		}
	}
	return game.Song{}, ErrNotFound
}

// RandomSong picks a catalog entry matching language and difficulty.
func (s *MemoryStore) RandomSong(_ context.Context, language, difficulty string) (game.Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := make([]game.Song, 0, len(s.songs))
	for _, song := range s.songs {
		if song.Language == language && song.Difficulty == difficulty {
			matches = append(matches, song)
		}
	}
	if len(matches) == 0 {
		return game.Song{}, ErrNotFound
	}
	return matches[rand.Intn(len(matches))], nil
}

// RecordMatchResult persists a player's final score and win flag.
func (s *MemoryStore) RecordMatchResult(_ context.Context, playerID string, score int, won bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, MatchResult{PlayerID: playerID, Score: score, Won: won})
	return nil
}

// Results returns a copy of all recorded results.
func (s *MemoryStore) Results() []MatchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]MatchResult, len(s.results))
	copy(out, s.results)
	return out
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
