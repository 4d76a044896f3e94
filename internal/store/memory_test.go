package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pictosong/pictosong-server/internal/game"
)

func seedSongs() []game.Song {
	return []game.Song{
		{ID: "1", Title: "La Camisa Negra", Artist: "Juanes", Genre: "Rock", Difficulty: "Normal", Language: "es"},
		{ID: "2", Title: "Despacito", Artist: "Luis Fonsi", Genre: "Reggaeton", Difficulty: "Normal", Language: "es"},
		{ID: "3", Title: "Bohemian Rhapsody", Artist: "Queen", Genre: "Rock", Difficulty: "Hard", Language: "en"},
	}
}

func TestMemoryStore_SongByID(t *testing.T) {
	s := NewMemoryStore(seedSongs())
	ctx := context.Background()

	song, err := s.SongByID(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "Despacito", song.Title)

	_, err = s.SongByID(ctx, "99")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_RandomSongFilters(t *testing.T) {
	s := NewMemoryStore(seedSongs())
	ctx := context.Background()

	for range 10 {
		song, err := s.RandomSong(ctx, "es", "Normal")
		require.NoError(t, err)
		assert.Equal(t, "es", song.Language)
		assert.Equal(t, "Normal", song.Difficulty)
	}

	_, err := s.RandomSong(ctx, "fr", "Normal")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_RoomConfiguration(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()

	_, err := s.RoomConfiguration(ctx, "ABCD")
	assert.ErrorIs(t, err, ErrNotFound)

	cfg := game.MatchConfig{Rounds: 5, SecondsPerRound: 45, Difficulty: "Hard", Language: "en"}
	require.NoError(t, s.SaveRoomConfiguration(ctx, "ABCD", cfg))

	got, err := s.RoomConfiguration(ctx, "ABCD")
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestMemoryStore_RecordMatchResult(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()

	require.NoError(t, s.RecordMatchResult(ctx, "Ana", 40, true))
	require.NoError(t, s.RecordMatchResult(ctx, "Beto", 30, false))

	results := s.Results()
	require.Len(t, results, 2)
	assert.Equal(t, MatchResult{PlayerID: "Ana", Score: 40, Won: true}, results[0])
}
