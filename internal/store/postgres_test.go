package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pictosong/pictosong-server/internal/game"
)

func getTestDatabaseURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping PostgreSQL integration test")
	}
	return url
}

func setupTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	url := getTestDatabaseURL(t)
	ctx := context.Background()

	s, err := NewPostgresStore(ctx, url)
	require.NoError(t, err)

	// Clean up tables for test isolation
	for _, table := range []string{"songs", "room_configs", "match_results"} {
		_, err = s.pool.Exec(ctx, "DELETE FROM "+table)
		require.NoError(t, err)
	}

	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func insertSong(t *testing.T, s *PostgresStore, song game.Song) {
	t.Helper()
	_, err := s.pool.Exec(context.Background(),
		`INSERT INTO songs (id, title, artist, genre, difficulty, language)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		song.ID, song.Title, song.Artist, song.Genre, song.Difficulty, song.Language)
	require.NoError(t, err)
}

func TestPostgresStore_SongByID(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	insertSong(t, s, game.Song{ID: "s1", Title: "Despacito", Artist: "Luis Fonsi", Genre: "Reggaeton", Difficulty: "Normal", Language: "es"})

	song, err := s.SongByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Despacito", song.Title)
	assert.Equal(t, "Luis Fonsi", song.Artist)

	_, err = s.SongByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_RandomSongFilters(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	insertSong(t, s, game.Song{ID: "s1", Title: "Despacito", Difficulty: "Normal", Language: "es"})
	insertSong(t, s, game.Song{ID: "s2", Title: "Bohemian Rhapsody", Difficulty: "Hard", Language: "en"})

	song, err := s.RandomSong(ctx, "es", "Normal")
	require.NoError(t, err)
	assert.Equal(t, "s1", song.ID)

	_, err = s.RandomSong(ctx, "fr", "Normal")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_RoomConfigurationRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.RoomConfiguration(ctx, "ABCD")
	assert.ErrorIs(t, err, ErrNotFound)

	cfg := game.MatchConfig{Rounds: 3, SecondsPerRound: 60, Difficulty: "Normal", Language: "es"}
	require.NoError(t, s.SaveRoomConfiguration(ctx, "ABCD", cfg))

	got, err := s.RoomConfiguration(ctx, "ABCD")
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	// Upsert replaces the previous configuration.
	cfg.Rounds = 5
	require.NoError(t, s.SaveRoomConfiguration(ctx, "ABCD", cfg))
	got, err = s.RoomConfiguration(ctx, "ABCD")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Rounds)
}

func TestPostgresStore_RecordMatchResult(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordMatchResult(ctx, "Ana", 40, true))
	require.NoError(t, s.RecordMatchResult(ctx, "Ana", 20, false))

	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM match_results WHERE player_id = $1`, "Ana").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
