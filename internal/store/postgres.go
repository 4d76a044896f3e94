package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pictosong/pictosong-server/internal/game"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

const schema = `
CREATE TABLE IF NOT EXISTS songs (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    artist TEXT NOT NULL DEFAULT '',
    genre TEXT NOT NULL DEFAULT '',
    difficulty TEXT NOT NULL DEFAULT 'Normal',
    language TEXT NOT NULL DEFAULT 'es'
);
CREATE INDEX IF NOT EXISTS idx_songs_language_difficulty ON songs(language, difficulty);

CREATE TABLE IF NOT EXISTS room_configs (
    code TEXT PRIMARY KEY,
    rounds INT NOT NULL,
    seconds_per_round INT NOT NULL,
    difficulty TEXT NOT NULL,
    language TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS match_results (
    id BIGSERIAL PRIMARY KEY,
    player_id TEXT NOT NULL,
    score INT NOT NULL,
    won BOOLEAN NOT NULL,
    played_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_match_results_player_id ON match_results(player_id);
`

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to PostgreSQL and initializes the schema.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// RoomConfiguration returns the stored configuration for a room code.
func (s *PostgresStore) RoomConfiguration(ctx context.Context, code string) (game.MatchConfig, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT rounds, seconds_per_round, difficulty, language
		 FROM room_configs WHERE code = $1`, code)

	var cfg game.MatchConfig
	err := row.Scan(&cfg.Rounds, &cfg.SecondsPerRound, &cfg.Difficulty, &cfg.Language)
	if errors.Is(err, pgx.ErrNoRows) {
		return game.MatchConfig{}, ErrNotFound
	}
	return cfg, err
}

// SaveRoomConfiguration stores the configuration a room was created with.
func (s *PostgresStore) SaveRoomConfiguration(ctx context.Context, code string, cfg game.MatchConfig) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO room_configs (code, rounds, seconds_per_round, difficulty, language)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (code) DO UPDATE SET
		   rounds = EXCLUDED.rounds,
		   seconds_per_round = EXCLUDED.seconds_per_round,
		   difficulty = EXCLUDED.difficulty,
		   language = EXCLUDED.language`,
		code, cfg.Rounds, cfg.SecondsPerRound, cfg.Difficulty, cfg.Language)
	return err
}

// SongByID looks up one catalog entry.
func (s *PostgresStore) SongByID(ctx context.Context, id string) (game.Song, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, title, artist, genre, difficulty, language
		 FROM songs WHERE id = $1`, id)
	return scanSong(row)
}

// RandomSong picks a catalog entry matching language and difficulty.
func (s *PostgresStore) RandomSong(ctx context.Context, language, difficulty string) (game.Song, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, title, artist, genre, difficulty, language
		 FROM songs WHERE language = $1 AND difficulty = $2
		 ORDER BY random() LIMIT 1`, language, difficulty)
	return scanSong(row)
}

// RecordMatchResult persists a player's final score and win flag.
func (s *PostgresStore) RecordMatchResult(ctx context.Context, playerID string, score int, won bool) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO match_results (player_id, score, won) VALUES ($1, $2, $3)`,
		playerID, score, won)
	return err
}

// Close releases database resources.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanSong(row pgx.Row) (game.Song, error) {
	var song game.Song
	err := row.Scan(&song.ID, &song.Title, &song.Artist, &song.Genre, &song.Difficulty, &song.Language)
	if errors.Is(err, pgx.ErrNoRows) {
		return game.Song{}, ErrNotFound
	}
	return song, err
}
