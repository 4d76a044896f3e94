package game

import "errors"

var (
	// ErrInvalidConfiguration is returned for a match configuration that
	// cannot drive a round controller.
	ErrInvalidConfiguration = errors.New("game: invalid match configuration")
	// ErrMessageTooLong rejects chat and stroke payloads over MaxTextLen
	// before they reach the round controller.
	ErrMessageTooLong = errors.New("game: message too long")
)

// MatchConfig is the immutable configuration a room is created with.
type MatchConfig struct {
	Rounds          int    `json:"rounds"`
	SecondsPerRound int    `json:"seconds_per_round"`
	Difficulty      string `json:"difficulty"`
	Language        string `json:"language"`
}

// DefaultConfig is used whenever a room's stored configuration cannot be
// fetched.
var DefaultConfig = MatchConfig{
	Rounds:          3,
	SecondsPerRound: 60,
	Difficulty:      "Normal",
	Language:        "es",
}

// Validate checks the configuration fields.
func (c MatchConfig) Validate() error {
	if c.Rounds <= 0 || c.SecondsPerRound <= 0 || c.Difficulty == "" || c.Language == "" {
		return ErrInvalidConfiguration
	}
	return nil
}
