package room

import (
	"math/rand"

	"github.com/pictosong/pictosong-server/internal/game"
)

var letters = []rune("ABCDEFGHIJKLMNOPQRSTUVWXYZ")

// GenerateCode creates a random 4-letter uppercase room code, retrying while
// inUse reports a collision. It returns ErrCodeSpaceExhausted after the
// attempt limit runs out.
func GenerateCode(inUse func(code string) bool) (string, error) {
	for range game.MaxCodeAttempts {
		code := randomCode()
		if !inUse(code) {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

func randomCode() string {
	b := make([]rune, game.CodeLength)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}
