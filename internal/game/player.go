package game

import "encoding/json"

type Role int

const (
	RoleGuesser Role = iota
	RoleDrawer
)

func (r Role) String() string {
	if r == RoleDrawer {
		return "drawer"
	}
	return "guesser"
}

// MarshalJSON serializes Role as a string.
func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON deserializes Role from a string.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "drawer" {
		*r = RoleDrawer
	} else {
		*r = RoleGuesser
	}
	return nil
}

// PlayerState is the per-player record inside a round controller.
type PlayerState struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Score      int    `json:"score"`
	Role       Role   `json:"role"`
	HasGuessed bool   `json:"has_guessed"`
}

// IsDrawer reports whether the player draws in the current round.
func (p *PlayerState) IsDrawer() bool {
	return p.Role == RoleDrawer
}

// ResetRound clears per-round state at the start of a new round.
func (p *PlayerState) ResetRound() {
	p.Role = RoleGuesser
	p.HasGuessed = false
}

// Winners returns the names of all players tied at the maximum cumulative
// score. Ties are preserved, never broken.
func Winners(players []*PlayerState) []string {
	if len(players) == 0 {
		return nil
	}
	max := players[0].Score
	for _, p := range players[1:] {
		if p.Score > max {
			max = p.Score
		}
	}
	var winners []string
	for _, p := range players {
		if p.Score == max {
			winners = append(winners, p.Name)
		}
	}
	return winners
}
