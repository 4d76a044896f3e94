package round

import (
	"encoding/json"

	"github.com/pictosong/pictosong-server/internal/game"
)

// Reasons a round can settle.
const (
	ReasonTimer      = "timer_expired"
	ReasonAllGuessed = "all_guessed"
	ReasonDrawerLeft = "drawer_left"
)

// RoundStartedEvent carries the full song entry; the session coordinator
// decides per recipient which hints survive.
type RoundStartedEvent struct {
	Round       int
	TotalRounds int
	Seconds     int
	Drawer      string
	Song        game.Song
	Players     []game.PlayerState
}

// ChatEvent relays one chat line. Correct marks a scoring guess; the raw text
// is relayed either way.
type ChatEvent struct {
	Round   int
	Player  string
	Text    string
	Correct bool
}

// ScoreEvent is emitted when a guesser scores for the first time in a round.
type ScoreEvent struct {
	Round  int
	Player string
	Points int
	Score  int
}

// StrokeEvent relays an opaque stroke record from the drawer.
type StrokeEvent struct {
	Round  int
	Drawer string
	Stroke json.RawMessage
}

// RoundEndedEvent reveals the title and the running scores.
type RoundEndedEvent struct {
	Round  int
	Reason string
	Title  string
	Scores []game.PlayerState
}

// MatchFinishedEvent carries the final ranking. Winners preserves ties.
type MatchFinishedEvent struct {
	Scores  []game.PlayerState
	Winners []string
}

// EventSink consumes controller events. The session coordinator implements it
// to fan events out to subscribed players.
type EventSink interface {
	RoundStarted(ev RoundStartedEvent)
	Chat(ev ChatEvent)
	Scored(ev ScoreEvent)
	Stroke(ev StrokeEvent)
	RoundEnded(ev RoundEndedEvent)
	MatchFinished(ev MatchFinishedEvent)
}
