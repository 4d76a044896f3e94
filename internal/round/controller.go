package round

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pictosong/pictosong-server/internal/game"
)

type State int

const (
	NotStarted State = iota
	InProgress
	RoundActive
	RoundSettling
	MatchFinished
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case RoundActive:
		return "round_active"
	case RoundSettling:
		return "round_settling"
	case MatchFinished:
		return "match_finished"
	default:
		return "unknown"
	}
}

var (
	ErrAlreadyStarted = errors.New("round: match already started")
	ErrRoundNotActive = errors.New("round: no active round")
	ErrNotInMatch     = errors.New("round: player not in match")
	ErrNotDrawer      = errors.New("round: only the drawer may send strokes")
)

// SongPicker selects songs for rounds. Implemented by the store.
type SongPicker interface {
	RandomSong(ctx context.Context, language, difficulty string) (game.Song, error)
}

// Controller is the per-match state machine. It owns round sequencing, drawer
// rotation, guess scoring, and the round timer. All state is guarded by one
// mutex; events are emitted to the sink after the lock is released.
type Controller struct {
	roomCode string
	cfg      game.MatchConfig
	songs    SongPicker
	sink     EventSink

	mu      sync.Mutex
	state   State
	round   int
	players []*game.PlayerState // roster order at match start
	song    game.Song
	timer   *time.Timer
}

// NewController creates a controller for the given roster. Roster order
// determines drawer rotation.
func NewController(roomCode string, cfg game.MatchConfig, names []string, songs SongPicker, sink EventSink) *Controller {
	players := make([]*game.PlayerState, 0, len(names))
	for _, n := range names {
		players = append(players, &game.PlayerState{ID: n, Name: n})
	}
	return &Controller{
		roomCode: roomCode,
		cfg:      cfg,
		songs:    songs,
		sink:     sink,
		players:  players,
	}
}

// Start begins the match and its first round.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.state != NotStarted {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.state = InProgress
	c.mu.Unlock()

	c.beginRound()
	return nil
}

// State returns the current machine state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Round returns the current round index (1-based, 0 before the first round).
func (c *Controller) Round() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.round
}

// Drawer returns the current drawer's name, or "" outside an active round.
func (c *Controller) Drawer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != RoundActive {
		return ""
	}
	return c.drawerLocked().Name
}

// Scores returns a copy of the per-player state.
func (c *Controller) Scores() []game.PlayerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scoresLocked()
}

func (c *Controller) scoresLocked() []game.PlayerState {
	out := make([]game.PlayerState, 0, len(c.players))
	for _, p := range c.players {
		out = append(out, *p)
	}
	return out
}

func (c *Controller) drawerLocked() *game.PlayerState {
	return c.players[(c.round-1)%len(c.players)]
}

func (c *Controller) find(name string) *game.PlayerState {
	for _, p := range c.players {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// beginRound advances to the next round, or finishes the match when the
// configured round count is exhausted.
func (c *Controller) beginRound() {
	c.mu.Lock()
	if c.state == MatchFinished {
		c.mu.Unlock()
		return
	}
	if c.round >= c.cfg.Rounds || len(c.players) < 2 {
		c.finishLocked()
		return
	}
	c.mu.Unlock()

	// Song selection can hit the database. The lock is released around the
	// call so a slow catalog never stalls chat, strokes, or state reads.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	song, err := c.songs.RandomSong(ctx, c.cfg.Language, c.cfg.Difficulty)
	cancel()

	c.mu.Lock()
	if c.state == MatchFinished {
		c.mu.Unlock()
		return
	}
	if err != nil {
		slog.Error("song selection failed, finishing match", "room", c.roomCode, "error", err)
		c.finishLocked()
		return
	}
	if len(c.players) < 2 {
		c.finishLocked()
		return
	}

	c.round++
	c.song = song
	for _, p := range c.players {
		p.ResetRound()
	}
	drawer := c.drawerLocked()
	drawer.Role = game.RoleDrawer

	c.state = RoundActive
	round := c.round
	duration := time.Duration(c.cfg.SecondsPerRound) * time.Second
	c.timer = time.AfterFunc(duration, func() { c.endRound(round, ReasonTimer) })

	ev := RoundStartedEvent{
		Round:       c.round,
		TotalRounds: c.cfg.Rounds,
		Seconds:     c.cfg.SecondsPerRound,
		Drawer:      drawer.Name,
		Song:        song,
		Players:     c.scoresLocked(),
	}
	c.mu.Unlock()

	slog.Info("round started", "room", c.roomCode, "round", ev.Round, "drawer", ev.Drawer)
	c.sink.RoundStarted(ev)
}

// endRound settles the round it was triggered for. The round stamp plus the
// state check linearize the race between the timer firing and the last
// guesser scoring: whichever path transitions out of RoundActive first owns
// the settle, and a settle carried over from an earlier round is a no-op
// even when a newer round is already active.
func (c *Controller) endRound(round int, reason string) {
	c.mu.Lock()
	if c.state != RoundActive || c.round != round {
		c.mu.Unlock()
		return
	}
	c.state = RoundSettling
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}

	ev := RoundEndedEvent{
		Round:  c.round,
		Reason: reason,
		Title:  c.song.Title,
		Scores: c.scoresLocked(),
	}
	c.mu.Unlock()

	slog.Info("round ended", "room", c.roomCode, "round", ev.Round, "reason", reason)
	c.sink.RoundEnded(ev)

	c.beginRound()
}

// finishLocked transitions to MatchFinished and emits the final ranking.
// Caller must hold c.mu; the lock is released before the sink call.
func (c *Controller) finishLocked() {
	c.state = MatchFinished
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	scores := c.scoresLocked()
	c.mu.Unlock()

	ev := MatchFinishedEvent{Scores: scores, Winners: winners(scores)}
	slog.Info("match finished", "room", c.roomCode, "winners", ev.Winners)
	c.sink.MatchFinished(ev)
}

func winners(scores []game.PlayerState) []string {
	players := make([]*game.PlayerState, 0, len(scores))
	for i := range scores {
		players = append(players, &scores[i])
	}
	return game.Winners(players)
}

// ProcessMessage handles a chat line from a player during the active round.
// A non-drawer whose text case-insensitively matches the song title scores
// once per round; the raw text is relayed to everyone regardless.
func (c *Controller) ProcessMessage(player, text string) error {
	c.mu.Lock()
	if c.state != RoundActive {
		c.mu.Unlock()
		return ErrRoundNotActive
	}
	p := c.find(player)
	if p == nil {
		c.mu.Unlock()
		return ErrNotInMatch
	}

	correct := !p.IsDrawer() && !p.HasGuessed &&
		strings.EqualFold(strings.TrimSpace(text), c.song.Title)

	var scoreEv ScoreEvent
	if correct {
		p.HasGuessed = true
		p.Score += game.GuessPoints
		scoreEv = ScoreEvent{Round: c.round, Player: p.Name, Points: game.GuessPoints, Score: p.Score}
	}

	round := c.round
	chatEv := ChatEvent{Round: round, Player: player, Text: text, Correct: correct}
	allGuessed := c.allGuessedLocked()
	c.mu.Unlock()

	c.sink.Chat(chatEv)
	if correct {
		c.sink.Scored(scoreEv)
	}
	if allGuessed {
		c.endRound(round, ReasonAllGuessed)
	}
	return nil
}

// allGuessedLocked reports whether every eligible guesser has scored.
func (c *Controller) allGuessedLocked() bool {
	for _, p := range c.players {
		if !p.IsDrawer() && !p.HasGuessed {
			return false
		}
	}
	return true
}

// ProcessStroke relays a stroke record from the current drawer to everyone.
func (c *Controller) ProcessStroke(player string, stroke json.RawMessage) error {
	c.mu.Lock()
	if c.state != RoundActive {
		c.mu.Unlock()
		return ErrRoundNotActive
	}
	p := c.find(player)
	if p == nil {
		c.mu.Unlock()
		return ErrNotInMatch
	}
	if !p.IsDrawer() {
		c.mu.Unlock()
		return ErrNotDrawer
	}
	ev := StrokeEvent{Round: c.round, Drawer: player, Stroke: stroke}
	c.mu.Unlock()

	c.sink.Stroke(ev)
	return nil
}

// RemovePlayer drops a player from the match roster. If the drawer leaves
// mid-round the round settles immediately; if fewer than two players remain
// the match finishes.
func (c *Controller) RemovePlayer(name string) {
	c.mu.Lock()
	if c.state == MatchFinished {
		c.mu.Unlock()
		return
	}

	idx := -1
	for i, p := range c.players {
		if p.Name == name {
			idx = i
			break
		}
	}
	if idx == -1 {
		c.mu.Unlock()
		return
	}

	wasDrawer := c.state == RoundActive && c.drawerLocked().Name == name
	round := c.round
	c.players = append(c.players[:idx], c.players[idx+1:]...)

	if len(c.players) < 2 {
		c.finishLocked()
		return
	}
	c.mu.Unlock()

	if wasDrawer {
		c.endRound(round, ReasonDrawerLeft)
	}
}

// Stop cancels the match without emitting further events. Used when the room
// is torn down.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = MatchFinished
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
