package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"time"

	"github.com/pictosong/pictosong-server/internal/game"
	"github.com/pictosong/pictosong-server/internal/push"
	"github.com/pictosong/pictosong-server/internal/room"
	"github.com/pictosong/pictosong-server/internal/round"
	"github.com/pictosong/pictosong-server/internal/store"
	"github.com/pictosong/pictosong-server/internal/ws"
)

// Session binds one round controller to one room. It implements the
// controller's event sink: every controller event is turned into
// per-recipient payloads and dispatched through the match-scoped push
// registry, so a drawer sees hint data the guessers never receive.
type Session struct {
	code   string
	room   *room.Room
	ctrl   *round.Controller
	pushes *push.Registry
	store  store.Store

	// onFinished runs exactly once when the match reaches its terminal
	// state. Set by the Manager to release the session and the room.
	onFinished func()
}

// Controller exposes the bound round controller.
func (s *Session) Controller() *round.Controller {
	return s.ctrl
}

// RemovePlayer drops a player from the running match.
func (s *Session) RemovePlayer(name string) {
	s.pushes.Unsubscribe(name)
	s.ctrl.RemovePlayer(name)
}

// Stop abandons the match: the round timer is released and all match
// subscriptions are dropped.
func (s *Session) Stop() {
	s.ctrl.Stop()
	s.pushes.Clear()
}

type roundStartPayload struct {
	Round       int    `json:"round"`
	TotalRounds int    `json:"total_rounds"`
	Seconds     int    `json:"seconds"`
	Drawer      string `json:"drawer"`
	Role        string `json:"role"`
	TitleHint   string `json:"title_hint,omitempty"`
	// Drawer-only catalog hints.
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
	Genre  string `json:"genre,omitempty"`
}

// RoundStarted personalizes the round-start payload per recipient.
func (s *Session) RoundStarted(ev round.RoundStartedEvent) {
	base := roundStartPayload{
		Round:       ev.Round,
		TotalRounds: ev.TotalRounds,
		Seconds:     ev.Seconds,
		Drawer:      ev.Drawer,
	}

	for _, p := range ev.Players {
		payload := base
		payload.Role = p.Role.String()
		if p.Name == ev.Drawer {
			payload.Title = ev.Song.Title
			payload.Artist = ev.Song.Artist
			payload.Genre = ev.Song.Genre
		} else {
			payload.TitleHint = ev.Song.TitleHint()
		}
		msg, _ := ws.NewMessage(ws.TypeRoundStart, payload)
		s.pushes.Send(p.Name, msg)
	}
}

type chatPayload struct {
	Round   int    `json:"round"`
	Player  string `json:"player"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Chat relays a chat line to all participants.
func (s *Session) Chat(ev round.ChatEvent) {
	msg, _ := ws.NewMessage(ws.TypeChat, chatPayload(ev))
	s.pushes.Broadcast(msg)
}

type scorePayload struct {
	Round  int    `json:"round"`
	Player string `json:"player"`
	Points int    `json:"points"`
	Score  int    `json:"score"`
}

// Scored announces a successful guess to all participants.
func (s *Session) Scored(ev round.ScoreEvent) {
	msg, _ := ws.NewMessage(ws.TypeScore, scorePayload(ev))
	s.pushes.Broadcast(msg)
}

type strokePayload struct {
	Round  int             `json:"round"`
	Drawer string          `json:"drawer"`
	Stroke json.RawMessage `json:"stroke"`
}

// Stroke relays an opaque stroke record to all participants.
func (s *Session) Stroke(ev round.StrokeEvent) {
	msg, _ := ws.NewMessage(ws.TypeStroke, strokePayload(ev))
	s.pushes.Broadcast(msg)
}

type roundEndPayload struct {
	Round  int                `json:"round"`
	Reason string             `json:"reason"`
	Title  string             `json:"title"`
	Scores []game.PlayerState `json:"scores"`
}

// RoundEnded reveals the title and running scores to all participants.
func (s *Session) RoundEnded(ev round.RoundEndedEvent) {
	msg, _ := ws.NewMessage(ws.TypeRoundEnd, roundEndPayload(ev))
	s.pushes.Broadcast(msg)
}

type matchOverPayload struct {
	Scores  []game.PlayerState `json:"scores"`
	Winners []string           `json:"winners"`
}

// MatchFinished delivers the final ranking, then releases the session and
// persists per-player results in the background.
func (s *Session) MatchFinished(ev round.MatchFinishedEvent) {
	msg, _ := ws.NewMessage(ws.TypeMatchOver, matchOverPayload(ev))
	s.pushes.Broadcast(msg)

	if s.onFinished != nil {
		s.onFinished()
	}

	go s.persistResults(ev)
}

// persistResults writes each player's final score and win flag. Failures are
// logged and never affect the result already delivered to clients.
func (s *Session) persistResults(ev round.MatchFinishedEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, p := range ev.Scores {
		won := slices.Contains(ev.Winners, p.Name)
		if err := s.store.RecordMatchResult(ctx, p.ID, p.Score, won); err != nil {
			slog.Error("failed to persist match result", "player", p.ID, "error", err)
		}
	}
}
