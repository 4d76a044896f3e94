package handler

import (
	"encoding/json"
	"errors"
	"unicode/utf8"

	"github.com/pictosong/pictosong-server/internal/game"
	"github.com/pictosong/pictosong-server/internal/room"
	"github.com/pictosong/pictosong-server/internal/round"
	"github.com/pictosong/pictosong-server/internal/session"
	"github.com/pictosong/pictosong-server/internal/ws"
)

// GameplayHandler handles in-match chat and stroke messages.
type GameplayHandler struct {
	rooms    *room.Registry
	sessions *session.Manager
	router   *Router
}

// NewGameplayHandler creates a new gameplay handler.
func NewGameplayHandler(rooms *room.Registry, sessions *session.Manager, router *Router) *GameplayHandler {
	return &GameplayHandler{rooms: rooms, sessions: sessions, router: router}
}

type chatRequest struct {
	Text string `json:"text"`
}

// HandleChat forwards a chat line (and possible guess) to the round
// controller. Oversized messages are rejected before reaching it.
func (h *GameplayHandler) HandleChat(client *ws.Client, msg ws.Message) {
	var req chatRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil || req.Text == "" {
		client.Deliver(ws.NewErrorMessage("text is required"))
		return
	}
	// The limit counts characters, not bytes, so accented text is not
	// penalized for its UTF-8 encoding.
	if utf8.RuneCountInString(req.Text) > game.MaxTextLen {
		client.Deliver(ws.NewErrorMessage(gameplayErrorText(game.ErrMessageTooLong)))
		return
	}

	s, player := h.findSession(client)
	if s == nil {
		client.Deliver(ws.NewErrorMessage("no active match"))
		return
	}

	if err := s.Controller().ProcessMessage(player, req.Text); err != nil {
		client.Deliver(ws.NewErrorMessage(gameplayErrorText(err)))
	}
}

type strokeRequest struct {
	Stroke json.RawMessage `json:"stroke"`
}

// HandleStroke forwards an opaque stroke record from the drawer.
func (h *GameplayHandler) HandleStroke(client *ws.Client, msg ws.Message) {
	var req strokeRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil || len(req.Stroke) == 0 {
		client.Deliver(ws.NewErrorMessage("stroke is required"))
		return
	}
	if len(req.Stroke) > game.MaxTextLen {
		client.Deliver(ws.NewErrorMessage(gameplayErrorText(game.ErrMessageTooLong)))
		return
	}

	s, player := h.findSession(client)
	if s == nil {
		client.Deliver(ws.NewErrorMessage("no active match"))
		return
	}

	if err := s.Controller().ProcessStroke(player, req.Stroke); err != nil {
		client.Deliver(ws.NewErrorMessage(gameplayErrorText(err)))
	}
}

func (h *GameplayHandler) findSession(client *ws.Client) (*session.Session, string) {
	player := h.router.PlayerName(client.ID())
	if player == "" {
		return nil, ""
	}
	r := h.rooms.FindByPlayer(player)
	if r == nil {
		return nil, ""
	}
	return h.sessions.Get(r.Code), player
}

func gameplayErrorText(err error) string {
	switch {
	case errors.Is(err, game.ErrMessageTooLong):
		return "message too long"
	case errors.Is(err, round.ErrNotDrawer):
		return "only the drawer may send strokes"
	case errors.Is(err, round.ErrRoundNotActive):
		return "no active round"
	case errors.Is(err, round.ErrNotInMatch):
		return "not part of this match"
	default:
		return "request failed"
	}
}
