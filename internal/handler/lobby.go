package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pictosong/pictosong-server/internal/game"
	"github.com/pictosong/pictosong-server/internal/room"
	"github.com/pictosong/pictosong-server/internal/session"
	"github.com/pictosong/pictosong-server/internal/store"
	"github.com/pictosong/pictosong-server/internal/ws"
)

// banThreshold is the number of distinct reporters that triggers a
// system-initiated ban.
const banThreshold = 3

// LobbyHandler handles room lifecycle messages.
type LobbyHandler struct {
	rooms    *room.Registry
	sessions *session.Manager
	ids      *session.Identities
	store    store.Store
	router   *Router

	// reports counts distinct reporters per room code and target name.
	reports   map[string]map[string]map[string]bool
	reportsMu sync.Mutex
}

// NewLobbyHandler creates a new lobby handler.
func NewLobbyHandler(rooms *room.Registry, sessions *session.Manager, ids *session.Identities, st store.Store, router *Router) *LobbyHandler {
	return &LobbyHandler{
		rooms:    rooms,
		sessions: sessions,
		ids:      ids,
		store:    st,
		router:   router,
		reports:  make(map[string]map[string]map[string]bool),
	}
}

type createRoomRequest struct {
	Name   string            `json:"name"`
	Config *game.MatchConfig `json:"config,omitempty"`
}

type roomResponse struct {
	Room  room.Snapshot `json:"room"`
	Token string        `json:"token"`
}

// HandleCreateRoom creates a room with the requester as creator.
func (h *LobbyHandler) HandleCreateRoom(client *ws.Client, msg ws.Message) {
	var req createRoomRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil || strings.TrimSpace(req.Name) == "" {
		client.Deliver(ws.NewErrorMessage("name is required"))
		return
	}

	cfg := game.DefaultConfig
	if req.Config != nil {
		cfg = *req.Config
	}

	r, err := h.rooms.Create(req.Name, cfg, client)
	if err != nil {
		client.Deliver(ws.NewErrorMessage(createErrorText(err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := h.store.SaveRoomConfiguration(ctx, r.Code, cfg); err != nil {
		slog.Warn("failed to save room configuration", "room", r.Code, "error", err)
	}
	cancel()

	token := h.ids.Issue(req.Name)
	h.router.RegisterPlayer(client.ID(), req.Name, token)

	resp, _ := ws.NewMessage(ws.TypeCreateRoom, roomResponse{Room: r.Snapshot(), Token: token})
	client.Deliver(resp)

	slog.Info("player created room", "player", req.Name, "room", r.Code)
}

func createErrorText(err error) string {
	switch {
	case errors.Is(err, game.ErrInvalidConfiguration):
		return "invalid room configuration"
	case errors.Is(err, room.ErrCodeSpaceExhausted):
		return "could not allocate a room code, try again"
	default:
		return "room creation failed"
	}
}

type joinRoomRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// HandleJoinRoom joins an existing room.
func (h *LobbyHandler) HandleJoinRoom(client *ws.Client, msg ws.Message) {
	var req joinRoomRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil ||
		strings.TrimSpace(req.Code) == "" || strings.TrimSpace(req.Name) == "" {
		client.Deliver(ws.NewErrorMessage("code and name are required"))
		return
	}

	r, err := h.rooms.Get(req.Code)
	if err != nil {
		client.Deliver(ws.NewErrorMessage("room not found"))
		return
	}

	snap, err := r.Join(req.Name, client)
	if err != nil {
		client.Deliver(ws.NewErrorMessage(joinErrorText(err)))
		return
	}

	token := h.ids.Issue(req.Name)
	h.router.RegisterPlayer(client.ID(), req.Name, token)

	resp, _ := ws.NewMessage(ws.TypeJoinRoom, roomResponse{Room: snap, Token: token})
	client.Deliver(resp)

	h.rooms.BroadcastRoomList()
}

func joinErrorText(err error) string {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return "room not found"
	case errors.Is(err, room.ErrRoomFull):
		return "room is full"
	case errors.Is(err, room.ErrMatchStarted):
		return "match already started"
	default:
		return "could not join room"
	}
}

type roomActionRequest struct {
	Code   string `json:"code"`
	Target string `json:"target,omitempty"`
}

// HandleLeaveRoom removes the requester from their room.
func (h *LobbyHandler) HandleLeaveRoom(client *ws.Client, _ ws.Message) {
	h.removePlayer(client, false)
}

// HandleKickPlayer removes a target player on behalf of the room creator.
func (h *LobbyHandler) HandleKickPlayer(client *ws.Client, msg ws.Message) {
	var req roomActionRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil || req.Target == "" {
		client.Deliver(ws.NewErrorMessage("target is required"))
		return
	}

	requester := h.router.PlayerName(client.ID())
	r := h.rooms.FindByPlayer(requester)
	if r == nil {
		client.Deliver(ws.NewErrorMessage("not in a room"))
		return
	}

	if err := r.Kick(requester, req.Target); err != nil {
		client.Deliver(ws.NewErrorMessage(kickErrorText(err)))
		return
	}

	if s := h.sessions.Get(r.Code); s != nil {
		s.RemovePlayer(req.Target)
	}
	h.rooms.BroadcastRoomList()
}

func kickErrorText(err error) string {
	switch {
	case errors.Is(err, room.ErrNotAuthorized):
		return "only the room creator can kick"
	case errors.Is(err, room.ErrCannotKickCreator):
		return "the creator cannot be kicked"
	case errors.Is(err, room.ErrNotInRoom):
		return "player is not in the room"
	default:
		return "kick failed"
	}
}

// HandleReportPlayer counts a report against a room member. Reaching the
// threshold of distinct reporters triggers a system-initiated ban.
func (h *LobbyHandler) HandleReportPlayer(client *ws.Client, msg ws.Message) {
	var req roomActionRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil || req.Target == "" {
		client.Deliver(ws.NewErrorMessage("target is required"))
		return
	}

	reporter := h.router.PlayerName(client.ID())
	r := h.rooms.FindByPlayer(reporter)
	if r == nil || !r.IsMember(req.Target) {
		client.Deliver(ws.NewErrorMessage("player is not in the room"))
		return
	}

	h.reportsMu.Lock()
	if h.reports[r.Code] == nil {
		h.reports[r.Code] = make(map[string]map[string]bool)
	}
	if h.reports[r.Code][req.Target] == nil {
		h.reports[r.Code][req.Target] = make(map[string]bool)
	}
	h.reports[r.Code][req.Target][reporter] = true
	count := len(h.reports[r.Code][req.Target])
	h.reportsMu.Unlock()

	slog.Info("player reported", "target", req.Target, "by", reporter, "room", r.Code, "count", count)
	if count < banThreshold {
		return
	}

	if err := r.Ban(req.Target); err != nil {
		return
	}
	if s := h.sessions.Get(r.Code); s != nil {
		s.RemovePlayer(req.Target)
	}
	h.ids.InvalidatePlayer(req.Target)
	h.rooms.BroadcastRoomList()
}

// HandleRoomInfo answers with a snapshot of the requester's current room.
// Reconnecting clients use it to resync roster and configuration.
func (h *LobbyHandler) HandleRoomInfo(client *ws.Client, _ ws.Message) {
	name := h.router.PlayerName(client.ID())
	r := h.rooms.FindByPlayer(name)
	if r == nil {
		client.Deliver(ws.NewErrorMessage("not in a room"))
		return
	}

	resp, _ := ws.NewMessage(ws.TypeRoomInfo, r.Snapshot())
	client.Deliver(resp)
}

// HandleStartMatch starts the match for the requester's room.
func (h *LobbyHandler) HandleStartMatch(client *ws.Client, _ ws.Message) {
	requester := h.router.PlayerName(client.ID())
	r := h.rooms.FindByPlayer(requester)
	if r == nil {
		client.Deliver(ws.NewErrorMessage("not in a room"))
		return
	}

	if err := r.Start(requester); err != nil {
		switch {
		case errors.Is(err, room.ErrNotAuthorized):
			client.Deliver(ws.NewErrorMessage("only the room creator can start the match"))
		case errors.Is(err, room.ErrMatchStarted):
			client.Deliver(ws.NewErrorMessage("match already started"))
		default:
			client.Deliver(ws.NewErrorMessage("could not start match"))
		}
		return
	}

	if _, err := h.sessions.StartMatch(r); err != nil {
		client.Deliver(ws.NewErrorMessage("could not start match"))
		return
	}
	h.rooms.BroadcastRoomList()
}

// HandleLobbySubscribe registers the client as a lobby watcher and sends it
// the current room list.
func (h *LobbyHandler) HandleLobbySubscribe(client *ws.Client, _ ws.Message) {
	h.rooms.Watch(client.ID(), client)
}

// HandleLobbyUnsubscribe removes the client from the lobby watcher set.
func (h *LobbyHandler) HandleLobbyUnsubscribe(client *ws.Client, _ ws.Message) {
	h.rooms.Unwatch(client.ID())
}

// HandleDisconnect handles client disconnection. A transport fault
// additionally invalidates the player's session tokens; a graceful close
// only removes the player from their room.
func (h *LobbyHandler) HandleDisconnect(client *ws.Client) {
	h.rooms.Unwatch(client.ID())
	h.removePlayer(client, client.Faulted.Load())
}

func (h *LobbyHandler) removePlayer(client *ws.Client, faulted bool) {
	name := h.router.PlayerName(client.ID())
	if name == "" {
		return
	}

	if r := h.rooms.FindByPlayer(name); r != nil {
		if s := h.sessions.Get(r.Code); s != nil {
			s.RemovePlayer(name)
		}

		_, removable := r.Leave(name)
		if removable {
			h.sessions.Abandon(r.Code)
			h.clearReports(r.Code)
			h.rooms.Remove(r.Code)
		} else {
			h.rooms.BroadcastRoomList()
		}
	}

	if faulted {
		h.ids.InvalidatePlayer(name)
	}
	h.router.UnregisterPlayer(client.ID())
	slog.Info("player removed", "player", name, "faulted", faulted)
}

func (h *LobbyHandler) clearReports(code string) {
	h.reportsMu.Lock()
	defer h.reportsMu.Unlock()
	delete(h.reports, code)
}
