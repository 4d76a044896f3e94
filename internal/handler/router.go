package handler

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/pictosong/pictosong-server/internal/room"
	"github.com/pictosong/pictosong-server/internal/session"
	"github.com/pictosong/pictosong-server/internal/store"
	"github.com/pictosong/pictosong-server/internal/ws"
)

// Router dispatches incoming messages to the appropriate handler.
type Router struct {
	lobby    *LobbyHandler
	gameplay *GameplayHandler

	// playerMap tracks client ID -> player name, shared across handlers.
	playerMap map[string]string
	// tokenMap tracks client ID -> session token.
	tokenMap map[string]string
	mu       sync.RWMutex
}

// NewRouter creates a new message router.
func NewRouter(rooms *room.Registry, sessions *session.Manager, ids *session.Identities, st store.Store) *Router {
	r := &Router{
		playerMap: make(map[string]string),
		tokenMap:  make(map[string]string),
	}
	r.lobby = NewLobbyHandler(rooms, sessions, ids, st, r)
	r.gameplay = NewGameplayHandler(rooms, sessions, r)
	return r
}

// RegisterPlayer maps a client ID to a player name and session token.
func (r *Router) RegisterPlayer(clientID, player, token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.playerMap[clientID] = player
	r.tokenMap[clientID] = token
}

// UnregisterPlayer removes a client's player mapping.
func (r *Router) UnregisterPlayer(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.playerMap, clientID)
	delete(r.tokenMap, clientID)
}

// PlayerName returns the player name for a client, or "" if not registered.
func (r *Router) PlayerName(clientID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.playerMap[clientID]
}

// Token returns the session token issued to a client, or "".
func (r *Router) Token(clientID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tokenMap[clientID]
}

// HandleMessage parses and routes an incoming client message.
func (r *Router) HandleMessage(cm *ws.ClientMessage) {
	var msg ws.Message
	if err := json.Unmarshal(cm.Data, &msg); err != nil {
		slog.Warn("invalid message format", "client", cm.Client.ID(), "error", err)
		cm.Client.Deliver(ws.NewErrorMessage("invalid message format"))
		return
	}

	switch msg.Type {
	// Lobby messages
	case ws.TypeCreateRoom:
		r.lobby.HandleCreateRoom(cm.Client, msg)
	case ws.TypeJoinRoom:
		r.lobby.HandleJoinRoom(cm.Client, msg)
	case ws.TypeLeaveRoom:
		r.lobby.HandleLeaveRoom(cm.Client, msg)
	case ws.TypeKickPlayer:
		r.lobby.HandleKickPlayer(cm.Client, msg)
	case ws.TypeReportPlayer:
		r.lobby.HandleReportPlayer(cm.Client, msg)
	case ws.TypeStartMatch:
		r.lobby.HandleStartMatch(cm.Client, msg)
	case ws.TypeRoomInfo:
		r.lobby.HandleRoomInfo(cm.Client, msg)
	case ws.TypeLobbySubscribe:
		r.lobby.HandleLobbySubscribe(cm.Client, msg)
	case ws.TypeLobbyUnsubscribe:
		r.lobby.HandleLobbyUnsubscribe(cm.Client, msg)

	// Gameplay messages
	case ws.TypeChat:
		r.gameplay.HandleChat(cm.Client, msg)
	case ws.TypeStroke:
		r.gameplay.HandleStroke(cm.Client, msg)

	default:
		slog.Warn("unknown message type", "type", msg.Type, "client", cm.Client.ID())
		cm.Client.Deliver(ws.NewErrorMessage("unknown message type: " + msg.Type))
	}
}

// HandleDisconnect handles client disconnection.
func (r *Router) HandleDisconnect(client *ws.Client) {
	r.lobby.HandleDisconnect(client)
}
