package ws

import "encoding/json"

// Message represents a WebSocket message with type-based routing.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Message types - Lobby
const (
	TypeCreateRoom       = "create_room"
	TypeJoinRoom         = "join_room"
	TypeLeaveRoom        = "leave_room"
	TypeKickPlayer       = "kick_player"
	TypeReportPlayer     = "report_player"
	TypeStartMatch       = "start_match"
	TypeRoomInfo         = "room_info"
	TypeLobbySubscribe   = "lobby_subscribe"
	TypeLobbyUnsubscribe = "lobby_unsubscribe"
	TypeRoomList         = "room_list"
)

// Message types - Room events pushed to members
const (
	TypePlayerJoined  = "player_joined"
	TypePlayerLeft    = "player_left"
	TypePlayerKicked  = "player_kicked"
	TypePlayerBanned  = "player_banned"
	TypeRoomCancelled = "room_cancelled"
)

// Message types - Gameplay
const (
	TypeChat       = "chat"
	TypeStroke     = "stroke"
	TypeRoundStart = "round_start"
	TypeRoundEnd   = "round_end"
	TypeScore      = "score"
	TypeMatchOver  = "match_over"
)

// Message types - System
const (
	TypeError = "error"
)

// ErrorMessage is sent when an error occurs.
type ErrorMessage struct {
	Message string `json:"message"`
}

// NewErrorMessage creates a Message with an error payload.
func NewErrorMessage(msg string) Message {
	data, _ := json.Marshal(ErrorMessage{Message: msg})
	return Message{Type: TypeError, Data: data}
}

// NewMessage creates a Message with a typed payload.
func NewMessage(msgType string, payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: msgType, Data: data}, nil
}
