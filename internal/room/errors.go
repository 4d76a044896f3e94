package room

import "errors"

var (
	ErrRoomNotFound       = errors.New("room: not found")
	ErrRoomFull           = errors.New("room: full")
	ErrMatchStarted       = errors.New("room: match already started")
	ErrNotAuthorized      = errors.New("room: not authorized")
	ErrCannotKickCreator  = errors.New("room: cannot kick creator")
	ErrNotInRoom          = errors.New("room: target not in room")
	ErrCodeSpaceExhausted = errors.New("room: code generation exhausted")
)
