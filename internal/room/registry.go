package room

import (
	"log/slog"
	"sync"

	"github.com/pictosong/pictosong-server/internal/game"
	"github.com/pictosong/pictosong-server/internal/push"
	"github.com/pictosong/pictosong-server/internal/ws"
)

// Registry holds all live rooms keyed by code. It also owns the lobby-wide
// subscription set for clients watching the room list.
type Registry struct {
	rooms map[string]*Room
	mu    sync.RWMutex

	watchers *push.Registry
}

// NewRegistry creates an empty room registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:    make(map[string]*Room),
		watchers: push.NewRegistry(),
	}
}

// Create generates a fresh code and registers a new room for it.
func (reg *Registry) Create(creator string, cfg game.MatchConfig, ch push.Channel) (*Room, error) {
	reg.mu.Lock()

	code, err := GenerateCode(func(c string) bool {
		_, taken := reg.rooms[c]
		return taken
	})
	if err != nil {
		reg.mu.Unlock()
		return nil, err
	}

	r, err := New(code, creator, cfg, ch)
	if err != nil {
		reg.mu.Unlock()
		return nil, err
	}
	reg.rooms[code] = r
	reg.mu.Unlock()

	slog.Info("room created", "code", code, "creator", creator)
	reg.BroadcastRoomList()
	return r, nil
}

// Get returns the room for a code, or ErrRoomNotFound.
func (reg *Registry) Get(code string) (*Room, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// Remove drops the room for a code and notifies lobby watchers.
func (reg *Registry) Remove(code string) {
	reg.mu.Lock()
	_, ok := reg.rooms[code]
	delete(reg.rooms, code)
	reg.mu.Unlock()

	if ok {
		slog.Info("room removed", "code", code)
		reg.BroadcastRoomList()
	}
}

// List returns a snapshot of every live room.
func (reg *Registry) List() []Snapshot {
	reg.mu.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	reg.mu.RUnlock()

	snaps := make([]Snapshot, 0, len(rooms))
	for _, r := range rooms {
		snaps = append(snaps, r.Snapshot())
	}
	return snaps
}

// Count returns the number of live rooms.
func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// FindByPlayer returns the room containing the named player, if any.
func (reg *Registry) FindByPlayer(name string) *Room {
	reg.mu.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	reg.mu.RUnlock()

	for _, r := range rooms {
		if r.IsMember(name) {
			return r
		}
	}
	return nil
}

// Watch subscribes a lobby watcher to room-list updates and sends it the
// current list immediately.
func (reg *Registry) Watch(id string, ch push.Channel) {
	reg.watchers.Subscribe(id, ch)
	msg, _ := ws.NewMessage(ws.TypeRoomList, roomListEvent{Rooms: reg.List()})
	reg.watchers.Send(id, msg)
}

// Unwatch removes a lobby watcher.
func (reg *Registry) Unwatch(id string) {
	reg.watchers.Unsubscribe(id)
}

type roomListEvent struct {
	Rooms []Snapshot `json:"rooms"`
}

// BroadcastRoomList pushes the current room list to every lobby watcher.
// Delivery is best effort: a failing watcher is pruned, the rest still
// receive the update.
func (reg *Registry) BroadcastRoomList() {
	msg, _ := ws.NewMessage(ws.TypeRoomList, roomListEvent{Rooms: reg.List()})
	reg.watchers.Broadcast(msg)
}
