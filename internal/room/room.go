package room

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/pictosong/pictosong-server/internal/game"
	"github.com/pictosong/pictosong-server/internal/push"
	"github.com/pictosong/pictosong-server/internal/ws"
)

// Room is a joinable pre-match container identified by a short code. It owns
// its roster and its push registry. Mutations run under the room lock; the
// resulting notifications are dispatched after the lock is released so one
// slow client can never stall other operations on the room.
type Room struct {
	Code    string
	Creator string
	Config  game.MatchConfig

	players   []string // join order, creator first
	pushes    *push.Registry
	started   bool
	finished  bool
	cancelled bool

	mu sync.Mutex
}

// Snapshot is a point-in-time copy of room state, safe to hand out.
type Snapshot struct {
	Code     string           `json:"code"`
	Creator  string           `json:"creator"`
	Players  []string         `json:"players"`
	Capacity int              `json:"capacity"`
	Started  bool             `json:"started"`
	Config   game.MatchConfig `json:"config"`
}

type playerEvent struct {
	Name    string   `json:"name"`
	Players []string `json:"players"`
}

type kickedEvent struct {
	Reason string `json:"reason"`
}

// New creates a room with the creator as its first member. The creator's own
// join is not announced.
func New(code, creator string, cfg game.MatchConfig, ch push.Channel) (*Room, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Room{
		Code:    code,
		Creator: creator,
		Config:  cfg,
		players: []string{creator},
		pushes:  push.NewRegistry(),
	}
	r.pushes.Subscribe(creator, ch)
	return r, nil
}

// Join adds a player. Joining is idempotent for existing members: only the
// push channel is re-registered and no event is announced. A cancelled or
// finished room behaves as if it no longer exists, since the registry may
// already have dropped it by the time a caller holding a stale reference
// gets here.
func (r *Room) Join(name string, ch push.Channel) (Snapshot, error) {
	r.mu.Lock()

	if r.cancelled || r.finished {
		r.mu.Unlock()
		return Snapshot{}, ErrRoomNotFound
	}
	if slices.Contains(r.players, name) {
		r.pushes.Subscribe(name, ch)
		snap := r.snapshotLocked()
		r.mu.Unlock()
		return snap, nil
	}
	if r.started {
		r.mu.Unlock()
		return Snapshot{}, ErrMatchStarted
	}
	if len(r.players) >= game.RoomCapacity {
		r.mu.Unlock()
		return Snapshot{}, ErrRoomFull
	}

	r.players = append(r.players, name)
	r.pushes.Subscribe(name, ch)
	snap := r.snapshotLocked()
	r.mu.Unlock()

	msg, _ := ws.NewMessage(ws.TypePlayerJoined, playerEvent{Name: name, Players: snap.Players})
	r.pushes.Broadcast(msg, name)

	slog.Info("player joined room", "player", name, "room", r.Code)
	return snap, nil
}

// Leave removes a player. If the creator leaves, the room is cancelled: every
// remaining member is notified once and evicted. The second return value
// reports whether the room should be removed from the registry.
func (r *Room) Leave(name string) (removed, removable bool) {
	r.mu.Lock()

	if !slices.Contains(r.players, name) {
		r.mu.Unlock()
		return false, false
	}

	if name == r.Creator {
		r.cancelled = true
		r.players = nil
		r.pushes.Unsubscribe(name)
		r.mu.Unlock()

		msg, _ := ws.NewMessage(ws.TypeRoomCancelled, playerEvent{Name: name})
		r.pushes.Broadcast(msg)
		r.pushes.Clear()

		slog.Info("room cancelled by creator", "room", r.Code, "creator", name)
		return true, true
	}

	r.players = slices.DeleteFunc(r.players, func(p string) bool { return p == name })
	r.pushes.Unsubscribe(name)
	snap := r.snapshotLocked()
	empty := len(r.players) == 0
	r.mu.Unlock()

	msg, _ := ws.NewMessage(ws.TypePlayerLeft, playerEvent{Name: name, Players: snap.Players})
	r.pushes.Broadcast(msg)

	slog.Info("player left room", "player", name, "room", r.Code)
	return true, empty
}

// Kick removes target on behalf of the creator. The target gets a dedicated
// notification before its channel is dropped.
func (r *Room) Kick(requester, target string) error {
	r.mu.Lock()

	if requester != r.Creator {
		r.mu.Unlock()
		return ErrNotAuthorized
	}
	if target == r.Creator {
		r.mu.Unlock()
		return ErrCannotKickCreator
	}
	if !slices.Contains(r.players, target) {
		r.mu.Unlock()
		return ErrNotInRoom
	}

	targetCh := r.pushes.Get(target)
	r.players = slices.DeleteFunc(r.players, func(p string) bool { return p == target })
	snap := r.snapshotLocked()
	r.mu.Unlock()

	if targetCh != nil {
		msg, _ := ws.NewMessage(ws.TypePlayerKicked, kickedEvent{Reason: "kicked by room creator"})
		if err := targetCh.Deliver(msg); err != nil {
			slog.Warn("kick notification failed", "target", target, "error", err)
		}
	}
	r.pushes.Unsubscribe(target)

	msg, _ := ws.NewMessage(ws.TypePlayerLeft, playerEvent{Name: target, Players: snap.Players})
	r.pushes.Broadcast(msg)

	slog.Info("player kicked", "target", target, "by", requester, "room", r.Code)
	return nil
}

// Ban is a system-initiated removal triggered by moderation. No authorization
// check applies.
func (r *Room) Ban(target string) error {
	r.mu.Lock()

	if !slices.Contains(r.players, target) {
		r.mu.Unlock()
		return ErrNotInRoom
	}

	targetCh := r.pushes.Get(target)
	r.players = slices.DeleteFunc(r.players, func(p string) bool { return p == target })
	snap := r.snapshotLocked()
	r.mu.Unlock()

	if targetCh != nil {
		msg, _ := ws.NewMessage(ws.TypePlayerBanned, kickedEvent{Reason: "removed after player reports"})
		if err := targetCh.Deliver(msg); err != nil {
			slog.Warn("ban notification failed", "target", target, "error", err)
		}
	}
	r.pushes.Unsubscribe(target)

	msg, _ := ws.NewMessage(ws.TypePlayerLeft, playerEvent{Name: target, Players: snap.Players})
	r.pushes.Broadcast(msg)

	slog.Info("player banned", "target", target, "room", r.Code)
	return nil
}

// Start marks the room started, blocking further joins. Only the creator may
// start the match.
func (r *Room) Start(requester string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if requester != r.Creator {
		return ErrNotAuthorized
	}
	if r.started {
		return ErrMatchStarted
	}
	r.started = true
	return nil
}

// Finish marks a started room as finished.
func (r *Room) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = true
}

// Started reports whether the match has started.
func (r *Room) Started() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

// Finished reports whether the match has finished.
func (r *Room) Finished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finished
}

// Cancelled reports whether the creator abandoned the room.
func (r *Room) Cancelled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}

// IsMember reports whether name is in the roster.
func (r *Room) IsMember(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Contains(r.players, name)
}

// Players returns the roster in join order.
func (r *Room) Players() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.players)
}

// PlayerCount returns the roster size.
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// Pushes returns the room's push registry.
func (r *Room) Pushes() *push.Registry {
	return r.pushes
}

// Snapshot returns a point-in-time copy of room state.
func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() Snapshot {
	return Snapshot{
		Code:     r.Code,
		Creator:  r.Creator,
		Players:  slices.Clone(r.players),
		Capacity: game.RoomCapacity,
		Started:  r.started,
		Config:   r.Config,
	}
}
