package room

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pictosong/pictosong-server/internal/game"
	"github.com/pictosong/pictosong-server/internal/ws"
)

// fakeChannel records delivered messages and can be told to fail.
type fakeChannel struct {
	id   string
	fail bool

	mu   sync.Mutex
	msgs []ws.Message
}

func (f *fakeChannel) ID() string { return f.id }

func (f *fakeChannel) Deliver(msg ws.Message) error {
	if f.fail {
		return errors.New("channel fault")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeChannel) received() []ws.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ws.Message(nil), f.msgs...)
}

func (f *fakeChannel) countByType(msgType string) int {
	n := 0
	for _, m := range f.received() {
		if m.Type == msgType {
			n++
		}
	}
	return n
}

func validConfig() game.MatchConfig {
	return game.MatchConfig{Rounds: 3, SecondsPerRound: 60, Difficulty: "Normal", Language: "es"}
}

func newTestRoom(t *testing.T) (*Room, *fakeChannel) {
	t.Helper()
	creatorCh := &fakeChannel{id: "ana-ch"}
	r, err := New("ABCD", "Ana", validConfig(), creatorCh)
	require.NoError(t, err)
	return r, creatorCh
}

func TestNew_RejectsInvalidConfiguration(t *testing.T) {
	tests := []struct {
		name string
		cfg  game.MatchConfig
	}{
		{"zero rounds", game.MatchConfig{Rounds: 0, SecondsPerRound: 60, Difficulty: "Normal", Language: "es"}},
		{"zero seconds", game.MatchConfig{Rounds: 3, SecondsPerRound: 0, Difficulty: "Normal", Language: "es"}},
		{"blank difficulty", game.MatchConfig{Rounds: 3, SecondsPerRound: 60, Difficulty: "", Language: "es"}},
		{"blank language", game.MatchConfig{Rounds: 3, SecondsPerRound: 60, Difficulty: "Normal", Language: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("ABCD", "Ana", tt.cfg, &fakeChannel{id: "ch"})
			assert.ErrorIs(t, err, game.ErrInvalidConfiguration)
		})
	}
}

func TestNew_CreatorJoinNotAnnounced(t *testing.T) {
	_, creatorCh := newTestRoom(t)
	assert.Empty(t, creatorCh.received())
}

func TestJoin_AnnouncesToOthersOnly(t *testing.T) {
	r, creatorCh := newTestRoom(t)
	betoCh := &fakeChannel{id: "beto-ch"}

	snap, err := r.Join("Beto", betoCh)
	require.NoError(t, err)

	assert.Equal(t, []string{"Ana", "Beto"}, snap.Players)
	assert.Equal(t, 1, creatorCh.countByType(ws.TypePlayerJoined))
	assert.Zero(t, betoCh.countByType(ws.TypePlayerJoined))
}

func TestJoin_IdempotentForMember(t *testing.T) {
	r, creatorCh := newTestRoom(t)
	replacement := &fakeChannel{id: "ana-ch-2"}

	snap, err := r.Join("Ana", replacement)
	require.NoError(t, err)

	assert.Equal(t, []string{"Ana"}, snap.Players)
	assert.Zero(t, creatorCh.countByType(ws.TypePlayerJoined), "re-join must not announce")
	assert.Same(t, replacement, r.Pushes().Get("Ana").(*fakeChannel), "channel re-registered")
}

func TestJoin_CapacityNeverExceeded(t *testing.T) {
	r, _ := newTestRoom(t)
	names := []string{"Beto", "Cleo", "Dario"}
	for _, n := range names {
		_, err := r.Join(n, &fakeChannel{id: n})
		require.NoError(t, err)
	}
	require.Equal(t, game.RoomCapacity, r.PlayerCount())

	_, err := r.Join("Eva", &fakeChannel{id: "eva"})
	assert.ErrorIs(t, err, ErrRoomFull)
	assert.Equal(t, game.RoomCapacity, r.PlayerCount(), "roster unchanged after rejected join")
	assert.False(t, r.IsMember("Eva"))
}

func TestJoin_BlockedAfterStart(t *testing.T) {
	r, _ := newTestRoom(t)
	require.NoError(t, r.Start("Ana"))

	_, err := r.Join("Beto", &fakeChannel{id: "beto"})
	assert.ErrorIs(t, err, ErrMatchStarted)
}

func TestJoin_MemberCanRejoinAfterStart(t *testing.T) {
	r, _ := newTestRoom(t)
	_, err := r.Join("Beto", &fakeChannel{id: "beto"})
	require.NoError(t, err)
	require.NoError(t, r.Start("Ana"))

	// Reconnecting member re-registers its channel despite started flag.
	_, err = r.Join("Beto", &fakeChannel{id: "beto-2"})
	assert.NoError(t, err)
}

func TestLeave_NonCreator(t *testing.T) {
	r, creatorCh := newTestRoom(t)
	_, err := r.Join("Beto", &fakeChannel{id: "beto"})
	require.NoError(t, err)

	removed, removable := r.Leave("Beto")
	assert.True(t, removed)
	assert.False(t, removable)
	assert.Equal(t, []string{"Ana"}, r.Players())
	assert.Equal(t, 1, creatorCh.countByType(ws.TypePlayerLeft))
}

func TestLeave_CreatorCancelsRoom(t *testing.T) {
	r, _ := newTestRoom(t)
	betoCh := &fakeChannel{id: "beto"}
	cleoCh := &fakeChannel{id: "cleo"}
	_, err := r.Join("Beto", betoCh)
	require.NoError(t, err)
	_, err = r.Join("Cleo", cleoCh)
	require.NoError(t, err)

	removed, removable := r.Leave("Ana")
	assert.True(t, removed)
	assert.True(t, removable, "cancelled room must be removed from the registry")
	assert.True(t, r.Cancelled())
	assert.Empty(t, r.Players())

	assert.Equal(t, 1, betoCh.countByType(ws.TypeRoomCancelled), "cancellation delivered exactly once")
	assert.Equal(t, 1, cleoCh.countByType(ws.TypeRoomCancelled), "cancellation delivered exactly once")
	assert.Equal(t, 0, r.Pushes().Len(), "all subscriptions dropped")
}

func TestJoin_CancelledRoomRejected(t *testing.T) {
	r, _ := newTestRoom(t)
	removed, removable := r.Leave("Ana")
	require.True(t, removed)
	require.True(t, removable)

	// A caller holding a stale reference must not land in a room the
	// registry no longer tracks.
	_, err := r.Join("Beto", &fakeChannel{id: "beto-ch"})
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.Zero(t, r.PlayerCount())
}

func TestJoin_FinishedRoomRejected(t *testing.T) {
	r, _ := newTestRoom(t)
	require.NoError(t, r.Start("Ana"))
	r.Finish()

	_, err := r.Join("Beto", &fakeChannel{id: "beto-ch"})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestLeave_NonMemberIsNoop(t *testing.T) {
	r, _ := newTestRoom(t)
	removed, removable := r.Leave("Beto")
	assert.False(t, removed)
	assert.False(t, removable)
}

func TestLeave_IsIdempotent(t *testing.T) {
	r, _ := newTestRoom(t)
	_, err := r.Join("Beto", &fakeChannel{id: "beto"})
	require.NoError(t, err)

	removed, _ := r.Leave("Beto")
	require.True(t, removed)
	removed, _ = r.Leave("Beto")
	assert.False(t, removed, "double remove must be a no-op")
}

func TestKick_AuthorizationMatrix(t *testing.T) {
	r, _ := newTestRoom(t)
	_, err := r.Join("Beto", &fakeChannel{id: "beto"})
	require.NoError(t, err)

	tests := []struct {
		name      string
		requester string
		target    string
		wantErr   error
	}{
		{"non-creator requester", "Beto", "Ana", ErrNotAuthorized},
		{"target is creator", "Ana", "Ana", ErrCannotKickCreator},
		{"target not in room", "Ana", "Zoe", ErrNotInRoom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Kick(tt.requester, tt.target)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, []string{"Ana", "Beto"}, r.Players(), "failed kick must not mutate roster")
		})
	}
}

func TestKick_NotifiesTargetAndRoster(t *testing.T) {
	r, creatorCh := newTestRoom(t)
	betoCh := &fakeChannel{id: "beto"}
	_, err := r.Join("Beto", betoCh)
	require.NoError(t, err)

	require.NoError(t, r.Kick("Ana", "Beto"))

	assert.Equal(t, []string{"Ana"}, r.Players())
	assert.Equal(t, 1, betoCh.countByType(ws.TypePlayerKicked), "target gets a dedicated notification")
	assert.Equal(t, 1, creatorCh.countByType(ws.TypePlayerLeft))
	assert.Nil(t, r.Pushes().Get("Beto"))
}

func TestBan_NoAuthorizationCheck(t *testing.T) {
	r, creatorCh := newTestRoom(t)
	betoCh := &fakeChannel{id: "beto"}
	_, err := r.Join("Beto", betoCh)
	require.NoError(t, err)

	require.NoError(t, r.Ban("Beto"))

	assert.Equal(t, []string{"Ana"}, r.Players())
	assert.Equal(t, 1, betoCh.countByType(ws.TypePlayerBanned))
	assert.Equal(t, 1, creatorCh.countByType(ws.TypePlayerLeft))
}

func TestBan_AbsentTarget(t *testing.T) {
	r, _ := newTestRoom(t)
	assert.ErrorIs(t, r.Ban("Zoe"), ErrNotInRoom)
}

func TestStart_OnlyCreator(t *testing.T) {
	r, _ := newTestRoom(t)
	_, err := r.Join("Beto", &fakeChannel{id: "beto"})
	require.NoError(t, err)

	assert.ErrorIs(t, r.Start("Beto"), ErrNotAuthorized)
	assert.NoError(t, r.Start("Ana"))
	assert.ErrorIs(t, r.Start("Ana"), ErrMatchStarted)
	assert.True(t, r.Started())
}

func TestNotifications_FailingChannelDoesNotBlockOthers(t *testing.T) {
	r, creatorCh := newTestRoom(t)
	dead := &fakeChannel{id: "beto", fail: true}
	_, err := r.Join("Beto", dead)
	require.NoError(t, err)
	cleoCh := &fakeChannel{id: "cleo"}
	_, err = r.Join("Cleo", cleoCh)
	require.NoError(t, err)

	// Joining Cleo broadcast to Ana and Beto; Beto's channel failed and was
	// pruned, Ana still got the event.
	assert.Equal(t, 2, creatorCh.countByType(ws.TypePlayerJoined))
	assert.Nil(t, r.Pushes().Get("Beto"))
	assert.True(t, r.IsMember("Beto"), "push pruning alone does not evict the player")
}

func TestConcurrentJoinsRespectCapacity(t *testing.T) {
	r, _ := newTestRoom(t)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	names := []string{"P1", "P2", "P3", "P4", "P5", "P6", "P7", "P8"}
	for i, n := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = r.Join(n, &fakeChannel{id: n})
		}()
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		}
	}
	assert.Equal(t, game.RoomCapacity-1, ok, "exactly capacity-1 concurrent joins succeed")
	assert.Equal(t, game.RoomCapacity, r.PlayerCount())
}
