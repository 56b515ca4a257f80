package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/cardtable-backend/internal/dixit"
	"github.com/DoyleJ11/cardtable-backend/internal/engine"
	"github.com/DoyleJ11/cardtable-backend/internal/lobby"
	"github.com/DoyleJ11/cardtable-backend/internal/poker"
	"github.com/DoyleJ11/cardtable-backend/internal/store"
	"github.com/DoyleJ11/cardtable-backend/pkg/types"
)

func newHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewHub(ctx, Config{
		Factory: NewFactory(GameConfig{
			Poker:      poker.DefaultConfig(),
			Dixit:      dixit.DefaultConfig(),
			DixitCards: engine.GeneratedTokens(84),
		}),
		Recorder: store.NewMemory(),
		Logger:   zaptest.NewLogger(t),
	})
}

func create(t *testing.T, h *Hub, code, kind string) Created {
	t.Helper()
	reply := make(chan Created, 1)
	h.Inbox() <- CreateRoom{Code: code, Kind: kind, Reply: reply}
	return <-reply
}

func get(h *Hub, code string) *lobby.Lobby {
	reply := make(chan *lobby.Lobby, 1)
	h.Inbox() <- GetRoom{Code: code, Reply: reply}
	return <-reply
}

func TestHub_Create_Get_SamePointer(t *testing.T) {
	h := newHub(t)

	c := create(t, h, "ZED123", "poker")
	require.NoError(t, c.Err)
	lb2 := get(h, "ZED123")

	if c.Lobby == nil || lb2 == nil || c.Lobby != lb2 {
		t.Fatalf("expected same lobby pointer")
	}
	assert.Equal(t, "poker", lb2.Kind())
	assert.Nil(t, get(h, "NOPE00"))
}

func TestHub_CreateRejects(t *testing.T) {
	h := newHub(t)
	require.NoError(t, create(t, h, "ABC123", "dixit").Err)

	assert.ErrorIs(t, create(t, h, "ABC123", "poker").Err, ErrCodeTaken)
	assert.ErrorIs(t, create(t, h, "XYZ789", "chess").Err, ErrUnknownGame)
	assert.Nil(t, get(h, "XYZ789"))
}

func TestHub_ListRooms(t *testing.T) {
	h := newHub(t)
	create(t, h, "BBBBBB", "dixit")
	create(t, h, "AAAAAA", "poker")

	reply := make(chan []*lobby.Lobby, 1)
	h.Inbox() <- ListRooms{Reply: reply}
	rooms := <-reply
	require.Len(t, rooms, 2)
	assert.Equal(t, "AAAAAA", rooms[0].Code())
	assert.Equal(t, "BBBBBB", rooms[1].Code())

	info, err := rooms[1].Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.RoomInfo{Code: "BBBBBB", Kind: "dixit"}, info)
}

func TestHub_RemoveRoom(t *testing.T) {
	h := newHub(t)
	old := create(t, h, "ROOM01", "poker").Lobby

	h.Inbox() <- RemoveRoom{Code: "ROOM01"}
	assert.Nil(t, get(h, "ROOM01"))
	select {
	case <-old.Done():
	case <-time.After(time.Second):
		t.Fatal("removed room still running")
	}

	fresh := create(t, h, "ROOM01", "poker").Lobby
	h.Inbox() <- RemoveRoom{Code: "ROOM01", Lobby: old}
	assert.Same(t, fresh, get(h, "ROOM01"), "stale removal must not close the new room")
}

func TestHub_EmptyRoomIsRemoved(t *testing.T) {
	h := newHub(t)
	lb := create(t, h, "ROOM02", "dixit").Lobby

	out := make(chan types.ServerMessage, 4)
	lb.Inbox() <- lobby.Join{ClientID: "a", Name: "Ann", Outbox: out}
	<-out
	lb.Inbox() <- lobby.Leave{ClientID: "a"}

	require.Eventually(t, func() bool { return get(h, "ROOM02") == nil }, time.Second, 10*time.Millisecond)
	select {
	case <-lb.Done():
	case <-time.After(time.Second):
		t.Fatal("empty room still running")
	}
}

func TestHub_Shutdown(t *testing.T) {
	h := newHub(t)
	lb := create(t, h, "ROOM03", "poker").Lobby

	h.Inbox() <- ShutdownHub{}
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	select {
	case <-lb.Done():
	case <-time.After(time.Second):
		t.Fatal("room outlived the hub")
	}
}

func TestHub_RequestsAfterShutdown(t *testing.T) {
	h := newHub(t)
	lb, err := h.CreateRoom(context.Background(), "ABC123", "dixit")
	require.NoError(t, err)
	require.NotNil(t, lb)
	rooms, err := h.Rooms(context.Background())
	require.NoError(t, err)
	assert.Len(t, rooms, 1)

	h.Inbox() <- ShutdownHub{}
	<-h.Done()

	_, err = h.Room(context.Background(), "ABC123")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = h.Rooms(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	_, err = h.CreateRoom(context.Background(), "XYZ789", "poker")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestHub_CreateRoomReportsGameErrors(t *testing.T) {
	h := newHub(t)
	_, err := h.CreateRoom(context.Background(), "ABC123", "chess")
	assert.ErrorIs(t, err, ErrUnknownGame)

	_, err = h.CreateRoom(context.Background(), "ABC123", "poker")
	require.NoError(t, err)
	_, err = h.CreateRoom(context.Background(), "ABC123", "poker")
	assert.ErrorIs(t, err, ErrCodeTaken)

	lb, err := h.Room(context.Background(), "NOPE00")
	require.NoError(t, err)
	assert.Nil(t, lb)
}
