package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/cardtable-backend/internal/dixit"
	"github.com/DoyleJ11/cardtable-backend/internal/engine"
	"github.com/DoyleJ11/cardtable-backend/internal/hub"
	"github.com/DoyleJ11/cardtable-backend/internal/poker"
	"github.com/DoyleJ11/cardtable-backend/internal/store"
	"github.com/DoyleJ11/cardtable-backend/pkg/types"
)

func newHub(t *testing.T) *hub.Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return hub.NewHub(ctx, hub.Config{
		Factory: hub.NewFactory(hub.GameConfig{
			Poker:      poker.DefaultConfig(),
			Dixit:      dixit.DefaultConfig(),
			DixitCards: engine.GeneratedTokens(84),
		}),
		Recorder: store.NewMemory(),
		Logger:   zaptest.NewLogger(t),
	})
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(SetupRoutes(newHub(t), zaptest.NewLogger(t)))
	t.Cleanup(srv.Close)
	return srv
}

func createRoom(t *testing.T, srv *httptest.Server, body string) (*http.Response, createResponse) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/rooms", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out createResponse
	if resp.StatusCode == http.StatusCreated {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestGenerateCode(t *testing.T) {
	seen := map[string]bool{}
	for range 50 {
		code, err := GenerateCode()
		require.NoError(t, err)
		assert.Regexp(t, `^[A-Z0-9]{6}$`, code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 45)
}

func TestHealthz(t *testing.T) {
	srv := newServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateRoom(t *testing.T) {
	srv := newServer(t)

	resp, room := createRoom(t, srv, `{"game":"poker"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Len(t, room.Code, 6)
	assert.Equal(t, "poker", room.Game)

	resp, _ = createRoom(t, srv, `{"game":"chess"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = createRoom(t, srv, `{"game":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListRooms(t *testing.T) {
	srv := newServer(t)
	_, p := createRoom(t, srv, `{"game":"poker"}`)
	_, d := createRoom(t, srv, `{"game":"dixit"}`)

	resp, err := http.Get(srv.URL + "/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var rooms []types.RoomInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rooms))
	assert.ElementsMatch(t, []types.RoomInfo{
		{Code: p.Code, Kind: "poker"},
		{Code: d.Code, Kind: "dixit"},
	}, rooms)
}

func TestWS_RejectsBadRooms(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/ws?code=NOPE00")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, srv *httptest.Server, code, name string) *wsClient {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?code=" + code + "&name=" + name
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return &wsClient{t: t, conn: conn}
}

func (c *wsClient) send(msg string) {
	c.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(c.t, c.conn.Write(ctx, websocket.MessageText, []byte(msg)))
}

func (c *wsClient) recv() types.ServerMessage {
	c.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, data, err := c.conn.Read(ctx)
	require.NoError(c.t, err)
	var msg types.ServerMessage
	require.NoError(c.t, json.Unmarshal(data, &msg))
	return msg
}

func (c *wsClient) recvSnapshot() *types.Snapshot {
	c.t.Helper()
	msg := c.recv()
	require.Equal(c.t, types.ServerState, msg.Type, "got %+v", msg)
	return msg.Snapshot
}

func TestWS_PlaySession(t *testing.T) {
	srv := newServer(t)
	_, room := createRoom(t, srv, `{"game":"poker"}`)

	ann := dial(t, srv, room.Code, "Ann")
	first := ann.recvSnapshot()
	assert.Equal(t, 0, first.Version)
	assert.Equal(t, -1, first.Seat)
	assert.Len(t, first.Seats, 9)

	bob := dial(t, srv, room.Code, "Bob")
	bob.recvSnapshot()

	ann.send(`{"type":"take_seat","seat":0}`)
	ann.recvSnapshot()
	bob.recvSnapshot()
	bob.send(`{"type":"take_seat","seat":0}`)
	e := bob.recv()
	require.Equal(t, types.ServerError, e.Type)
	assert.Equal(t, "wrong user", e.Error.Kind)

	bob.send(`{"type":"take_seat","seat":4}`)
	ann.recvSnapshot()
	snap := bob.recvSnapshot()
	assert.Equal(t, 4, snap.Seat)
	assert.Equal(t, "Ann", snap.Seats[0])
	assert.Equal(t, "Bob", snap.Seats[4])

	ann.send(`{"type":"start"}`)
	snap = ann.recvSnapshot()
	assert.True(t, snap.Started)
	bob.recvSnapshot()

	game, ok := snap.Game.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, game, "expected_actions")

	ann.send(`{"type":"action","action":{"action":"nonsense"}}`)
	e = ann.recv()
	require.Equal(t, types.ServerError, e.Type)
	assert.NotEmpty(t, e.Error.Kind)

	ann.send(`not json`)
	e = ann.recv()
	assert.Equal(t, &types.ErrorBody{Kind: "bad request", Message: "bad json"}, e.Error)

	ann.send(`{"type":"dance"}`)
	assert.Equal(t, "unknown command", ann.recv().Error.Kind)

	bob.send(`{"type":"chat","text":"gl"}`)
	for _, c := range []*wsClient{ann, bob} {
		msg := c.recv()
		require.Equal(t, types.ServerChat, msg.Type)
		assert.Equal(t, &types.ChatBody{Sender: "Bob", Text: "gl"}, msg.Chat)
	}
}

func TestHandlers_AfterHubShutdown(t *testing.T) {
	h := newHub(t)
	h.Inbox() <- hub.ShutdownHub{}
	<-h.Done()
	routes := SetupRoutes(h, zaptest.NewLogger(t))

	cases := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"list", http.MethodGet, "/rooms", ""},
		{"create", http.MethodPost, "/rooms", `{"game":"poker"}`},
		{"ws", http.MethodGet, "/ws?code=ABC123&name=ann", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(tc.method, tc.target, strings.NewReader(tc.body))
			done := make(chan struct{})
			go func() {
				defer close(done)
				routes.ServeHTTP(rec, req)
			}()
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("handler blocked on a closed hub")
			}
			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		})
	}
}
