package lobby

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/cardtable-backend/internal/engine"
	"github.com/DoyleJ11/cardtable-backend/internal/store"
	"github.com/DoyleJ11/cardtable-backend/pkg/types"
)

// MinPlayers is the fewest seated players a room will start with.
const MinPlayers = 2

// Game is a turn-based card game session driven by one room.
// Start, Apply, Vacate and NextRound report true when a round just ended.
type Game interface {
	Kind() string
	Seats() int
	Started() bool
	Start(occupied []bool) (bool, error)
	Apply(seat int, payload json.RawMessage) (bool, error)
	NextRound() bool
	Vacate(seat int) bool
	View(viewer int) any
	WinDelay() time.Duration
	LastResult() (round int, result any)
}

type Msg interface{ isLobbyMsg() }

type Join struct {
	ClientID string
	Name     string
	Outbox   chan types.ServerMessage // where this client wants to receive messages
}

func (Join) isLobbyMsg() {}

type Leave struct{ ClientID string }

func (Leave) isLobbyMsg() {}

type TakeSeat struct {
	ClientID string
	Seat     int
}

func (TakeSeat) isLobbyMsg() {}

type LeaveSeat struct{ ClientID string }

func (LeaveSeat) isLobbyMsg() {}

type Start struct{ ClientID string }

func (Start) isLobbyMsg() {}

// FromClient carries a game command from a seated client.
type FromClient struct {
	ClientID string
	Payload  json.RawMessage
}

func (FromClient) isLobbyMsg() {}

type Chat struct {
	ClientID string
	Text     string
}

func (Chat) isLobbyMsg() {}

// GetStatus resends the current snapshot to one client.
type GetStatus struct{ ClientID string }

func (GetStatus) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

// advanceRound is posted by the post-round timer. Fires from an older
// generation are stale and dropped.
type advanceRound struct{ gen int }

func (advanceRound) isLobbyMsg() {}

// View is a race-free read of the room, for tests and the room listing.
type View struct {
	Version    int
	NumClients int
	Started    bool
	Seats      []string
	Game       any // spectator view
}

type Config struct {
	Code     string
	Game     Game
	Recorder store.Recorder
	Logger   *zap.Logger
	// OnEmpty is called from the room goroutine when the last client leaves.
	OnEmpty func(code string)
}

type client struct {
	name string
	out  chan types.ServerMessage
}

type holder struct {
	clientID string
	name     string
}

type Lobby struct {
	code    string
	inbox   chan Msg
	game    Game
	version int
	clients map[string]*client
	seats   []*holder
	rec     store.Recorder
	log     *zap.Logger
	onEmpty func(string)
	timer   *time.Timer
	gen     int
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewLobby(parent context.Context, cfg Config) *Lobby {
	ctx, cancel := context.WithCancel(parent)
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	l := &Lobby{
		code:    cfg.Code,
		inbox:   make(chan Msg, 64), // Small buffer
		game:    cfg.Game,
		clients: make(map[string]*client),
		seats:   make([]*holder, cfg.Game.Seats()),
		rec:     cfg.Recorder,
		log:     log.With(zap.String("room", cfg.Code), zap.String("game", cfg.Game.Kind())),
		onEmpty: cfg.OnEmpty,
		ctx:     ctx,
		cancel:  cancel,
	}

	go l.loop()
	return l
}

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Send delivers m unless the room has shut down.
func (l *Lobby) Send(m Msg) bool {
	select {
	case l.inbox <- m:
		return true
	case <-l.ctx.Done():
		return false
	}
}

// Close shuts the room down without going through the inbox.
func (l *Lobby) Close() { l.cancel() }

// Info reads the room's listing entry.
func (l *Lobby) Info(ctx context.Context) (types.RoomInfo, error) {
	reply := make(chan View, 1)
	select {
	case l.inbox <- GetState{Reply: reply}:
	case <-l.ctx.Done():
		return types.RoomInfo{}, fmt.Errorf("room %s is closed", l.code)
	case <-ctx.Done():
		return types.RoomInfo{}, ctx.Err()
	}
	select {
	case v := <-reply:
		return types.RoomInfo{Code: l.code, Kind: l.game.Kind(), Clients: v.NumClients, Started: v.Started}, nil
	case <-l.ctx.Done():
		return types.RoomInfo{}, fmt.Errorf("room %s is closed", l.code)
	case <-ctx.Done():
		return types.RoomInfo{}, ctx.Err()
	}
}

// Done is closed once the room shuts down.
func (l *Lobby) Done() <-chan struct{} { return l.ctx.Done() }

func (l *Lobby) Code() string { return l.code }
func (l *Lobby) Kind() string { return l.game.Kind() }

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				l.clients[msg.ClientID] = &client{name: msg.Name, out: msg.Outbox}
				l.log.Info("client joined", zap.String("client", msg.ClientID), zap.String("name", msg.Name))
				l.sendSnapshot(msg.ClientID)

			case Leave:
				l.leave(msg.ClientID)

			case TakeSeat:
				if err := l.takeSeat(msg.ClientID, msg.Seat); err != nil {
					l.reject(msg.ClientID, err)
					break
				}
				l.bump()

			case LeaveSeat:
				if l.game.Started() {
					l.reject(msg.ClientID, engine.Errorf(engine.KindWrongPhase, "seats are fixed once the game started"))
					break
				}
				if seat := l.seatOf(msg.ClientID); seat >= 0 {
					l.seats[seat] = nil
					l.bump()
				}

			case Start:
				over, err := l.start()
				if err != nil {
					l.reject(msg.ClientID, err)
					break
				}
				l.log.Info("game started", zap.Int("players", len(l.occupied())))
				l.bump()
				l.roundEnded(over)

			case FromClient:
				over, err := l.apply(msg.ClientID, msg.Payload)
				if err != nil {
					l.reject(msg.ClientID, err)
					break
				}
				l.bump()
				l.roundEnded(over)

			case Chat:
				c := l.clients[msg.ClientID]
				if c == nil {
					break
				}
				l.broadcast(func(string) types.ServerMessage {
					return types.ServerMessage{Type: types.ServerChat, Chat: &types.ChatBody{Sender: c.name, Text: msg.Text}}
				})

			case GetStatus:
				l.sendSnapshot(msg.ClientID)

			case advanceRound:
				if msg.gen != l.gen {
					break
				}
				over := l.game.NextRound()
				l.log.Debug("next round")
				l.bump()
				l.roundEnded(over)

			case GetState:
				// reflect internal state without data races (tests, room listing)
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					Started:    l.game.Started(),
					Seats:      l.seatNames(),
					Game:       l.game.View(-1),
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) shutdown() {
	if l.timer != nil {
		l.timer.Stop()
	}
	l.gen++
	for id, c := range l.clients {
		close(c.out) // Tell client no more messages
		delete(l.clients, id)
	}
	l.cancel()
	l.log.Info("room closed")
}

func (l *Lobby) leave(id string) {
	seat := l.seatOf(id)
	delete(l.clients, id)
	l.log.Info("client left", zap.String("client", id), zap.Int("seat", seat))
	if seat >= 0 {
		l.seats[seat] = nil
		over := false
		if l.game.Started() {
			over = l.game.Vacate(seat)
		}
		l.bump()
		l.roundEnded(over)
	}
	if len(l.clients) == 0 && l.onEmpty != nil {
		l.onEmpty(l.code)
	}
}

func (l *Lobby) takeSeat(id string, seat int) error {
	if _, ok := l.clients[id]; !ok {
		return engine.Errorf(engine.KindWrongUser, "client %s is not in the room", id)
	}
	if l.game.Started() {
		return engine.Errorf(engine.KindWrongPhase, "seats are fixed once the game started")
	}
	if seat < 0 || seat >= len(l.seats) {
		return engine.Errorf(engine.KindWrongUser, "seat %d does not exist", seat)
	}
	if h := l.seats[seat]; h != nil {
		if h.clientID == id {
			return nil
		}
		return engine.Errorf(engine.KindWrongUser, "seat %d is taken by %s", seat, h.name)
	}
	if old := l.seatOf(id); old >= 0 {
		l.seats[old] = nil
	}
	l.seats[seat] = &holder{clientID: id, name: l.clients[id].name}
	l.log.Debug("seat taken", zap.String("client", id), zap.Int("seat", seat))
	return nil
}

func (l *Lobby) start() (bool, error) {
	if l.game.Started() {
		return false, engine.Errorf(engine.KindFalseStart, "game already started")
	}
	if n := len(l.occupied()); n < MinPlayers {
		return false, engine.Errorf(engine.KindFalseStart, "need at least %d seated players, have %d", MinPlayers, n)
	}
	occupied := make([]bool, len(l.seats))
	for i, h := range l.seats {
		occupied[i] = h != nil
	}
	return l.game.Start(occupied)
}

func (l *Lobby) apply(id string, payload json.RawMessage) (bool, error) {
	seat := l.seatOf(id)
	if seat < 0 {
		return false, engine.Errorf(engine.KindWrongUser, "client %s has no seat", id)
	}
	if !l.game.Started() {
		return false, engine.Errorf(engine.KindWrongPhase, "game has not started")
	}
	return l.game.Apply(seat, payload)
}

// roundEnded records the finished round and arms the timer that deals the
// next one.
func (l *Lobby) roundEnded(over bool) {
	if !over {
		return
	}
	round, result := l.game.LastResult()
	l.log.Info("round over", zap.Int("round", round))
	l.record(round, result)

	l.gen++
	gen := l.gen
	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = time.AfterFunc(l.game.WinDelay(), func() {
		l.Send(advanceRound{gen: gen})
	})
}

func (l *Lobby) record(round int, result any) {
	if l.rec == nil || result == nil {
		return
	}
	rec, err := store.NewRoundRecord(l.code, l.game.Kind(), round, result)
	if err != nil {
		l.log.Warn("encode round result", zap.Error(err))
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(l.ctx), 5*time.Second)
		defer cancel()
		if err := l.rec.RecordRound(ctx, rec); err != nil {
			l.log.Warn("record round", zap.Int("round", round), zap.Error(err))
		}
	}()
}

// reject sends err to the one client whose command caused it.
func (l *Lobby) reject(id string, err error) {
	body := &types.ErrorBody{Kind: "bad request", Message: err.Error()}
	var ce *engine.CommandError
	if errors.As(err, &ce) {
		body = &types.ErrorBody{Kind: string(ce.Kind), Message: ce.Msg}
	}
	l.log.Debug("command rejected", zap.String("client", id), zap.String("kind", body.Kind), zap.String("message", body.Message))
	l.send(id, types.ServerMessage{Type: types.ServerError, Error: body})
}

// bump moves to a new version and pushes it to everyone.
func (l *Lobby) bump() {
	l.version++
	l.broadcast(l.snapshotFor)
}

func (l *Lobby) snapshotFor(id string) types.ServerMessage {
	seat := l.seatOf(id)
	return types.ServerMessage{Type: types.ServerState, Snapshot: &types.Snapshot{
		Version: l.version,
		Room:    l.code,
		Kind:    l.game.Kind(),
		Started: l.game.Started(),
		Seats:   l.seatNames(),
		Seat:    seat,
		Game:    l.game.View(seat),
	}}
}

func (l *Lobby) sendSnapshot(id string) {
	if _, ok := l.clients[id]; ok {
		l.send(id, l.snapshotFor(id))
	}
}

func (l *Lobby) send(id string, msg types.ServerMessage) {
	c := l.clients[id]
	if c == nil {
		return
	}
	select {
	case c.out <- msg:
	default:
		l.drop(id, c)
	}
}

func (l *Lobby) broadcast(build func(id string) types.ServerMessage) {
	for id, c := range l.clients {
		select {
		case c.out <- build(id):
			//ok
		default:
			l.drop(id, c)
		}
	}
}

// drop disconnects a slow client. Its seat is kept until the transport
// reports the Leave.
func (l *Lobby) drop(id string, c *client) {
	l.log.Warn("dropping slow client", zap.String("client", id))
	close(c.out)
	delete(l.clients, id)
}

func (l *Lobby) seatOf(id string) int {
	for i, h := range l.seats {
		if h != nil && h.clientID == id {
			return i
		}
	}
	return -1
}

func (l *Lobby) occupied() []int {
	var out []int
	for i, h := range l.seats {
		if h != nil {
			out = append(out, i)
		}
	}
	return out
}

func (l *Lobby) seatNames() []string {
	names := make([]string, len(l.seats))
	for i, h := range l.seats {
		if h != nil {
			names[i] = h.name
		}
	}
	return names
}
