package hub

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/DoyleJ11/cardtable-backend/internal/dixit"
	"github.com/DoyleJ11/cardtable-backend/internal/engine"
	"github.com/DoyleJ11/cardtable-backend/internal/handeval"
	"github.com/DoyleJ11/cardtable-backend/internal/lobby"
	"github.com/DoyleJ11/cardtable-backend/internal/poker"
	"github.com/DoyleJ11/cardtable-backend/internal/store"
)

var (
	ErrUnknownGame = errors.New("unknown game")
	ErrCodeTaken   = errors.New("room code taken")
	ErrClosed      = errors.New("hub closed")
)

// Factory builds a fresh session of the named game.
type Factory func(kind string) (lobby.Game, error)

type GameConfig struct {
	Poker      poker.Config
	Dixit      dixit.Config
	DixitCards []string
}

// NewFactory serves "poker" and "dixit". Every game gets its own deck.
func NewFactory(cfg GameConfig) Factory {
	return func(kind string) (lobby.Game, error) {
		switch kind {
		case "poker":
			deck := engine.NewDeck(engine.PokerTokens(), engine.NewShuffler())
			return poker.NewSession(cfg.Poker, deck, handeval.New()), nil
		case "dixit":
			deck := engine.NewDeck(cfg.DixitCards, engine.NewShuffler())
			return dixit.NewSession(cfg.Dixit, deck, engine.NewShuffler()), nil
		default:
			return nil, fmt.Errorf("%w %q", ErrUnknownGame, kind)
		}
	}
}

type HubMsg interface{ isHubMsg() }

type Created struct {
	Lobby *lobby.Lobby
	Err   error
}

type CreateRoom struct {
	Code  string
	Kind  string
	Reply chan Created
}

type GetRoom struct {
	Code  string
	Reply chan *lobby.Lobby
}

// ListRooms replies with every live room ordered by code.
type ListRooms struct {
	Reply chan []*lobby.Lobby
}

// RemoveRoom drops the room under Code. When Lobby is set, only that exact
// room is removed, so a stale request cannot close a newer room.
type RemoveRoom struct {
	Code  string
	Lobby *lobby.Lobby
}

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (ListRooms) isHubMsg()   {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

type Config struct {
	Factory  Factory
	Recorder store.Recorder
	Logger   *zap.Logger
}

type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	cfg     Config
	log     *zap.Logger
	roomLog *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, cfg Config) *Hub {
	ctx, cancel := context.WithCancel(parent)
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		cfg:     cfg,
		log:     log.Named("hub"),
		roomLog: log.Named("lobby"),
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once the hub has shut down.
func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

// request sends m and waits for its reply. It gives up with ErrClosed once
// the hub is gone, or with ctx's error.
func request[T any](ctx context.Context, h *Hub, m HubMsg, reply <-chan T) (T, error) {
	var zero T
	select {
	case h.inbox <- m:
	case <-h.ctx.Done():
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-h.ctx.Done():
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// CreateRoom opens a room of the given game under code.
func (h *Hub) CreateRoom(ctx context.Context, code, kind string) (*lobby.Lobby, error) {
	reply := make(chan Created, 1)
	created, err := request(ctx, h, CreateRoom{Code: code, Kind: kind, Reply: reply}, reply)
	if err != nil {
		return nil, err
	}
	return created.Lobby, created.Err
}

// Room looks a room up by code; nil means no such room.
func (h *Hub) Room(ctx context.Context, code string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	return request(ctx, h, GetRoom{Code: code, Reply: reply}, reply)
}

// Rooms lists every live room ordered by code.
func (h *Hub) Rooms(ctx context.Context) ([]*lobby.Lobby, error) {
	reply := make(chan []*lobby.Lobby, 1)
	return request(ctx, h, ListRooms{Reply: reply}, reply)
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				if h.lobbies[msg.Code] != nil {
					msg.Reply <- Created{Err: fmt.Errorf("%w: %s", ErrCodeTaken, msg.Code)}
					break
				}
				lb, err := h.create(msg.Code, msg.Kind)
				msg.Reply <- Created{Lobby: lb, Err: err}

			case GetRoom:
				msg.Reply <- h.lobbies[msg.Code] // May be nil

			case ListRooms:
				codes := make([]string, 0, len(h.lobbies))
				for code := range h.lobbies {
					codes = append(codes, code)
				}
				slices.Sort(codes)
				out := make([]*lobby.Lobby, len(codes))
				for i, code := range codes {
					out[i] = h.lobbies[code]
				}
				msg.Reply <- out

			case RemoveRoom:
				lb := h.lobbies[msg.Code]
				if lb == nil || (msg.Lobby != nil && msg.Lobby != lb) {
					break
				}
				delete(h.lobbies, msg.Code)
				lb.Close()
				h.log.Info("room removed", zap.String("room", msg.Code))

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) create(code, kind string) (*lobby.Lobby, error) {
	game, err := h.cfg.Factory(kind)
	if err != nil {
		return nil, err
	}
	var lb *lobby.Lobby
	lb = lobby.NewLobby(h.ctx, lobby.Config{
		Code:     code,
		Game:     game,
		Recorder: h.cfg.Recorder,
		Logger:   h.roomLog,
		OnEmpty: func(code string) {
			select {
			case h.inbox <- RemoveRoom{Code: code, Lobby: lb}:
			case <-h.ctx.Done():
			}
		},
	})
	h.lobbies[code] = lb
	h.log.Info("room created", zap.String("room", code), zap.String("game", kind))
	return lb, nil
}

func (h *Hub) shutdown() {
	for _, lb := range h.lobbies {
		lb.Close()
	}
	clear(h.lobbies)
	h.cancel()
}
