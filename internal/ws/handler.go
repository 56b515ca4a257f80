package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/cardtable-backend/internal/hub"
	"github.com/DoyleJ11/cardtable-backend/internal/lobby"
	"github.com/DoyleJ11/cardtable-backend/pkg/types"
)

const (
	writeTimeout = 3 * time.Second
	readTimeout  = 5 * time.Minute
	maxNameLen   = 32
)

func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	log = log.Named("ws")
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		name := displayName(r.URL.Query().Get("name"))

		lb, err := h.Room(r.Context(), code)
		if err != nil {
			http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
			return
		}
		if lb == nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			log.Debug("accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan types.ServerMessage, 16)
		clientID := uuid.NewString()
		clog := log.With(zap.String("room", code), zap.String("client", clientID))

		if !lb.Send(lobby.Join{ClientID: clientID, Name: name, Outbox: out}) {
			conn.Close(websocket.StatusGoingAway, "room closed")
			return
		}
		defer lb.Send(lobby.Leave{ClientID: clientID})

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case msg, ok := <-out:
					if !ok {
						// dropped or room closed
						conn.Close(websocket.StatusGoingAway, "room closed")
						return
					}
					if err := write(writeCtx, conn, msg); err != nil {
						clog.Debug("write failed", zap.Error(err))
						return
					}
				case <-lb.Done():
					conn.Close(websocket.StatusGoingAway, "room closed")
					return
				case <-writeCtx.Done():
					return
				}
			}
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				// Treat clean close/going-away as normal:
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					clog.Debug("read failed", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				replyError(writeCtx, conn, "bad request", "bad json")
				continue
			}

			msg, ok := toLobbyMsg(clientID, cm)
			if !ok {
				replyError(writeCtx, conn, "unknown command", "unknown type "+cm.Type)
				continue
			}
			if !lb.Send(msg) {
				return
			}
		}
	}
}

// displayName defaults empty names and caps the rest at maxNameLen runes.
func displayName(raw string) string {
	if raw == "" {
		return "guest"
	}
	if r := []rune(raw); len(r) > maxNameLen {
		return string(r[:maxNameLen])
	}
	return raw
}

func toLobbyMsg(clientID string, m types.ClientMessage) (lobby.Msg, bool) {
	switch m.Type {
	case types.ClientTakeSeat:
		if m.Seat == nil {
			return nil, false
		}
		return lobby.TakeSeat{ClientID: clientID, Seat: *m.Seat}, true
	case types.ClientLeaveSeat:
		return lobby.LeaveSeat{ClientID: clientID}, true
	case types.ClientStart:
		return lobby.Start{ClientID: clientID}, true
	case types.ClientAction:
		return lobby.FromClient{ClientID: clientID, Payload: m.Action}, true
	case types.ClientStatus:
		return lobby.GetStatus{ClientID: clientID}, true
	case types.ClientChat:
		return lobby.Chat{ClientID: clientID, Text: m.Text}, true
	default:
		return nil, false
	}
}

func write(parent context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(parent, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}

func replyError(ctx context.Context, conn *websocket.Conn, kind, message string) {
	_ = write(ctx, conn, types.ServerMessage{Type: types.ServerError, Error: &types.ErrorBody{Kind: kind, Message: message}})
}
