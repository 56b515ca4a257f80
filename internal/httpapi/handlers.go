package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/cardtable-backend/internal/hub"
	"github.com/DoyleJ11/cardtable-backend/pkg/types"
)

const codeAttempts = 8

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

type createRequest struct {
	Game string `json:"game"`
}

type createResponse struct {
	Code string `json:"code"`
	Game string `json:"game"`
}

func CreateRoom(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}

		for range codeAttempts {
			code, err := GenerateCode()
			if err != nil {
				http.Error(w, "failed to generate code", http.StatusInternalServerError)
				return
			}
			_, err = h.CreateRoom(r.Context(), code, req.Game)
			switch {
			case errors.Is(err, hub.ErrCodeTaken):
				log.Debug("collision on code, regenerating", zap.String("code", code))
				continue
			case errors.Is(err, hub.ErrUnknownGame):
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			case err != nil && hubGone(w, err):
				return
			case err != nil:
				log.Error("create room", zap.Error(err))
				http.Error(w, "failed to create room", http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusCreated, createResponse{Code: code, Game: req.Game})
			return
		}
		http.Error(w, "failed to allocate room code", http.StatusServiceUnavailable)
	}
}

func ListRooms(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, err := h.Rooms(r.Context())
		if err != nil {
			if !hubGone(w, err) {
				http.Error(w, "failed to list rooms", http.StatusInternalServerError)
			}
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		infos := make([]types.RoomInfo, len(rooms))
		live := make([]bool, len(rooms))
		var g errgroup.Group
		for i, lb := range rooms {
			g.Go(func() error {
				info, err := lb.Info(ctx)
				if err != nil {
					// closed while listing
					return nil
				}
				infos[i], live[i] = info, true
				return nil
			})
		}
		_ = g.Wait()

		out := make([]types.RoomInfo, 0, len(infos))
		for i, info := range infos {
			if live[i] {
				out = append(out, info)
			}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// hubGone answers 503 when the hub has shut down or the request was
// abandoned. It reports whether it wrote a response.
func hubGone(w http.ResponseWriter, err error) bool {
	if errors.Is(err, hub.ErrClosed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return true
	}
	return false
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
