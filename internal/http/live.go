// v0
// internal/http/live.go
package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"salesops/recovery/internal/dataset"
	"salesops/recovery/internal/session"
)

// Live message types.
const (
	LiveTypeRate   = "rate"
	LiveTypeRegion = "region"
	LiveTypeState  = "state"
	LiveTypeError  = "error"
)

const (
	liveReadLimit = 4096
	liveIdle      = 5 * time.Minute
	liveWriteWait = 10 * time.Second
)

// LiveRequest is one client interaction on the websocket.
type LiveRequest struct {
	Type     string            `json:"type"`
	Region   string            `json:"region,omitempty"`
	Category int               `json:"category"`
	Priority *dataset.Priority `json:"priority,omitempty"`
	Value    int               `json:"value"`
}

// LiveResponse carries either the recomputed view or an error. An error
// leaves the session unchanged and the connection open.
type LiveResponse struct {
	Type  string        `json:"type"`
	View  *ScenarioView `json:"view,omitempty"`
	Error string        `json:"error,omitempty"`
}

func newUpgrader(origins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || lo.Contains(origins, "*") || lo.Contains(origins, origin)
		},
	}
}

// live upgrades the connection and recomputes the session view after every
// message. One goroutine reads and writes, so updates from a single client
// are applied in order.
func (a *api) live(upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		st, err := a.sessions.Get(id)
		if err != nil {
			a.sessionError(w, err)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			a.log.Warn("live_upgrade_failed", slog.String("session", id), slog.Any("err", err))
			return
		}
		defer conn.Close()
		conn.SetReadLimit(liveReadLimit)

		log := a.log.With(slog.String("session", id))
		log.Info("live_connected")
		view := a.view(st)
		if err := a.writeLive(conn, LiveResponse{Type: LiveTypeState, View: &view}); err != nil {
			return
		}

		for {
			_ = conn.SetReadDeadline(time.Now().Add(liveIdle))
			_, payload, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warn("live_read_failed", slog.Any("err", err))
				}
				log.Info("live_disconnected")
				return
			}
			resp, fatal := a.applyLive(id, payload)
			if err := a.writeLive(conn, resp); err != nil || fatal {
				return
			}
		}
	}
}

// applyLive handles one message; fatal reports that the session is gone.
func (a *api) applyLive(id string, payload []byte) (LiveResponse, bool) {
	var req LiveRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return LiveResponse{Type: LiveTypeError, Error: "invalid message: " + err.Error()}, false
	}

	var (
		st  session.State
		err error
	)
	switch req.Type {
	case LiveTypeRate:
		slot, serr := RateUpdate{Category: req.Category, Priority: req.Priority, Value: req.Value}.slot()
		if serr != nil {
			return LiveResponse{Type: LiveTypeError, Error: serr.Error()}, false
		}
		st, err = a.sessions.SetRate(id, slot, req.Value)
	case LiveTypeRegion:
		st, err = a.sessions.SelectRegion(id, req.Region)
	default:
		return LiveResponse{Type: LiveTypeError, Error: "unknown message type " + req.Type}, false
	}
	if err != nil {
		return LiveResponse{Type: LiveTypeError, Error: err.Error()}, errors.Is(err, session.ErrSessionNotFound)
	}
	view := a.view(st)
	return LiveResponse{Type: LiveTypeState, View: &view}, false
}

func (a *api) writeLive(conn *websocket.Conn, resp LiveResponse) error {
	_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	if err := conn.WriteJSON(resp); err != nil {
		a.log.Warn("live_write_failed", slog.Any("err", err))
		return err
	}
	return nil
}
