package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"CadenzaFM/logger"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const wsWriteTimeout = 5 * time.Second

// WebSocketPlayerHandler streams player state snapshots to a browser
// view. Every connected view renders from the same controller truth;
// slow clients miss intermediate snapshots instead of stalling
// playback.
func (h *APIHandler) WebSocketPlayerHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	states, cancel := h.ctrl.Subscribe()
	defer cancel()

	// Reader goroutine only notices the peer going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Initial snapshot so a fresh view renders immediately.
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(h.ctrl.State()); err != nil {
		return
	}

	for {
		select {
		case state, ok := <-states:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(state); err != nil {
				logger.Debug("websocket write failed", logger.ErrorField(err))
				return
			}
		case <-closed:
			return
		}
	}
}
