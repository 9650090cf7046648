package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"clipforge/internal/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Progress snapshots carry no secrets and the UI may be served from
	// another origin during development.
	CheckOrigin: func(*http.Request) bool { return true },
}

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// handleProgress upgrades to a websocket and pushes job snapshots until the
// job reaches a terminal state or the client disconnects. Disconnecting only
// detaches the observer; the job keeps running.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	jobID := strings.TrimSpace(r.URL.Query().Get("job"))
	if jobID == "" {
		s.writeError(w, http.StatusBadRequest, "query parameter \"job\" is required")
		return
	}

	updates, cancel, err := s.opts.Tracker.Subscribe(r.Context(), jobID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote its own response.
		return
	}
	defer conn.Close()

	// Reader goroutine: the client sends nothing meaningful, but reads must
	// be pumped to notice a disconnect and to answer control frames.
	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pings := time.NewTicker(wsPingInterval)
	defer pings.Stop()

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				// Terminal snapshot already delivered; say goodbye politely.
				deadline := time.Now().Add(wsWriteTimeout)
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(snap); err != nil {
				s.logger.Debug("progress observer write failed",
					logging.String("job_id", jobID),
					logging.Error(err))
				return
			}
		case <-pings.C:
			deadline := time.Now().Add(wsWriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-disconnected:
			return
		case <-r.Context().Done():
			return
		}
	}
}
