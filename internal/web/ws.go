package web

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/swiftbotics/swiftbot/internal/debug"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
	// The dashboard is served from the same host; no cross-origin use.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStream pushes JPEG frames over a websocket at roughly 10 fps.
// The camera session must already be started.
func (h *Handlers) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		debug.Error(err)
		return
	}
	defer conn.Close()

	// Drain control frames so pings and the close handshake are handled.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var buf bytes.Buffer
	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		frame, err := h.dev.GetFrame()
		if err != nil {
			// Session stopped under us; tell the client and bail.
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, err.Error())
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			return
		}

		buf.Reset()
		if err := frame.EncodeJPEG(&buf, 70); err != nil {
			debug.Error(err)
			return
		}
		conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := conn.WriteMessage(websocket.BinaryMessage, buf.Bytes()); err != nil {
			return
		}
	}
}
