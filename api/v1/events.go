package v1

import (
	"context"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/fetcharr/fetcharr/internal/events"
)

const eventBuffer = 32

// Events upgrades the connection and streams download updates. The first
// frame is always an init update carrying the full snapshot; live updates
// follow until the client disconnects. A slow client that falls behind by
// more than the buffer is dropped rather than allowed to stall publishers.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		markErr(w, err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "done") }()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	init, err := h.svc.InitUpdate(ctx)
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "snapshot failed")
		return
	}

	ch := make(chan events.Update, eventBuffer)
	token := h.bus.Subscribe(func(u events.Update) {
		select {
		case ch <- u:
		default:
			cancel()
		}
	})
	defer h.bus.Unsubscribe(token)

	writeCtx, writeCancel := context.WithTimeout(ctx, 10*time.Second)
	err = wsjson.Write(writeCtx, conn, init)
	writeCancel()
	if err != nil {
		return
	}

	// Drain reads so pings and close frames are processed.
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				cancel()
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case u := <-ch:
			writeCtx, writeCancel := context.WithTimeout(ctx, 10*time.Second)
			err := wsjson.Write(writeCtx, conn, u)
			writeCancel()
			if err != nil {
				return
			}
		}
	}
}
