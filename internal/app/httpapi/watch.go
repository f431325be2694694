package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Storeline/cart_engine/internal/app/domain/cart"
	"github.com/Storeline/cart_engine/internal/app/pricing"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The API is same-origin by deployment; replicas connect from the
	// host they were served from.
	CheckOrigin: func(*http.Request) bool { return true },
}

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second

	// A slow consumer that falls this many snapshots behind is dropped;
	// it can reconnect and receive the current state.
	watchBuffer = 16
)

// watch upgrades the connection and streams a cart snapshot on every change.
// The current state is sent immediately so a new replica starts in sync.
func (h *handler) watch(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.log.WithError(err).Debug("websocket upgrade failed")
		return
	}

	updates := make(chan cartView, watchBuffer)
	updates <- h.currentView()

	cancel := h.app.Cart.Watch(func(c cart.Cart) {
		select {
		case updates <- viewCart(c, pricing.ComputeTotals(c)):
		default:
			// Drop rather than block the notifier; the next update
			// carries the full state anyway.
		}
	})

	done := make(chan struct{})

	// Reader goroutine: the feed is one-way, so reads only surface close
	// frames and errors.
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		conn.Close()
	}()

	for {
		select {
		case view := <-updates:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(view); err != nil {
				h.log.WithError(err).Debug("websocket write failed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
