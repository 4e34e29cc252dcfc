package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"prizepool/core/events"
	"prizepool/core/types"
)

const wsWriteTimeout = 10 * time.Second

// broadcastable is implemented by every typed event payload that can be
// flattened into a wire record.
type broadcastable interface {
	Event() *types.Event
}

// Hub fans emitted events out to websocket subscribers. It satisfies
// events.Emitter so it can sit directly on the engines' emitter chain.
// Emission never blocks: a subscriber that cannot keep up is dropped.
type Hub struct {
	mu   sync.Mutex
	subs map[chan *types.Event]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan *types.Event]struct{})}
}

// Emit implements events.Emitter.
func (h *Hub) Emit(evt events.Event) {
	payload, ok := evt.(broadcastable)
	if !ok {
		return
	}
	record := payload.Event()
	if record == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- record:
		default:
			delete(h.subs, ch)
			close(ch)
		}
	}
}

func (h *Hub) subscribe() (chan *types.Event, func()) {
	ch := make(chan *types.Event, 64)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Handler upgrades the request to a websocket and streams events until the
// client disconnects.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "stream closed")
		if err := h.stream(r.Context(), conn); err != nil {
			if status := websocket.CloseStatus(err); status == -1 {
				_ = conn.Close(websocket.StatusInternalError, "stream error")
			}
		}
	}
}

func (h *Hub) stream(ctx context.Context, conn *websocket.Conn) error {
	updates, cancel := h.subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case record, ok := <-updates:
			if !ok {
				return nil
			}
			data, err := json.Marshal(record)
			if err != nil {
				return err
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, wsWriteTimeout)
			err = conn.Write(writeCtx, websocket.MessageText, data)
			cancelWrite()
			if err != nil {
				return err
			}
		}
	}
}
