// Package hub fans full stream snapshots out to websocket subscribers.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/glaseagle/3DAuth-FireStore/internal/api/middleware"
	"github.com/glaseagle/3DAuth-FireStore/internal/metrics"
	"github.com/glaseagle/3DAuth-FireStore/internal/models"
	"github.com/glaseagle/3DAuth-FireStore/internal/notify"
	"github.com/glaseagle/3DAuth-FireStore/internal/store"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
	maxClientID    = 128
	loadTimeout    = 5 * time.Second
)

// Streams lists the streams every subscriber receives.
var Streams = []string{models.StreamMessages, models.StreamCursors}

// Source loads snapshots and removes cursors of departed clients. Deletes
// must be refused for cursors not owned by uid.
type Source interface {
	Snapshot(ctx context.Context, stream string) (*models.Snapshot, error)
	DeleteCursor(ctx context.Context, id, uid string) (bool, error)
}

type subscriber struct {
	clientID string
	uid      string // empty for unsigned feeds
	conn     *websocket.Conn
	send     chan []byte
}

// owner identifies the cursor a signed feed may clean up.
type owner struct {
	clientID, uid string
}

// Hub tracks subscribers and pushes a fresh full snapshot of a stream after
// every change to it. Change notices arriving while a snapshot is being
// loaded are coalesced.
type Hub struct {
	source Source
	bus    notify.Bus
	logger zerolog.Logger

	upgrader websocket.Upgrader

	register   chan *subscriber
	unregister chan *subscriber
	wake       chan struct{}
	done       chan struct{}

	mu      sync.Mutex
	dirty   map[string]bool
	clients map[owner]int
	count   int
}

// New creates a hub. bus may be nil, in which case only Notify triggers
// broadcasts.
func New(source Source, bus notify.Bus, logger zerolog.Logger) *Hub {
	return &Hub{
		source: source,
		bus:    bus,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		register:   make(chan *subscriber),
		unregister: make(chan *subscriber),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		dirty:      make(map[string]bool),
		clients:    make(map[owner]int),
	}
}

// Notify marks stream as changed.
func (h *Hub) Notify(stream string) {
	if stream != models.StreamMessages && stream != models.StreamCursors {
		return
	}
	h.mu.Lock()
	h.dirty[stream] = true
	h.mu.Unlock()

	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Run serves registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	if h.bus != nil {
		if err := h.bus.Subscribe(ctx, h.Notify); err != nil {
			return err
		}
	}

	subs := make(map[*subscriber]struct{})
	for {
		select {
		case <-ctx.Done():
			for sub := range subs {
				close(sub.send)
			}
			return nil

		case sub := <-h.register:
			subs[sub] = struct{}{}
			for _, stream := range Streams {
				data, ok := h.load(ctx, stream)
				if !ok {
					continue
				}
				if !h.deliver(subs, sub, data) {
					break
				}
			}

		case sub := <-h.unregister:
			if _, ok := subs[sub]; ok {
				delete(subs, sub)
				close(sub.send)
			}

		case <-h.wake:
			h.mu.Lock()
			changed := make([]string, 0, len(h.dirty))
			for _, stream := range Streams {
				if h.dirty[stream] {
					changed = append(changed, stream)
				}
			}
			h.dirty = make(map[string]bool)
			h.mu.Unlock()

			for _, stream := range changed {
				data, ok := h.load(ctx, stream)
				if !ok {
					continue
				}
				for sub := range subs {
					h.deliver(subs, sub, data)
				}
				metrics.SnapshotsBroadcast.WithLabelValues(stream).Inc()
			}
		}
	}
}

func (h *Hub) load(ctx context.Context, stream string) ([]byte, bool) {
	loadCtx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()

	snap, err := h.source.Snapshot(loadCtx, stream)
	if err != nil {
		h.logger.Error().Err(err).Str("stream", stream).Msg("failed to load snapshot")
		return nil, false
	}
	data, err := json.Marshal(snap)
	if err != nil {
		h.logger.Error().Err(err).Str("stream", stream).Msg("failed to marshal snapshot")
		return nil, false
	}
	return data, true
}

// deliver queues data for sub, dropping the subscriber when its buffer is full.
func (h *Hub) deliver(subs map[*subscriber]struct{}, sub *subscriber, data []byte) bool {
	select {
	case sub.send <- data:
		return true
	default:
		h.logger.Warn().Str("client", sub.clientID).Msg("dropping slow subscriber")
		metrics.SlowSubscribersDropped.Inc()
		delete(subs, sub)
		close(sub.send)
		return false
	}
}

// ServeWS upgrades the request and streams snapshots to it. The optional
// client query parameter names the caller's cursor record. When the feed
// was opened with a signed request, that record is deleted once the
// signer's last connection for the client goes away; unsigned feeds never
// delete anything.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client")
	if len(clientID) > maxClientID {
		http.Error(w, "client id too long", http.StatusBadRequest)
		return
	}
	var uid string
	if user := middleware.GetUserFromContext(r.Context()); user != nil {
		uid = user.ID.String()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug().Err(err).Str("client", clientID).Msg("websocket upgrade failed")
		return
	}

	sub := &subscriber{
		clientID: clientID,
		uid:      uid,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
	}

	select {
	case h.register <- sub:
	case <-h.done:
		conn.Close()
		return
	}
	h.track(sub, 1)

	go h.writePump(sub)
	h.readPump(sub)

	select {
	case h.unregister <- sub:
	case <-h.done:
	}
	if last := h.track(sub, -1); last {
		h.release(sub)
	}
}

// release deletes the cursor of a departed signed feed. A cursor held by
// another user is left alone.
func (h *Hub) release(sub *subscriber) {
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	_, err := h.source.DeleteCursor(ctx, sub.clientID, sub.uid)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrForbidden):
		h.logger.Debug().Str("client", sub.clientID).Str("uid", sub.uid).Msg("feed closed for a cursor owned by another user")
	default:
		h.logger.Warn().Err(err).Str("client", sub.clientID).Msg("failed to delete cursor on disconnect")
	}
}

// track adjusts connection counts and reports whether sub was the last
// signed connection for its client and user.
func (h *Hub) track(sub *subscriber, delta int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.count += delta
	metrics.WebsocketSubscribers.Add(float64(delta))

	if sub.clientID == "" || sub.uid == "" {
		return false
	}
	key := owner{sub.clientID, sub.uid}
	h.clients[key] += delta
	if h.clients[key] <= 0 {
		delete(h.clients, key)
		return true
	}
	return false
}

// readPump discards client frames and returns when the connection closes.
func (h *Hub) readPump(sub *subscriber) {
	defer sub.conn.Close()

	sub.conn.SetReadLimit(maxMessageSize)
	sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		sub.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug().Err(err).Str("client", sub.clientID).Msg("websocket read error")
			}
			return
		}
	}
}

func (h *Hub) writePump(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.conn.Close()
	}()

	for {
		select {
		case data, ok := <-sub.send:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				sub.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
