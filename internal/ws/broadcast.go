package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/agent-pulse/backend/internal/registry"
	"github.com/agent-pulse/backend/internal/status"
	"github.com/gorilla/websocket"
)

type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

func newClient(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		send: make(chan []byte, 64),
		done: make(chan struct{}),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// Snapshotter provides the current state of every tracked agent for the
// periodic snapshot broadcast and for newly connected clients.
type Snapshotter interface {
	Snapshot() []registry.Snapshot
}

// Broadcaster fans normalized status events out to websocket clients. It
// is the concrete event sink: the registry pushes events in and never
// reads anything back. Events are batched under a short throttle so a
// burst of tool activity becomes one frame.
type Broadcaster struct {
	mu             sync.RWMutex
	clients        map[*client]bool
	snapshotter    Snapshotter
	throttle       time.Duration
	snapshotTicker *time.Ticker

	flushMu       sync.Mutex
	pendingEvents []status.Event
	flushTimer    *time.Timer
}

func NewBroadcaster(snapshotter Snapshotter, throttle, snapshotInterval time.Duration) *Broadcaster {
	if throttle <= 0 {
		throttle = 100 * time.Millisecond
	}
	if snapshotInterval <= 0 {
		snapshotInterval = 5 * time.Second
	}
	b := &Broadcaster{
		clients:     make(map[*client]bool),
		snapshotter: snapshotter,
		throttle:    throttle,
	}

	b.snapshotTicker = time.NewTicker(snapshotInterval)
	go b.snapshotLoop()

	return b
}

// Event implements status.Sink. Fire-and-forget: never blocks the
// producer.
func (b *Broadcaster) Event(ev status.Event) {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.pendingEvents = append(b.pendingEvents, ev)

	if b.flushTimer == nil {
		b.flushTimer = time.AfterFunc(b.throttle, b.flush)
	}
}

func (b *Broadcaster) flush() {
	b.flushMu.Lock()
	events := b.pendingEvents
	b.pendingEvents = nil
	b.flushTimer = nil
	b.flushMu.Unlock()

	if len(events) == 0 {
		return
	}

	b.broadcast(WSMessage{
		Type:    MsgEvents,
		Payload: EventsPayload{Events: events},
	})
}

func (b *Broadcaster) AddClient(conn *websocket.Conn) *client {
	c := newClient(conn)

	snapshot := WSMessage{
		Type:    MsgSnapshot,
		Payload: SnapshotPayload{Agents: b.snapshotter.Snapshot()},
	}
	data, _ := json.Marshal(snapshot)

	b.mu.Lock()
	b.clients[c] = true
	select {
	case c.send <- data:
	default:
	}
	b.mu.Unlock()

	return c
}

// RemoveClient detaches a client. The send channel is never closed;
// membership in the client map is the sole guard, so concurrent removal
// and broadcast cannot race a send against a close.
func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	b.removeLocked(c)
	b.mu.Unlock()
}

// removeLocked deletes a client and stops its write pump. Caller holds
// b.mu; the map membership check makes repeated removal a no-op.
func (b *Broadcaster) removeLocked(c *client) {
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.done)
	}
}

func (b *Broadcaster) snapshotLoop() {
	for range b.snapshotTicker.C {
		b.broadcast(WSMessage{
			Type:    MsgSnapshot,
			Payload: SnapshotPayload{Agents: b.snapshotter.Snapshot()},
		})
	}
}

func (b *Broadcaster) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("broadcast marshal error: %v", err)
		return
	}

	// Sends are non-blocking, so the whole fanout stays under the lock.
	// A client removed concurrently is simply absent from the map.
	b.mu.Lock()
	var slow []*client
	for c := range b.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		log.Printf("ws client too slow, disconnecting")
		b.removeLocked(c)
	}
	b.mu.Unlock()
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}
