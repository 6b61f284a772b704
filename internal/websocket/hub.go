package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/dom/outsider-party/internal/domain"
	"github.com/dom/outsider-party/internal/service"
	"github.com/rs/zerolog/log"
)

const (
	refreshBuffer   = 256
	snapshotTimeout = 5 * time.Second
)

// Snapshotter loads the authoritative state of a room.
type Snapshotter interface {
	Snapshot(ctx context.Context, code string) (*domain.RoomSnapshot, error)
}

// Hub fans room state out to websocket subscribers. It keeps no game state
// of its own: every push re-reads the store and renders a view per client.
type Hub struct {
	snapshots Snapshotter

	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	refresh    chan string
	stop       chan struct{}
	done       chan struct{} // closed when Run() exits
	stopped    bool
	mu         sync.RWMutex
}

func NewHub(snapshots Snapshotter) *Hub {
	return &Hub{
		snapshots:  snapshots,
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		refresh:    make(chan string, refreshBuffer),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	defer close(h.done)

	var workers sync.WaitGroup
	workers.Add(1)
	go func() {
		defer workers.Done()
		h.pushLoop()
	}()

	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			h.stopped = true
			for _, clients := range h.rooms {
				for client := range clients {
					client.Close()
				}
			}
			h.rooms = make(map[string]map[*Client]bool)
			h.mu.Unlock()
			workers.Wait()
			return

		case client := <-h.register:
			h.mu.Lock()
			if !h.stopped {
				clients, ok := h.rooms[client.roomCode]
				if !ok {
					clients = make(map[*Client]bool)
					h.rooms[client.roomCode] = clients
				}
				clients[client] = true
			}
			h.mu.Unlock()
			h.Refresh(client.roomCode)

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.roomCode]; ok && clients[client] {
				delete(clients, client)
				client.Close()
				if len(clients) == 0 {
					delete(h.rooms, client.roomCode)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Stop shuts the hub down and blocks until Run has returned.
func (h *Hub) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	close(h.stop)
	<-h.done
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Refresh queues a push for one room. A full queue drops the request; the
// periodic sweep catches up.
func (h *Hub) Refresh(code string) {
	select {
	case h.refresh <- code:
	default:
		log.Warn().Str("room", code).Msg("refresh queue full, dropping")
	}
}

// RefreshAll queues a push for every room with subscribers.
func (h *Hub) RefreshAll() {
	for _, code := range h.RoomCodes() {
		h.Refresh(code)
	}
}

func (h *Hub) RoomCodes() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	codes := make([]string, 0, len(h.rooms))
	for code := range h.rooms {
		codes = append(codes, code)
	}
	return codes
}

// ClientCount reports how many sockets are subscribed to a room.
func (h *Hub) ClientCount(code string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[code])
}

func (h *Hub) pushLoop() {
	for {
		select {
		case <-h.stop:
			return
		case code := <-h.refresh:
			h.push(code)
		}
	}
}

func (h *Hub) subscribers(code string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := make([]*Client, 0, len(h.rooms[code]))
	for c := range h.rooms[code] {
		clients = append(clients, c)
	}
	return clients
}

func (h *Hub) push(code string) {
	clients := h.subscribers(code)
	if len(clients) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	snap, err := h.snapshots.Snapshot(ctx, code)
	if errors.Is(err, service.ErrRoomNotFound) {
		msg, _ := NewMessage(MessageTypeRoomClosed, RoomClosedPayload{Code: code})
		data, _ := json.Marshal(msg)
		for _, c := range clients {
			c.trySend(data)
		}
		return
	}
	if err != nil {
		log.Error().Err(err).Str("room", code).Msg("snapshot for push failed")
		return
	}

	for _, c := range clients {
		c.sendState(snap)
	}
}

// PushTo sends the current state to a single client.
func (h *Hub) PushTo(ctx context.Context, c *Client) error {
	snap, err := h.snapshots.Snapshot(ctx, c.roomCode)
	if err != nil {
		return err
	}
	c.sendState(snap)
	return nil
}
