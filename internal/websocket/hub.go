package websocket

import (
	"context"
	"sync"
)

type controlOp int

const (
	opRegister controlOp = iota
	opUnregister
	opJoin
	opLeave
)

// controlRequest is one lifecycle or membership change. A single channel
// keeps register/join/unregister for the same connection in submission
// order; separate channels would let a join overtake its unregister.
type controlRequest struct {
	op     controlOp
	client *Client
	room   string
}

// Hub manages WebSocket client connections and room membership for one
// server process. Cross-process fan-out goes through the relay.
type Hub struct {
	mu sync.RWMutex

	// clients maps connection ID to client (for cleanup)
	clients map[string]*Client

	// rooms maps room name to set of clients inside it
	rooms map[string]map[*Client]struct{}

	control chan controlRequest
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[*Client]struct{}),
		control: make(chan controlRequest, 1024),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-h.control:
			switch req.op {
			case opRegister:
				h.addClient(req.client)
			case opUnregister:
				h.removeClient(req.client)
			case opJoin:
				h.joinRoom(req.client, req.room)
			case opLeave:
				h.leaveRoom(req.client, req.room)
			}
		}
	}
}

// Register adds a new client to the hub
func (h *Hub) Register(client *Client) {
	h.control <- controlRequest{op: opRegister, client: client}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.control <- controlRequest{op: opUnregister, client: client}
}

// Join puts a client into a room
func (h *Hub) Join(client *Client, room string) {
	h.control <- controlRequest{op: opJoin, client: client, room: room}
}

// Leave takes a client out of a room
func (h *Hub) Leave(client *Client, room string) {
	h.control <- controlRequest{op: opLeave, client: client, room: room}
}

// Emit sends a frame to every client in a room. Satisfies the relay's
// local emitter.
func (h *Hub) Emit(room string, frame []byte) {
	h.mu.RLock()
	for c := range h.rooms[room] {
		c.SendMessage(frame)
	}
	h.mu.RUnlock()
}

// EmitExcept sends a frame to every client in a room except the named
// connection. Used to sync a user's other devices.
func (h *Hub) EmitExcept(room string, exceptConnID string, frame []byte) {
	h.mu.RLock()
	for c := range h.rooms[room] {
		if c.ID != exceptConnID {
			c.SendMessage(frame)
		}
	}
	h.mu.RUnlock()
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize returns the number of clients in a room
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}

	for room := range client.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}

	delete(h.clients, client.ID)
	close(client.Send)
}

func (h *Hub) joinRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Joins for a connection that already unregistered are dropped.
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][client] = struct{}{}
	client.enterRoom(room)
}

func (h *Hub) leaveRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	client.exitRoom(room)
}
