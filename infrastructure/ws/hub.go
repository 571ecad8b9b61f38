package ws

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Hub is the process-local presence registry: one entry per connected user,
// last writer wins. Registry state is volatile; durable isOnline/lastSeen on
// the user document is reconciled separately by the liveness sweeper.
type Hub struct {
	clients            map[string]*UserClient
	broadcast          chan []byte
	mu                 sync.RWMutex
	log                *zap.SugaredLogger
	onClientUnregister func(client *UserClient) error
	onPresenceChange   func(snapshots []PresenceSnapshot)
}

func NewHub(log *zap.SugaredLogger) IHub {
	return &Hub{
		clients:   make(map[string]*UserClient),
		broadcast: make(chan []byte, 256),
		log:       log,
	}
}

func (h *Hub) Run() {
	for message := range h.broadcast {
		h.mu.RLock()
		for userId, client := range h.clients {
			select {
			case client.send <- message:
			default:
				h.log.Warnw("dropping broadcast, client send buffer full", "userId", userId)
			}
		}
		h.mu.RUnlock()
	}
}

// RegisterClient stores the connection as the single live entry for the user.
// A previous entry for the same user is closed and replaced.
func (h *Hub) RegisterClient(client *UserClient) {
	h.mu.Lock()
	if prev, ok := h.clients[client.UserId]; ok && prev != client {
		prev.closeSend()
	}
	client.Snapshot.LastSeen = time.Now()
	h.clients[client.UserId] = client
	snapshots := h.snapshotsLocked()
	h.mu.Unlock()

	h.log.Infow("client connected", "userId", client.UserId)
	h.notifyPresenceChange(snapshots)
}

// UnregisterClient removes the entry only if it still belongs to this
// connection, so a stale disconnect cannot evict a newer one.
func (h *Hub) UnregisterClient(client *UserClient) {
	h.mu.Lock()
	current, ok := h.clients[client.UserId]
	if !ok || current != client {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.UserId)
	client.closeSend()
	snapshots := h.snapshotsLocked()
	h.mu.Unlock()

	h.log.Infow("client disconnected", "userId", client.UserId)
	h.notifyPresenceChange(snapshots)

	if h.onClientUnregister != nil {
		if err := h.onClientUnregister(client); err != nil {
			h.log.Errorw("client unregister callback failed", "userId", client.UserId, "error", err)
		}
	}
}

// SetOffline removes the user's entry unconditionally (explicit userOffline).
// The connection itself stays open so the client can come back with a
// userOnline announce; teardown happens only when the connection dies.
func (h *Hub) SetOffline(userId string) {
	h.mu.Lock()
	_, ok := h.clients[userId]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, userId)
	snapshots := h.snapshotsLocked()
	h.mu.Unlock()

	h.log.Infow("client went offline", "userId", userId)
	h.notifyPresenceChange(snapshots)
}

// Heartbeat touches the entry's liveness timestamp. A heartbeat for an
// absent entry is a no-op: the client must re-announce userOnline to
// recover after being reaped.
func (h *Hub) Heartbeat(userId string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[userId]
	if !ok {
		return false
	}
	client.Snapshot.LastSeen = time.Now()
	return true
}

func (h *Hub) IsOnline(userId string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userId]
	return ok
}

func (h *Hub) SendToClient(userId string, message []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[userId]
	if !ok {
		return false
	}
	select {
	case client.send <- message:
		return true
	default:
		h.log.Warnw("failed to send to client, buffer full", "userId", userId)
		return false
	}
}

func (h *Hub) Broadcast(message []byte) {
	h.broadcast <- message
}

func (h *Hub) Snapshots() []PresenceSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snapshotsLocked()
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) SetOnClientUnregister(callback func(client *UserClient) error) {
	h.onClientUnregister = callback
}

func (h *Hub) SetOnPresenceChange(callback func(snapshots []PresenceSnapshot)) {
	h.onPresenceChange = callback
}

func (h *Hub) snapshotsLocked() []PresenceSnapshot {
	snapshots := make([]PresenceSnapshot, 0, len(h.clients))
	for _, client := range h.clients {
		snapshots = append(snapshots, client.Snapshot)
	}
	return snapshots
}

func (h *Hub) notifyPresenceChange(snapshots []PresenceSnapshot) {
	if h.onPresenceChange != nil {
		h.onPresenceChange(snapshots)
	}
}
