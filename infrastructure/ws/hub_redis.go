package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	routeKeyPrefix   = "presence:user:"
	eventChanPrefix  = "events:server:"
	broadcastChannel = "events:broadcast"
	routeKeyTTL      = 10 * time.Minute
)

// RedisHub extends the in-memory registry with cross-process delivery: each
// server owns its local connections and Redis carries user→server routing
// keys plus a pub/sub relay for remote sends. Presence snapshots remain
// local to each process.
type RedisHub struct {
	clients map[string]*UserClient
	mu      sync.RWMutex

	redisClient *redis.Client
	pubsub      *redis.PubSub
	serverID    string
	broadcast   chan []byte
	log         *zap.SugaredLogger

	onClientUnregister func(client *UserClient) error
	onPresenceChange   func(snapshots []PresenceSnapshot)
}

type relayMessage struct {
	FromServerID string `json:"fromServerId"`
	ToUserID     string `json:"toUserId,omitempty"`
	Payload      []byte `json:"payload"`
}

func NewRedisHub(redisAddr, serverID string, log *zap.SugaredLogger) IHub {
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})

	hub := &RedisHub{
		clients:     make(map[string]*UserClient),
		redisClient: rdb,
		serverID:    serverID,
		broadcast:   make(chan []byte, 256),
		log:         log,
	}
	hub.pubsub = rdb.Subscribe(context.Background(), eventChanPrefix+serverID, broadcastChannel)
	return hub
}

func (h *RedisHub) Run() {
	go h.subscribeRelay()

	for message := range h.broadcast {
		h.deliverAll(message)
		relay, err := json.Marshal(relayMessage{FromServerID: h.serverID, Payload: message})
		if err != nil {
			h.log.Errorw("marshal relay message failed", "error", err)
			continue
		}
		if err := h.redisClient.Publish(context.Background(), broadcastChannel, relay).Err(); err != nil {
			h.log.Errorw("publish broadcast failed", "error", err)
		}
	}
}

func (h *RedisHub) subscribeRelay() {
	for msg := range h.pubsub.Channel() {
		var relay relayMessage
		if err := json.Unmarshal([]byte(msg.Payload), &relay); err != nil {
			h.log.Errorw("unmarshal relay message failed", "error", err)
			continue
		}
		if relay.FromServerID == h.serverID {
			continue // already delivered locally
		}
		if relay.ToUserID != "" {
			h.deliverLocal(relay.ToUserID, relay.Payload)
			continue
		}
		h.deliverAll(relay.Payload)
	}
}

func (h *RedisHub) RegisterClient(client *UserClient) {
	h.mu.Lock()
	if prev, ok := h.clients[client.UserId]; ok && prev != client {
		prev.closeSend()
	}
	client.Snapshot.LastSeen = time.Now()
	h.clients[client.UserId] = client
	snapshots := h.snapshotsLocked()
	h.mu.Unlock()

	if err := h.redisClient.Set(context.Background(), routeKeyPrefix+client.UserId, h.serverID, routeKeyTTL).Err(); err != nil {
		h.log.Errorw("set route key failed", "userId", client.UserId, "error", err)
	}

	h.log.Infow("client connected", "serverId", h.serverID, "userId", client.UserId)
	h.notifyPresenceChange(snapshots)
}

func (h *RedisHub) UnregisterClient(client *UserClient) {
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

	h.redisClient.Del(context.Background(), routeKeyPrefix+client.UserId)

	h.log.Infow("client disconnected", "serverId", h.serverID, "userId", client.UserId)
	h.notifyPresenceChange(snapshots)

	if h.onClientUnregister != nil {
		if err := h.onClientUnregister(client); err != nil {
			h.log.Errorw("client unregister callback failed", "userId", client.UserId, "error", err)
		}
	}
}

// SetOffline mirrors Hub.SetOffline: the entry and routing key go away but
// the connection stays open for a later userOnline announce.
func (h *RedisHub) SetOffline(userId string) {
	h.mu.Lock()
	_, ok := h.clients[userId]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, userId)
	snapshots := h.snapshotsLocked()
	h.mu.Unlock()

	h.redisClient.Del(context.Background(), routeKeyPrefix+userId)
	h.notifyPresenceChange(snapshots)
}

func (h *RedisHub) Heartbeat(userId string) bool {
	h.mu.Lock()
	client, ok := h.clients[userId]
	if ok {
		client.Snapshot.LastSeen = time.Now()
	}
	h.mu.Unlock()

	if ok {
		h.redisClient.Expire(context.Background(), routeKeyPrefix+userId, routeKeyTTL)
	}
	return ok
}

func (h *RedisHub) IsOnline(userId string) bool {
	h.mu.RLock()
	_, ok := h.clients[userId]
	h.mu.RUnlock()
	if ok {
		return true
	}
	exists, err := h.redisClient.Exists(context.Background(), routeKeyPrefix+userId).Result()
	return err == nil && exists > 0
}

// SendToClient delivers locally when the user is on this server, otherwise
// relays through the owning server's channel.
func (h *RedisHub) SendToClient(userId string, message []byte) bool {
	if h.deliverLocal(userId, message) {
		return true
	}

	ctx := context.Background()
	serverID, err := h.redisClient.Get(ctx, routeKeyPrefix+userId).Result()
	if err != nil {
		return false
	}

	relay, err := json.Marshal(relayMessage{FromServerID: h.serverID, ToUserID: userId, Payload: message})
	if err != nil {
		h.log.Errorw("marshal relay message failed", "error", err)
		return false
	}
	if err := h.redisClient.Publish(ctx, eventChanPrefix+serverID, relay).Err(); err != nil {
		h.log.Errorw("publish relay failed", "userId", userId, "error", err)
		return false
	}
	return true
}

func (h *RedisHub) Broadcast(message []byte) {
	h.broadcast <- message
}

func (h *RedisHub) Snapshots() []PresenceSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snapshotsLocked()
}

func (h *RedisHub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *RedisHub) SetOnClientUnregister(callback func(client *UserClient) error) {
	h.onClientUnregister = callback
}

func (h *RedisHub) SetOnPresenceChange(callback func(snapshots []PresenceSnapshot)) {
	h.onPresenceChange = callback
}

func (h *RedisHub) deliverLocal(userId string, message []byte) bool {
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

func (h *RedisHub) deliverAll(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for userId, client := range h.clients {
		select {
		case client.send <- message:
		default:
			h.log.Warnw("dropping broadcast, client send buffer full", "userId", userId)
		}
	}
}

func (h *RedisHub) snapshotsLocked() []PresenceSnapshot {
	snapshots := make([]PresenceSnapshot, 0, len(h.clients))
	for _, client := range h.clients {
		snapshots = append(snapshots, client.Snapshot)
	}
	return snapshots
}

func (h *RedisHub) notifyPresenceChange(snapshots []PresenceSnapshot) {
	if h.onPresenceChange != nil {
		h.onPresenceChange(snapshots)
	}
}
