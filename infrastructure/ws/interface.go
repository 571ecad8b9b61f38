package ws

import "time"

// PresenceSnapshot is the cached profile view of a connected user, broadcast
// to every subscriber whenever the registry changes.
type PresenceSnapshot struct {
	Id          string    `json:"_id"`
	UserId      string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	ProfilePic  string    `json:"profilePic"`
	Role        string    `json:"role"`
	AccountType string    `json:"accountType"`
	LastSeen    time.Time `json:"lastSeen"`
}

type IHub interface {
	Run()
	RegisterClient(client *UserClient)
	UnregisterClient(client *UserClient)
	SetOffline(userId string)
	Heartbeat(userId string) bool
	IsOnline(userId string) bool
	SendToClient(userId string, message []byte) bool
	Broadcast(message []byte)
	Snapshots() []PresenceSnapshot
	GetClientCount() int
	SetOnClientUnregister(callback func(client *UserClient) error)
	SetOnPresenceChange(callback func(snapshots []PresenceSnapshot))
}
