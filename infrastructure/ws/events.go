package ws

import "encoding/json"

// EventType is the closed set of event names flowing over a connection.
// Unknown names are rejected at decode time rather than silently ignored.
type EventType string

// Client -> server events.
const (
	EventUserOnline               EventType = "userOnline"
	EventUserHeartbeat            EventType = "userHeartbeat"
	EventUserOffline              EventType = "userOffline"
	EventSendDirectMessage        EventType = "sendDirectMessage"
	EventUserTyping               EventType = "userTyping"
	EventUserStoppedTyping        EventType = "userStoppedTyping"
	EventMarkNotificationRead     EventType = "markNotificationRead"
	EventMarkAllNotificationsRead EventType = "markAllNotificationsRead"
	EventNewPostCreated           EventType = "newPostCreated"
	EventNewMessage               EventType = "newMessage"
	EventFirstMessage             EventType = "firstMessage"
	EventPostLiked                EventType = "postLiked"
	EventPostCommented            EventType = "postCommented"
	EventCommentReplied           EventType = "commentReplied"
)

// Server -> client events.
const (
	EventOnlineUsers             EventType = "onlineUsers"
	EventReceiveDirectMessage    EventType = "receiveDirectMessage"
	EventReceiveMessage          EventType = "receiveMessage"
	EventNotification            EventType = "notification"
	EventMessageRead             EventType = "messageRead"
	EventChatRead                EventType = "chatRead"
	EventMessageDeleted          EventType = "messageDeleted"
	EventChatCleared             EventType = "chatCleared"
	EventNotificationRead        EventType = "notificationRead"
	EventAllNotificationsRead    EventType = "allNotificationsRead"
	EventNotificationDeleted     EventType = "notificationDeleted"
	EventAllNotificationsDeleted EventType = "allNotificationsDeleted"
	EventUnreadCleared           EventType = "unreadCleared"
)

// Envelope is the wire frame: {"event": "...", "data": {...}} in both
// directions.
type Envelope struct {
	Event EventType       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EncodeEvent marshals an outbound envelope.
func EncodeEvent(event EventType, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
