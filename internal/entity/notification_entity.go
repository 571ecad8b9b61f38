package entity

import "time"

type NotificationType string

const (
	NotificationLike         NotificationType = "like"
	NotificationComment      NotificationType = "comment"
	NotificationReply        NotificationType = "reply"
	NotificationNewPost      NotificationType = "new_post"
	NotificationNewMessage   NotificationType = "new_message"
	NotificationFirstMessage NotificationType = "first_message"
)

// NotificationTypes is the closed set of valid notification types.
var NotificationTypes = []NotificationType{
	NotificationLike,
	NotificationComment,
	NotificationReply,
	NotificationNewPost,
	NotificationNewMessage,
	NotificationFirstMessage,
}

func (t NotificationType) Valid() bool {
	for _, v := range NotificationTypes {
		if t == v {
			return true
		}
	}
	return false
}

// MaxNotificationContent caps the human-readable content string.
const MaxNotificationContent = 200

// NotificationRetention is how long notifications are kept before the
// store expires them.
const NotificationRetention = 30 * 24 * time.Hour

type Notification struct {
	Id        string           `bson:"_id" json:"_id"`
	Sender    string           `bson:"sender" json:"senderId"`
	Receiver  string           `bson:"receiver" json:"receiverId"`
	Type      NotificationType `bson:"type" json:"type"`
	PostId    string           `bson:"postId,omitempty" json:"postId,omitempty"`
	MessageId string           `bson:"messageId,omitempty" json:"messageId,omitempty"`
	ChatId    string           `bson:"chatId,omitempty" json:"chatId,omitempty"`
	Content   string           `bson:"content" json:"content"`
	IsRead    bool             `bson:"isRead" json:"isRead"`
	ReadAt    *time.Time       `bson:"readAt,omitempty" json:"readAt,omitempty"`
	CreatedAt time.Time        `bson:"createdAt" json:"createdAt"`
}

// NotificationRefs carries the optional references an event may attach.
type NotificationRefs struct {
	PostId    string
	MessageId string
	ChatId    string
}

// NotificationPayload is the envelope pushed over the notification event.
type NotificationPayload struct {
	Id        string           `json:"_id"`
	Type      NotificationType `json:"type"`
	Sender    UserSummary      `json:"sender"`
	Content   string           `json:"content"`
	PostId    string           `json:"postId,omitempty"`
	MessageId string           `json:"messageId,omitempty"`
	ChatId    string           `json:"chatId,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
	IsRead    bool             `json:"isRead"`
}

type NotificationListFilter struct {
	Receiver   string
	UnreadOnly bool
	Type       NotificationType
	Query      string
	Limit      int
	Offset     int
}

type NotificationStats struct {
	Total  int64            `json:"total"`
	Unread int64            `json:"unread"`
	Read   int64            `json:"read"`
	ByType map[string]int64 `json:"byType"`
}
