package entity

import "time"

const MaxMessageLength = 5000

type Message struct {
	Id        string     `bson:"_id" json:"id"`
	ChatId    string     `bson:"chatId" json:"chatId"`
	SenderId  string     `bson:"senderId" json:"senderId"`
	Message   string     `bson:"message" json:"message"`
	Read      bool       `bson:"read" json:"read"`
	ReadAt    *time.Time `bson:"readAt,omitempty" json:"readAt,omitempty"`
	DeletedBy []string   `bson:"deletedBy,omitempty" json:"-"`
	SentAt    time.Time  `bson:"sentAt" json:"sentAt"`
}

// MessagePayload is the fully-populated message returned from a send and
// pushed over the receiveMessage event.
type MessagePayload struct {
	Id             string      `json:"_id"`
	ChatId         string      `json:"chatId"`
	Sender         UserSummary `json:"sender"`
	Message        string      `json:"message"`
	SentAt         time.Time   `json:"sentAt"`
	Read           bool        `json:"read"`
	IsFirstMessage bool        `json:"isFirstMessage"`
}

type MessageIndexFilter struct {
	ChatId string
	Limit  int
	Offset int
}
