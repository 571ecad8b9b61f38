package entity

import (
	"strings"
	"time"
)

type Chat struct {
	Id            string     `bson:"_id" json:"id"`
	Participants  []string   `bson:"participants" json:"participants"`
	IsGroupChat   bool       `bson:"isGroupChat" json:"isGroupChat"`
	GroupName     string     `bson:"groupName,omitempty" json:"groupName,omitempty"`
	PairKey       string     `bson:"pairKey,omitempty" json:"-"`
	LastMessage   string     `bson:"lastMessage,omitempty" json:"lastMessage,omitempty"`
	LastMessageAt *time.Time `bson:"lastMessageAt,omitempty" json:"lastMessageAt,omitempty"`
	CreatedAt     time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time  `bson:"updatedAt" json:"updatedAt"`
}

func (c Chat) HasParticipant(userId string) bool {
	for _, p := range c.Participants {
		if p == userId {
			return true
		}
	}
	return false
}

// DirectPairKey canonicalizes an unordered participant pair so that at most
// one direct chat can exist per pair regardless of who messages first.
func DirectPairKey(userId1, userId2 string) string {
	if strings.Compare(userId1, userId2) > 0 {
		userId1, userId2 = userId2, userId1
	}
	return userId1 + ":" + userId2
}

type ChatOverview struct {
	ChatId            string        `json:"chatId"`
	Participants      []UserSummary `json:"participants"`
	LastMessage       string        `json:"lastMessage,omitempty"`
	LastMessageSender string        `json:"lastMessageSender,omitempty"`
	LastMessageTime   *time.Time    `json:"lastMessageTime,omitempty"`
}
