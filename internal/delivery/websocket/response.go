package websocket

import "time"

// Outbound event payloads. Field names are part of the wire contract.

type DirectMessageEvent struct {
	SenderId         string    `json:"senderId"`
	SenderName       string    `json:"senderName"`
	SenderProfilePic string    `json:"senderProfilePic"`
	Text             string    `json:"text"`
	Timestamp        time.Time `json:"timestamp"`
}

type TypingEvent struct {
	SenderId string `json:"senderId"`
	ChatId   string `json:"chatId,omitempty"`
}
