package websocket

// Inbound event payloads. Field names are part of the wire contract.

type StatusPayload struct {
	Status string `json:"status,omitempty"`
}

type DirectMessagePayload struct {
	ReceiverId string `json:"receiverId"`
	Text       string `json:"text"`
}

type TypingPayload struct {
	ReceiverId string `json:"receiverId"`
	ChatId     string `json:"chatId,omitempty"`
}

type MarkNotificationReadPayload struct {
	NotificationId string `json:"notificationId"`
}

type NewPostPayload struct {
	PostId string `json:"postId"`
	Title  string `json:"title"`
}

type MessageEventPayload struct {
	ReceiverId string `json:"receiverId"`
	MessageId  string `json:"messageId,omitempty"`
	ChatId     string `json:"chatId,omitempty"`
	Text       string `json:"text,omitempty"`
}

type PostLikedPayload struct {
	PostOwnerId string `json:"postOwnerId"`
	PostId      string `json:"postId"`
	PostTitle   string `json:"postTitle,omitempty"`
}

type PostCommentedPayload struct {
	PostOwnerId string `json:"postOwnerId"`
	PostId      string `json:"postId"`
	CommentText string `json:"commentText,omitempty"`
}

type CommentRepliedPayload struct {
	CommentOwnerId string `json:"commentOwnerId"`
	PostId         string `json:"postId"`
	ReplyText      string `json:"replyText,omitempty"`
}
