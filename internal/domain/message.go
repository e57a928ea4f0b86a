package domain

import "time"

// Message is a persisted chat message.
type Message struct {
	ID             uint      `json:"id"`
	Content        string    `json:"content"`
	SenderID       uint      `json:"sender_id"`
	ConversationID uint      `json:"conversation_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// MessageView is a Message with its sender's username resolved.
type MessageView struct {
	Message
	SenderName string `json:"sender_name"`
}

// MessageModel is the GORM model for the messages table.
type MessageModel struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"`
	Content        string    `gorm:"type:text;not null"`
	SenderID       uint      `gorm:"not null;index"`
	ConversationID uint      `gorm:"not null;index:idx_messages_conversation_created"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index:idx_messages_conversation_created"`
}

func (MessageModel) TableName() string { return "messages" }

func (m *MessageModel) ToDomain() *Message {
	return &Message{
		ID:             m.ID,
		Content:        m.Content,
		SenderID:       m.SenderID,
		ConversationID: m.ConversationID,
		CreatedAt:      m.CreatedAt,
	}
}

// MaxMessageLength bounds message content in runes.
const MaxMessageLength = 4000

// SendMessageRequest is the REST body for posting a message.
type SendMessageRequest struct {
	Content string `json:"content" binding:"required,max=4000"`
}

// ListMessagesQuery pages through a conversation's history.
type ListMessagesQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=200"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}
