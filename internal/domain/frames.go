package domain

import "time"

// Frame types sent to WebSocket clients.
const (
	FrameConnection = "connection"
	FrameMessage    = "message"
	FrameError      = "error"
	FrameUserLeft   = "user_left"
)

// Application close codes for rejected WebSocket handshakes.
const (
	CloseUnexpected         = 4000
	CloseUnauthenticated    = 4001
	CloseForbidden          = 4003
	CloseConversationAbsent = 4004
)

// InboundFrame is the only frame clients send.
type InboundFrame struct {
	Content string `json:"content"`
}

type ConnectionFrame struct {
	Type           string `json:"type"`
	Status         string `json:"status"`
	ConversationID uint   `json:"conversation_id"`
	UserID         uint   `json:"user_id"`
}

type MessageFrame struct {
	Type           string    `json:"type"`
	ID             uint      `json:"id"`
	Content        string    `json:"content"`
	SenderID       uint      `json:"sender_id"`
	SenderName     string    `json:"sender_name"`
	ConversationID uint      `json:"conversation_id"`
	CreatedAt      time.Time `json:"created_at"`
}

type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type UserLeftFrame struct {
	Type     string `json:"type"`
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
}

func NewConnectionFrame(conversationID, userID uint) ConnectionFrame {
	return ConnectionFrame{Type: FrameConnection, Status: "connected", ConversationID: conversationID, UserID: userID}
}

func NewMessageFrame(m *MessageView) MessageFrame {
	return MessageFrame{
		Type:           FrameMessage,
		ID:             m.ID,
		Content:        m.Content,
		SenderID:       m.SenderID,
		SenderName:     m.SenderName,
		ConversationID: m.ConversationID,
		CreatedAt:      m.CreatedAt,
	}
}

func NewErrorFrame(message string) ErrorFrame {
	return ErrorFrame{Type: FrameError, Message: message}
}

func NewUserLeftFrame(u *User) UserLeftFrame {
	return UserLeftFrame{Type: FrameUserLeft, UserID: u.ID, Username: u.Username}
}
