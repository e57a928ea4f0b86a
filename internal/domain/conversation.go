package domain

import "time"

// Conversation is a one-to-one chat thread.
type Conversation struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationModel is the GORM model for the conversations table.
type ConversationModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Title     string    `gorm:"type:varchar(255)"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (ConversationModel) TableName() string { return "conversations" }

func (m *ConversationModel) ToDomain() *Conversation {
	return &Conversation{ID: m.ID, Title: m.Title, CreatedAt: m.CreatedAt}
}

// ParticipantModel links a user to a conversation. Each pair appears once.
type ParticipantModel struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"`
	ConversationID uint      `gorm:"not null;uniqueIndex:idx_participant_pair;index"`
	UserID         uint      `gorm:"not null;uniqueIndex:idx_participant_pair;index"`
	JoinedAt       time.Time `gorm:"autoCreateTime"`
}

func (ParticipantModel) TableName() string { return "conversation_participants" }

// CreateConversationRequest opens (or reopens) a direct conversation.
type CreateConversationRequest struct {
	ParticipantID uint `json:"participant_id" binding:"required"`
}

// ConversationResponse is a conversation with its participants.
type ConversationResponse struct {
	ID           uint                 `json:"id"`
	Title        string               `json:"title"`
	CreatedAt    time.Time            `json:"created_at"`
	Participants []PublicUserResponse `json:"participants"`
}
