package repository

import (
	"context"
	"errors"

	"github.com/weiawesome/wes-io-dorm/internal/domain"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailExists          = errors.New("email already exists")
	ErrUsernameExists       = errors.New("username already exists")
	ErrUserExists           = errors.New("user already exists")
	ErrConversationNotFound = errors.New("conversation not found")
)

// UserRepository defines user persistence.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uint) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, offset, limit int) ([]*domain.User, error)
	SetActive(ctx context.Context, id uint, active bool) error
	SetRole(ctx context.Context, id uint, role string) error
}

// ConversationRepository defines conversation and participation persistence.
type ConversationRepository interface {
	// Create inserts a conversation and its participants atomically.
	Create(ctx context.Context, title string, userIDs ...uint) (*domain.Conversation, error)
	Get(ctx context.Context, id uint) (*domain.Conversation, error)
	Exists(ctx context.Context, id uint) (bool, error)
	IsParticipant(ctx context.Context, conversationID, userID uint) (bool, error)
	// FindDirect returns the conversation whose only participants are a and b.
	FindDirect(ctx context.Context, a, b uint) (*domain.Conversation, error)
	ListForUser(ctx context.Context, userID uint) ([]*domain.Conversation, error)
	Participants(ctx context.Context, conversationID uint) ([]*domain.User, error)
}

// MessageRepository defines message persistence.
type MessageRepository interface {
	Create(ctx context.Context, content string, senderID, conversationID uint) (*domain.Message, error)
	// List returns messages oldest first with sender names resolved.
	List(ctx context.Context, conversationID uint, offset, limit int) ([]*domain.MessageView, error)
}
