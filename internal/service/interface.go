package service

import (
	"context"

	"github.com/weiawesome/wes-io-dorm/internal/domain"
	"github.com/weiawesome/wes-io-dorm/internal/realtime"
)

// UserService covers registration, login, profiles and account administration.
type UserService interface {
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.TokenResponse, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.TokenResponse, error)
	GetPublicProfile(ctx context.Context, username string) (*domain.PublicUserResponse, error)
	ListUsers(ctx context.Context, offset, limit int) ([]domain.UserResponse, error)
	LookupUser(ctx context.Context, identifier string) (*domain.UserResponse, error)
	SetActive(ctx context.Context, actor *domain.User, userID uint, active bool) (*domain.UserResponse, error)
	SetRole(ctx context.Context, actor *domain.User, userID uint, role string) (*domain.UserResponse, error)
}

// ConversationService covers the REST side of direct messaging.
type ConversationService interface {
	CreateDirect(ctx context.Context, user *domain.User, participantID uint) (*domain.ConversationResponse, bool, error)
	List(ctx context.Context, user *domain.User) ([]domain.ConversationResponse, error)
	Get(ctx context.Context, user *domain.User, conversationID uint) (*domain.ConversationResponse, error)
	Participants(ctx context.Context, user *domain.User, conversationID uint) ([]domain.PublicUserResponse, error)
	Messages(ctx context.Context, user *domain.User, conversationID uint, offset, limit int) ([]*domain.MessageView, error)
	Send(ctx context.Context, user *domain.User, conversationID uint, content string) (*domain.MessageView, error)
}

// Session is a client connection as the chat loop sees it.
type Session interface {
	realtime.Socket
	Start()
	Read() ([]byte, error)
	Close(code int, reason string)
}

// ChatService runs WebSocket chat sessions and fans out new messages.
type ChatService interface {
	Serve(ctx context.Context, sess Session, token string, conversationID uint)
	Deliver(ctx context.Context, msg *domain.MessageView, from realtime.Socket)
}
