package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/weiawesome/wes-io-dorm/internal/audit"
	"github.com/weiawesome/wes-io-dorm/internal/domain"
	"github.com/weiawesome/wes-io-dorm/internal/repository"
	"github.com/weiawesome/wes-io-dorm/pkg/log"
	"github.com/weiawesome/wes-io-dorm/pkg/pubsub"
)

var (
	ErrConversationNotFound = domain.E(domain.KindNotFound, "Conversation not found")
	ErrNotParticipant       = domain.E(domain.KindForbidden, "You are not a participant in this conversation")
	ErrSelfConversation     = domain.E(domain.KindInvalid, "Cannot create a conversation with yourself")
	ErrEmptyMessage         = domain.E(domain.KindInvalid, "Message content is required")
	ErrMessageTooLong       = domain.E(domain.KindInvalid, fmt.Sprintf("Message exceeds %d characters", domain.MaxMessageLength))
)

type conversationServiceImpl struct {
	users    repository.UserRepository
	convs    repository.ConversationRepository
	messages repository.MessageRepository
	chat     ChatService
	events   pubsub.Publisher
}

// NewConversationService creates the REST conversation service. Messages
// sent through it are fanned out by chat.
func NewConversationService(
	users repository.UserRepository,
	convs repository.ConversationRepository,
	messages repository.MessageRepository,
	chat ChatService,
	events pubsub.Publisher,
) ConversationService {
	return &conversationServiceImpl{users: users, convs: convs, messages: messages, chat: chat, events: events}
}

// CreateDirect returns the caller's conversation with participantID,
// creating it if needed. The bool reports whether it was created.
func (s *conversationServiceImpl) CreateDirect(ctx context.Context, user *domain.User, participantID uint) (*domain.ConversationResponse, bool, error) {
	l := log.Ctx(ctx)

	if participantID == user.ID {
		return nil, false, ErrSelfConversation
	}
	other, err := s.users.GetByID(ctx, participantID)
	if err != nil {
		if IsUserNotFound(err) {
			return nil, false, ErrUserNotFound
		}
		l.Error().Err(err).Msg("failed to load participant")
		return nil, false, domain.Persistence(err)
	}

	existing, err := s.convs.FindDirect(ctx, user.ID, other.ID)
	if err == nil {
		resp, err := s.describe(ctx, existing)
		return resp, false, err
	}
	if !errors.Is(err, repository.ErrConversationNotFound) {
		l.Error().Err(err).Msg("failed to look up direct conversation")
		return nil, false, domain.Persistence(err)
	}

	conv, err := s.convs.Create(ctx, "Chat with "+other.Username, user.ID, other.ID)
	if err != nil {
		l.Error().Err(err).Msg("failed to create conversation")
		return nil, false, domain.Persistence(err)
	}

	audit.LogTarget(ctx, audit.ActionConversationCreated, user.ID, other.ID, strconv.FormatUint(uint64(conv.ID), 10), "conversation created")
	resp, err := s.describe(ctx, conv)
	if err == nil {
		pubsub.Emit(ctx, s.events, pubsub.EventConversationCreated, strconv.FormatUint(uint64(conv.ID), 10), resp)
	}
	return resp, true, err
}

// List returns the caller's conversations, newest first.
func (s *conversationServiceImpl) List(ctx context.Context, user *domain.User) ([]domain.ConversationResponse, error) {
	convs, err := s.convs.ListForUser(ctx, user.ID)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to list conversations")
		return nil, domain.Persistence(err)
	}
	out := make([]domain.ConversationResponse, 0, len(convs))
	for _, c := range convs {
		resp, err := s.describe(ctx, c)
		if err != nil {
			return nil, err
		}
		out = append(out, *resp)
	}
	return out, nil
}

// Get returns one conversation the caller participates in.
func (s *conversationServiceImpl) Get(ctx context.Context, user *domain.User, conversationID uint) (*domain.ConversationResponse, error) {
	conv, err := s.authorize(ctx, user, conversationID)
	if err != nil {
		return nil, err
	}
	return s.describe(ctx, conv)
}

// Participants lists the members of a conversation the caller belongs to.
func (s *conversationServiceImpl) Participants(ctx context.Context, user *domain.User, conversationID uint) ([]domain.PublicUserResponse, error) {
	conv, err := s.authorize(ctx, user, conversationID)
	if err != nil {
		return nil, err
	}
	resp, err := s.describe(ctx, conv)
	if err != nil {
		return nil, err
	}
	return resp.Participants, nil
}

// Messages returns a page of history, oldest first.
func (s *conversationServiceImpl) Messages(ctx context.Context, user *domain.User, conversationID uint, offset, limit int) ([]*domain.MessageView, error) {
	if _, err := s.authorize(ctx, user, conversationID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.List(ctx, conversationID, offset, limit)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Uint(log.FieldConversationID, conversationID).Msg("failed to list messages")
		return nil, domain.Persistence(err)
	}
	return msgs, nil
}

// Send persists a message and delivers it to every live socket in the
// conversation.
func (s *conversationServiceImpl) Send(ctx context.Context, user *domain.User, conversationID uint, content string) (*domain.MessageView, error) {
	if _, err := s.authorize(ctx, user, conversationID); err != nil {
		return nil, err
	}
	content, err := normalizeContent(content)
	if err != nil {
		return nil, err
	}

	msg, err := s.messages.Create(ctx, content, user.ID, conversationID)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Uint(log.FieldConversationID, conversationID).Msg("failed to save message")
		return nil, domain.Persistence(err)
	}

	view := &domain.MessageView{Message: *msg, SenderName: user.Username}
	s.chat.Deliver(ctx, view, nil)
	return view, nil
}

func (s *conversationServiceImpl) authorize(ctx context.Context, user *domain.User, conversationID uint) (*domain.Conversation, error) {
	l := log.Ctx(ctx)

	conv, err := s.convs.Get(ctx, conversationID)
	if err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			return nil, ErrConversationNotFound
		}
		l.Error().Err(err).Uint(log.FieldConversationID, conversationID).Msg("failed to load conversation")
		return nil, domain.Persistence(err)
	}
	ok, err := s.convs.IsParticipant(ctx, conversationID, user.ID)
	if err != nil {
		l.Error().Err(err).Uint(log.FieldConversationID, conversationID).Msg("failed to check participation")
		return nil, domain.Persistence(err)
	}
	if !ok {
		return nil, ErrNotParticipant
	}
	return conv, nil
}

func (s *conversationServiceImpl) describe(ctx context.Context, conv *domain.Conversation) (*domain.ConversationResponse, error) {
	members, err := s.convs.Participants(ctx, conv.ID)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Uint(log.FieldConversationID, conv.ID).Msg("failed to load participants")
		return nil, domain.Persistence(err)
	}
	resp := &domain.ConversationResponse{
		ID:           conv.ID,
		Title:        conv.Title,
		CreatedAt:    conv.CreatedAt,
		Participants: make([]domain.PublicUserResponse, len(members)),
	}
	for i, m := range members {
		resp.Participants[i] = m.ToPublic()
	}
	return resp, nil
}

// normalizeContent trims surrounding whitespace and enforces length limits.
func normalizeContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > domain.MaxMessageLength {
		return "", ErrMessageTooLong
	}
	return content, nil
}
