package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/weiawesome/wes-io-dorm/internal/audit"
	"github.com/weiawesome/wes-io-dorm/internal/auth"
	"github.com/weiawesome/wes-io-dorm/internal/domain"
	"github.com/weiawesome/wes-io-dorm/internal/realtime"
	"github.com/weiawesome/wes-io-dorm/internal/repository"
	"github.com/weiawesome/wes-io-dorm/pkg/log"
	"github.com/weiawesome/wes-io-dorm/pkg/pubsub"
)

// Handshake rejection reasons.
const (
	ReasonMissingToken    = "Missing authentication token"
	ReasonInvalidToken    = "Invalid authentication token"
	ReasonAccountDisabled = "Account disabled"
	ReasonNotFound        = "Conversation not found"
	ReasonNotAuthorized   = "Not authorized"
	ReasonUnexpected      = "Authentication error"
)

// Error frame messages.
const (
	FrameInvalidFormat = "Invalid message format"
	FrameSaveFailed    = "Failed to save message"
)

// HandshakeError is a rejected WebSocket handshake: the socket is closed
// with Code and Reason before any frame is read.
type HandshakeError struct {
	Code   int
	Reason string
	Err    error
}

func (e *HandshakeError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *HandshakeError) Unwrap() error { return e.Err }

type chatServiceImpl struct {
	resolver   *auth.Resolver
	convs      repository.ConversationRepository
	messages   repository.MessageRepository
	registry   *realtime.Registry
	events     pubsub.Publisher
	echoSender bool
}

// NewChatService creates the WebSocket chat service.
func NewChatService(
	resolver *auth.Resolver,
	convs repository.ConversationRepository,
	messages repository.MessageRepository,
	registry *realtime.Registry,
	events pubsub.Publisher,
	echoSender bool,
) ChatService {
	return &chatServiceImpl{
		resolver:   resolver,
		convs:      convs,
		messages:   messages,
		registry:   registry,
		events:     events,
		echoSender: echoSender,
	}
}

// Admit runs the handshake checks: token present, token valid, account
// active, conversation exists, caller participates.
func (s *chatServiceImpl) Admit(ctx context.Context, token string, conversationID uint) (*domain.User, error) {
	if token == "" {
		return nil, &HandshakeError{Code: domain.CloseUnauthenticated, Reason: ReasonMissingToken}
	}

	user, err := s.resolver.Authenticate(ctx, token, auth.ActiveUser...)
	if err != nil {
		switch domain.KindOf(err) {
		case domain.KindInvalidCredentials:
			return nil, &HandshakeError{Code: domain.CloseUnauthenticated, Reason: ReasonInvalidToken, Err: err}
		case domain.KindAccountDisabled:
			return nil, &HandshakeError{Code: domain.CloseForbidden, Reason: ReasonAccountDisabled, Err: err}
		default:
			return nil, &HandshakeError{Code: domain.CloseUnexpected, Reason: ReasonUnexpected, Err: err}
		}
	}

	exists, err := s.convs.Exists(ctx, conversationID)
	if err != nil {
		return nil, &HandshakeError{Code: domain.CloseUnexpected, Reason: ReasonUnexpected, Err: err}
	}
	if !exists {
		return nil, &HandshakeError{Code: domain.CloseConversationAbsent, Reason: ReasonNotFound}
	}

	ok, err := s.convs.IsParticipant(ctx, conversationID, user.ID)
	if err != nil {
		return nil, &HandshakeError{Code: domain.CloseUnexpected, Reason: ReasonUnexpected, Err: err}
	}
	if !ok {
		return nil, &HandshakeError{Code: domain.CloseForbidden, Reason: ReasonNotAuthorized}
	}
	return user, nil
}

// Serve owns sess until it disconnects. Frames are handled one at a time in
// arrival order.
func (s *chatServiceImpl) Serve(ctx context.Context, sess Session, token string, conversationID uint) {
	ctx = log.With(ctx, log.FieldConversationID, strconv.FormatUint(uint64(conversationID), 10))
	l := log.Ctx(ctx)

	user, err := s.Admit(ctx, token, conversationID)
	if err != nil {
		var he *HandshakeError
		if !errors.As(err, &he) {
			he = &HandshakeError{Code: domain.CloseUnexpected, Reason: ReasonUnexpected, Err: err}
		}
		l.Warn().Err(err).Int(log.FieldCloseCode, he.Code).Msg("websocket handshake rejected")
		audit.LogWithDetail(ctx, audit.ActionChatRejected, 0, he.Reason, "chat handshake rejected")
		sess.Close(he.Code, he.Reason)
		return
	}

	ctx = log.With(ctx, log.FieldUsername, user.Username)
	l = log.Ctx(ctx)

	sess.Start()
	s.registry.Connect(sess, conversationID, user.ID)
	if err := s.registry.SendTo(sess, domain.NewConnectionFrame(conversationID, user.ID)); err != nil {
		l.Warn().Err(err).Msg("failed to send connection frame")
	}
	audit.Log(ctx, audit.ActionChatJoin, user.ID, "joined conversation")

	for {
		data, err := sess.Read()
		if err != nil {
			s.registry.Disconnect(sess, conversationID)
			if realtime.IsClientClose(err) {
				s.announceLeave(ctx, conversationID, user)
				sess.Close(websocket.CloseNormalClosure, "")
			} else {
				l.Warn().Err(err).Msg("websocket session ended unexpectedly")
				sess.Close(websocket.CloseInternalServerErr, "")
			}
			audit.Log(ctx, audit.ActionChatLeave, user.ID, "left conversation")
			return
		}
		s.handleFrame(ctx, sess, user, conversationID, data)
	}
}

func (s *chatServiceImpl) handleFrame(ctx context.Context, sess Session, user *domain.User, conversationID uint, data []byte) {
	l := log.Ctx(ctx)

	var in domain.InboundFrame
	if err := json.Unmarshal(data, &in); err != nil {
		_ = s.registry.SendTo(sess, domain.NewErrorFrame(FrameInvalidFormat))
		return
	}
	content, err := normalizeContent(in.Content)
	if err != nil {
		msg := FrameInvalidFormat
		var de *domain.Error
		if errors.As(err, &de) {
			msg = de.Message
		}
		_ = s.registry.SendTo(sess, domain.NewErrorFrame(msg))
		return
	}

	msg, err := s.messages.Create(ctx, content, user.ID, conversationID)
	if err != nil {
		l.Error().Err(err).Msg("failed to save message")
		_ = s.registry.SendTo(sess, domain.NewErrorFrame(FrameSaveFailed))
		return
	}

	s.Deliver(ctx, &domain.MessageView{Message: *msg, SenderName: user.Username}, sess)
}

// Deliver broadcasts a persisted message to its conversation. from is the
// sending socket, or nil for messages that did not arrive over WebSocket;
// it is skipped when sender echo is off.
func (s *chatServiceImpl) Deliver(ctx context.Context, msg *domain.MessageView, from realtime.Socket) {
	var exclude realtime.Socket
	if !s.echoSender {
		exclude = from
	}

	n, err := s.registry.Broadcast(ctx, msg.ConversationID, domain.NewMessageFrame(msg), exclude)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Uint(log.FieldMessageID, msg.ID).Msg("failed to broadcast message")
	} else {
		l := log.Ctx(ctx)
		l.Debug().Uint(log.FieldMessageID, msg.ID).Int("delivered", n).Msg("message delivered")
	}

	pubsub.Emit(ctx, s.events, pubsub.EventMessageCreated, strconv.FormatUint(uint64(msg.ConversationID), 10), msg)
}

func (s *chatServiceImpl) announceLeave(ctx context.Context, conversationID uint, user *domain.User) {
	if _, err := s.registry.Broadcast(ctx, conversationID, domain.NewUserLeftFrame(user), nil); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("failed to announce departure")
	}
	pubsub.Emit(ctx, s.events, pubsub.EventUserLeft, strconv.FormatUint(uint64(conversationID), 10), domain.NewUserLeftFrame(user))
}
