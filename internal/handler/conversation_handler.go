package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/weiawesome/wes-io-dorm/internal/domain"
	"github.com/weiawesome/wes-io-dorm/internal/middleware"
	"github.com/weiawesome/wes-io-dorm/pkg/log"
	"github.com/weiawesome/wes-io-dorm/pkg/response"
)

// CreateConversation opens a direct conversation with another user. An
// existing conversation between the pair is returned with 200.
func (h *Handler) CreateConversation(c *gin.Context) {
	ctx := c.Request.Context()
	var req domain.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("invalid create conversation request")
		response.BadRequest(c, err.Error())
		return
	}

	conv, created, err := h.convs.CreateDirect(ctx, middleware.CurrentUser(c), req.ParticipantID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	if created {
		response.Created(c, conv)
		return
	}
	response.Success(c, conv)
}

// ListConversations returns the caller's conversations.
func (h *Handler) ListConversations(c *gin.Context) {
	convs, err := h.convs.List(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, convs)
}

// GetConversation returns one conversation.
func (h *Handler) GetConversation(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	conv, err := h.convs.Get(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, conv)
}

// ListParticipants returns a conversation's members.
func (h *Handler) ListParticipants(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	users, err := h.convs.Participants(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, users)
}

// ListMessages returns a page of history, oldest first.
func (h *Handler) ListMessages(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var q domain.ListMessagesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	msgs, err := h.convs.Messages(c.Request.Context(), middleware.CurrentUser(c), id, q.Offset, q.Limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, msgs)
}

// SendMessage posts a message and fans it out to live sockets.
func (h *Handler) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req domain.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("invalid send message request")
		response.BadRequest(c, err.Error())
		return
	}

	msg, err := h.convs.Send(ctx, middleware.CurrentUser(c), id, req.Content)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, msg)
}
