package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/weiawesome/wes-io-dorm/internal/domain"
	"github.com/weiawesome/wes-io-dorm/internal/middleware"
	"github.com/weiawesome/wes-io-dorm/pkg/log"
	"github.com/weiawesome/wes-io-dorm/pkg/response"
)

type pageQuery struct {
	Skip  int `form:"skip" binding:"omitempty,min=0"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}

// ListUsers returns a page of users.
func (h *Handler) ListUsers(c *gin.Context) {
	q := pageQuery{Limit: 100}
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	users, err := h.users.ListUsers(c.Request.Context(), q.Skip, q.Limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, users)
}

// LookupUser finds a user by username, email or ID.
func (h *Handler) LookupUser(c *gin.Context) {
	user, err := h.users.LookupUser(c.Request.Context(), c.Param("identifier"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, user)
}

// SetActive enables or disables an account.
func (h *Handler) SetActive(c *gin.Context) {
	ctx := c.Request.Context()
	id, ok := h.targetID(c)
	if !ok {
		return
	}
	var req domain.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("invalid set active request")
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.users.SetActive(ctx, middleware.CurrentUser(c), id, *req.IsActive)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, user)
}

// SetRole changes an account's role.
func (h *Handler) SetRole(c *gin.Context) {
	ctx := c.Request.Context()
	id, ok := h.targetID(c)
	if !ok {
		return
	}
	var req domain.SetRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("invalid set role request")
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.users.SetRole(ctx, middleware.CurrentUser(c), id, req.Role)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, user)
}

// targetID resolves the path identifier the same way LookupUser does.
func (h *Handler) targetID(c *gin.Context) (uint, bool) {
	user, err := h.users.LookupUser(c.Request.Context(), c.Param("identifier"))
	if err != nil {
		response.FromError(c, err)
		return 0, false
	}
	return user.ID, true
}
