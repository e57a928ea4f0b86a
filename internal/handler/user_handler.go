package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/weiawesome/wes-io-dorm/internal/domain"
	"github.com/weiawesome/wes-io-dorm/internal/middleware"
	"github.com/weiawesome/wes-io-dorm/pkg/log"
	"github.com/weiawesome/wes-io-dorm/pkg/response"
)

// Register handles user registration.
func (h *Handler) Register(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	var req domain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid register request")
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.users.Register(ctx, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, result)
}

// Login exchanges a username-or-email and password for an access token.
// Both JSON bodies and OAuth2 password-grant forms are accepted.
func (h *Handler) Login(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	var req domain.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		l.Warn().Err(err).Msg("invalid login request")
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.users.Login(ctx, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, result)
}

// GetMe returns the authenticated user.
func (h *Handler) GetMe(c *gin.Context) {
	response.Success(c, middleware.CurrentUser(c).ToResponse())
}

// GetUser returns another user's public profile.
func (h *Handler) GetUser(c *gin.Context) {
	profile, err := h.users.GetPublicProfile(c.Request.Context(), c.Param("username"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, profile)
}
