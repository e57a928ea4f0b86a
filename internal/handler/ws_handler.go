package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/wes-io-dorm/internal/domain"
	"github.com/weiawesome/wes-io-dorm/internal/middleware"
	"github.com/weiawesome/wes-io-dorm/internal/realtime"
	"github.com/weiawesome/wes-io-dorm/internal/service"
	"github.com/weiawesome/wes-io-dorm/pkg/log"
)

// ServeWS upgrades to a chat socket for one conversation. Authentication
// happens after the upgrade so rejections reach the client as close codes.
// The token comes from ?token= or, failing that, a bearer header.
func (h *Handler) ServeWS(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn := realtime.NewConn(ws, h.wsCfg)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		conn.Close(domain.CloseConversationAbsent, service.ReasonNotFound)
		return
	}

	token := c.Query("token")
	if token == "" {
		token = middleware.BearerToken(c)
	}
	h.chat.Serve(ctx, conn, token, uint(id))
}
