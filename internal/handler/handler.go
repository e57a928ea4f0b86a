package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/weiawesome/wes-io-dorm/internal/auth"
	"github.com/weiawesome/wes-io-dorm/internal/middleware"
	"github.com/weiawesome/wes-io-dorm/internal/realtime"
	"github.com/weiawesome/wes-io-dorm/internal/service"
	"github.com/weiawesome/wes-io-dorm/pkg/response"
)

// Handler serves the REST API and the chat WebSocket.
type Handler struct {
	users    service.UserService
	convs    service.ConversationService
	chat     service.ChatService
	resolver *auth.Resolver
	upgrader websocket.Upgrader
	wsCfg    realtime.Config
}

// NewHandler creates a Handler. allowedOrigins restricts WebSocket upgrades;
// an empty list or "*" accepts any origin.
func NewHandler(
	users service.UserService,
	convs service.ConversationService,
	chat service.ChatService,
	resolver *auth.Resolver,
	wsCfg realtime.Config,
	allowedOrigins []string,
) *Handler {
	return &Handler{
		users:    users,
		convs:    convs,
		chat:     chat,
		resolver: resolver,
		wsCfg:    wsCfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	active := middleware.RequireUser(h.resolver, auth.ActiveUser...)
	admin := middleware.RequireUser(h.resolver, auth.AdminUser...)

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", h.Register)
			authGroup.POST("/token", h.Login)
		}

		users := api.Group("/users")
		users.Use(active)
		{
			users.GET("/me", h.GetMe)
			users.GET("/:username", h.GetUser)
		}

		admins := api.Group("/admin")
		admins.Use(admin)
		{
			admins.GET("/users", h.ListUsers)
			admins.GET("/users/:identifier", h.LookupUser)
			admins.PATCH("/users/:identifier/active", h.SetActive)
			admins.PATCH("/users/:identifier/role", h.SetRole)
		}

		// The socket authenticates from its query string, so it sits
		// outside the bearer-protected group.
		api.GET("/conversations/:id/ws", h.ServeWS)

		convs := api.Group("/conversations")
		convs.Use(active)
		{
			convs.POST("", h.CreateConversation)
			convs.GET("", h.ListConversations)
			convs.GET("/:id", h.GetConversation)
			convs.GET("/:id/participants", h.ListParticipants)
			convs.GET("/:id/messages", h.ListMessages)
			convs.POST("/:id/messages", h.SendMessage)
		}
	}
}

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
