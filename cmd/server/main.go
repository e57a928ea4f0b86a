package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/weiawesome/wes-io-dorm/internal/auth"
	"github.com/weiawesome/wes-io-dorm/internal/config"
	"github.com/weiawesome/wes-io-dorm/internal/handler"
	"github.com/weiawesome/wes-io-dorm/internal/realtime"
	"github.com/weiawesome/wes-io-dorm/internal/repository"
	"github.com/weiawesome/wes-io-dorm/internal/seed"
	"github.com/weiawesome/wes-io-dorm/internal/service"
	"github.com/weiawesome/wes-io-dorm/pkg/database"
	"github.com/weiawesome/wes-io-dorm/pkg/jwt"
	"github.com/weiawesome/wes-io-dorm/pkg/log"
	"github.com/weiawesome/wes-io-dorm/pkg/password"
	"github.com/weiawesome/wes-io-dorm/pkg/pubsub"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := log.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	log.Init(cfg.Log)
	l := log.L()

	db, err := database.New(&cfg.Database)
	if err != nil {
		l.Fatal().Err(err).Str(log.FieldDriver, cfg.Database.Driver).Msg("failed to connect to database")
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db, repository.Models()...); err != nil {
		l.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	l.Info().Str(log.FieldDriver, cfg.Database.Driver).Msg("database migration completed")

	userRepo := repository.NewGormUserRepository(db)
	convRepo := repository.NewGormConversationRepository(db)
	msgRepo := repository.NewGormMessageRepository(db)
	hasher := password.NewHasher(cfg.Password.BcryptCost)

	if cfg.Seed.Enabled {
		n, err := seed.Run(context.Background(), userRepo, hasher, seed.Defaults(cfg.Seed.Password, cfg.Seed.AdminPassword))
		if err != nil {
			l.Fatal().Err(err).Msg("failed to seed accounts")
		}
		l.Info().Int("created", n).Msg("seed completed")
	}

	events, err := pubsub.NewPublisher(cfg.Events)
	if err != nil {
		l.Fatal().Err(err).Str(log.FieldDriver, cfg.Events.Driver).Msg("failed to create event publisher")
	}
	defer events.Close()

	tokens, err := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessDuration, jwt.WithIssuer(cfg.JWT.Issuer))
	if err != nil {
		l.Fatal().Err(err).Msg("failed to create token manager")
	}

	registry := realtime.NewRegistry()
	resolver := auth.NewResolver(tokens, userRepo, service.IsUserNotFound)
	chatSvc := service.NewChatService(resolver, convRepo, msgRepo, registry, events, cfg.WebSocket.EchoSender)
	userSvc := service.NewUserService(userRepo, hasher, tokens, events)
	convSvc := service.NewConversationService(userRepo, convRepo, msgRepo, chatSvc, events)

	h := handler.NewHandler(userSvc, convSvc, chatSvc, resolver, cfg.WebSocket.Config, cfg.Server.AllowedOrigins)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), log.GinMiddleware(l), cors.New(corsConfig(cfg.Server.AllowedOrigins)))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	h.RegisterRoutes(r)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		l.Info().Str("addr", server.Addr).Msg("dorm server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		l.Info().Msg("shutting down")

		// Hijacked sockets are not tracked by Shutdown.
		n := registry.CloseAll(websocket.CloseGoingAway, "server shutting down")
		l.Info().Int("sockets", n).Msg("closed websocket sessions")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		l.Error().Err(err).Msg("server stopped with error")
		return
	}
	l.Info().Msg("server stopped")
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		c.AllowAllOrigins = true
		c.AllowCredentials = false
		return c
	}
	c.AllowOrigins = origins
	return c
}
