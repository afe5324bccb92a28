// Package router 组装仓储、服务与处理器，注册HTTP路由和WebSocket入口。
package router

import (
	"context"

	"social-im/config"
	"social-im/internal/handler"
	"social-im/internal/repository"
	"social-im/internal/service"
	"social-im/pkg/async"
	"social-im/pkg/db"
	"social-im/pkg/events"
	"social-im/pkg/jwt"
	"social-im/pkg/logger"
	"social-im/pkg/metrics"
	"social-im/pkg/redis"
	"social-im/pkg/websocket"

	"github.com/gin-gonic/gin"
)

// Deps 路由依赖；Redis 为 nil 时在线状态与未读计数只使用本节点和数据库
type Deps struct {
	Gateway    *db.Gateway
	Redis      *redis.Store
	JWT        *jwt.JWTService
	Manager    *websocket.Manager
	Aggregator *events.Aggregator
	Pool       *async.Pool
	WebSocket  config.WebSocketConfig
}

// New 创建Gin路由，并把在线状态订阅者注册到聚合器
func New(d Deps) *gin.Engine {
	userRepo := repository.NewUserRepository(d.Gateway)
	friendRepo := repository.NewFriendshipRepository(d.Gateway)
	messageRepo := repository.NewMessageRepository(d.Gateway)
	groupRepo := repository.NewGroupChatRepository(d.Gateway)

	// 未配置Redis时不能把 nil *redis.Store 赋给接口
	var (
		lookup   service.PresenceLookup = d.Manager
		unread   service.UnreadCounter
		recorder service.PresenceRecorder
	)
	if d.Redis != nil {
		lookup, unread, recorder = d.Redis, d.Redis, d.Redis
	}

	userSvc := service.NewUserService(userRepo, d.JWT)
	friendSvc := service.NewFriendshipService(d.Gateway, userRepo, friendRepo, lookup)
	messageSvc := service.NewMessageService(d.Gateway, userRepo, friendRepo, messageRepo, groupRepo, d.Manager, unread)
	groupSvc := service.NewGroupChatService(d.Gateway, userRepo, friendRepo, groupRepo)
	service.NewPresenceService(friendRepo, d.Manager, d.Manager, recorder).Register(d.Aggregator)

	userHandler := handler.NewUserHandler(userSvc)
	friendHandler := handler.NewFriendshipHandler(friendSvc)
	messageHandler := handler.NewMessageHandler(messageSvc)
	groupHandler := handler.NewGroupChatHandler(groupSvc)

	checks := map[string]handler.Pinger{"database": d.Gateway}
	if d.Redis != nil {
		checks["redis"] = handler.PingFunc(d.Redis.HealthCheck)
	}
	healthHandler := handler.NewHealthHandler(checks, d.Pool)

	wsHandler := websocket.NewHandler(d.Manager, d.JWT, d.Aggregator, d.Pool, d.WebSocket,
		func(ctx context.Context, senderID uint, p websocket.SendMessagePayload) error {
			_, err := messageSvc.Send(ctx, service.SendMessageInput{
				SenderID:          senderID,
				AddresseeUsername: p.AddresseeUsername,
				GroupChatID:       p.GroupChatID,
				Content:           p.Content,
			})
			return err
		})

	r := gin.New()
	r.Use(logger.ErrorLoggerMiddleware())
	r.Use(logger.RequestLogger())
	r.Use(metrics.Middleware())

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/ws", wsHandler.ServeWS)

	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", userHandler.SignUp)
		auth.POST("/sign-in", userHandler.SignIn)
	}

	// 需要认证的接口
	authed := r.Group("")
	authed.Use(d.JWT.AuthMiddleware())
	{
		authed.GET("/users/", userHandler.Me)

		friends := authed.Group("/friends")
		{
			friends.GET("/requests/accepted", friendHandler.Accepted)
			friends.GET("/requests/senders", friendHandler.Senders)
			friends.GET("/requests/sent", friendHandler.Sent)
			friends.POST("/requests/send-request", friendHandler.SendRequest)
			friends.POST("/requests/accept", friendHandler.Accept)
			friends.POST("/requests/decline", friendHandler.Decline)
			friends.POST("/requests/block", friendHandler.Block)
			friends.POST("/requests/cancel", friendHandler.Cancel)
			friends.DELETE("/requests", friendHandler.Delete)
			friends.GET("/online", friendHandler.Online)
		}

		messages := authed.Group("/messages")
		{
			messages.POST("/", messageHandler.SendMessage)
			messages.GET("/", messageHandler.ListFrom)
			messages.POST("/seen", messageHandler.MarkSeen)
			messages.GET("/unread-count", messageHandler.GetUnreadCount)
		}

		groups := authed.Group("/group-chats")
		{
			groups.POST("/", groupHandler.Create)
			groups.POST("/:id/members", groupHandler.AddMember)
		}
	}
	return r
}
