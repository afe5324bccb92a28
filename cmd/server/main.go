package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social-im/config"
	"social-im/internal/model"
	"social-im/internal/router"
	"social-im/pkg/async"
	dbPkg "social-im/pkg/db"
	"social-im/pkg/events"
	"social-im/pkg/jwt"
	"social-im/pkg/logger"
	"social-im/pkg/redis"
	"social-im/pkg/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg := config.LoadConfig()

	// 2. 初始化日志系统
	log := logger.InitLogger(cfg.Log)
	defer log.Sync()

	log.Info("=== social-im 启动 ===")
	log.Info("服务器配置信息",
		zap.String("port", cfg.Server.Port),
		zap.String("database_host", cfg.Database.Host),
		zap.Int("database_port", cfg.Database.Port),
		zap.String("database_name", cfg.Database.Database),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
		zap.Duration("jwt_login_expire_time", cfg.JWT.LoginExpireTime),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 初始化数据库连接
	orm, err := dbPkg.InitDB(cfg.Database)
	if err != nil {
		log.Fatal("数据库连接失败", zap.Error(err))
	}
	gw := dbPkg.New(orm)
	defer func() {
		if err := gw.Close(); err != nil {
			log.Error("关闭数据库连接失败", zap.Error(err))
		}
	}()
	log.Info("数据库连接成功")

	// 3.1 自动迁移表结构并写入状态码
	if err := dbPkg.AutoMigrate(orm, model.All()...); err != nil {
		log.Fatal("自动迁移失败", zap.Error(err))
	}
	if err := dbPkg.Seed(context.Background(), orm, model.StatusCodes()); err != nil {
		log.Fatal("写入好友状态码失败", zap.Error(err))
	}
	log.Info("自动迁移完成")

	// 4. Redis（可选）
	var store *redis.Store
	if cfg.Redis.Enabled {
		store, err = redis.InitRedis(context.Background(), cfg.Redis)
		if err != nil {
			log.Fatal("Redis连接失败", zap.Error(err))
		}
		defer store.Close()
		log.Info("Redis连接成功")
	}

	// 5. 协程池与事件聚合器
	pool, err := async.New(cfg.Async)
	if err != nil {
		log.Fatal("创建协程池失败", zap.Error(err))
	}
	agg := events.New()
	defer agg.Close()

	// 6. 设置Gin模式
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := router.New(router.Deps{
		Gateway:    gw,
		Redis:      store,
		JWT:        jwt.NewJWTService(cfg.JWT),
		Manager:    websocket.NewManager(),
		Aggregator: agg,
		Pool:       pool,
		WebSocket:  cfg.WebSocket,
	})

	// 7. 创建HTTP服务器
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 8. 启动HTTP服务器
	go func() {
		log.Info("HTTP服务器启动", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP服务器启动失败", zap.Error(err))
		}
	}()

	// 9. 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("HTTP服务器关闭失败", zap.Error(err))
	}
	// 等待下线事件处理完
	if err := pool.Release(); err != nil {
		log.Warn("协程池释放超时", zap.Error(err))
	}

	log.Info("服务器已安全关闭")
}
