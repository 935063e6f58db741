package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	goredis "github.com/redis/go-redis/v9"

	"sudooom.im.typing/internal/config"
	"sudooom.im.typing/internal/handler"
	"sudooom.im.typing/internal/health"
	imNats "sudooom.im.typing/internal/nats"
	"sudooom.im.typing/internal/people"
	imRedis "sudooom.im.typing/internal/redis"
	"sudooom.im.typing/internal/router"
	"sudooom.im.typing/internal/sender"
	"sudooom.im.typing/internal/task"
	"sudooom.im.typing/internal/typing"
	"sudooom.im.typing/internal/ws"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	flag.Parse()

	// .env 不存在时忽略
	_ = godotenv.Load()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// 初始化日志
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.App.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	directory := people.FromConfig(cfg.User, cfg.People)

	// 时间轮调度器
	scheduler := task.NewScheduler(cfg.Timer.TickInterval, cfg.Timer.SlotCount, cfg.Timer.WorkerCount)
	if err := scheduler.Start(); err != nil {
		logger.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer scheduler.Stop()

	// 连接 NATS；nats 通道发送或接收远端事件都需要
	var natsClient *imNats.Client
	if cfg.NATS.URL != "" {
		natsClient, err = imNats.NewClient(cfg.NATS, cfg.App.Name)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		logger.Info("Connected to NATS", "url", cfg.NATS.URL)
	}

	// 上行发送器
	var inner typing.Sender
	switch cfg.Transport.Kind {
	case config.TransportNATS:
		inner = imNats.NewNoticePublisher(natsClient.Conn())
	default:
		inner = sender.NewHTTPSender(cfg.Transport.HTTP, cfg.User.Email)
	}
	noticeSender := sender.NewAsync(inner, cfg.Transport.QueueSize, cfg.Transport.HTTP.Timeout)

	// Redis 镜像
	var listeners []typing.ChangeListener
	var redisClient *goredis.Client
	var store *imRedis.TypingStore
	if cfg.Redis.Enabled {
		redisClient = imRedis.NewClient(cfg.Redis)
		defer redisClient.Close()
		store = imRedis.NewTypingStore(redisClient, cfg.User.ID, cfg.Typing.StartedExpiryPeriod, cfg.Transport.QueueSize)
		listeners = append(listeners, store)
		logger.Info("Mirroring typing state to Redis", "addr", cfg.Redis.Addr)
	}

	hub := ws.NewHub()

	coordinator := typing.NewCoordinator(typing.Options{
		Config: typing.Config{
			StartedExpiryPeriod:  cfg.Typing.StartedExpiryPeriod,
			StartedSendFrequency: cfg.Typing.StartedSendFrequency,
			StoppedWaitPeriod:    cfg.Typing.StoppedWaitPeriod,
		},
		Directory: directory,
		Sender:    noticeSender,
		Timers:    typing.NewWheelTimers(scheduler, "typing"),
		Displays:  []typing.Display{hub},
		Listeners: listeners,
	})

	coordinatorDone := make(chan struct{})
	go func() {
		defer close(coordinatorDone)
		coordinator.Run(ctx)
	}()

	// 订阅远端事件
	var subscriber *imNats.EventSubscriber
	if natsClient != nil {
		subscriber = imNats.NewEventSubscriber(natsClient.Conn(), cfg.User.ID, coordinator, cfg.NATS.BufferSize)
		if err := subscriber.Start(ctx); err != nil {
			logger.Error("Failed to start subscriber", "error", err)
			os.Exit(1)
		}
	}

	// 本地 UI 接口
	r := router.SetupRouter(cfg.Server, handler.NewTypingHandler(coordinator, directory), hub)
	apiServer := &http.Server{Addr: cfg.Server.Addr, Handler: r}
	go serve(apiServer, "API server", logger)

	// 健康检查
	healthServer := &http.Server{
		Addr:    cfg.Server.HealthAddr,
		Handler: health.NewChecker(coordinator, natsConn(natsClient), redisClient, hub).Handler(),
	}
	go serve(healthServer, "Health check server", logger)

	logger.Info("Typing agent started", "name", cfg.App.Name, "userId", cfg.User.ID, "transport", cfg.Transport.Kind)

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	apiServer.Shutdown(shutdownCtx)
	healthServer.Shutdown(shutdownCtx)

	if subscriber != nil {
		subscriber.Stop()
	}

	// 协调器退出时发送 stop，之后再关闭发送队列
	cancel()
	<-coordinatorDone
	noticeSender.Close()
	hub.Close()
	if store != nil {
		store.Close()
	}

	logger.Info("Typing agent stopped")
}

func natsConn(c *imNats.Client) *nats.Conn {
	if c == nil {
		return nil
	}
	return c.Conn()
}

func serve(server *http.Server, name string, logger *slog.Logger) {
	logger.Info(name+" started", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error(name+" failed", "error", err)
		os.Exit(1)
	}
}
