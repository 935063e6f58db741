package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

const (
	StateConnected    = "connected"
	StateDisconnected = "disconnected"
	StateDisabled     = "disabled"
)

// Status 健康状态
type Status struct {
	Service     string `json:"service"`
	Coordinator string `json:"coordinator"`
	NATS        string `json:"nats"`
	Redis       string `json:"redis"`
	Clients     int    `json:"clients"`
}

// Runner 协调器运行状态
type Runner interface {
	Running() bool
}

// ClientCounter UI 连接计数
type ClientCounter interface {
	Count() int
}

// Checker 健康检查器
// nc 与 redisClient 为 nil 时视为未启用
type Checker struct {
	runner      Runner
	nc          *nats.Conn
	redisClient *redis.Client
	clients     ClientCounter
}

// NewChecker 创建健康检查器
func NewChecker(runner Runner, nc *nats.Conn, redisClient *redis.Client, clients ClientCounter) *Checker {
	return &Checker{
		runner:      runner,
		nc:          nc,
		redisClient: redisClient,
		clients:     clients,
	}
}

// Check 执行健康检查
func (h *Checker) Check(ctx context.Context) *Status {
	status := &Status{
		Service:     "typing",
		Coordinator: "stopped",
		NATS:        StateDisabled,
		Redis:       StateDisabled,
	}

	if h.runner != nil && h.runner.Running() {
		status.Coordinator = "running"
	}

	if h.nc != nil {
		if h.nc.IsConnected() {
			status.NATS = StateConnected
		} else {
			status.NATS = StateDisconnected
		}
	}

	if h.redisClient != nil {
		redisCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if err := h.redisClient.Ping(redisCtx).Err(); err == nil {
			status.Redis = StateConnected
		} else {
			status.Redis = StateDisconnected
		}
	}

	if h.clients != nil {
		status.Clients = h.clients.Count()
	}

	return status
}

// IsReady 协调器运行且已启用的依赖均可用
func (s *Status) IsReady() bool {
	return s.Coordinator == "running" &&
		s.NATS != StateDisconnected &&
		s.Redis != StateDisconnected
}

// Handler 返回 /health 与 /ready 端点
// /health 只反映协调器是否存活，/ready 还要求依赖可用
func (h *Checker) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := h.Check(r.Context())
		writeStatus(w, status, status.Coordinator == "running")
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		status := h.Check(r.Context())
		writeStatus(w, status, status.IsReady())
	})
	return mux
}

func writeStatus(w http.ResponseWriter, status *Status, ok bool) {
	w.Header().Set("Content-Type", "application/json")
	if ok {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(status)
}
