package ws

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"sudooom.im.typing/pkg/proto"
)

const TypeTyping = "typing"

var (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingEvery   = (pongWait * 9) / 10
	sendBufSize = 16
)

// Message 推送给 UI 的消息
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Hub 把当前视图的输入状态推送给所有已连接的 UI
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.RWMutex
	clients map[string]*client
	last    *proto.TypingUpdate
}

type client struct {
	id     string
	conn   *websocket.Conn
	egress chan Message
	once   sync.Once
	done   chan struct{}
}

// NewHub 创建推送中心
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:  slog.Default(),
		clients: make(map[string]*client),
	}
}

// ShowTyping 由协调器的事件循环调用，不阻塞
func (h *Hub) ShowTyping(update *proto.TypingUpdate) {
	msg := Message{Type: TypeTyping, Payload: update}

	h.mu.Lock()
	h.last = update
	var slow []*client
	for _, c := range h.clients {
		select {
		case c.egress <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.logger.Warn("WebSocket client too slow, disconnecting", "clientId", c.id)
		h.remove(c)
	}
}

// Count 已连接的客户端数量
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP 升级连接并立即推送最近一次状态
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	c := &client{
		id:     uuid.New().String(),
		conn:   conn,
		egress: make(chan Message, sendBufSize),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[c.id] = c
	if h.last != nil {
		c.egress <- Message{Type: TypeTyping, Payload: h.last}
	}
	h.mu.Unlock()

	h.logger.Info("WebSocket client connected", "clientId", c.id)

	go h.writeLoop(c)
	h.readLoop(c)
	h.remove(c)
}

// Close 断开所有客户端
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.remove(c)
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()

	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
		h.logger.Info("WebSocket client disconnected", "clientId", c.id)
	})
}

// readLoop 只处理控制帧，UI 通过 HTTP 接口上报
func (h *Hub) readLoop(c *client) {
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("WebSocket read failed", "clientId", c.id, "error", err)
			}
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.egress:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				h.logger.Debug("WebSocket write failed", "clientId", c.id, "error", err)
				h.remove(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}
