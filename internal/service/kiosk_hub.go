package service

import (
	"context"
	"encoding/json"
	"net/http"
	"quizdesk_backend/pkg/logger"
	"quizdesk_backend/pkg/monitoring"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	shardCount     = 32
	kioskChannel   = "kiosk_channel"
)

// 推送给客户端的消息类型
const (
	MsgKioskState     = "KIOSK_STATE"
	MsgForceSubmitted = "FORCE_SUBMITTED"
	MsgWindowBlurred  = "WINDOW_BLURRED"
)

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type inboundMessage struct {
	Type string `json:"type"`
	Data struct {
		SessionID string `json:"sessionId"`
	} `json:"data"`
}

// KioskNotifier 向学生的锁定客户端推送消息
type KioskNotifier interface {
	PushToUsers(userIDs []uint, msg WSMessage)
}

type Client struct {
	Hub     *KioskHub
	Conn    *websocket.Conn
	Send    chan []byte
	UserID  uint
	Limiter *rate.Limiter
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.unregisterClient(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Warn("WebSocket unexpected close", zap.Error(err), zap.Uint("userId", c.UserID))
			}
			break
		}

		if !c.Limiter.Allow() {
			continue
		}

		var msg inboundMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		if msg.Type == MsgWindowBlurred && msg.Data.SessionID != "" {
			monitoring.KioskEvents.WithLabelValues("blur").Inc()
			if handler := c.Hub.blurHandler(); handler != nil {
				go handler(c.UserID, msg.Data.SessionID)
			}
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type shard struct {
	clients map[uint]*Client
	mu      sync.RWMutex
}

// KioskHub 管理锁定客户端的 WebSocket 连接，多实例部署时经 redis 频道转发
type KioskHub struct {
	shards         [shardCount]*shard
	register       chan *Client
	unregister     chan *Client
	Redis          *redis.Client
	allowedOrigins []string

	mu     sync.RWMutex
	onBlur func(userID uint, sessionID string)

	ctx    context.Context
	cancel context.CancelFunc
}

// NewKioskHub rdb 为 nil 时只推送给本实例的连接
func NewKioskHub(rdb *redis.Client, allowedOrigins []string) *KioskHub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &KioskHub{
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		Redis:          rdb,
		allowedOrigins: allowedOrigins,
		ctx:            ctx,
		cancel:         cancel,
	}
	for i := 0; i < shardCount; i++ {
		h.shards[i] = &shard{
			clients: make(map[uint]*Client),
		}
	}
	return h
}

// SetBlurHandler 客户端上报窗口失焦时调用
func (h *KioskHub) SetBlurHandler(fn func(userID uint, sessionID string)) {
	h.mu.Lock()
	h.onBlur = fn
	h.mu.Unlock()
}

func (h *KioskHub) blurHandler() func(uint, string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.onBlur
}

func (h *KioskHub) getShard(userID uint) *shard {
	return h.shards[userID%shardCount]
}

type PubSubMessage struct {
	TargetUsers []uint          `json:"targetUsers"`
	Payload     json.RawMessage `json:"payload"`
}

func (h *KioskHub) Run() {
	if h.Redis != nil {
		pubsub := h.Redis.Subscribe(h.ctx, kioskChannel)
		defer pubsub.Close()
		go func() {
			for msg := range pubsub.Channel() {
				var psMsg PubSubMessage
				if err := json.Unmarshal([]byte(msg.Payload), &psMsg); err != nil {
					logger.Log.Error("PubSub unmarshal error", zap.Error(err))
					continue
				}
				h.pushToLocalRawUsers(psMsg.TargetUsers, psMsg.Payload)
			}
		}()
	}

	for {
		select {
		case client := <-h.register:
			s := h.getShard(client.UserID)
			s.mu.Lock()
			// 同一学生重复连接时关闭旧连接
			if old, ok := s.clients[client.UserID]; ok {
				close(old.Send)
			} else {
				monitoring.KioskOnlineClients.Inc()
			}
			s.clients[client.UserID] = client
			s.mu.Unlock()

		case client := <-h.unregister:
			s := h.getShard(client.UserID)
			s.mu.Lock()
			if current, ok := s.clients[client.UserID]; ok && current == client {
				delete(s.clients, client.UserID)
				close(client.Send)
				monitoring.KioskOnlineClients.Dec()
			}
			s.mu.Unlock()

		case <-h.ctx.Done():
			return
		}
	}
}

func (h *KioskHub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}

// Stop 关闭所有连接
func (h *KioskHub) Stop() {
	logger.Log.Info("KioskHub stopping: closing connections...")
	h.cancel()

	closed := 0
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.Lock()
		for userID, client := range s.clients {
			close(client.Send)
			delete(s.clients, userID)
			closed++
		}
		s.mu.Unlock()
	}

	monitoring.KioskOnlineClients.Set(0)
	logger.Log.Info("KioskHub stopped", zap.Int("closedConnections", closed))
}

func (h *KioskHub) PushToUsers(userIDs []uint, msg WSMessage) {
	msgBytes, err := json.Marshal(msg)
	if err != nil {
		logger.Log.Error("WebSocket message marshal error", zap.String("type", msg.Type), zap.Error(err))
		return
	}

	if h.Redis != nil {
		payload, _ := json.Marshal(PubSubMessage{TargetUsers: userIDs, Payload: msgBytes})
		err := h.Redis.Publish(h.ctx, kioskChannel, payload).Err()
		if err == nil {
			return
		}
		logger.Log.Warn("Redis publish failed, delivering locally", zap.Error(err))
	}
	h.pushToLocalRawUsers(userIDs, msgBytes)
}

func (h *KioskHub) pushToLocalRawUsers(userIDs []uint, payload []byte) {
	for _, id := range userIDs {
		s := h.getShard(id)
		s.mu.RLock()
		if client, ok := s.clients[id]; ok {
			select {
			case client.Send <- payload:
			default:
			}
		}
		s.mu.RUnlock()
	}
}

// IsConnected 学生是否连接在本实例
func (h *KioskHub) IsConnected(userID uint) bool {
	s := h.getShard(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.clients[userID]
	return ok
}

func (h *KioskHub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.allowedOrigins) == 0 {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || strings.EqualFold(strings.TrimRight(allowed, "/"), origin) {
			return true
		}
	}
	return false
}

func ServeWs(hub *KioskHub, w http.ResponseWriter, r *http.Request, userID uint) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     hub.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Warn("WebSocket upgrade failed", zap.Error(err), zap.Uint("userId", userID))
		return
	}
	client := &Client{
		Hub:     hub,
		Conn:    conn,
		Send:    make(chan []byte, 64),
		UserID:  userID,
		Limiter: rate.NewLimiter(rate.Limit(10), 20),
	}

	select {
	case hub.register <- client:
	case <-hub.ctx.Done():
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
