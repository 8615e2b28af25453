package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"

	"parking_reservation/internal/domain"
	"parking_reservation/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Cho phép kết nối từ mọi nguồn
	},
}

type wsClient struct {
	userID int
	conn   *websocket.Conn
	send   chan []byte

	// Loại notification client khai báo quan tâm qua message subscribe;
	// chỉ mang tính tham khảo, server vẫn đẩy mọi event của user.
	mu            sync.Mutex
	subscriptions []string
}

// NotificationHub quản lý kết nối WebSocket theo user: một user có thể
// mở nhiều kết nối (nhiều tab), mỗi event được đẩy tới tất cả kết nối
// của user đó. Hub implement service.Publisher.
type NotificationHub struct {
	clients    map[int]map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	mutex      sync.RWMutex

	wsTokenService *service.WSTokenService
	authService    *service.AuthService
}

func NewNotificationHub(wsTokenService *service.WSTokenService, authService *service.AuthService) *NotificationHub {
	return &NotificationHub{
		clients:        make(map[int]map[*wsClient]bool),
		register:       make(chan *wsClient),
		unregister:     make(chan *wsClient),
		wsTokenService: wsTokenService,
		authService:    authService,
	}
}

func (h *NotificationHub) Start() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			if h.clients[client.userID] == nil {
				h.clients[client.userID] = make(map[*wsClient]bool)
			}
			h.clients[client.userID][client] = true
			h.mutex.Unlock()
			log.Printf("WebSocket: user %d kết nối, tổng kết nối của user: %d", client.userID, len(h.clients[client.userID]))

		case client := <-h.unregister:
			h.mutex.Lock()
			if conns, ok := h.clients[client.userID]; ok {
				if _, ok := conns[client]; ok {
					delete(conns, client)
					close(client.send)
					client.conn.Close()
					if len(conns) == 0 {
						delete(h.clients, client.userID)
					}
				}
			}
			h.mutex.Unlock()
			log.Printf("WebSocket: user %d ngắt kết nối", client.userID)
		}
	}
}

// PublishToUser đẩy event tới mọi kết nối đang mở của user. Kết nối có
// buffer đầy bị bỏ qua; bản ghi notification đã bền trong database nên
// client đọc lại được qua REST.
func (h *NotificationHub) PublishToUser(userID int, event domain.NotificationEvent) error {
	message, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()
	for client := range h.clients[userID] {
		select {
		case client.send <- message:
		default:
			log.Printf("WebSocket: buffer của user %d đầy, bỏ qua message", userID)
		}
	}
	return nil
}

// authenticate thử ws token trước, rơi về access token nếu không phải.
func (h *NotificationHub) authenticate(ctx context.Context, token string) (int, error) {
	if userID, err := h.wsTokenService.Verify(ctx, token); err == nil {
		return userID, nil
	}
	claims, err := h.authService.ValidateAccessToken(token)
	if err != nil {
		return 0, err
	}
	sub, _ := claims["sub"].(string)
	userID, err := strconv.Atoi(sub)
	if err != nil || userID <= 0 {
		return 0, service.ErrTokenInvalid
	}
	return userID, nil
}

// GET /ws?token=...
func (h *NotificationHub) HandleConnection(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Thiếu token"})
		return
	}
	userID, err := h.authenticate(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token không hợp lệ hoặc đã hết hạn"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket: lỗi upgrade cho user %d: %v", userID, err)
		return
	}

	client := &wsClient{userID: userID, conn: conn, send: make(chan []byte, 32)}
	h.register <- client

	go h.writePump(client)
	go h.readPump(client)
}

func (h *NotificationHub) writePump(client *wsClient) {
	for message := range client.send {
		if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("WebSocket: lỗi ghi cho user %d: %v", client.userID, err)
			break
		}
	}
}

// readPump đọc message inbound để giữ kết nối sống và phát hiện client
// đóng; chỉ xử lý ping và subscribe, còn lại bỏ qua.
func (h *NotificationHub) readPump(client *wsClient) {
	defer func() {
		h.unregister <- client
	}()
	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			return
		}
		var inbound struct {
			Type  string   `json:"type"`
			Types []string `json:"notification_types"`
		}
		if json.Unmarshal(message, &inbound) != nil {
			continue
		}
		switch inbound.Type {
		case "ping":
			pong, _ := json.Marshal(gin.H{"type": "pong"})
			select {
			case client.send <- pong:
			default:
			}
		case "subscribe":
			client.mu.Lock()
			client.subscriptions = inbound.Types
			client.mu.Unlock()
		}
	}
}
