package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"kidzy-server/internal/auth"
	"kidzy-server/shared/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Время, разрешенное для записи сообщения клиенту.
	writeWait = 10 * time.Second
	// Время ожидания следующего pong от клиента.
	pongWait = 60 * time.Second
	// Период пингов. Должен быть меньше pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Клиент ничего не присылает, кроме служебных кадров.
	maxMessageSize = 512
	sendBufferSize = 256
)

// Client - одно WebSocket соединение пользователя.
type Client struct {
	UserID string
	Conn   *websocket.Conn
	send   chan []byte
}

// ConnectionManager хранит активные соединения и доставляет им события прогресса.
// У пользователя может быть несколько вкладок, каждая со своим соединением.
type ConnectionManager struct {
	clients  map[string]map[*Client]struct{}
	mu       sync.RWMutex
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewConnectionManager создает менеджер. allowedOrigins пустой - разрешены любые источники.
func NewConnectionManager(allowedOrigins []string, logger *zap.Logger) *ConnectionManager {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}
	return &ConnectionManager{
		clients: make(map[string]map[*Client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 {
					return true
				}
				_, ok := origins[r.Header.Get("Origin")]
				return ok
			},
		},
		logger: logger.Named("ConnectionManager"),
	}
}

// RegisterClient добавляет соединение пользователя.
func (m *ConnectionManager) RegisterClient(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.clients[client.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		m.clients[client.UserID] = set
	}
	set[client] = struct{}{}
	m.logger.Debug("Client registered", zap.String("userID", client.UserID), zap.Int("connections", len(set)))
}

// UnregisterClient удаляет соединение и закрывает его канал отправки. Повторный вызов безопасен.
func (m *ConnectionManager) UnregisterClient(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	close(client.send)
	if len(set) == 0 {
		delete(m.clients, client.UserID)
	}
	m.logger.Debug("Client unregistered", zap.String("userID", client.UserID))
}

// SendToUser ставит сообщение в очередь всех соединений пользователя.
// Возвращает число соединений, принявших сообщение.
func (m *ConnectionManager) SendToUser(userID string, message []byte) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	delivered := 0
	for client := range m.clients[userID] {
		select {
		case client.send <- message:
			delivered++
		default:
			m.logger.Warn("Send queue is full, dropping message", zap.String("userID", userID))
		}
	}
	return delivered
}

// Connections - число активных соединений пользователя.
func (m *ConnectionManager) Connections(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients[userID])
}

// PublishClientUpdate доставляет событие подключенным клиентам. Офлайн-пользователь
// не считается ошибкой: актуальное состояние всегда можно получить через REST.
func (m *ConnectionManager) PublishClientUpdate(_ context.Context, update models.ClientUpdate) error {
	body, err := json.Marshal(update)
	if err != nil {
		return err
	}
	if n := m.SendToUser(update.UserID, body); n == 0 {
		m.logger.Debug("User is offline, update not delivered",
			zap.String("userID", update.UserID),
			zap.String("event", update.Event),
		)
	}
	return nil
}

// CloseAll закрывает все соединения при остановке сервера.
func (m *ConnectionManager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for userID, set := range m.clients {
		for client := range set {
			close(client.send)
		}
		delete(m.clients, userID)
	}
}

// serveWS устанавливает WebSocket соединение. ID-токен передается в query-параметре token,
// потому что браузер не позволяет задать заголовки при подключении.
func (h *Handler) serveWS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		models.SendJSONError(c, "Unauthorized: Missing token", http.StatusUnauthorized)
		return
	}
	userID, err := h.verify(c.Request.Context(), token)
	if err != nil {
		status, msg := auth.TokenErrorResponse(err)
		h.logger.Warn("WebSocket token rejected", zap.Error(err))
		models.SendJSONError(c, msg, status)
		return
	}

	conn, err := h.updates.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrader уже ответил клиенту
		h.logger.Error("Failed to upgrade connection", zap.String("userID", userID), zap.Error(err))
		return
	}

	client := &Client{
		UserID: userID,
		Conn:   conn,
		send:   make(chan []byte, sendBufferSize),
	}
	h.updates.RegisterClient(client)
	h.logger.Info("WebSocket connection established", zap.String("userID", userID))

	log := h.logger.With(zap.String("userID", userID))
	go client.writePump(log)
	go client.readPump(h.updates, log)
}

// readPump читает служебные кадры и следит за pong. Сообщения клиента игнорируются.
func (c *Client) readPump(manager *ConnectionManager, logger *zap.Logger) {
	defer func() {
		manager.UnregisterClient(c)
		_ = c.Conn.Close()
		logger.Debug("readPump finished")
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket read error", zap.Error(err))
			} else {
				logger.Info("WebSocket connection closed")
			}
			return
		}
	}
}

// writePump отправляет события из канала send, каждое отдельным кадром, и пингует клиента.
func (c *Client) writePump(logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
		logger.Debug("writePump finished")
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("Failed to write message", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Warn("Failed to send ping", zap.Error(err))
				return
			}
		}
	}
}
