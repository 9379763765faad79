package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"github.com/yourusername/quizroom-api/internal/websocket"
	"github.com/yourusername/quizroom-api/pkg/auth"
)

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin проверяется на уровне CORS, сюда доходят уже отфильтрованные запросы
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler устанавливает WebSocket-соединения
type WSHandler struct {
	hub               *websocket.Hub
	verifier          auth.SessionVerifier
	messagesPerSecond int
}

// NewWSHandler создает обработчик WebSocket-подключений
func NewWSHandler(hub *websocket.Hub, verifier auth.SessionVerifier, messagesPerSecond int) *WSHandler {
	return &WSHandler{
		hub:               hub,
		verifier:          verifier,
		messagesPerSecond: messagesPerSecond,
	}
}

// HandleConnection апгрейдит запрос до WebSocket и аутентифицирует его.
// Токен принимается из заголовка Authorization или query-параметра token
// (браузерный WebSocket API не умеет ставить заголовки). Неудачная
// аутентификация завершается закрытием с кодом PolicyViolation уже
// после апгрейда, чтобы клиент получил причину.
func (h *WSHandler) HandleConnection(c *gin.Context) {
	token := extractToken(c)

	var userID uint
	authReason := ""
	if token == "" {
		authReason = "missing token"
	} else if uid, _, err := h.verifier.Verify(token); err != nil {
		authReason = "invalid token"
	} else {
		userID = uid
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WSHandler] Ошибка апгрейда соединения: %v", err)
		return
	}

	if authReason != "" {
		conn.WriteMessage(gorillaws.CloseMessage,
			gorillaws.FormatCloseMessage(gorillaws.ClosePolicyViolation, authReason))
		conn.Close()
		return
	}

	client := websocket.NewClient(h.hub, conn, userID, h.messagesPerSecond)
	if err := h.hub.Attach(client); err != nil {
		// Лимит соединений: сообщаем причину и закрываем с PolicyViolation
		if errors.Is(err, websocket.ErrConnectionLimit) {
			if data, encErr := websocket.EncodeFrame(websocket.MessageTypeError, websocket.ErrorPayload{
				Code:    websocket.CodeConnectionLimit,
				Message: websocket.ReasonConnectionLimit,
			}); encErr == nil {
				conn.WriteMessage(gorillaws.TextMessage, data)
			}
			conn.WriteMessage(gorillaws.CloseMessage,
				gorillaws.FormatCloseMessage(gorillaws.ClosePolicyViolation, websocket.ReasonConnectionLimit))
		}
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()

	h.hub.SendMessage(client, websocket.MessageTypeConnected, websocket.ConnectedPayload{UserID: userID})
}

func extractToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}
