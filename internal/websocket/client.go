package websocket

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Время, которое разрешено писать сообщение клиенту.
	writeWait = 10 * time.Second

	// Время, которое разрешено клиенту читать следующее сообщение.
	pongWait = 60 * time.Second

	// Периодичность отправки ping-сообщений клиенту.
	pingPeriod = (pongWait * 9) / 10

	// Предел чтения сокета. Выше лимита кадра, чтобы кадр размером
	// чуть больше MaxFrameSize получил ошибку 413, а не обрыв соединения.
	readLimit = 4 * MaxFrameSize

	// Размер буфера канала отправки сообщений клиенту
	defaultClientBufferSize = 128

	// Окно счетчика входящих кадров
	rateWindow = time.Second
)

// Client является посредником между WebSocket соединением и hub.
type Client struct {
	// ID аутентифицированного пользователя
	UserID uint

	// Уникальный ID для каждого соединения
	ConnectionID string

	hub  *Hub
	conn *websocket.Conn

	// Буферизованный канал для исходящих сообщений
	send chan []byte

	// Закрывается при отключении клиента. Сам канал send не закрывается
	// никогда: enqueue из рассылки может гоняться с отключением,
	// и запись в закрытый канал паникует.
	done chan struct{}

	// Флаг отключения (для идемпотентности closeSend)
	sendClosed atomic.Bool

	// Счетчик кадров в текущем окне. Трогается только из readPump.
	windowStart time.Time
	windowCount int

	// Лимит кадров на окно
	messagesPerWindow int
}

// NewClient создает клиента для установленного соединения
func NewClient(hub *Hub, conn *websocket.Conn, userID uint, messagesPerWindow int) *Client {
	if messagesPerWindow <= 0 {
		messagesPerWindow = 10
	}
	return &Client{
		UserID:            userID,
		ConnectionID:      uuid.New().String(),
		hub:               hub,
		conn:              conn,
		send:              make(chan []byte, defaultClientBufferSize),
		done:              make(chan struct{}),
		messagesPerWindow: messagesPerWindow,
	}
}

// allowFrame регистрирует входящий кадр в окне лимитера.
// Возвращает false, когда лимит окна исчерпан и кадр нужно отбросить.
func (c *Client) allowFrame(now time.Time) bool {
	if now.Sub(c.windowStart) >= rateWindow {
		c.windowStart = now
		c.windowCount = 0
	}
	c.windowCount++
	return c.windowCount <= c.messagesPerWindow
}

// ReadPump читает сообщения из WebSocket и передает их hub.
// Запускается в отдельной горутине на каждое соединение.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Detach(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WebSocket] Неожиданное закрытие соединения %s (user=%d): %v", c.ConnectionID, c.UserID, err)
			}
			return
		}

		// Кадры сверх лимита окна отбрасываются, соединение не рвется
		if !c.allowFrame(time.Now()) {
			c.hub.SendError(c, CodeRateLimited, ReasonRateLimited)
			continue
		}

		c.hub.HandleFrame(c, data)
	}
}

// WritePump пишет сообщения из канала send в WebSocket.
// Запускается в отдельной горутине на каждое соединение.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-c.done:
			// Дописываем то, что уже лежало в буфере, и прощаемся
			for {
				select {
				case message := <-c.send:
					c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
						return
					}
				default:
					c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					c.conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
					return
				}
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue кладет сообщение в буфер отправки.
// Возвращает false, если буфер переполнен или клиент отключен.
func (c *Client) enqueue(message []byte) bool {
	if c.sendClosed.Load() {
		return false
	}
	select {
	case <-c.done:
		return false
	case c.send <- message:
		return true
	default:
		return false
	}
}

// closeSend помечает клиента отключенным ровно один раз.
// WritePump увидит done, дольет буфер и отправит close frame.
func (c *Client) closeSend() {
	if c.sendClosed.CompareAndSwap(false, true) {
		close(c.done)
	}
}
