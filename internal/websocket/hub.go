package websocket

import (
	"errors"
	"log"
	"sync"
)

// ErrConnectionLimit возвращается при превышении лимита соединений пользователя
var ErrConnectionLimit = errors.New("connection limit reached for user")

// ErrHubClosed возвращается при попытке подключения после остановки hub
var ErrHubClosed = errors.New("hub is shut down")

// FrameHandler обрабатывает входящий кадр клиента.
// Hub не знает семантики кадров, только их доставку.
type FrameHandler interface {
	HandleFrame(client *Client, data []byte)
}

// HubConfig содержит настройки hub
type HubConfig struct {
	// MaxConnectionsPerUser ограничивает число одновременных соединений
	// одного пользователя
	MaxConnectionsPerUser int
}

// DefaultHubConfig возвращает конфигурацию hub по умолчанию
func DefaultHubConfig() HubConfig {
	return HubConfig{MaxConnectionsPerUser: 3}
}

// Hub отслеживает активные соединения и их членство в комнатах.
// Все карты защищены одним мьютексом: операций немного и они короткие.
type Hub struct {
	mu sync.RWMutex

	// Соединения по пользователю (у пользователя может быть до N вкладок)
	clientsByUser map[uint]map[*Client]struct{}

	// Соединения по комнате, адресаты BroadcastToRoom
	rooms map[string]map[*Client]struct{}

	// Комната каждого соединения (пустая строка - вне комнаты)
	clientRoom map[*Client]string

	config  HubConfig
	handler FrameHandler

	// Вызывается, когда последнее соединение пользователя покидает комнату
	// не отправив leaveRoom (обрыв сети, закрытая вкладка)
	onImplicitLeave func(userID uint, roomID string)

	closed bool
}

// NewHub создает новый hub
func NewHub(config HubConfig) *Hub {
	if config.MaxConnectionsPerUser <= 0 {
		config.MaxConnectionsPerUser = DefaultHubConfig().MaxConnectionsPerUser
	}
	return &Hub{
		clientsByUser: make(map[uint]map[*Client]struct{}),
		rooms:         make(map[string]map[*Client]struct{}),
		clientRoom:    make(map[*Client]string),
		config:        config,
	}
}

// SetFrameHandler устанавливает обработчик входящих кадров.
// Вызывается один раз при сборке приложения, до первого соединения.
func (h *Hub) SetFrameHandler(handler FrameHandler) {
	h.handler = handler
}

// SetImplicitLeaveCallback устанавливает обработчик неявного выхода из комнаты
func (h *Hub) SetImplicitLeaveCallback(fn func(userID uint, roomID string)) {
	h.onImplicitLeave = fn
}

// HandleFrame передает кадр установленному обработчику
func (h *Hub) HandleFrame(client *Client, data []byte) {
	if h.handler != nil {
		h.handler.HandleFrame(client, data)
	}
}

// Attach регистрирует новое соединение.
// Возвращает ErrConnectionLimit при превышении лимита на пользователя.
func (h *Hub) Attach(client *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}

	conns := h.clientsByUser[client.UserID]
	if len(conns) >= h.config.MaxConnectionsPerUser {
		return ErrConnectionLimit
	}
	if conns == nil {
		conns = make(map[*Client]struct{})
		h.clientsByUser[client.UserID] = conns
	}
	conns[client] = struct{}{}

	log.Printf("[Hub] Соединение %s пользователя %d подключено (всего у пользователя: %d)",
		client.ConnectionID, client.UserID, len(conns))
	return nil
}

// Detach снимает регистрацию соединения. Идемпотентен: повторный вызов
// для уже отключенного клиента ничего не делает.
func (h *Hub) Detach(client *Client) {
	h.mu.Lock()

	conns, ok := h.clientsByUser[client.UserID]
	if !ok {
		h.mu.Unlock()
		client.closeSend()
		return
	}
	if _, ok := conns[client]; !ok {
		h.mu.Unlock()
		client.closeSend()
		return
	}
	delete(conns, client)
	if len(conns) == 0 {
		delete(h.clientsByUser, client.UserID)
	}

	roomID := h.clientRoom[client]
	delete(h.clientRoom, client)

	var implicitLeave bool
	if roomID != "" {
		if members := h.rooms[roomID]; members != nil {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, roomID)
			}
		}
		// Неявный выход только когда в комнате не осталось других
		// соединений этого пользователя
		implicitLeave = !h.userInRoomLocked(client.UserID, roomID)
	}
	h.mu.Unlock()

	client.closeSend()
	log.Printf("[Hub] Соединение %s пользователя %d отключено", client.ConnectionID, client.UserID)

	if implicitLeave && h.onImplicitLeave != nil {
		h.onImplicitLeave(client.UserID, roomID)
	}
}

// userInRoomLocked проверяет, есть ли у пользователя соединения в комнате.
// Вызывается под мьютексом.
func (h *Hub) userInRoomLocked(userID uint, roomID string) bool {
	for member := range h.rooms[roomID] {
		if member.UserID == userID {
			return true
		}
	}
	return false
}

// JoinRoom привязывает соединение к комнате для рассылок.
// Соединение может состоять только в одной комнате.
func (h *Hub) JoinRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev := h.clientRoom[client]; prev != "" && prev != roomID {
		if members := h.rooms[prev]; members != nil {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, prev)
			}
		}
	}

	members := h.rooms[roomID]
	if members == nil {
		members = make(map[*Client]struct{})
		h.rooms[roomID] = members
	}
	members[client] = struct{}{}
	h.clientRoom[client] = roomID
}

// ClientRoom возвращает комнату, к которой привязано соединение.
// Пустая строка означает, что соединение вне комнат.
func (h *Hub) ClientRoom(client *Client) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clientRoom[client]
}

// DropFromRoom отвязывает одно соединение от его комнаты.
// Используется для отката JoinRoom, когда вход в комнату не удался.
func (h *Hub) DropFromRoom(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	roomID := h.clientRoom[client]
	if roomID == "" {
		return
	}
	delete(h.clientRoom, client)
	if members := h.rooms[roomID]; members != nil {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// LeaveRoom отвязывает соединения пользователя от комнаты.
// Отвязываются все соединения: выход из комнаты действует на пользователя,
// а не на отдельную вкладку.
func (h *Hub) LeaveRoom(userID uint, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members := h.rooms[roomID]
	for member := range members {
		if member.UserID == userID {
			delete(members, member)
			delete(h.clientRoom, member)
		}
	}
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
}

// BroadcastToRoom рассылает сообщение всем соединениям комнаты.
// Сообщение сериализуется один раз. Соединение с переполненным буфером
// отключается: медленный клиент не должен тормозить комнату.
func (h *Hub) BroadcastToRoom(roomID string, messageType string, payload interface{}) {
	data, err := EncodeFrame(messageType, payload)
	if err != nil {
		log.Printf("[Hub] Ошибка сериализации сообщения %s для комнаты %s: %v", messageType, roomID, err)
		return
	}

	h.mu.RLock()
	var slow []*Client
	for member := range h.rooms[roomID] {
		if !member.enqueue(data) {
			slow = append(slow, member)
		}
	}
	h.mu.RUnlock()

	for _, member := range slow {
		log.Printf("[Hub] Буфер соединения %s переполнен, отключаем", member.ConnectionID)
		h.Detach(member)
	}
}

// SendMessage отправляет сообщение одному соединению
func (h *Hub) SendMessage(client *Client, messageType string, payload interface{}) {
	data, err := EncodeFrame(messageType, payload)
	if err != nil {
		log.Printf("[Hub] Ошибка сериализации сообщения %s: %v", messageType, err)
		return
	}
	if !client.enqueue(data) {
		h.Detach(client)
	}
}

// SendError отправляет клиенту кадр ошибки
func (h *Hub) SendError(client *Client, code int, reason string) {
	h.SendMessage(client, MessageTypeError, ErrorPayload{Code: code, Message: reason})
}

// RoomMemberCount возвращает число соединений в комнате
func (h *Hub) RoomMemberCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// ConnectionCount возвращает общее число активных соединений
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, conns := range h.clientsByUser {
		total += len(conns)
	}
	return total
}

// Shutdown закрывает все соединения. Новые подключения после вызова
// отклоняются с ErrHubClosed.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	var all []*Client
	for _, conns := range h.clientsByUser {
		for client := range conns {
			all = append(all, client)
		}
	}
	h.clientsByUser = make(map[uint]map[*Client]struct{})
	h.rooms = make(map[string]map[*Client]struct{})
	h.clientRoom = make(map[*Client]string)
	h.mu.Unlock()

	for _, client := range all {
		// closeSend заставит WritePump отправить close frame GoingAway
		client.closeSend()
	}
	log.Printf("[Hub] Остановлен, закрыто соединений: %d", len(all))
}
