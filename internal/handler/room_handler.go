package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/quizroom-api/internal/middleware"
	"github.com/yourusername/quizroom-api/internal/service"
)

// RoomHandler обрабатывает HTTP-запросы к комнатам
type RoomHandler struct {
	roomService *service.RoomService
}

// NewRoomHandler создает новый обработчик комнат
func NewRoomHandler(roomService *service.RoomService) *RoomHandler {
	return &RoomHandler{roomService: roomService}
}

// CreateRoomRequest представляет запрос на создание комнаты
type CreateRoomRequest struct {
	Name       string `json:"name" binding:"required,min=1,max=100"`
	MaxPlayers int    `json:"maxPlayers" binding:"required"`
	Password   string `json:"password" binding:"omitempty,min=4,max=50"`
}

// Create обрабатывает POST /api/rooms
func (h *RoomHandler) Create(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.roomService.CreateRoom(c.Request.Context(), userID, req.Name, req.MaxPlayers, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"room": room})
}

// List обрабатывает GET /api/rooms
func (h *RoomHandler) List(c *gin.Context) {
	rooms, err := h.roomService.ListActiveRooms(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// Get обрабатывает GET /api/rooms/:id
func (h *RoomHandler) Get(c *gin.Context) {
	room, participants, err := h.roomService.GetRoom(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"room":         room,
		"participants": participants,
	})
}

// Delete обрабатывает DELETE /api/rooms/:id. Доступно только хосту.
func (h *RoomHandler) Delete(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	if err := h.roomService.DeleteRoom(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
