package handler

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/quizroom-api/internal/domain/repository"
	"github.com/yourusername/quizroom-api/internal/middleware"
	"github.com/yourusername/quizroom-api/internal/websocket"
	"github.com/yourusername/quizroom-api/pkg/auth"
)

// Dependencies собирает все зависимости HTTP-слоя
type Dependencies struct {
	AuthHandler     *AuthHandler
	RoomHandler     *RoomHandler
	QuestionHandler *QuestionHandler
	WSHandler       *WSHandler
	RateLimiter     *middleware.RateLimiter
	Verifier        auth.SessionVerifier
	UserRepo        repository.UserRepository
	Hub             *websocket.Hub

	// ActiveRooms возвращает число комнат с работающим исполнителем
	ActiveRooms func() int
}

// NewRouter настраивает маршруты приложения
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		activeRooms := 0
		if deps.ActiveRooms != nil {
			activeRooms = deps.ActiveRooms()
		}
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"connections": deps.Hub.ConnectionCount(),
			"activeRooms": activeRooms,
		})
	})

	authRequired := middleware.AuthMiddleware(deps.Verifier)
	adminRequired := middleware.AdminMiddleware(deps.UserRepo)
	api := router.Group("/api")
	api.Use(deps.RateLimiter.Limit(middleware.DefaultAPIRateLimitConfig()))

	authGroup := api.Group("/auth")
	{
		strict := deps.RateLimiter.Limit(middleware.StrictAuthRateLimitConfig())
		authGroup.POST("/register", strict, deps.AuthHandler.Register)
		authGroup.POST("/login", strict, deps.AuthHandler.Login)
	}

	api.GET("/users/me", authRequired, deps.AuthHandler.Me)

	rooms := api.Group("/rooms")
	{
		rooms.GET("", deps.RoomHandler.List)
		rooms.GET("/:id", deps.RoomHandler.Get)
		rooms.POST("", authRequired, deps.RoomHandler.Create)
		rooms.DELETE("/:id", authRequired, deps.RoomHandler.Delete)
	}

	questions := api.Group("/questions")
	{
		questions.GET("/count", deps.QuestionHandler.Count)
		// Банк вопросов пишут только администраторы
		questions.POST("", authRequired, adminRequired, deps.QuestionHandler.AddBatch)
		questions.POST("/import", authRequired, adminRequired, deps.QuestionHandler.Import)
	}

	router.GET("/ws", deps.WSHandler.HandleConnection)

	return router
}
