package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yourusername/quizroom-api/internal/config"
	"github.com/yourusername/quizroom-api/internal/handler"
	"github.com/yourusername/quizroom-api/internal/middleware"
	redisRepo "github.com/yourusername/quizroom-api/internal/repository/redis"

	postgresRepo "github.com/yourusername/quizroom-api/internal/repository/postgres"
	"github.com/yourusername/quizroom-api/internal/service"
	"github.com/yourusername/quizroom-api/internal/service/quizengine"
	"github.com/yourusername/quizroom-api/internal/websocket"
	"github.com/yourusername/quizroom-api/pkg/auth"
	"github.com/yourusername/quizroom-api/pkg/database"
)

const (
	// Период обхода супервизора комнат
	sweepInterval = 60 * time.Second

	// Время на корректное завершение при остановке
	shutdownTimeout = 10 * time.Second
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "путь к файлу конфигурации")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[Main] Ошибка загрузки конфигурации: %v", err)
	}

	// Подключение к PostgreSQL и миграции
	db, err := database.NewPostgresDB(cfg.Database.URL)
	if err != nil {
		log.Fatalf("[Main] Ошибка подключения к PostgreSQL: %v", err)
	}
	if err := database.MigrateDB(db); err != nil {
		log.Fatalf("[Main] Ошибка миграции базы данных: %v", err)
	}

	// Подключение к Redis
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Fatalf("[Main] Ошибка подключения к Redis: %v", err)
	}

	// Репозитории
	userRepo := postgresRepo.NewUserRepo(db)
	roomRepo := postgresRepo.NewRoomRepo(db)
	participantRepo := postgresRepo.NewParticipantRepo(db)
	questionRepo := postgresRepo.NewQuestionRepo(db)
	claimRepo := postgresRepo.NewClaimRepo(db)
	ratingRepo := postgresRepo.NewRatingRepo(db)
	cacheRepo := redisRepo.NewCacheRepo(redisClient)

	// Сессионные токены
	sessionService, err := auth.NewSessionService(cfg.Session.Secret, cfg.Session.ExpirationHrs)
	if err != nil {
		log.Fatalf("[Main] Ошибка инициализации сессий: %v", err)
	}

	// WebSocket hub и движок викторин
	hub := websocket.NewHub(websocket.HubConfig{
		MaxConnectionsPerUser: cfg.WebSocket.Limits.MaxConnectionsPerUser,
	})
	scoreService := service.NewScoreService(claimRepo, participantRepo, ratingRepo)
	engine := quizengine.NewEngine(
		quizengine.DefaultConfig(),
		hub,
		roomRepo,
		participantRepo,
		questionRepo,
		scoreService,
	)

	dispatcher := handler.NewWSDispatcher(hub, engine)
	hub.SetFrameHandler(dispatcher)
	hub.SetImplicitLeaveCallback(func(userID uint, roomID string) {
		if err := engine.Leave(userID, roomID); err != nil {
			log.Printf("[Main] Ошибка неявного выхода пользователя %d из комнаты %s: %v", userID, roomID, err)
		}
	})

	// Сервисы и обработчики
	authService := service.NewAuthService(userRepo, sessionService)
	roomService := service.NewRoomService(roomRepo, participantRepo, cacheRepo)
	questionService := service.NewQuestionService(questionRepo)

	router := handler.NewRouter(handler.Dependencies{
		AuthHandler:     handler.NewAuthHandler(authService),
		RoomHandler:     handler.NewRoomHandler(roomService),
		QuestionHandler: handler.NewQuestionHandler(questionService),
		WSHandler:       handler.NewWSHandler(hub, sessionService, cfg.WebSocket.Limits.MessagesPerSecond),
		RateLimiter:     middleware.NewRateLimiter(redisClient),
		Verifier:        sessionService,
		UserRepo:        userRepo,
		Hub:             hub,
		ActiveRooms:     engine.ActiveRoomCount,
	})

	// Супервизор: периодическая вычистка мертвых комнат
	supervisorCtx, stopSupervisor := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				engine.SweepDeadRooms(now)
			case <-supervisorCtx.Done():
				return
			}
		}
	}()

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("[Main] Сервер запущен на порту %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[Main] Ошибка HTTP-сервера: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("[Main] Получен сигнал завершения, останавливаемся...")

	stopSupervisor()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Сначала закрываем WebSocket-соединения, потом HTTP
	hub.Shutdown()
	engine.Shutdown()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("[Main] Ошибка остановки HTTP-сервера: %v", err)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("[Main] Ошибка закрытия Redis: %v", err)
	}
	if sqlDB, err := database.GetSQLDB(db); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("[Main] Ошибка закрытия PostgreSQL: %v", err)
		}
	}

	log.Println("[Main] Сервер остановлен")
}
