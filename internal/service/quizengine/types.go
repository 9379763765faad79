package quizengine

import (
	"errors"
	"time"

	"github.com/yourusername/quizroom-api/internal/domain/entity"
	"github.com/yourusername/quizroom-api/internal/domain/repository"
	"github.com/yourusername/quizroom-api/internal/websocket"
)

// Ошибки движка викторины
var (
	// ErrNotHost - запуск викторины доступен только хосту комнаты
	ErrNotHost = errors.New("only the room host can start the quiz")

	// ErrNotParticipant - отправитель не состоит в комнате
	ErrNotParticipant = errors.New("user is not a participant of the room")

	// ErrQuizAlreadyRunning - викторина уже запущена или завершена
	ErrQuizAlreadyRunning = errors.New("quiz is already running in this room")

	// ErrQuestionNotActive - индекс вопроса не совпадает с активным
	ErrQuestionNotActive = errors.New("question is not active")

	// ErrQuestionExpired - время вопроса истекло
	ErrQuestionExpired = errors.New("question time limit has expired")

	// ErrInsufficientQuestions - в банке недостаточно вопросов
	ErrInsufficientQuestions = errors.New("not enough questions in the bank")

	// ErrRoomDead - комната завершила жизненный цикл
	ErrRoomDead = errors.New("room is no longer active")
)

// Config содержит тайминги и параметры викторины.
// Вынесены в структуру, чтобы тесты могли сжать задержки до миллисекунд.
type Config struct {
	// StartDelay - пауза между quizStarting и первым вопросом
	StartDelay time.Duration

	// QuestionTimeLimit - время на ответ
	QuestionTimeLimit time.Duration

	// NextQuestionDelay - пауза между endQuestion и следующим вопросом
	NextQuestionDelay time.Duration

	// QuestionsPerQuiz - число вопросов в одной викторине
	QuestionsPerQuiz int

	// DeadRoomTTL - сколько мертвая комната живет в памяти до вычистки
	DeadRoomTTL time.Duration
}

// DefaultConfig возвращает боевые тайминги
func DefaultConfig() Config {
	return Config{
		StartDelay:        5 * time.Second,
		QuestionTimeLimit: 10 * time.Second,
		NextQuestionDelay: 3 * time.Second,
		QuestionsPerQuiz:  10,
		DeadRoomTTL:       30 * time.Minute,
	}
}

// Broadcaster рассылает сообщение всем соединениям комнаты.
// Реализуется websocket.Hub.
type Broadcaster interface {
	BroadcastToRoom(roomID string, messageType string, payload interface{})
}

// RoomStore дает движку доступ к комнатам
type RoomStore interface {
	GetByID(id string) (*entity.Room, error)
	Deactivate(id string) error
}

// MembershipStore дает движку доступ к членству в комнатах
type MembershipStore interface {
	Join(userID uint, roomID string) (*repository.JoinResult, error)
	Leave(userID uint, roomID string) error
	ListByRoom(roomID string) ([]repository.ParticipantInfo, error)
}

// QuestionSource выбирает вопросы для викторины
type QuestionSource interface {
	GetRandomQuestions(limit int) ([]entity.Question, error)
}

// ResultStore фиксирует выигрышные заявки и строит финальную таблицу
type ResultStore interface {
	// RecordWin атомарно сохраняет заявку и начисляет очко
	RecordWin(claim *entity.AnswerClaim) error

	// FinalStandings возвращает таблицу комнаты с обновленными рейтингами
	FinalStandings(roomID string) ([]websocket.StandingEntry, error)
}

// Фазы жизненного цикла комнаты
const (
	PhaseLobby    = "lobby"
	PhaseStarting = "starting"
	PhaseAsking   = "asking"
	PhaseReveal   = "reveal"
	PhaseFinished = "finished"
	PhaseDead     = "dead"
)

// JoinSnapshot - результат входа в комнату: снимок состояния для клиента
type JoinSnapshot struct {
	RoomID        string
	Phase         string
	QuestionIndex *int
	Participants  []websocket.ParticipantSummary
	UserName      string
	AlreadyJoined bool
}
