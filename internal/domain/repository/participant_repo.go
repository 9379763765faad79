package repository

import (
	"time"

	"github.com/yourusername/quizroom-api/internal/domain/entity"
)

// JoinResult описывает результат входа пользователя в комнату
type JoinResult struct {
	// UserName - отображаемое имя пользователя на момент входа.
	// Берется из таблицы users внутри той же транзакции.
	UserName string

	// AlreadyJoined = true, если пользователь уже занимал место в этой
	// комнате. Повторный вход идемпотентен и не порождает дубликата.
	AlreadyJoined bool
}

// ParticipantInfo - участник комнаты вместе с отображаемым именем
type ParticipantInfo struct {
	UserID   uint      `json:"user_id"`
	UserName string    `json:"user_name"`
	Score    int       `json:"score"`
	JoinedAt time.Time `json:"joined_at"`
}

// ParticipantRepository - авторитетное хранилище множества (комната -> участники).
// Все проверки входа выполняются в одной сериализуемой транзакции,
// чтобы исключить гонку за последнее место в комнате.
type ParticipantRepository interface {
	// Join проверяет существование и активность комнаты, наличие свободного
	// места и отсутствие пользователя в другой комнате, затем идемпотентно
	// создает запись участника. Ошибки: ErrRoomNotFound, ErrRoomInactive,
	// ErrRoomFull, ErrAlreadyInOtherRoom.
	Join(userID uint, roomID string) (*JoinResult, error)

	// Leave удаляет запись участника; идемпотентна.
	Leave(userID uint, roomID string) error

	// ListByRoom возвращает участников комнаты с именами.
	ListByRoom(roomID string) ([]ParticipantInfo, error)

	// Get возвращает запись участника или apperrors.ErrNotFound.
	Get(userID uint, roomID string) (*entity.RoomParticipant, error)
}
