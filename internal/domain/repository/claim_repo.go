package repository

import "github.com/yourusername/quizroom-api/internal/domain/entity"

// ClaimRepository определяет методы для работы с выигрышными заявками
type ClaimRepository interface {
	// RecordClaim в одной транзакции вставляет заявку и увеличивает счет
	// участника на 1. Уникальный индекс (room_id, question_index) -
	// долговременная страховка: при конфликте возвращается ErrDuplicateClaim,
	// и счет участника не изменяется.
	RecordClaim(claim *entity.AnswerClaim) error

	// ListByRoom возвращает все заявки комнаты.
	ListByRoom(roomID string) ([]entity.AnswerClaim, error)
}
