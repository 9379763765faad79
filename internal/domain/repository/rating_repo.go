package repository

import "github.com/yourusername/quizroom-api/internal/domain/entity"

// RatingRepository определяет методы для работы с рейтингами игроков
type RatingRepository interface {
	// GetMany возвращает рейтинги перечисленных пользователей.
	// Для пользователей без записи рейтинг считается стартовым (1200).
	GetMany(userIDs []uint) (map[uint]int, error)

	// UpsertBatch сохраняет новые рейтинги в одной транзакции
	// (insert или update по первичному ключу user_id).
	UpsertBatch(ratings []entity.PlayerRating) error
}
