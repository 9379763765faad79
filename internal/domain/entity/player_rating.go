package entity

import "time"

// InitialRating - стартовый рейтинг игрока
const InitialRating = 1200

// PlayerRating хранит рейтинг игрока. Изменяется только при завершении викторины.
type PlayerRating struct {
	UserID    uint      `gorm:"primaryKey" json:"user_id"`
	Rating    int       `gorm:"not null;default:1200" json:"rating"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (PlayerRating) TableName() string {
	return "player_ratings"
}

// NextRating вычисляет новый рейтинг по итогам викторины:
// база не ниже стартовой, плюс 10 очков за каждый выигранный вопрос.
func NextRating(prevRating int, score int) int {
	base := prevRating
	if base < InitialRating {
		base = InitialRating
	}
	return base + score*10
}
