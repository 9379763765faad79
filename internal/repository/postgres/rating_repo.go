package postgres

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/quizroom-api/internal/domain/entity"
)

// RatingRepo реализует repository.RatingRepository
type RatingRepo struct {
	db *gorm.DB
}

// NewRatingRepo создает новый репозиторий рейтингов
func NewRatingRepo(db *gorm.DB) *RatingRepo {
	return &RatingRepo{db: db}
}

// GetMany возвращает рейтинги перечисленных пользователей.
// Пользователи без записи получают стартовый рейтинг.
func (r *RatingRepo) GetMany(userIDs []uint) (map[uint]int, error) {
	ratings := make(map[uint]int, len(userIDs))
	for _, id := range userIDs {
		ratings[id] = entity.InitialRating
	}
	if len(userIDs) == 0 {
		return ratings, nil
	}

	var rows []entity.PlayerRating
	if err := r.db.Where("user_id IN ?", userIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		ratings[row.UserID] = row.Rating
	}
	return ratings, nil
}

// UpsertBatch сохраняет рейтинги одной транзакцией: insert или update по user_id
func (r *RatingRepo) UpsertBatch(ratings []entity.PlayerRating) error {
	if len(ratings) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "updated_at"}),
		}).Create(&ratings).Error
	})
}
