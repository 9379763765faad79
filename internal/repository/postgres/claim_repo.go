package postgres

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/yourusername/quizroom-api/internal/domain/entity"
	"github.com/yourusername/quizroom-api/internal/domain/repository"
	apperrors "github.com/yourusername/quizroom-api/internal/pkg/errors"
)

// ClaimRepo реализует repository.ClaimRepository
type ClaimRepo struct {
	db *gorm.DB
}

// NewClaimRepo создает новый репозиторий выигрышных заявок
func NewClaimRepo(db *gorm.DB) *ClaimRepo {
	return &ClaimRepo{db: db}
}

// RecordClaim вставляет заявку и увеличивает счет участника в одной транзакции.
// Инвариант "score участника равен числу его заявок в комнате" держится
// именно на атомарности этой пары операций.
func (r *ClaimRepo) RecordClaim(claim *entity.AnswerClaim) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(claim).Error; err != nil {
			// 23505 - unique_violation: заявка на этот вопрос уже существует
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return repository.ErrDuplicateClaim
			}
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return repository.ErrDuplicateClaim
			}
			return err
		}

		result := tx.Model(&entity.RoomParticipant{}).
			Where("room_id = ? AND user_id = ?", claim.RoomID, claim.UserID).
			UpdateColumn("score", gorm.Expr("score + 1"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// Участник успел покинуть комнату между арбитражем и записью
			return apperrors.ErrNotFound
		}
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
}

// ListByRoom возвращает все заявки комнаты в порядке вопросов
func (r *ClaimRepo) ListByRoom(roomID string) ([]entity.AnswerClaim, error) {
	var claims []entity.AnswerClaim
	err := r.db.Where("room_id = ?", roomID).Order("question_index").Find(&claims).Error
	if err != nil {
		return nil, err
	}
	return claims, nil
}
