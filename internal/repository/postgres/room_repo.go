package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/quizroom-api/internal/domain/entity"
	apperrors "github.com/yourusername/quizroom-api/internal/pkg/errors"
)

// RoomRepo реализует repository.RoomRepository
type RoomRepo struct {
	db *gorm.DB
}

// NewRoomRepo создает новый репозиторий комнат
func NewRoomRepo(db *gorm.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// Create создает новую комнату
func (r *RoomRepo) Create(room *entity.Room) error {
	return r.db.Create(room).Error
}

// GetByID возвращает комнату по ID
func (r *RoomRepo) GetByID(id string) (*entity.Room, error) {
	var room entity.Room
	err := r.db.First(&room, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &room, nil
}

// ListActive возвращает все активные комнаты
func (r *RoomRepo) ListActive() ([]entity.Room, error) {
	var rooms []entity.Room
	err := r.db.Where("is_active = ?", true).Order("created_at DESC").Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

// Deactivate помечает комнату как неактивную
func (r *RoomRepo) Deactivate(id string) error {
	result := r.db.Model(&entity.Room{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
