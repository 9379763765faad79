package repository

import "github.com/yourusername/quizroom-api/internal/domain/entity"

// UserRepository определяет методы для работы с пользователями
type UserRepository interface {
	Create(user *entity.User) error
	GetByID(id uint) (*entity.User, error)
	GetByEmail(email string) (*entity.User, error)
	GetByIDs(ids []uint) ([]entity.User, error)
}
