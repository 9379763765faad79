package repository

import "github.com/yourusername/quizroom-api/internal/domain/entity"

// RoomRepository определяет методы для работы с комнатами
type RoomRepository interface {
	Create(room *entity.Room) error
	GetByID(id string) (*entity.Room, error)
	ListActive() ([]entity.Room, error)
	// Deactivate переводит комнату в неактивное состояние: новые участники
	// не принимаются, викторина в ней больше не может быть запущена.
	Deactivate(id string) error
}
