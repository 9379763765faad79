package entity

import "time"

// RoomParticipant представляет пользователя, занявшего место в комнате.
// Пара (RoomID, UserID) уникальна; пользователь может находиться
// не более чем в одной комнате одновременно (контролируется хранилищем участников).
type RoomParticipant struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	RoomID   string    `gorm:"size:36;not null;uniqueIndex:idx_participants_room_user;index" json:"room_id"`
	UserID   uint      `gorm:"not null;uniqueIndex:idx_participants_room_user;index" json:"user_id"`
	Score    int       `gorm:"not null;default:0" json:"score"`
	JoinedAt time.Time `gorm:"not null" json:"joined_at"`
}

// TableName определяет имя таблицы для GORM
func (RoomParticipant) TableName() string {
	return "room_participants"
}
