package entity

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Границы вместимости комнаты
const (
	MinRoomPlayers = 2
	MaxRoomPlayers = 10
)

// Room представляет игровую комнату, принадлежащую пользователю-хосту.
// В комнате единовременно может идти не более одной викторины.
type Room struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	HostID       uint      `gorm:"not null;index" json:"host_id"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	MaxPlayers   int       `gorm:"not null" json:"max_players"`
	PasswordHash *string   `gorm:"size:100" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Room) TableName() string {
	return "rooms"
}

// IsCapacityValid проверяет, что вместимость комнаты в допустимых границах
func (r *Room) IsCapacityValid() bool {
	return r.MaxPlayers >= MinRoomPlayers && r.MaxPlayers <= MaxRoomPlayers
}

// SetPassword хеширует и устанавливает пароль комнаты.
// Пустой пароль означает открытую комнату (hash = NULL).
func (r *Room) SetPassword(password string) error {
	if password == "" {
		r.PasswordHash = nil
		return nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	h := string(hashed)
	r.PasswordHash = &h
	return nil
}

// CheckPassword проверяет пароль комнаты. Открытая комната принимает любой пароль.
func (r *Room) CheckPassword(password string) bool {
	if r.PasswordHash == nil {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(*r.PasswordHash), []byte(password)) == nil
}
