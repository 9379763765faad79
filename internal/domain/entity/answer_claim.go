package entity

import (
	"fmt"
	"time"
)

// AnswerClaim - долговременная запись о том, что участник первым дал
// правильный ответ на вопрос викторины в комнате.
// Пара (RoomID, QuestionIndex) уникальна: не более одного победителя на вопрос.
type AnswerClaim struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	RoomID        string    `gorm:"size:36;not null;uniqueIndex:idx_claims_room_question" json:"room_id"`
	QuestionIndex int       `gorm:"not null;uniqueIndex:idx_claims_room_question" json:"question_index"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	TxHash        string    `gorm:"size:120;not null" json:"tx_hash"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (AnswerClaim) TableName() string {
	return "answer_claims"
}

// ClaimTxHash формирует синтетический идентификатор выигрышной заявки
func ClaimTxHash(roomID string, questionIndex int, userID uint, at time.Time) string {
	return fmt.Sprintf("claim_%s_%d_%d_%d", roomID, questionIndex, userID, at.UnixMilli())
}
