package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// QuestionOptionCount - ровно столько вариантов ответа у каждого вопроса
const QuestionOptionCount = 4

// StringArray - пользовательский тип для работы с JSONB
type StringArray []string

// Scan реализует интерфейс sql.Scanner для StringArray
// Используется GORM для чтения JSONB данных из базы
func (o *StringArray) Scan(value interface{}) error {
	// Обработка NULL значений из базы данных
	if value == nil {
		*o = StringArray{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	if len(bytes) == 0 {
		*o = StringArray{}
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// Value реализует интерфейс driver.Valuer для StringArray
// Используется GORM для записи StringArray в JSONB в базе
func (o StringArray) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil // Возвращаем пустой JSON массив вместо null
	}
	return json.Marshal(o)
}

// Question представляет вопрос банка вопросов
type Question struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	Text          string      `gorm:"size:500;not null" json:"text"`
	Options       StringArray `gorm:"type:jsonb;not null" json:"options"`
	CorrectOption int         `gorm:"not null" json:"-"` // Скрыто от клиента
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "questions"
}

// IsCorrect проверяет, является ли выбранный вариант правильным
func (q *Question) IsCorrect(selectedOption int) bool {
	return selectedOption == q.CorrectOption
}

// IsValidOption проверяет, является ли выбранный вариант допустимым
func (q *Question) IsValidOption(selectedOption int) bool {
	return selectedOption >= 0 && selectedOption < len(q.Options)
}

// Validate проверяет инварианты вопроса: непустой текст,
// ровно четыре варианта и корректный индекс правильного ответа
func (q *Question) Validate() error {
	if q.Text == "" {
		return errors.New("question text must not be empty")
	}
	if len(q.Options) != QuestionOptionCount {
		return errors.New("question must have exactly 4 options")
	}
	for _, opt := range q.Options {
		if opt == "" {
			return errors.New("question option must not be empty")
		}
	}
	if q.CorrectOption < 0 || q.CorrectOption >= QuestionOptionCount {
		return errors.New("correct option index out of range")
	}
	return nil
}
