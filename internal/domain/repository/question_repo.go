package repository

import "github.com/yourusername/quizroom-api/internal/domain/entity"

// QuestionRepository определяет методы для работы с банком вопросов
type QuestionRepository interface {
	Create(question *entity.Question) error
	CreateBatch(questions []entity.Question) error
	GetByID(id uint) (*entity.Question, error)
	// GetRandomQuestions возвращает случайную выборку вопросов банка.
	// Банк опрашивается один раз за викторину.
	GetRandomQuestions(limit int) ([]entity.Question, error)
	Count() (int64, error)
}
