package service

import (
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/yourusername/quizroom-api/internal/domain/entity"
	"github.com/yourusername/quizroom-api/internal/domain/repository"
	apperrors "github.com/yourusername/quizroom-api/internal/pkg/errors"
)

// QuestionInput - вопрос, присланный через API
type QuestionInput struct {
	Text          string   `json:"text" binding:"required"`
	Options       []string `json:"options" binding:"required"`
	CorrectOption int      `json:"correctOption"`
}

// QuestionService управляет банком вопросов
type QuestionService struct {
	questionRepo repository.QuestionRepository
}

// NewQuestionService создает новый сервис вопросов
func NewQuestionService(questionRepo repository.QuestionRepository) *QuestionService {
	return &QuestionService{questionRepo: questionRepo}
}

// AddQuestions валидирует и сохраняет пакет вопросов
func (s *QuestionService) AddQuestions(inputs []QuestionInput) (int, error) {
	if len(inputs) == 0 {
		return 0, fmt.Errorf("%w: question list is empty", apperrors.ErrValidation)
	}

	questions := make([]entity.Question, 0, len(inputs))
	for i, input := range inputs {
		question := entity.Question{
			Text:          input.Text,
			Options:       entity.StringArray(input.Options),
			CorrectOption: input.CorrectOption,
		}
		if err := question.Validate(); err != nil {
			return 0, fmt.Errorf("%w: question %d: %v", apperrors.ErrValidation, i+1, err)
		}
		questions = append(questions, question)
	}

	if err := s.questionRepo.CreateBatch(questions); err != nil {
		return 0, fmt.Errorf("failed to save questions: %w", err)
	}
	log.Printf("[Questions] Добавлено вопросов: %d", len(questions))
	return len(questions), nil
}

// ImportFromExcel читает вопросы из xlsx-файла.
// Формат строки: текст, четыре варианта, номер правильного (1-4).
// Первая строка считается заголовком и пропускается.
func (s *QuestionService) ImportFromExcel(r io.Reader) (int, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to open xlsx file: %v", apperrors.ErrValidation, err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return 0, fmt.Errorf("%w: xlsx file has no sheets", apperrors.ErrValidation)
	}
	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return 0, fmt.Errorf("%w: failed to read sheet %s: %v", apperrors.ErrValidation, sheets[0], err)
	}

	questions := make([]entity.Question, 0, len(rows))
	for i, row := range rows {
		// Заголовок
		if i == 0 {
			continue
		}
		// Пустые строки в конце листа
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		if len(row) < 6 {
			return 0, fmt.Errorf("%w: row %d: expected 6 columns (text, 4 options, correct number)", apperrors.ErrValidation, i+1)
		}

		correct, err := strconv.Atoi(strings.TrimSpace(row[5]))
		if err != nil || correct < 1 || correct > entity.QuestionOptionCount {
			return 0, fmt.Errorf("%w: row %d: correct option must be a number from 1 to %d",
				apperrors.ErrValidation, i+1, entity.QuestionOptionCount)
		}

		question := entity.Question{
			Text: strings.TrimSpace(row[0]),
			Options: entity.StringArray{
				strings.TrimSpace(row[1]),
				strings.TrimSpace(row[2]),
				strings.TrimSpace(row[3]),
				strings.TrimSpace(row[4]),
			},
			// В файле нумерация с единицы
			CorrectOption: correct - 1,
		}
		if err := question.Validate(); err != nil {
			return 0, fmt.Errorf("%w: row %d: %v", apperrors.ErrValidation, i+1, err)
		}
		questions = append(questions, question)
	}

	if len(questions) == 0 {
		return 0, fmt.Errorf("%w: file contains no questions", apperrors.ErrValidation)
	}
	if err := s.questionRepo.CreateBatch(questions); err != nil {
		return 0, fmt.Errorf("failed to save imported questions: %w", err)
	}
	log.Printf("[Questions] Импортировано вопросов из xlsx: %d", len(questions))
	return len(questions), nil
}

// Count возвращает размер банка вопросов
func (s *QuestionService) Count() (int64, error) {
	return s.questionRepo.Count()
}
