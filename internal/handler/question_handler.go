package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/quizroom-api/internal/service"
)

// QuestionHandler обрабатывает HTTP-запросы к банку вопросов
type QuestionHandler struct {
	questionService *service.QuestionService
}

// NewQuestionHandler создает новый обработчик вопросов
func NewQuestionHandler(questionService *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionService: questionService}
}

// AddBatchRequest представляет запрос на добавление пакета вопросов
type AddBatchRequest struct {
	Questions []service.QuestionInput `json:"questions" binding:"required"`
}

// AddBatch обрабатывает POST /api/questions
func (h *QuestionHandler) AddBatch(c *gin.Context) {
	var req AddBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	added, err := h.questionService.AddQuestions(req.Questions)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"added": added})
}

// Import обрабатывает POST /api/questions/import: загрузка xlsx-файла
// с вопросами (multipart-поле file)
func (h *QuestionHandler) Import(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open uploaded file"})
		return
	}
	defer file.Close()

	imported, err := h.questionService.ImportFromExcel(file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"imported": imported})
}

// Count обрабатывает GET /api/questions/count
func (h *QuestionHandler) Count(c *gin.Context) {
	count, err := h.questionService.Count()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}
