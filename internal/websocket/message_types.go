package websocket

// Типы входящих сообщений (клиент -> сервер)
const (
	MessageTypeJoin         = "join"
	MessageTypeStartQuiz    = "startQuiz"
	MessageTypeSubmitAnswer = "submitAnswer"
	MessageTypeLeaveRoom    = "leaveRoom"
)

// Типы исходящих сообщений (сервер -> клиент)
const (
	MessageTypeConnected         = "connected"
	MessageTypeJoinedRoom        = "joinedRoom"
	MessageTypeParticipantJoined = "participantJoined"
	MessageTypeParticipantLeft   = "participantLeft"
	MessageTypeQuizStarting      = "quizStarting"
	MessageTypeNextQuestion      = "nextQuestion"
	MessageTypeEndQuestion       = "endQuestion"
	MessageTypeQuizFinished      = "quizFinished"
	MessageTypeError             = "error"
)

// Коды ошибок протокола. Числовые значения следуют семантике HTTP.
const (
	CodeBadFrame           = 400
	CodeBadPayload         = 400
	CodeUnauthenticated    = 401
	CodeNotParticipant     = 403
	CodeNotHost            = 403
	CodeRoomNotFound       = 404
	CodeQuizAlreadyRunning = 409
	CodeQuestionNotActive  = 409
	CodeRoomFull           = 409
	CodeAlreadyInOtherRoom = 409
	CodeInsufficientQuest  = 409
	CodeQuestionExpired    = 410
	CodePayloadTooLarge    = 413
	CodeConnectionLimit    = 429
	CodeRateLimited        = 429
	CodeInternal           = 500
)

// Причины ошибок, отправляемые клиенту в поле reason
const (
	ReasonBadFrame           = "BadFrame"
	ReasonBadPayload         = "BadPayload"
	ReasonUnauthenticated    = "Unauthenticated"
	ReasonNotParticipant     = "NotParticipant"
	ReasonNotHost            = "NotHost"
	ReasonRoomNotFound       = "RoomNotFound"
	ReasonQuizAlreadyRunning = "QuizAlreadyRunning"
	ReasonQuestionNotActive  = "QuestionNotActive"
	ReasonRoomFull           = "RoomFull"
	ReasonAlreadyInOtherRoom = "AlreadyInOtherRoom"
	ReasonInsufficientQuest  = "InsufficientQuestions"
	ReasonQuestionExpired    = "QuestionExpired"
	ReasonPayloadTooLarge    = "PayloadTooLarge"
	ReasonConnectionLimit    = "ConnectionLimit"
	ReasonRateLimited        = "RateLimited"
	ReasonInternal           = "Internal"
)

// JoinPayload - вход в комнату
type JoinPayload struct {
	RoomID string `json:"roomId"`
}

// StartQuizPayload - запуск викторины (только хост)
type StartQuizPayload struct {
	RoomID string `json:"roomId"`
}

// SubmitAnswerPayload - ответ на текущий вопрос
type SubmitAnswerPayload struct {
	RoomID        string `json:"roomId"`
	QuestionIndex int    `json:"questionIndex"`
	ChoiceIdx     int    `json:"choiceIdx"`
}

// LeaveRoomPayload - явный выход из комнаты
type LeaveRoomPayload struct {
	RoomID string `json:"roomId"`
}

// ConnectedPayload подтверждает установленное соединение
type ConnectedPayload struct {
	UserID uint `json:"userId"`
}

// ParticipantSummary - участник комнаты в снимке состояния
type ParticipantSummary struct {
	UserID   uint   `json:"userId"`
	UserName string `json:"userName"`
	Score    int    `json:"score"`
}

// JoinedRoomPayload - снимок комнаты для только что вошедшего.
// QuestionIndex заполняется только в фазах вопроса.
type JoinedRoomPayload struct {
	RoomID        string               `json:"roomId"`
	Phase         string               `json:"phase"`
	QuestionIndex *int                 `json:"questionIndex,omitempty"`
	Participants  []ParticipantSummary `json:"participants"`
}

// ParticipantJoinedPayload - уведомление о входе участника
type ParticipantJoinedPayload struct {
	RoomID   string `json:"roomId"`
	UserID   uint   `json:"userId"`
	UserName string `json:"userName"`
}

// ParticipantLeftPayload - уведомление о выходе участника
type ParticipantLeftPayload struct {
	RoomID string `json:"roomId"`
	UserID uint   `json:"userId"`
}

// QuizStartingPayload - викторина стартует. StartsAt - ISO-8601 UTC.
type QuizStartingPayload struct {
	RoomID   string `json:"roomId"`
	StartsAt string `json:"startsAt"`
}

// QuestionView - вопрос в том виде, в котором он уходит клиентам.
// Правильный вариант не отправляется до endQuestion.
type QuestionView struct {
	ID      uint     `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// NextQuestionPayload - новый активный вопрос.
// Временные метки - ISO-8601 UTC, только для отображения:
// все решения о дедлайне принимает часы сервера.
type NextQuestionPayload struct {
	RoomID        string       `json:"roomId"`
	QuestionIndex int          `json:"questionIndex"`
	Question      QuestionView `json:"question"`
	StartedAt     string       `json:"startedAt"`
	ExpiresAt     string       `json:"expiresAt"`
}

// EndQuestionPayload - итог вопроса. WinnerUserID равен null,
// если вопрос истек без правильного ответа.
type EndQuestionPayload struct {
	RoomID        string  `json:"roomId"`
	QuestionIndex int     `json:"questionIndex"`
	CorrectIdx    int     `json:"correctIdx"`
	WinnerUserID  *uint   `json:"winnerUserId"`
	WinnerName    *string `json:"winnerName,omitempty"`
}

// StandingEntry - строка финальной таблицы
type StandingEntry struct {
	UserID    uint   `json:"userId"`
	UserName  string `json:"userName"`
	Score     int    `json:"score"`
	NewRating int    `json:"newRating"`
}

// QuizFinishedPayload - финальная таблица викторины
type QuizFinishedPayload struct {
	RoomID    string          `json:"roomId"`
	Standings []StandingEntry `json:"standings"`
}

// ErrorPayload - ошибка протокола, отправляемая клиенту
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
