package handler

import (
	"errors"
	"log"

	"github.com/yourusername/quizroom-api/internal/domain/repository"
	apperrors "github.com/yourusername/quizroom-api/internal/pkg/errors"
	"github.com/yourusername/quizroom-api/internal/service/quizengine"
	"github.com/yourusername/quizroom-api/internal/websocket"
)

// QuizController - операции движка, доступные по WebSocket
type QuizController interface {
	Join(userID uint, roomID string) (*quizengine.JoinSnapshot, error)
	Leave(userID uint, roomID string) error
	StartQuiz(userID uint, roomID string) error
	SubmitAnswer(userID uint, roomID string, questionIndex, choiceIdx int) error
}

// WSDispatcher разбирает кадры протокола и вызывает движок викторины.
// Реализует websocket.FrameHandler.
type WSDispatcher struct {
	hub    *websocket.Hub
	engine QuizController
}

// NewWSDispatcher создает диспетчер кадров
func NewWSDispatcher(hub *websocket.Hub, engine QuizController) *WSDispatcher {
	return &WSDispatcher{hub: hub, engine: engine}
}

// HandleFrame обрабатывает один входящий кадр.
// Любая ошибка уходит клиенту кадром error, соединение не рвется.
func (d *WSDispatcher) HandleFrame(client *websocket.Client, data []byte) {
	frame, perr := websocket.DecodeFrame(data)
	if perr != nil {
		d.hub.SendError(client, perr.Code, perr.Reason)
		return
	}

	switch frame.Type {
	case websocket.MessageTypeJoin:
		d.handleJoin(client, frame)
	case websocket.MessageTypeStartQuiz:
		d.handleStartQuiz(client, frame)
	case websocket.MessageTypeSubmitAnswer:
		d.handleSubmitAnswer(client, frame)
	case websocket.MessageTypeLeaveRoom:
		d.handleLeaveRoom(client, frame)
	default:
		d.hub.SendError(client, websocket.CodeBadFrame, websocket.ReasonBadFrame)
	}
}

func (d *WSDispatcher) handleJoin(client *websocket.Client, frame *websocket.Frame) {
	payload, perr := websocket.DecodeJoinPayload(frame.Payload)
	if perr != nil {
		d.hub.SendError(client, perr.Code, perr.Reason)
		return
	}

	// Подписываемся на рассылки комнаты до входа, чтобы клиент увидел
	// собственный participantJoined
	prevRoom := d.hub.ClientRoom(client)
	d.hub.JoinRoom(client, payload.RoomID)

	snapshot, err := d.engine.Join(client.UserID, payload.RoomID)
	if err != nil {
		// Откат не должен отрезать клиента от рассылок комнаты,
		// в которой он уже состоял
		if prevRoom != "" && prevRoom != payload.RoomID {
			d.hub.JoinRoom(client, prevRoom)
		} else if prevRoom == "" {
			d.hub.DropFromRoom(client)
		}
		d.sendMappedError(client, err)
		return
	}

	d.hub.SendMessage(client, websocket.MessageTypeJoinedRoom, websocket.JoinedRoomPayload{
		RoomID:        snapshot.RoomID,
		Phase:         snapshot.Phase,
		QuestionIndex: snapshot.QuestionIndex,
		Participants:  snapshot.Participants,
	})
}

func (d *WSDispatcher) handleStartQuiz(client *websocket.Client, frame *websocket.Frame) {
	payload, perr := websocket.DecodeStartQuizPayload(frame.Payload)
	if perr != nil {
		d.hub.SendError(client, perr.Code, perr.Reason)
		return
	}
	if err := d.engine.StartQuiz(client.UserID, payload.RoomID); err != nil {
		d.sendMappedError(client, err)
	}
}

func (d *WSDispatcher) handleSubmitAnswer(client *websocket.Client, frame *websocket.Frame) {
	payload, perr := websocket.DecodeSubmitAnswerPayload(frame.Payload)
	if perr != nil {
		d.hub.SendError(client, perr.Code, perr.Reason)
		return
	}
	err := d.engine.SubmitAnswer(client.UserID, payload.RoomID, payload.QuestionIndex, payload.ChoiceIdx)
	if err != nil {
		d.sendMappedError(client, err)
	}
	// Успешный ответ не подтверждается: итог вопроса придет рассылкой
}

func (d *WSDispatcher) handleLeaveRoom(client *websocket.Client, frame *websocket.Frame) {
	payload, perr := websocket.DecodeLeaveRoomPayload(frame.Payload)
	if perr != nil {
		d.hub.SendError(client, perr.Code, perr.Reason)
		return
	}
	if err := d.engine.Leave(client.UserID, payload.RoomID); err != nil {
		d.sendMappedError(client, err)
		return
	}
	d.hub.LeaveRoom(client.UserID, payload.RoomID)
}

// sendMappedError переводит ошибку движка или хранилища в кадр error
func (d *WSDispatcher) sendMappedError(client *websocket.Client, err error) {
	code, reason := mapQuizError(err)
	if code == websocket.CodeInternal {
		log.Printf("[WSDispatcher] Внутренняя ошибка для пользователя %d: %v", client.UserID, err)
	}
	d.hub.SendError(client, code, reason)
}

func mapQuizError(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrRoomNotFound),
		errors.Is(err, repository.ErrRoomInactive),
		errors.Is(err, quizengine.ErrRoomDead),
		errors.Is(err, apperrors.ErrNotFound):
		return websocket.CodeRoomNotFound, websocket.ReasonRoomNotFound
	case errors.Is(err, repository.ErrRoomFull):
		return websocket.CodeRoomFull, websocket.ReasonRoomFull
	case errors.Is(err, repository.ErrAlreadyInOtherRoom):
		return websocket.CodeAlreadyInOtherRoom, websocket.ReasonAlreadyInOtherRoom
	case errors.Is(err, quizengine.ErrNotHost):
		return websocket.CodeNotHost, websocket.ReasonNotHost
	case errors.Is(err, quizengine.ErrNotParticipant):
		return websocket.CodeNotParticipant, websocket.ReasonNotParticipant
	case errors.Is(err, quizengine.ErrQuizAlreadyRunning):
		return websocket.CodeQuizAlreadyRunning, websocket.ReasonQuizAlreadyRunning
	case errors.Is(err, quizengine.ErrQuestionNotActive):
		return websocket.CodeQuestionNotActive, websocket.ReasonQuestionNotActive
	case errors.Is(err, quizengine.ErrQuestionExpired):
		return websocket.CodeQuestionExpired, websocket.ReasonQuestionExpired
	case errors.Is(err, quizengine.ErrInsufficientQuestions):
		return websocket.CodeInsufficientQuest, websocket.ReasonInsufficientQuest
	default:
		return websocket.CodeInternal, websocket.ReasonInternal
	}
}
