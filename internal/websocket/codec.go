package websocket

import (
	"encoding/json"
	"fmt"
)

const (
	// MaxFrameSize - максимальный размер входящего кадра в байтах
	MaxFrameSize = 1024

	// maxRoomIDLength - предел на длину идентификатора комнаты
	maxRoomIDLength = 50

	// maxQuestionIndex - индексы вопросов лежат в [0, 9]
	maxQuestionIndex = 9
)

// Frame - кадр протокола: {"type": "...", "payload": {...}}
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ProtocolError - ошибка разбора или валидации кадра.
// Отправляется клиенту как сообщение типа "error", соединение не рвется.
type ProtocolError struct {
	Code   int
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error %d: %s", e.Code, e.Reason)
}

func newProtocolError(code int, reason string) *ProtocolError {
	return &ProtocolError{Code: code, Reason: reason}
}

// DecodeFrame разбирает сырые байты в кадр.
// Кадр длиннее MaxFrameSize отклоняется до разбора JSON.
func DecodeFrame(data []byte) (*Frame, *ProtocolError) {
	if len(data) > MaxFrameSize {
		return nil, newProtocolError(CodePayloadTooLarge, ReasonPayloadTooLarge)
	}

	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, newProtocolError(CodeBadFrame, ReasonBadFrame)
	}
	if frame.Type == "" {
		return nil, newProtocolError(CodeBadFrame, ReasonBadFrame)
	}
	return &frame, nil
}

// EncodeFrame собирает исходящий кадр в байты
func EncodeFrame(messageType string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload for %s: %w", messageType, err)
	}
	frame := Frame{Type: messageType, Payload: raw}
	data, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal frame %s: %w", messageType, err)
	}
	return data, nil
}

// DecodeJoinPayload разбирает и валидирует payload кадра join
func DecodeJoinPayload(raw json.RawMessage) (*JoinPayload, *ProtocolError) {
	var payload JoinPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, newProtocolError(CodeBadPayload, ReasonBadPayload)
	}
	if err := validateRoomID(payload.RoomID); err != nil {
		return nil, err
	}
	return &payload, nil
}

// DecodeStartQuizPayload разбирает и валидирует payload кадра startQuiz
func DecodeStartQuizPayload(raw json.RawMessage) (*StartQuizPayload, *ProtocolError) {
	var payload StartQuizPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, newProtocolError(CodeBadPayload, ReasonBadPayload)
	}
	if err := validateRoomID(payload.RoomID); err != nil {
		return nil, err
	}
	return &payload, nil
}

// DecodeSubmitAnswerPayload разбирает и валидирует payload кадра submitAnswer
func DecodeSubmitAnswerPayload(raw json.RawMessage) (*SubmitAnswerPayload, *ProtocolError) {
	var payload SubmitAnswerPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, newProtocolError(CodeBadPayload, ReasonBadPayload)
	}
	if err := validateRoomID(payload.RoomID); err != nil {
		return nil, err
	}
	if payload.QuestionIndex < 0 || payload.QuestionIndex > maxQuestionIndex {
		return nil, newProtocolError(CodeBadPayload, ReasonBadPayload)
	}
	if payload.ChoiceIdx < 0 || payload.ChoiceIdx > 3 {
		return nil, newProtocolError(CodeBadPayload, ReasonBadPayload)
	}
	return &payload, nil
}

// DecodeLeaveRoomPayload разбирает и валидирует payload кадра leaveRoom
func DecodeLeaveRoomPayload(raw json.RawMessage) (*LeaveRoomPayload, *ProtocolError) {
	var payload LeaveRoomPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, newProtocolError(CodeBadPayload, ReasonBadPayload)
	}
	if err := validateRoomID(payload.RoomID); err != nil {
		return nil, err
	}
	return &payload, nil
}

func validateRoomID(roomID string) *ProtocolError {
	if roomID == "" || len(roomID) > maxRoomIDLength {
		return newProtocolError(CodeBadPayload, ReasonBadPayload)
	}
	return nil
}
