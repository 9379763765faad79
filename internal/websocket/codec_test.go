package websocket

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrame_Valid(t *testing.T) {
	frame, perr := DecodeFrame([]byte(`{"type":"join","payload":{"roomId":"r1"}}`))
	require.Nil(t, perr)
	assert.Equal(t, "join", frame.Type)

	payload, perr := DecodeJoinPayload(frame.Payload)
	require.Nil(t, perr)
	assert.Equal(t, "r1", payload.RoomID)
}

func TestDecodeFrame_NotJSON(t *testing.T) {
	_, perr := DecodeFrame([]byte("это не JSON"))
	require.NotNil(t, perr)
	assert.Equal(t, CodeBadFrame, perr.Code)
	assert.Equal(t, ReasonBadFrame, perr.Reason)
}

func TestDecodeFrame_MissingType(t *testing.T) {
	_, perr := DecodeFrame([]byte(`{"payload":{}}`))
	require.NotNil(t, perr)
	assert.Equal(t, ReasonBadFrame, perr.Reason)
}

func TestDecodeFrame_TooLarge(t *testing.T) {
	// Кадр больше лимита отклоняется до разбора JSON
	big := append([]byte(`{"type":"join","payload":"`), bytes.Repeat([]byte("x"), MaxFrameSize)...)
	big = append(big, []byte(`"}`)...)

	_, perr := DecodeFrame(big)
	require.NotNil(t, perr)
	assert.Equal(t, CodePayloadTooLarge, perr.Code)
	assert.Equal(t, ReasonPayloadTooLarge, perr.Reason)
}

func TestDecodeJoinPayload_EmptyRoom(t *testing.T) {
	_, perr := DecodeJoinPayload(json.RawMessage(`{"roomId":""}`))
	require.NotNil(t, perr)
	assert.Equal(t, ReasonBadPayload, perr.Reason)
}

func TestDecodeSubmitAnswerPayload(t *testing.T) {
	payload, perr := DecodeSubmitAnswerPayload(json.RawMessage(`{"roomId":"r1","questionIndex":3,"choiceIdx":2}`))
	require.Nil(t, perr)
	assert.Equal(t, 3, payload.QuestionIndex)
	assert.Equal(t, 2, payload.ChoiceIdx)
}

func TestDecodeSubmitAnswerPayload_ChoiceOutOfRange(t *testing.T) {
	_, perr := DecodeSubmitAnswerPayload(json.RawMessage(`{"roomId":"r1","questionIndex":0,"choiceIdx":4}`))
	require.NotNil(t, perr)
	assert.Equal(t, ReasonBadPayload, perr.Reason)

	_, perr = DecodeSubmitAnswerPayload(json.RawMessage(`{"roomId":"r1","questionIndex":0,"choiceIdx":-1}`))
	require.NotNil(t, perr)
}

func TestDecodeSubmitAnswerPayload_IndexOutOfRange(t *testing.T) {
	_, perr := DecodeSubmitAnswerPayload(json.RawMessage(`{"roomId":"r1","questionIndex":-1,"choiceIdx":0}`))
	require.NotNil(t, perr)

	_, perr = DecodeSubmitAnswerPayload(json.RawMessage(`{"roomId":"r1","questionIndex":10,"choiceIdx":0}`))
	require.NotNil(t, perr)
}

func TestDecodeJoinPayload_RoomIDTooLong(t *testing.T) {
	long := bytes.Repeat([]byte("a"), maxRoomIDLength+1)
	_, perr := DecodeJoinPayload(json.RawMessage(`{"roomId":"` + string(long) + `"}`))
	require.NotNil(t, perr)
	assert.Equal(t, CodeBadPayload, perr.Code)
}

func TestEncodeFrame_RoundTrip(t *testing.T) {
	data, err := EncodeFrame(MessageTypeError, ErrorPayload{Code: 429, Message: ReasonRateLimited})
	require.NoError(t, err)

	var frame Frame
	require.NoError(t, json.Unmarshal(data, &frame))
	assert.Equal(t, MessageTypeError, frame.Type)

	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(frame.Payload, &payload))
	assert.Equal(t, 429, payload.Code)
}
