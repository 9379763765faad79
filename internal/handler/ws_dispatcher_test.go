package handler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/quizroom-api/internal/domain/repository"
	"github.com/yourusername/quizroom-api/internal/service/quizengine"
	"github.com/yourusername/quizroom-api/internal/websocket"
)

// stubEngine отвечает на Join по карте ошибок комнат
type stubEngine struct {
	joinErr map[string]error
}

func (s *stubEngine) Join(userID uint, roomID string) (*quizengine.JoinSnapshot, error) {
	if err := s.joinErr[roomID]; err != nil {
		return nil, err
	}
	return &quizengine.JoinSnapshot{RoomID: roomID, Phase: quizengine.PhaseLobby}, nil
}

func (s *stubEngine) Leave(userID uint, roomID string) error { return nil }

func (s *stubEngine) StartQuiz(userID uint, roomID string) error { return nil }

func (s *stubEngine) SubmitAnswer(userID uint, roomID string, questionIndex, choiceIdx int) error {
	return nil
}

func joinFrame(t *testing.T, roomID string) []byte {
	t.Helper()
	data, err := json.Marshal(map[string]interface{}{
		"type":    websocket.MessageTypeJoin,
		"payload": map[string]string{"roomId": roomID},
	})
	require.NoError(t, err)
	return data
}

func TestWSDispatcher_FailedJoinKeepsCurrentRoom(t *testing.T) {
	hub := websocket.NewHub(websocket.DefaultHubConfig())
	engine := &stubEngine{joinErr: map[string]error{
		"room-b": repository.ErrAlreadyInOtherRoom,
	}}
	dispatcher := NewWSDispatcher(hub, engine)

	client := websocket.NewClient(hub, nil, 5, 10)
	require.NoError(t, hub.Attach(client))

	dispatcher.HandleFrame(client, joinFrame(t, "room-a"))
	require.Equal(t, 1, hub.RoomMemberCount("room-a"))

	// Неудачный вход в другую комнату не трогает членство в прежней
	dispatcher.HandleFrame(client, joinFrame(t, "room-b"))
	assert.Equal(t, 1, hub.RoomMemberCount("room-a"))
	assert.Equal(t, 0, hub.RoomMemberCount("room-b"))
	assert.Equal(t, "room-a", hub.ClientRoom(client))
}

func TestWSDispatcher_FailedFirstJoinLeavesNoMembership(t *testing.T) {
	hub := websocket.NewHub(websocket.DefaultHubConfig())
	engine := &stubEngine{joinErr: map[string]error{
		"room-b": repository.ErrRoomFull,
	}}
	dispatcher := NewWSDispatcher(hub, engine)

	client := websocket.NewClient(hub, nil, 5, 10)
	require.NoError(t, hub.Attach(client))

	dispatcher.HandleFrame(client, joinFrame(t, "room-b"))
	assert.Equal(t, 0, hub.RoomMemberCount("room-b"))
	assert.Equal(t, "", hub.ClientRoom(client))
}
