package websocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_ConnectionLimitPerUser(t *testing.T) {
	hub := NewHub(HubConfig{MaxConnectionsPerUser: 3})

	for i := 0; i < 3; i++ {
		require.NoError(t, hub.Attach(NewClient(hub, nil, 42, 10)))
	}
	assert.Equal(t, 3, hub.ConnectionCount())

	// Четвертое соединение того же пользователя отклоняется
	err := hub.Attach(NewClient(hub, nil, 42, 10))
	assert.ErrorIs(t, err, ErrConnectionLimit)

	// Другой пользователь не задет лимитом
	require.NoError(t, hub.Attach(NewClient(hub, nil, 7, 10)))
}

func TestHub_DetachIdempotent(t *testing.T) {
	hub := NewHub(DefaultHubConfig())
	client := NewClient(hub, nil, 1, 10)
	require.NoError(t, hub.Attach(client))

	hub.Detach(client)
	assert.Equal(t, 0, hub.ConnectionCount())

	// Повторный Detach не паникует и ничего не меняет
	hub.Detach(client)
	assert.Equal(t, 0, hub.ConnectionCount())
}

func TestHub_ImplicitLeaveOnLastConnection(t *testing.T) {
	hub := NewHub(DefaultHubConfig())

	type leave struct {
		userID uint
		roomID string
	}
	leaves := make(chan leave, 4)
	hub.SetImplicitLeaveCallback(func(userID uint, roomID string) {
		leaves <- leave{userID, roomID}
	})

	first := NewClient(hub, nil, 1, 10)
	second := NewClient(hub, nil, 1, 10)
	require.NoError(t, hub.Attach(first))
	require.NoError(t, hub.Attach(second))
	hub.JoinRoom(first, "r1")
	hub.JoinRoom(second, "r1")

	// Пока жива вторая вкладка, выхода из комнаты нет
	hub.Detach(first)
	select {
	case l := <-leaves:
		t.Fatalf("преждевременный выход из комнаты: %+v", l)
	case <-time.After(50 * time.Millisecond):
	}

	// Обрыв последнего соединения означает выход из комнаты
	hub.Detach(second)
	select {
	case l := <-leaves:
		assert.Equal(t, uint(1), l.userID)
		assert.Equal(t, "r1", l.roomID)
	case <-time.After(time.Second):
		t.Fatal("не дождались неявного выхода")
	}
}

func TestHub_BroadcastToRoom(t *testing.T) {
	hub := NewHub(DefaultHubConfig())

	inRoom := NewClient(hub, nil, 1, 10)
	outside := NewClient(hub, nil, 2, 10)
	require.NoError(t, hub.Attach(inRoom))
	require.NoError(t, hub.Attach(outside))
	hub.JoinRoom(inRoom, "r1")

	hub.BroadcastToRoom("r1", MessageTypeParticipantLeft, ParticipantLeftPayload{RoomID: "r1", UserID: 9})

	// Сообщение дошло только до участника комнаты
	select {
	case msg := <-inRoom.send:
		assert.Contains(t, string(msg), `"participantLeft"`)
	default:
		t.Fatal("участник комнаты не получил рассылку")
	}
	select {
	case <-outside.send:
		t.Fatal("рассылка ушла клиенту вне комнаты")
	default:
	}
}

func TestHub_LeaveRoomDetachesAllUserConnections(t *testing.T) {
	hub := NewHub(DefaultHubConfig())

	first := NewClient(hub, nil, 1, 10)
	second := NewClient(hub, nil, 1, 10)
	require.NoError(t, hub.Attach(first))
	require.NoError(t, hub.Attach(second))
	hub.JoinRoom(first, "r1")
	hub.JoinRoom(second, "r1")
	require.Equal(t, 2, hub.RoomMemberCount("r1"))

	hub.LeaveRoom(1, "r1")
	assert.Equal(t, 0, hub.RoomMemberCount("r1"))
	// Соединения живы, потеряно только членство в комнате
	assert.Equal(t, 2, hub.ConnectionCount())
}

func TestHub_AttachAfterShutdown(t *testing.T) {
	hub := NewHub(DefaultHubConfig())
	hub.Shutdown()

	err := hub.Attach(NewClient(hub, nil, 1, 10))
	assert.ErrorIs(t, err, ErrHubClosed)
}

func TestClient_EnqueueDuringDetachDoesNotPanic(t *testing.T) {
	hub := NewHub(DefaultHubConfig())
	client := NewClient(hub, nil, 1, 10)
	require.NoError(t, hub.Attach(client))

	// Рассылка может класть сообщения одновременно с отключением клиента
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for i := 0; i < 1000; i++ {
			client.enqueue([]byte(`{"type":"connected"}`))
		}
	}()
	client.closeSend()
	<-finished

	// После отключения enqueue отвечает отказом, а не паникой
	assert.False(t, client.enqueue([]byte("late")))
}

func TestClient_RateWindow(t *testing.T) {
	client := NewClient(nil, nil, 1, 3)
	now := time.Now()

	// Первые три кадра окна проходят
	assert.True(t, client.allowFrame(now))
	assert.True(t, client.allowFrame(now.Add(100*time.Millisecond)))
	assert.True(t, client.allowFrame(now.Add(200*time.Millisecond)))

	// Четвертый в том же окне отбрасывается
	assert.False(t, client.allowFrame(now.Add(300*time.Millisecond)))

	// Новое окно обнуляет счетчик
	assert.True(t, client.allowFrame(now.Add(1100*time.Millisecond)))
}
