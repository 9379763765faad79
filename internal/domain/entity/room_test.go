package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoom_IsCapacityValid(t *testing.T) {
	room := Room{MaxPlayers: 5}
	assert.True(t, room.IsCapacityValid())

	room.MaxPlayers = 1
	assert.False(t, room.IsCapacityValid())

	room.MaxPlayers = 11
	assert.False(t, room.IsCapacityValid())

	room.MaxPlayers = MinRoomPlayers
	assert.True(t, room.IsCapacityValid())

	room.MaxPlayers = MaxRoomPlayers
	assert.True(t, room.IsCapacityValid())
}

func TestRoom_PasswordProtected(t *testing.T) {
	room := Room{}
	require.NoError(t, room.SetPassword("secret"))
	require.NotNil(t, room.PasswordHash)

	assert.True(t, room.CheckPassword("secret"))
	assert.False(t, room.CheckPassword("wrong"))
}

func TestRoom_OpenRoomAcceptsAnyPassword(t *testing.T) {
	room := Room{}
	require.NoError(t, room.SetPassword(""))
	assert.Nil(t, room.PasswordHash)

	assert.True(t, room.CheckPassword(""))
	assert.True(t, room.CheckPassword("anything"))
}

func TestUser_PasswordHashing(t *testing.T) {
	user := User{Name: "alice", Email: "a@example.com", Password: "password123"}

	// BeforeSave хэширует пароль; прямой вызов без БД
	require.NoError(t, user.BeforeSave(nil))
	assert.NotEqual(t, "password123", user.Password)

	assert.True(t, user.CheckPassword("password123"))
	assert.False(t, user.CheckPassword("wrong"))

	// Повторный BeforeSave не перехэширует уже хэшированный пароль
	hashed := user.Password
	require.NoError(t, user.BeforeSave(nil))
	assert.Equal(t, hashed, user.Password)
}
