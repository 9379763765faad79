package repository

import "errors"

// Ошибки хранилища участников комнат
var (
	// ErrRoomNotFound возвращается, когда целевая комната не существует.
	ErrRoomNotFound = errors.New("room not found")

	// ErrRoomInactive возвращается при попытке входа в деактивированную комнату.
	ErrRoomInactive = errors.New("room is not active")

	// ErrRoomFull возвращается, когда комната уже заполнена до max_players.
	ErrRoomFull = errors.New("room is full")

	// ErrAlreadyInOtherRoom возвращается, когда пользователь уже занимает
	// место в другой комнате (участие допускается не более чем в одной).
	ErrAlreadyInOtherRoom = errors.New("user is already in another room")

	// ErrDuplicateClaim возвращается, когда для пары (комната, вопрос)
	// уже существует выигрышная заявка. Срабатывает уникальный индекс БД.
	ErrDuplicateClaim = errors.New("claim already exists for this question")
)
