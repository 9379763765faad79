package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/quizroom-api/internal/domain/entity"
	"github.com/yourusername/quizroom-api/internal/domain/repository"
	apperrors "github.com/yourusername/quizroom-api/internal/pkg/errors"
)

const (
	// Ключ кэша списка активных комнат
	activeRoomsCacheKey = "rooms:active"

	// Список комнат меняется часто, кэш короткий
	activeRoomsCacheTTL = 10 * time.Second
)

// RoomService управляет жизненным циклом комнат
type RoomService struct {
	roomRepo        repository.RoomRepository
	participantRepo repository.ParticipantRepository
	cache           repository.CacheRepository
}

// NewRoomService создает новый сервис комнат
func NewRoomService(
	roomRepo repository.RoomRepository,
	participantRepo repository.ParticipantRepository,
	cache repository.CacheRepository,
) *RoomService {
	return &RoomService{
		roomRepo:        roomRepo,
		participantRepo: participantRepo,
		cache:           cache,
	}
}

// CreateRoom создает комнату с указанным хостом
func (s *RoomService) CreateRoom(ctx context.Context, hostID uint, name string, maxPlayers int, password string) (*entity.Room, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: room name is required", apperrors.ErrValidation)
	}

	room := &entity.Room{
		ID:         uuid.New().String(),
		Name:       name,
		HostID:     hostID,
		IsActive:   true,
		MaxPlayers: maxPlayers,
	}
	if !room.IsCapacityValid() {
		return nil, fmt.Errorf("%w: max players must be between %d and %d",
			apperrors.ErrValidation, entity.MinRoomPlayers, entity.MaxRoomPlayers)
	}
	if password != "" {
		if err := room.SetPassword(password); err != nil {
			return nil, fmt.Errorf("failed to hash room password: %w", err)
		}
	}

	if err := s.roomRepo.Create(room); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	s.invalidateRoomList(ctx)
	log.Printf("[Rooms] Создана комната %s хостом %d", room.ID, hostID)
	return room, nil
}

// ListActiveRooms возвращает активные комнаты, с коротким кэшем в Redis
func (s *RoomService) ListActiveRooms(ctx context.Context) ([]entity.Room, error) {
	var cached []entity.Room
	err := s.cache.GetJSON(ctx, activeRoomsCacheKey, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		// Недоступный Redis не должен ломать список комнат
		log.Printf("[Rooms] Ошибка чтения кэша списка комнат: %v", err)
	}

	rooms, err := s.roomRepo.ListActive()
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, activeRoomsCacheKey, rooms, activeRoomsCacheTTL); err != nil {
		log.Printf("[Rooms] Ошибка записи кэша списка комнат: %v", err)
	}
	return rooms, nil
}

// GetRoom возвращает комнату вместе со списком участников
func (s *RoomService) GetRoom(roomID string) (*entity.Room, []repository.ParticipantInfo, error) {
	room, err := s.roomRepo.GetByID(roomID)
	if err != nil {
		return nil, nil, err
	}
	participants, err := s.participantRepo.ListByRoom(roomID)
	if err != nil {
		return nil, nil, err
	}
	return room, participants, nil
}

// DeleteRoom деактивирует комнату. Доступно только хосту.
func (s *RoomService) DeleteRoom(ctx context.Context, userID uint, roomID string) error {
	room, err := s.roomRepo.GetByID(roomID)
	if err != nil {
		return err
	}
	if room.HostID != userID {
		return fmt.Errorf("%w: only the host can delete the room", apperrors.ErrForbidden)
	}

	if err := s.roomRepo.Deactivate(roomID); err != nil {
		return err
	}
	s.invalidateRoomList(ctx)
	log.Printf("[Rooms] Комната %s деактивирована хостом %d", roomID, userID)
	return nil
}

func (s *RoomService) invalidateRoomList(ctx context.Context) {
	if err := s.cache.Delete(ctx, activeRoomsCacheKey); err != nil {
		log.Printf("[Rooms] Ошибка сброса кэша списка комнат: %v", err)
	}
}
