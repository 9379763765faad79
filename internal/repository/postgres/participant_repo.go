package postgres

import (
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/quizroom-api/internal/domain/entity"
	"github.com/yourusername/quizroom-api/internal/domain/repository"
	apperrors "github.com/yourusername/quizroom-api/internal/pkg/errors"
)

// ParticipantRepo реализует repository.ParticipantRepository
type ParticipantRepo struct {
	db *gorm.DB
}

// NewParticipantRepo создает новый репозиторий участников
func NewParticipantRepo(db *gorm.DB) *ParticipantRepo {
	return &ParticipantRepo{db: db}
}

// Join выполняет вход пользователя в комнату.
// Все проверки и upsert идут в одной сериализуемой транзакции с блокировкой
// строки комнаты (FOR UPDATE), это закрывает гонку за последнее место.
func (r *ParticipantRepo) Join(userID uint, roomID string) (*repository.JoinResult, error) {
	var result repository.JoinResult

	err := r.db.Transaction(func(tx *gorm.DB) error {
		// Блокируем строку комнаты на время транзакции
		var room entity.Room
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&room, "id = ?", roomID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrRoomNotFound
			}
			return err
		}
		if !room.IsActive {
			return repository.ErrRoomInactive
		}

		// Имя берем из users именно на момент входа
		var user entity.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return err
		}
		result.UserName = user.Name

		// Повторный вход в ту же комнату идемпотентен
		var existing entity.RoomParticipant
		err := tx.Where("room_id = ? AND user_id = ?", roomID, userID).First(&existing).Error
		if err == nil {
			result.AlreadyJoined = true
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// Пользователь может занимать место не более чем в одной комнате
		var inOther int64
		if err := tx.Model(&entity.RoomParticipant{}).
			Where("user_id = ? AND room_id <> ?", userID, roomID).
			Count(&inOther).Error; err != nil {
			return err
		}
		if inOther > 0 {
			return repository.ErrAlreadyInOtherRoom
		}

		// Проверка вместимости под блокировкой строки комнаты
		var occupied int64
		if err := tx.Model(&entity.RoomParticipant{}).
			Where("room_id = ?", roomID).
			Count(&occupied).Error; err != nil {
			return err
		}
		if occupied >= int64(room.MaxPlayers) {
			return repository.ErrRoomFull
		}

		participant := entity.RoomParticipant{
			RoomID:   roomID,
			UserID:   userID,
			JoinedAt: time.Now().UTC(),
		}
		// ON CONFLICT DO NOTHING по уникальному ключу (room_id, user_id)
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&participant).Error
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})

	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Leave удаляет запись участника; отсутствие записи не считается ошибкой
func (r *ParticipantRepo) Leave(userID uint, roomID string) error {
	return r.db.
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Delete(&entity.RoomParticipant{}).Error
}

// ListByRoom возвращает участников комнаты вместе с именами пользователей
func (r *ParticipantRepo) ListByRoom(roomID string) ([]repository.ParticipantInfo, error) {
	var infos []repository.ParticipantInfo
	err := r.db.Model(&entity.RoomParticipant{}).
		Select("room_participants.user_id, users.name AS user_name, room_participants.score, room_participants.joined_at").
		Joins("JOIN users ON users.id = room_participants.user_id").
		Where("room_participants.room_id = ?", roomID).
		Order("room_participants.joined_at").
		Scan(&infos).Error
	if err != nil {
		return nil, err
	}
	return infos, nil
}

// Get возвращает запись участника
func (r *ParticipantRepo) Get(userID uint, roomID string) (*entity.RoomParticipant, error) {
	var participant entity.RoomParticipant
	err := r.db.Where("room_id = ? AND user_id = ?", roomID, userID).First(&participant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &participant, nil
}
