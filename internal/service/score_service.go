package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/yourusername/quizroom-api/internal/domain/entity"
	"github.com/yourusername/quizroom-api/internal/domain/repository"
	"github.com/yourusername/quizroom-api/internal/websocket"
)

// ScoreService фиксирует победы и строит финальные таблицы.
// Реализует quizengine.ResultStore.
type ScoreService struct {
	claimRepo       repository.ClaimRepository
	participantRepo repository.ParticipantRepository
	ratingRepo      repository.RatingRepository
}

// NewScoreService создает новый сервис счета
func NewScoreService(
	claimRepo repository.ClaimRepository,
	participantRepo repository.ParticipantRepository,
	ratingRepo repository.RatingRepository,
) *ScoreService {
	return &ScoreService{
		claimRepo:       claimRepo,
		participantRepo: participantRepo,
		ratingRepo:      ratingRepo,
	}
}

// RecordWin сохраняет выигрышную заявку. Вставка заявки и начисление
// очка идут одной транзакцией на уровне репозитория.
func (s *ScoreService) RecordWin(claim *entity.AnswerClaim) error {
	if err := s.claimRepo.RecordClaim(claim); err != nil {
		return fmt.Errorf("failed to record winning claim for room %s question %d: %w",
			claim.RoomID, claim.QuestionIndex, err)
	}
	return nil
}

// FinalStandings строит таблицу комнаты и обновляет рейтинги игроков.
// Сортировка: очки по убыванию, при равенстве очков меньший userId выше.
func (s *ScoreService) FinalStandings(roomID string) ([]websocket.StandingEntry, error) {
	participants, err := s.participantRepo.ListByRoom(roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants of room %s: %w", roomID, err)
	}

	userIDs := make([]uint, 0, len(participants))
	for _, p := range participants {
		userIDs = append(userIDs, p.UserID)
	}
	ratings, err := s.ratingRepo.GetMany(userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load ratings for room %s: %w", roomID, err)
	}

	now := time.Now().UTC()
	standings := make([]websocket.StandingEntry, 0, len(participants))
	updated := make([]entity.PlayerRating, 0, len(participants))
	for _, p := range participants {
		newRating := entity.NextRating(ratings[p.UserID], p.Score)
		standings = append(standings, websocket.StandingEntry{
			UserID:    p.UserID,
			UserName:  p.UserName,
			Score:     p.Score,
			NewRating: newRating,
		})
		updated = append(updated, entity.PlayerRating{
			UserID:    p.UserID,
			Rating:    newRating,
			UpdatedAt: now,
		})
	}

	sort.Slice(standings, func(i, j int) bool {
		if standings[i].Score != standings[j].Score {
			return standings[i].Score > standings[j].Score
		}
		return standings[i].UserID < standings[j].UserID
	})

	if err := s.ratingRepo.UpsertBatch(updated); err != nil {
		return nil, fmt.Errorf("failed to save ratings for room %s: %w", roomID, err)
	}

	return standings, nil
}
