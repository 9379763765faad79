package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/quizroom-api/internal/domain/entity"
	"github.com/yourusername/quizroom-api/internal/domain/repository"
)

// MockClaimRepository - мок репозитория заявок
type MockClaimRepository struct {
	mock.Mock
}

func (m *MockClaimRepository) RecordClaim(claim *entity.AnswerClaim) error {
	args := m.Called(claim)
	return args.Error(0)
}

func (m *MockClaimRepository) ListByRoom(roomID string) ([]entity.AnswerClaim, error) {
	args := m.Called(roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.AnswerClaim), args.Error(1)
}

// MockParticipantRepository - мок репозитория участников
type MockParticipantRepository struct {
	mock.Mock
}

func (m *MockParticipantRepository) Join(userID uint, roomID string) (*repository.JoinResult, error) {
	args := m.Called(userID, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.JoinResult), args.Error(1)
}

func (m *MockParticipantRepository) Leave(userID uint, roomID string) error {
	args := m.Called(userID, roomID)
	return args.Error(0)
}

func (m *MockParticipantRepository) ListByRoom(roomID string) ([]repository.ParticipantInfo, error) {
	args := m.Called(roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.ParticipantInfo), args.Error(1)
}

func (m *MockParticipantRepository) Get(userID uint, roomID string) (*entity.RoomParticipant, error) {
	args := m.Called(userID, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.RoomParticipant), args.Error(1)
}

// MockRatingRepository - мок репозитория рейтингов
type MockRatingRepository struct {
	mock.Mock
}

func (m *MockRatingRepository) GetMany(userIDs []uint) (map[uint]int, error) {
	args := m.Called(userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uint]int), args.Error(1)
}

func (m *MockRatingRepository) UpsertBatch(ratings []entity.PlayerRating) error {
	args := m.Called(ratings)
	return args.Error(0)
}

func TestScoreService_RecordWin(t *testing.T) {
	// Arrange
	claimRepo := new(MockClaimRepository)
	svc := NewScoreService(claimRepo, new(MockParticipantRepository), new(MockRatingRepository))

	claim := &entity.AnswerClaim{
		RoomID:        "r1",
		QuestionIndex: 3,
		UserID:        42,
		TxHash:        entity.ClaimTxHash("r1", 3, 42, time.Now()),
	}
	claimRepo.On("RecordClaim", claim).Return(nil)

	// Act
	err := svc.RecordWin(claim)

	// Assert
	require.NoError(t, err)
	claimRepo.AssertExpectations(t)
}

func TestScoreService_FinalStandings(t *testing.T) {
	// Arrange
	participantRepo := new(MockParticipantRepository)
	ratingRepo := new(MockRatingRepository)
	svc := NewScoreService(new(MockClaimRepository), participantRepo, ratingRepo)

	participantRepo.On("ListByRoom", "r1").Return([]repository.ParticipantInfo{
		{UserID: 1, UserName: "alice", Score: 7},
		{UserID: 2, UserName: "bob", Score: 3},
		{UserID: 3, UserName: "carol", Score: 3},
	}, nil)
	ratingRepo.On("GetMany", []uint{1, 2, 3}).Return(map[uint]int{
		1: 1200,
		2: 900, // ниже пола: новый рейтинг считается от 1200
		3: 1500,
	}, nil)
	ratingRepo.On("UpsertBatch", mock.AnythingOfType("[]entity.PlayerRating")).Return(nil)

	// Act
	standings, err := svc.FinalStandings("r1")

	// Assert
	require.NoError(t, err)
	require.Len(t, standings, 3)

	// Очки по убыванию, при равных очках меньший userId выше
	assert.Equal(t, uint(1), standings[0].UserID)
	assert.Equal(t, uint(2), standings[1].UserID)
	assert.Equal(t, uint(3), standings[2].UserID)

	// 1200 + 7*10
	assert.Equal(t, 1270, standings[0].NewRating)
	// Рейтинг ниже пола поднимается до 1200 перед начислением
	assert.Equal(t, 1230, standings[1].NewRating)
	assert.Equal(t, 1530, standings[2].NewRating)

	ratingRepo.AssertExpectations(t)
}

func TestScoreService_FinalStandingsEmptyRoom(t *testing.T) {
	participantRepo := new(MockParticipantRepository)
	ratingRepo := new(MockRatingRepository)
	svc := NewScoreService(new(MockClaimRepository), participantRepo, ratingRepo)

	participantRepo.On("ListByRoom", "r1").Return([]repository.ParticipantInfo{}, nil)
	ratingRepo.On("GetMany", []uint{}).Return(map[uint]int{}, nil)
	ratingRepo.On("UpsertBatch", mock.AnythingOfType("[]entity.PlayerRating")).Return(nil)

	standings, err := svc.FinalStandings("r1")
	require.NoError(t, err)
	assert.Empty(t, standings)
}
