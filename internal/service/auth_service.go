package service

import (
	"errors"
	"fmt"
	"log"

	"github.com/yourusername/quizroom-api/internal/domain/entity"
	"github.com/yourusername/quizroom-api/internal/domain/repository"
	apperrors "github.com/yourusername/quizroom-api/internal/pkg/errors"
	"github.com/yourusername/quizroom-api/pkg/auth"
)

// AuthService предоставляет регистрацию и вход пользователей
type AuthService struct {
	userRepo repository.UserRepository
	sessions *auth.SessionService
}

// NewAuthService создает новый сервис аутентификации
func NewAuthService(userRepo repository.UserRepository, sessions *auth.SessionService) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		sessions: sessions,
	}
}

// Register создает нового пользователя. Пароль хэшируется хуком BeforeSave.
func (s *AuthService) Register(name, email, password string) (*entity.User, error) {
	if name == "" || email == "" || len(password) < 6 {
		return nil, fmt.Errorf("%w: name, email and password (min 6 chars) are required", apperrors.ErrValidation)
	}

	_, err := s.userRepo.GetByEmail(email)
	if err == nil {
		return nil, fmt.Errorf("%w: email is already registered", apperrors.ErrConflict)
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	user := &entity.User{
		Name:     name,
		Email:    email,
		Password: password,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Printf("[Auth] Зарегистрирован пользователь %d (%s)", user.ID, user.Email)
	return user, nil
}

// Login проверяет учетные данные и выпускает сессионный токен
func (s *AuthService) Login(email, password string) (string, *entity.User, error) {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Не раскрываем, существует ли email
			return "", nil, apperrors.ErrUnauthorized
		}
		return "", nil, err
	}

	if !user.CheckPassword(password) {
		return "", nil, apperrors.ErrUnauthorized
	}

	token, err := s.sessions.GenerateToken(user)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue session token: %w", err)
	}
	return token, user, nil
}

// GetUser возвращает пользователя по ID
func (s *AuthService) GetUser(id uint) (*entity.User, error) {
	return s.userRepo.GetByID(id)
}
