package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/yourusername/quizroom-api/internal/domain/entity"
	apperrors "github.com/yourusername/quizroom-api/internal/pkg/errors"
)

// SessionVerifier проверяет предъявленный сессионный токен.
// Единственная точка входа для аутентификации WebSocket-соединений.
type SessionVerifier interface {
	// Verify возвращает ID пользователя и время истечения токена.
	// Просроченный или поддельный токен дает ошибку, а не нулевой userID.
	Verify(token string) (uint, time.Time, error)
}

// SessionClaims содержит пользовательские поля сессионного токена
type SessionClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// SessionService выпускает и проверяет сессионные токены (HS256)
type SessionService struct {
	secret        []byte
	expirationHrs int
}

// NewSessionService создает новый сервис сессионных токенов.
// Пустой секрет недопустим: лучше упасть на старте, чем подписывать
// токены предсказуемым ключом.
func NewSessionService(secret string, expirationHrs int) (*SessionService, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	if expirationHrs <= 0 {
		expirationHrs = 24
	}
	return &SessionService{
		secret:        []byte(secret),
		expirationHrs: expirationHrs,
	}, nil
}

// GenerateToken создает новый сессионный токен для пользователя
func (s *SessionService) GenerateToken(user *entity.User) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.expirationHrs) * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify разбирает и проверяет токен. Реализует SessionVerifier.
func (s *SessionService) Verify(tokenString string) (uint, time.Time, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		// Принимаем только HMAC: токен с alg=none или RS256 отклоняется
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, time.Time{}, apperrors.ErrExpiredToken
		}
		return 0, time.Time{}, apperrors.ErrUnauthorized
	}
	if !token.Valid || claims.UserID == 0 {
		return 0, time.Time{}, apperrors.ErrUnauthorized
	}

	var expiry time.Time
	if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}
	return claims.UserID, expiry, nil
}
