package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yourusername/quizroom-api/internal/pkg/errors"
	"github.com/yourusername/quizroom-api/pkg/auth"
)

// UserIDKey - ключ, под которым ID пользователя лежит в контексте gin
const UserIDKey = "userID"

// AuthMiddleware проверяет Bearer-токен и кладет ID пользователя в контекст
func AuthMiddleware(verifier auth.SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header is missing or malformed"})
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		userID, _, err := verifier.Verify(token)
		if err != nil {
			if errors.Is(err, apperrors.ErrExpiredToken) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session token has expired"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session token"})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// CurrentUserID извлекает ID пользователя, положенный AuthMiddleware
func CurrentUserID(c *gin.Context) (uint, bool) {
	value, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	userID, ok := value.(uint)
	return userID, ok
}
