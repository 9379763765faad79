package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/quizroom-api/internal/domain/entity"
	apperrors "github.com/yourusername/quizroom-api/internal/pkg/errors"
	"github.com/yourusername/quizroom-api/pkg/auth"
)

// fakeUserRepo отдает заранее заданных пользователей по ID
type fakeUserRepo struct {
	users map[uint]*entity.User
}

func (f *fakeUserRepo) Create(user *entity.User) error { return nil }

func (f *fakeUserRepo) GetByID(id uint) (*entity.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(email string) (*entity.User, error) {
	return nil, apperrors.ErrNotFound
}

func (f *fakeUserRepo) GetByIDs(ids []uint) ([]entity.User, error) { return nil, nil }

func adminTestRouter(t *testing.T) (*gin.Engine, *auth.SessionService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sessions, err := auth.NewSessionService("test-secret", 1)
	require.NoError(t, err)

	repo := &fakeUserRepo{users: map[uint]*entity.User{
		7:  {ID: 7, Name: "root", IsAdmin: true},
		42: {ID: 42, Name: "plain"},
	}}

	router := gin.New()
	router.POST("/questions", AuthMiddleware(sessions), AdminMiddleware(repo), func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"created": 1})
	})
	return router, sessions
}

func postQuestions(t *testing.T, router *gin.Engine, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/questions", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAdminMiddleware_RejectsNonAdmin(t *testing.T) {
	router, sessions := adminTestRouter(t)

	token, err := sessions.GenerateToken(&entity.User{ID: 42, Email: "plain@example.com"})
	require.NoError(t, err)

	rec := postQuestions(t, router, token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminMiddleware_AllowsAdmin(t *testing.T) {
	router, sessions := adminTestRouter(t)

	token, err := sessions.GenerateToken(&entity.User{ID: 7, Email: "root@example.com"})
	require.NoError(t, err)

	rec := postQuestions(t, router, token)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAdminMiddleware_UnknownUser(t *testing.T) {
	router, sessions := adminTestRouter(t)

	// Токен валиден, но пользователь из него уже удален
	token, err := sessions.GenerateToken(&entity.User{ID: 99, Email: "ghost@example.com"})
	require.NoError(t, err)

	rec := postQuestions(t, router, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminMiddleware_NoToken(t *testing.T) {
	router, _ := adminTestRouter(t)

	rec := postQuestions(t, router, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
