package quizengine

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/quizroom-api/internal/domain/entity"
	"github.com/yourusername/quizroom-api/internal/domain/repository"
	"github.com/yourusername/quizroom-api/internal/websocket"
)

// testConfig сжимает тайминги до миллисекунд, чтобы тесты шли быстро
func testConfig(questionCount int) Config {
	return Config{
		StartDelay:        20 * time.Millisecond,
		QuestionTimeLimit: 80 * time.Millisecond,
		NextQuestionDelay: 20 * time.Millisecond,
		QuestionsPerQuiz:  questionCount,
		DeadRoomTTL:       time.Minute,
	}
}

type broadcastFrame struct {
	roomID      string
	messageType string
	payload     interface{}
}

// mockBroadcaster собирает рассылки в канал для проверки порядка
type mockBroadcaster struct {
	ch chan broadcastFrame
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{ch: make(chan broadcastFrame, 256)}
}

func (m *mockBroadcaster) BroadcastToRoom(roomID string, messageType string, payload interface{}) {
	m.ch <- broadcastFrame{roomID: roomID, messageType: messageType, payload: payload}
}

// waitFrame ждет рассылку указанного типа, пропуская остальные
func waitFrame(t *testing.T, b *mockBroadcaster, messageType string) broadcastFrame {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case frame := <-b.ch:
			if frame.messageType == messageType {
				return frame
			}
		case <-deadline:
			t.Fatalf("не дождались сообщения %s", messageType)
		}
	}
}

type mockRoomStore struct {
	mu          sync.Mutex
	room        *entity.Room
	deactivated []string
}

func (m *mockRoomStore) GetByID(id string) (*entity.Room, error) {
	if m.room == nil || m.room.ID != id {
		return nil, repository.ErrRoomNotFound
	}
	return m.room, nil
}

func (m *mockRoomStore) Deactivate(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deactivated = append(m.deactivated, id)
	return nil
}

type mockMembership struct {
	mu    sync.Mutex
	names map[uint]string
	// Участники, уже состоящие в комнате до создания исполнителя
	seeded []repository.ParticipantInfo
	// Пользователи, чьи строки были удалены через Leave
	left []uint
}

func (m *mockMembership) Join(userID uint, roomID string) (*repository.JoinResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name, ok := m.names[userID]
	if !ok {
		name = fmt.Sprintf("user-%d", userID)
	}
	return &repository.JoinResult{UserName: name}, nil
}

func (m *mockMembership) Leave(userID uint, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.left = append(m.left, userID)
	return nil
}

func (m *mockMembership) leftUsers() []uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]uint, len(m.left))
	copy(out, m.left)
	return out
}

func (m *mockMembership) ListByRoom(roomID string) ([]repository.ParticipantInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seeded, nil
}

type mockQuestions struct {
	count int
}

func (m *mockQuestions) GetRandomQuestions(limit int) ([]entity.Question, error) {
	n := limit
	if m.count < n {
		n = m.count
	}
	questions := make([]entity.Question, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, entity.Question{
			ID:            uint(i + 1),
			Text:          fmt.Sprintf("Вопрос %d", i+1),
			Options:       entity.StringArray{"A", "B", "C", "D"},
			CorrectOption: 1,
		})
	}
	return questions, nil
}

type mockResults struct {
	mu        sync.Mutex
	claims    []entity.AnswerClaim
	winErr    error
	standings []websocket.StandingEntry
}

func (m *mockResults) RecordWin(claim *entity.AnswerClaim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.winErr != nil {
		return m.winErr
	}
	m.claims = append(m.claims, *claim)
	return nil
}

func (m *mockResults) FinalStandings(roomID string) ([]websocket.StandingEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.standings, nil
}

func (m *mockResults) recordedClaims() []entity.AnswerClaim {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entity.AnswerClaim, len(m.claims))
	copy(out, m.claims)
	return out
}

const testRoomID = "room-1"

func newTestEngine(cfg Config, results *mockResults) (*Engine, *mockBroadcaster) {
	engine, broadcaster, _ := newTestEngineFull(cfg, results)
	return engine, broadcaster
}

func newTestEngineFull(cfg Config, results *mockResults) (*Engine, *mockBroadcaster, *mockMembership) {
	broadcaster := newMockBroadcaster()
	roomStore := &mockRoomStore{room: &entity.Room{ID: testRoomID, HostID: 1, IsActive: true, MaxPlayers: 10}}
	membership := &mockMembership{names: map[uint]string{1: "host", 2: "alice", 3: "bob"}}
	questions := &mockQuestions{count: 50}
	engine := NewEngine(cfg, broadcaster, roomStore, membership, questions, results)
	return engine, broadcaster, membership
}

func TestEngine_FullQuizFlow(t *testing.T) {
	// Arrange
	results := &mockResults{standings: []websocket.StandingEntry{
		{UserID: 1, UserName: "host", Score: 1, NewRating: 1210},
		{UserID: 2, UserName: "alice", Score: 0, NewRating: 1200},
	}}
	engine, broadcaster := newTestEngine(testConfig(2), results)

	// Act: хост и игрок входят, хост запускает викторину
	_, err := engine.Join(1, testRoomID)
	require.NoError(t, err)
	_, err = engine.Join(2, testRoomID)
	require.NoError(t, err)
	require.NoError(t, engine.StartQuiz(1, testRoomID))

	// Assert: quizStarting, затем первый вопрос
	starting := waitFrame(t, broadcaster, websocket.MessageTypeQuizStarting)
	assert.Equal(t, testRoomID, starting.roomID)

	first := waitFrame(t, broadcaster, websocket.MessageTypeNextQuestion).payload.(websocket.NextQuestionPayload)
	assert.Equal(t, 0, first.QuestionIndex)
	assert.Len(t, first.Question.Options, 4)

	// Окно вопроса в метках времени равно лимиту точно
	startedAt, err := time.Parse(time.RFC3339Nano, first.StartedAt)
	require.NoError(t, err)
	expiresAt, err := time.Parse(time.RFC3339Nano, first.ExpiresAt)
	require.NoError(t, err)
	assert.Equal(t, testConfig(2).QuestionTimeLimit, expiresAt.Sub(startedAt))

	// Хост отвечает правильно, вопрос закрывается немедленно
	require.NoError(t, engine.SubmitAnswer(1, testRoomID, 0, 1))
	end := waitFrame(t, broadcaster, websocket.MessageTypeEndQuestion).payload.(websocket.EndQuestionPayload)
	assert.Equal(t, 0, end.QuestionIndex)
	require.NotNil(t, end.WinnerUserID)
	assert.Equal(t, uint(1), *end.WinnerUserID)
	assert.Equal(t, 1, end.CorrectIdx)

	// Второй вопрос истекает без ответа
	second := waitFrame(t, broadcaster, websocket.MessageTypeNextQuestion).payload.(websocket.NextQuestionPayload)
	assert.Equal(t, 1, second.QuestionIndex)
	expired := waitFrame(t, broadcaster, websocket.MessageTypeEndQuestion).payload.(websocket.EndQuestionPayload)
	assert.Equal(t, 1, expired.QuestionIndex)
	assert.Nil(t, expired.WinnerUserID)

	// Финальная таблица
	finished := waitFrame(t, broadcaster, websocket.MessageTypeQuizFinished).payload.(websocket.QuizFinishedPayload)
	assert.Len(t, finished.Standings, 2)

	// Заявка победителя записана с детерминированным tx_hash
	claims := results.recordedClaims()
	require.Len(t, claims, 1)
	assert.Equal(t, uint(1), claims[0].UserID)
	assert.True(t, strings.HasPrefix(claims[0].TxHash, "claim_room-1_0_1_"))
}

func TestEngine_StartQuizRequiresHost(t *testing.T) {
	engine, _ := newTestEngine(testConfig(2), &mockResults{})

	_, err := engine.Join(1, testRoomID)
	require.NoError(t, err)
	_, err = engine.Join(2, testRoomID)
	require.NoError(t, err)

	err = engine.StartQuiz(2, testRoomID)
	assert.ErrorIs(t, err, ErrNotHost)
}

func TestEngine_StartQuizTwice(t *testing.T) {
	engine, broadcaster := newTestEngine(testConfig(2), &mockResults{})

	_, err := engine.Join(1, testRoomID)
	require.NoError(t, err)
	require.NoError(t, engine.StartQuiz(1, testRoomID))
	waitFrame(t, broadcaster, websocket.MessageTypeQuizStarting)

	err = engine.StartQuiz(1, testRoomID)
	assert.ErrorIs(t, err, ErrQuizAlreadyRunning)
}

func TestEngine_StartQuizWithoutJoin(t *testing.T) {
	engine, _ := newTestEngine(testConfig(2), &mockResults{})

	err := engine.StartQuiz(1, testRoomID)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestEngine_InsufficientQuestions(t *testing.T) {
	broadcaster := newMockBroadcaster()
	roomStore := &mockRoomStore{room: &entity.Room{ID: testRoomID, HostID: 1, IsActive: true, MaxPlayers: 10}}
	membership := &mockMembership{names: map[uint]string{1: "host"}}
	// В банке всего 3 вопроса при требуемых 10
	engine := NewEngine(testConfig(10), broadcaster, roomStore, membership, &mockQuestions{count: 3}, &mockResults{})

	_, err := engine.Join(1, testRoomID)
	require.NoError(t, err)

	err = engine.StartQuiz(1, testRoomID)
	assert.ErrorIs(t, err, ErrInsufficientQuestions)
}

func TestEngine_WrongAnswerDoesNotWin(t *testing.T) {
	results := &mockResults{}
	engine, broadcaster := newTestEngine(testConfig(1), results)

	_, err := engine.Join(1, testRoomID)
	require.NoError(t, err)
	_, err = engine.Join(2, testRoomID)
	require.NoError(t, err)
	require.NoError(t, engine.StartQuiz(1, testRoomID))
	waitFrame(t, broadcaster, websocket.MessageTypeNextQuestion)

	// Неправильный ответ принимается молча и не закрывает вопрос
	require.NoError(t, engine.SubmitAnswer(2, testRoomID, 0, 0))

	// Пользователь уже отвечал: правильный ответ той же рукой игнорируется
	require.NoError(t, engine.SubmitAnswer(2, testRoomID, 0, 1))

	// Другой участник еще может выиграть
	require.NoError(t, engine.SubmitAnswer(1, testRoomID, 0, 1))
	end := waitFrame(t, broadcaster, websocket.MessageTypeEndQuestion).payload.(websocket.EndQuestionPayload)
	require.NotNil(t, end.WinnerUserID)
	assert.Equal(t, uint(1), *end.WinnerUserID)
}

func TestEngine_AnswerIndexMismatch(t *testing.T) {
	engine, broadcaster := newTestEngine(testConfig(2), &mockResults{})

	_, err := engine.Join(1, testRoomID)
	require.NoError(t, err)
	require.NoError(t, engine.StartQuiz(1, testRoomID))
	waitFrame(t, broadcaster, websocket.MessageTypeNextQuestion)

	err = engine.SubmitAnswer(1, testRoomID, 5, 1)
	assert.ErrorIs(t, err, ErrQuestionNotActive)
}

func TestEngine_AnswerBeforeQuizStarts(t *testing.T) {
	engine, _ := newTestEngine(testConfig(2), &mockResults{})

	_, err := engine.Join(1, testRoomID)
	require.NoError(t, err)

	err = engine.SubmitAnswer(1, testRoomID, 0, 1)
	assert.ErrorIs(t, err, ErrQuestionNotActive)
}

func TestEngine_AnswerFromOutsider(t *testing.T) {
	engine, broadcaster := newTestEngine(testConfig(2), &mockResults{})

	_, err := engine.Join(1, testRoomID)
	require.NoError(t, err)
	require.NoError(t, engine.StartQuiz(1, testRoomID))
	waitFrame(t, broadcaster, websocket.MessageTypeNextQuestion)

	// Пользователь 3 в комнату не входил
	err = engine.SubmitAnswer(3, testRoomID, 0, 1)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestEngine_JoinSnapshotDuringQuestion(t *testing.T) {
	engine, broadcaster := newTestEngine(testConfig(2), &mockResults{})

	_, err := engine.Join(1, testRoomID)
	require.NoError(t, err)
	require.NoError(t, engine.StartQuiz(1, testRoomID))
	waitFrame(t, broadcaster, websocket.MessageTypeNextQuestion)

	// Вход посреди вопроса: снимок содержит фазу и индекс
	snap, err := engine.Join(2, testRoomID)
	require.NoError(t, err)
	assert.Equal(t, PhaseAsking, snap.Phase)
	require.NotNil(t, snap.QuestionIndex)
	assert.Equal(t, 0, *snap.QuestionIndex)
	assert.Len(t, snap.Participants, 2)
}

func TestEngine_LastLeaveKillsRoom(t *testing.T) {
	cfg := testConfig(2)
	cfg.DeadRoomTTL = 0
	engine, broadcaster := newTestEngine(cfg, &mockResults{})

	_, err := engine.Join(1, testRoomID)
	require.NoError(t, err)
	_, err = engine.Join(2, testRoomID)
	require.NoError(t, err)

	require.NoError(t, engine.Leave(1, testRoomID))
	waitFrame(t, broadcaster, websocket.MessageTypeParticipantLeft)
	require.NoError(t, engine.Leave(2, testRoomID))
	waitFrame(t, broadcaster, websocket.MessageTypeParticipantLeft)

	// Комната мертва: нулевой TTL позволяет вычистить ее сразу
	assert.Equal(t, 1, engine.ActiveRoomCount())
	assert.Equal(t, 1, engine.SweepDeadRooms(time.Now()))
	assert.Equal(t, 0, engine.ActiveRoomCount())
}

func TestEngine_ClaimPersistFailureEndsQuizEarly(t *testing.T) {
	results := &mockResults{
		winErr:    fmt.Errorf("disk on fire"),
		standings: []websocket.StandingEntry{{UserID: 1, UserName: "host", Score: 0, NewRating: 1200}},
	}
	// Два вопроса: провал записи на первом не должен дать второму начаться
	engine, broadcaster := newTestEngine(testConfig(2), results)

	_, err := engine.Join(1, testRoomID)
	require.NoError(t, err)
	require.NoError(t, engine.StartQuiz(1, testRoomID))
	waitFrame(t, broadcaster, websocket.MessageTypeNextQuestion)

	require.NoError(t, engine.SubmitAnswer(1, testRoomID, 0, 1))
	waitFrame(t, broadcaster, websocket.MessageTypeEndQuestion)

	// Запись заявки провалилась: викторина досрочно завершается
	// с теми очками, что успели сохраниться
	finished := waitFrame(t, broadcaster, websocket.MessageTypeQuizFinished).payload.(websocket.QuizFinishedPayload)
	assert.Len(t, finished.Standings, 1)

	_, err = engine.Join(2, testRoomID)
	assert.ErrorIs(t, err, ErrRoomDead)
}

func TestRoom_AnswerAfterDeadline(t *testing.T) {
	// Исполнитель не запускается: handleAnswer вызывается напрямую,
	// чтобы детерминированно попасть в щель между дедлайном и таймером
	rm := newRoom(testRoomID, 1, testConfig(1), newMockBroadcaster(), &mockResults{}, &mockRoomStore{})
	rm.participants[1] = "host"
	rm.questions = []entity.Question{{
		ID:            1,
		Text:          "Вопрос",
		Options:       entity.StringArray{"A", "B", "C", "D"},
		CorrectOption: 1,
	}}
	rm.phase = PhaseAsking
	rm.qIndex = 0
	rm.deadline = time.Now().Add(-time.Millisecond)

	err := rm.handleAnswer(answerEvent{userID: 1, questionIndex: 0, choiceIdx: 1})
	assert.ErrorIs(t, err, ErrQuestionExpired)
}

func TestEngine_MidQuizLeaveRetainsScore(t *testing.T) {
	engine, broadcaster, membership := newTestEngineFull(testConfig(2), &mockResults{})

	_, err := engine.Join(1, testRoomID)
	require.NoError(t, err)
	_, err = engine.Join(2, testRoomID)
	require.NoError(t, err)
	require.NoError(t, engine.StartQuiz(1, testRoomID))
	waitFrame(t, broadcaster, websocket.MessageTypeNextQuestion)

	// Уход посреди викторины не трогает строку участника в БД,
	// иначе его очки пропали бы из финальной таблицы
	require.NoError(t, engine.Leave(2, testRoomID))
	waitFrame(t, broadcaster, websocket.MessageTypeParticipantLeft)
	assert.Empty(t, membership.leftUsers())
}

func TestEngine_LobbyLeaveDeletesRow(t *testing.T) {
	engine, broadcaster, membership := newTestEngineFull(testConfig(2), &mockResults{})

	_, err := engine.Join(1, testRoomID)
	require.NoError(t, err)
	_, err = engine.Join(2, testRoomID)
	require.NoError(t, err)

	require.NoError(t, engine.Leave(2, testRoomID))
	waitFrame(t, broadcaster, websocket.MessageTypeParticipantLeft)
	assert.Equal(t, []uint{2}, membership.leftUsers())
}

func TestEngine_ParticipantJoinedBroadcast(t *testing.T) {
	engine, broadcaster := newTestEngine(testConfig(2), &mockResults{})

	_, err := engine.Join(1, testRoomID)
	require.NoError(t, err)
	joined := waitFrame(t, broadcaster, websocket.MessageTypeParticipantJoined).payload.(websocket.ParticipantJoinedPayload)
	assert.Equal(t, uint(1), joined.UserID)
	assert.Equal(t, "host", joined.UserName)
}
