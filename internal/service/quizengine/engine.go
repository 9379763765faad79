package quizengine

import (
	"log"
	"sync"
	"time"
)

// Engine управляет исполнителями комнат. Каждая активная комната
// обслуживается собственной горутиной, Engine только маршрутизирует
// события и следит за жизненным циклом.
type Engine struct {
	config      Config
	broadcaster Broadcaster
	roomStore   RoomStore
	membership  MembershipStore
	questions   QuestionSource
	results     ResultStore

	mu     sync.Mutex
	active map[string]*room
}

// NewEngine создает движок викторин
func NewEngine(
	config Config,
	broadcaster Broadcaster,
	roomStore RoomStore,
	membership MembershipStore,
	questions QuestionSource,
	results ResultStore,
) *Engine {
	if config.QuestionsPerQuiz <= 0 {
		config = DefaultConfig()
	}
	return &Engine{
		config:      config,
		broadcaster: broadcaster,
		roomStore:   roomStore,
		membership:  membership,
		questions:   questions,
		results:     results,
		active:      make(map[string]*room),
	}
}

// Join проводит пользователя в комнату: сначала членство в БД,
// затем событие исполнителю комнаты.
func (e *Engine) Join(userID uint, roomID string) (*JoinSnapshot, error) {
	res, err := e.membership.Join(userID, roomID)
	if err != nil {
		return nil, err
	}

	rm, err := e.getOrCreateRoom(roomID)
	if err != nil {
		return nil, err
	}

	reply := make(chan joinReply, 1)
	if err := rm.submit(joinEvent{
		userID:   userID,
		userName: res.UserName,
		already:  res.AlreadyJoined,
		reply:    reply,
	}); err != nil {
		return nil, err
	}
	r := <-reply
	return r.snapshot, r.err
}

// Leave выводит пользователя из комнаты. Строка участника в БД
// удаляется только при выходе из лобби: уход посреди викторины
// лишает оставшихся вопросов, но не набранных очков.
func (e *Engine) Leave(userID uint, roomID string) error {
	rm := e.lookup(roomID)
	if rm == nil {
		return e.membership.Leave(userID, roomID)
	}

	reply := make(chan leaveReply, 1)
	if err := rm.submit(leaveEvent{userID: userID, reply: reply}); err != nil {
		// Комната уже закрыта, очки остаются записанными
		return nil
	}
	res := <-reply
	if res.err != nil {
		return res.err
	}
	if res.retainRow {
		return nil
	}
	return e.membership.Leave(userID, roomID)
}

// StartQuiz запускает викторину в комнате. Вопросы выбираются до отправки
// события, чтобы исполнитель комнаты не ходил в БД.
func (e *Engine) StartQuiz(userID uint, roomID string) error {
	rm := e.lookup(roomID)
	if rm == nil {
		// Комната без исполнителя означает, что в нее никто не входил
		return ErrNotParticipant
	}

	questions, err := e.questions.GetRandomQuestions(e.config.QuestionsPerQuiz)
	if err != nil {
		return err
	}
	if len(questions) < e.config.QuestionsPerQuiz {
		return ErrInsufficientQuestions
	}

	reply := make(chan error, 1)
	if err := rm.submit(startEvent{userID: userID, questions: questions, reply: reply}); err != nil {
		return err
	}
	return <-reply
}

// SubmitAnswer передает ответ участника исполнителю комнаты
func (e *Engine) SubmitAnswer(userID uint, roomID string, questionIndex, choiceIdx int) error {
	rm := e.lookup(roomID)
	if rm == nil {
		return ErrQuestionNotActive
	}

	reply := make(chan error, 1)
	if err := rm.submit(answerEvent{
		userID:        userID,
		questionIndex: questionIndex,
		choiceIdx:     choiceIdx,
		reply:         reply,
	}); err != nil {
		return err
	}
	return <-reply
}

// ActiveRoomCount возвращает число комнат с исполнителем
func (e *Engine) ActiveRoomCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

// SweepDeadRooms вычищает комнаты, пролежавшие мертвыми дольше TTL.
// Возвращает число вычищенных комнат. Вызывается супервизором.
func (e *Engine) SweepDeadRooms(now time.Time) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	removed := 0
	for id, rm := range e.active {
		deadSince := rm.deadSince.Load()
		if deadSince == 0 {
			continue
		}
		if now.Sub(time.Unix(0, deadSince)) >= e.config.DeadRoomTTL {
			rm.close()
			delete(e.active, id)
			removed++
		}
	}
	if removed > 0 {
		log.Printf("[QuizEngine] Вычищено мертвых комнат: %d", removed)
	}
	return removed
}

// Shutdown останавливает все исполнители комнат
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, rm := range e.active {
		rm.close()
		delete(e.active, id)
	}
	log.Printf("[QuizEngine] Остановлен")
}

func (e *Engine) lookup(roomID string) *room {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active[roomID]
}

// getOrCreateRoom возвращает исполнителя комнаты, создавая его при
// первом входе. Данные комнаты читаются из БД до захвата мьютекса.
func (e *Engine) getOrCreateRoom(roomID string) (*room, error) {
	e.mu.Lock()
	if rm, ok := e.active[roomID]; ok {
		e.mu.Unlock()
		return rm, nil
	}
	e.mu.Unlock()

	dbRoom, err := e.roomStore.GetByID(roomID)
	if err != nil {
		return nil, err
	}
	participants, err := e.membership.ListByRoom(roomID)
	if err != nil {
		return nil, err
	}

	rm := newRoom(roomID, dbRoom.HostID, e.config, e.broadcaster, e.results, e.roomStore)
	for _, p := range participants {
		rm.participants[p.UserID] = p.UserName
		rm.scores[p.UserID] = p.Score
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if existing, ok := e.active[roomID]; ok {
		// Проиграли гонку создания, наш экземпляр не запускался
		return existing, nil
	}
	e.active[roomID] = rm
	go rm.run()
	log.Printf("[QuizEngine] Комната %s: запущен исполнитель (участников: %d)", roomID, len(participants))
	return rm, nil
}
