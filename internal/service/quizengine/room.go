package quizengine

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yourusername/quizroom-api/internal/domain/entity"
	"github.com/yourusername/quizroom-api/internal/websocket"
)

// События комнаты. Все изменения состояния проходят через канал events
// и выполняются одной горутиной run: это и есть сериализация комнаты.
type joinEvent struct {
	userID   uint
	userName string
	already  bool
	reply    chan joinReply
}

type joinReply struct {
	snapshot *JoinSnapshot
	err      error
}

type leaveEvent struct {
	userID uint
	reply  chan leaveReply
}

type leaveReply struct {
	// Строка участника в БД сохраняется, если викторина уже шла:
	// набранные очки должны попасть в финальную таблицу
	retainRow bool
	err       error
}

type startEvent struct {
	userID    uint
	questions []entity.Question
	reply     chan error
}

type answerEvent struct {
	userID        uint
	questionIndex int
	choiceIdx     int
	reply         chan error
}

// claimPersisted приходит из горутины записи выигрышной заявки
type claimPersisted struct {
	questionIndex int
	err           error
}

// standingsReady приходит из горутины построения финальной таблицы
type standingsReady struct {
	standings []websocket.StandingEntry
	err       error
}

// room - исполнитель одной комнаты. Горутина run владеет всем состоянием,
// поэтому блокировки внутри не нужны.
type room struct {
	id     string
	hostID uint

	cfg         Config
	broadcaster Broadcaster
	results     ResultStore
	roomStore   RoomStore

	events chan interface{}
	done   chan struct{}
	once   sync.Once

	// Состояние ниже принадлежит горутине run
	phase        string
	participants map[uint]string
	scores       map[uint]int
	questions    []entity.Question
	qIndex       int
	deadline     time.Time
	answered     map[uint]struct{}
	winnerID     *uint
	// Незавершенные записи заявок в БД
	pendingPersist int
	// Последний вопрос сыгран, ждем записи заявок перед финалом
	awaitingFinish bool
	timer          *time.Timer

	// Момент перехода в Dead (UnixNano), 0 пока комната жива.
	// Читается горутиной супервизора.
	deadSince atomic.Int64
}

func newRoom(id string, hostID uint, cfg Config, broadcaster Broadcaster, results ResultStore, roomStore RoomStore) *room {
	return &room{
		id:           id,
		hostID:       hostID,
		cfg:          cfg,
		broadcaster:  broadcaster,
		results:      results,
		roomStore:    roomStore,
		events:       make(chan interface{}, 64),
		done:         make(chan struct{}),
		phase:        PhaseLobby,
		participants: make(map[uint]string),
		scores:       make(map[uint]int),
		answered:     make(map[uint]struct{}),
	}
}

// submit отправляет событие исполнителю комнаты
func (r *room) submit(ev interface{}) error {
	select {
	case r.events <- ev:
		return nil
	case <-r.done:
		return ErrRoomDead
	}
}

// close останавливает горутину run. Идемпотентен.
func (r *room) close() {
	r.once.Do(func() { close(r.done) })
}

func (r *room) run() {
	r.timer = time.NewTimer(time.Hour)
	if !r.timer.Stop() {
		<-r.timer.C
	}

	for {
		select {
		case ev := <-r.events:
			r.handleEvent(ev)
		case <-r.timer.C:
			r.handleTimer()
		case <-r.done:
			return
		}
	}
}

// resetTimer перезаряжает таймер комнаты. Безопасно, потому что
// и сброс, и чтение канала происходят в одной горутине.
func (r *room) resetTimer(d time.Duration) {
	if !r.timer.Stop() {
		select {
		case <-r.timer.C:
		default:
		}
	}
	r.timer.Reset(d)
}

func (r *room) stopTimer() {
	if !r.timer.Stop() {
		select {
		case <-r.timer.C:
		default:
		}
	}
}

func (r *room) handleEvent(ev interface{}) {
	switch e := ev.(type) {
	case joinEvent:
		e.reply <- r.handleJoin(e)
	case leaveEvent:
		e.reply <- r.handleLeave(e)
	case startEvent:
		e.reply <- r.handleStart(e)
	case answerEvent:
		e.reply <- r.handleAnswer(e)
	case claimPersisted:
		r.handleClaimPersisted(e)
	case standingsReady:
		r.handleStandingsReady(e)
	}
}

func (r *room) handleJoin(e joinEvent) joinReply {
	if r.phase == PhaseDead {
		return joinReply{err: ErrRoomDead}
	}

	_, known := r.participants[e.userID]
	r.participants[e.userID] = e.userName

	// Повторный вход не анонсируется
	if !known && !e.already {
		r.broadcaster.BroadcastToRoom(r.id, websocket.MessageTypeParticipantJoined, websocket.ParticipantJoinedPayload{
			RoomID:   r.id,
			UserID:   e.userID,
			UserName: e.userName,
		})
	}

	return joinReply{snapshot: r.snapshot(e.userName, e.already)}
}

func (r *room) snapshot(userName string, already bool) *JoinSnapshot {
	snap := &JoinSnapshot{
		RoomID:        r.id,
		Phase:         r.phase,
		UserName:      userName,
		AlreadyJoined: already,
	}
	if r.phase == PhaseAsking || r.phase == PhaseReveal {
		idx := r.qIndex
		snap.QuestionIndex = &idx
	}
	snap.Participants = make([]websocket.ParticipantSummary, 0, len(r.participants))
	for id, name := range r.participants {
		snap.Participants = append(snap.Participants, websocket.ParticipantSummary{
			UserID:   id,
			UserName: name,
			Score:    r.scores[id],
		})
	}
	return snap
}

func (r *room) handleLeave(e leaveEvent) leaveReply {
	retain := r.phase != PhaseLobby
	if r.phase == PhaseDead {
		return leaveReply{retainRow: retain}
	}
	if _, ok := r.participants[e.userID]; !ok {
		return leaveReply{retainRow: retain}
	}
	delete(r.participants, e.userID)

	r.broadcaster.BroadcastToRoom(r.id, websocket.MessageTypeParticipantLeft, websocket.ParticipantLeftPayload{
		RoomID: r.id,
		UserID: e.userID,
	})

	// Пустая комната умирает сразу, в любой фазе
	if len(r.participants) == 0 {
		log.Printf("[QuizEngine] Комната %s опустела, завершаем", r.id)
		r.markDead()
	}
	return leaveReply{retainRow: retain}
}

func (r *room) handleStart(e startEvent) error {
	if r.phase == PhaseDead {
		return ErrRoomDead
	}
	if _, ok := r.participants[e.userID]; !ok {
		return ErrNotParticipant
	}
	if e.userID != r.hostID {
		return ErrNotHost
	}
	if r.phase != PhaseLobby {
		return ErrQuizAlreadyRunning
	}

	r.questions = e.questions
	r.phase = PhaseStarting
	startsAt := time.Now().Add(r.cfg.StartDelay)

	log.Printf("[QuizEngine] Комната %s: викторина стартует, вопросов: %d", r.id, len(r.questions))
	r.broadcaster.BroadcastToRoom(r.id, websocket.MessageTypeQuizStarting, websocket.QuizStartingPayload{
		RoomID:   r.id,
		StartsAt: startsAt.UTC().Format(time.RFC3339Nano),
	})
	r.resetTimer(r.cfg.StartDelay)
	return nil
}

func (r *room) handleAnswer(e answerEvent) error {
	if r.phase == PhaseDead {
		return ErrRoomDead
	}
	if _, ok := r.participants[e.userID]; !ok {
		return ErrNotParticipant
	}
	if r.phase != PhaseAsking || e.questionIndex != r.qIndex {
		return ErrQuestionNotActive
	}
	if time.Now().After(r.deadline) {
		// Таймер еще не успел сработать, но время вышло
		return ErrQuestionExpired
	}

	// Повторный ответ молча игнорируется
	if _, dup := r.answered[e.userID]; dup {
		return nil
	}
	r.answered[e.userID] = struct{}{}

	question := r.questions[r.qIndex]
	if !question.IsCorrect(e.choiceIdx) {
		return nil
	}

	// Первый правильный ответ закрывает вопрос
	winnerID := e.userID
	r.winnerID = &winnerID
	r.scores[winnerID]++
	winnerName := r.participants[winnerID]

	r.broadcaster.BroadcastToRoom(r.id, websocket.MessageTypeEndQuestion, websocket.EndQuestionPayload{
		RoomID:        r.id,
		QuestionIndex: r.qIndex,
		CorrectIdx:    question.CorrectOption,
		WinnerUserID:  &winnerID,
		WinnerName:    &winnerName,
	})

	r.phase = PhaseReveal
	r.resetTimer(r.cfg.NextQuestionDelay)

	// Запись в БД идет в отдельной горутине: исполнитель комнаты
	// не должен ждать диск
	claim := &entity.AnswerClaim{
		RoomID:        r.id,
		QuestionIndex: r.qIndex,
		UserID:        winnerID,
		TxHash:        entity.ClaimTxHash(r.id, r.qIndex, winnerID, time.Now()),
		CreatedAt:     time.Now().UTC(),
	}
	r.pendingPersist++
	go func(qIdx int) {
		err := r.results.RecordWin(claim)
		select {
		case r.events <- claimPersisted{questionIndex: qIdx, err: err}:
		case <-r.done:
		}
	}(r.qIndex)

	return nil
}

func (r *room) handleTimer() {
	switch r.phase {
	case PhaseStarting:
		r.beginQuestion(0)
	case PhaseAsking:
		// Время вышло, победителя нет
		question := r.questions[r.qIndex]
		r.broadcaster.BroadcastToRoom(r.id, websocket.MessageTypeEndQuestion, websocket.EndQuestionPayload{
			RoomID:        r.id,
			QuestionIndex: r.qIndex,
			CorrectIdx:    question.CorrectOption,
			WinnerUserID:  nil,
		})
		r.phase = PhaseReveal
		r.resetTimer(r.cfg.NextQuestionDelay)
	case PhaseReveal:
		if r.qIndex+1 < len(r.questions) {
			r.beginQuestion(r.qIndex + 1)
		} else {
			r.finishQuiz()
		}
	}
}

func (r *room) beginQuestion(index int) {
	r.qIndex = index
	r.answered = make(map[uint]struct{})
	r.winnerID = nil
	r.phase = PhaseAsking

	// Обе метки считаются от одного момента: клиент видит окно
	// длиной ровно в лимит вопроса
	now := time.Now()
	r.deadline = now.Add(r.cfg.QuestionTimeLimit)

	question := r.questions[index]
	r.broadcaster.BroadcastToRoom(r.id, websocket.MessageTypeNextQuestion, websocket.NextQuestionPayload{
		RoomID:        r.id,
		QuestionIndex: index,
		Question: websocket.QuestionView{
			ID:      question.ID,
			Text:    question.Text,
			Options: question.Options,
		},
		StartedAt: now.UTC().Format(time.RFC3339Nano),
		ExpiresAt: r.deadline.UTC().Format(time.RFC3339Nano),
	})
	r.resetTimer(r.cfg.QuestionTimeLimit)
}

// finishQuiz запускает построение финальной таблицы. Если заявки еще
// пишутся в БД, финал откладывается до их завершения.
func (r *room) finishQuiz() {
	r.phase = PhaseFinished
	r.stopTimer()
	if r.pendingPersist > 0 {
		r.awaitingFinish = true
		return
	}
	r.fetchStandings()
}

func (r *room) fetchStandings() {
	go func() {
		standings, err := r.results.FinalStandings(r.id)
		select {
		case r.events <- standingsReady{standings: standings, err: err}:
		case <-r.done:
		}
	}()
}

func (r *room) handleClaimPersisted(e claimPersisted) {
	r.pendingPersist--
	if e.err != nil {
		// Рассылка уже объявила победителя, а БД его не приняла.
		// Продолжать викторину нельзя: досрочно завершаем ее с теми
		// очками, что успели записаться.
		log.Printf("[QuizEngine] Комната %s: ошибка записи заявки на вопрос %d: %v", r.id, e.questionIndex, e.err)
		if r.phase == PhaseDead {
			return
		}
		r.phase = PhaseFinished
		r.stopTimer()
		r.awaitingFinish = true
	}
	if r.awaitingFinish && r.pendingPersist == 0 && r.phase != PhaseDead {
		r.awaitingFinish = false
		r.fetchStandings()
	}
}

func (r *room) handleStandingsReady(e standingsReady) {
	if r.phase == PhaseDead {
		return
	}
	if e.err != nil {
		log.Printf("[QuizEngine] Комната %s: ошибка построения финальной таблицы: %v", r.id, e.err)
		r.fail()
		return
	}

	r.broadcaster.BroadcastToRoom(r.id, websocket.MessageTypeQuizFinished, websocket.QuizFinishedPayload{
		RoomID:    r.id,
		Standings: e.standings,
	})
	log.Printf("[QuizEngine] Комната %s: викторина завершена, участников: %d", r.id, len(e.standings))
	r.markDead()

	// Комната отыграла, прячем ее из списка активных
	go func() {
		if err := r.roomStore.Deactivate(r.id); err != nil {
			log.Printf("[QuizEngine] Комната %s: ошибка деактивации: %v", r.id, err)
		}
	}()
}

// fail завершает комнату после невосстановимой ошибки хранилища
func (r *room) fail() {
	if r.phase == PhaseDead {
		return
	}
	r.broadcaster.BroadcastToRoom(r.id, websocket.MessageTypeError, websocket.ErrorPayload{
		Code:    websocket.CodeInternal,
		Message: websocket.ReasonInternal,
	})
	r.markDead()
}

func (r *room) markDead() {
	r.phase = PhaseDead
	r.stopTimer()
	r.deadSince.Store(time.Now().UnixNano())
}
