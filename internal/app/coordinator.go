package app

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"quiz-room-service/internal/domain"
)

const (
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	roomCodeLength   = 6
	// createAttempts bounds code regeneration on registry collisions.
	createAttempts = 5

	defaultGracePeriod      = 30 * time.Second
	defaultQuestionDuration = 30 * time.Second
)

// Options carries the coordinator's tunables.
type Options struct {
	GracePeriod      time.Duration
	QuestionDuration time.Duration
}

// Coordinator orchestrates live quiz rooms: it resolves callers through
// the connection index, applies each mutation under the room's lock,
// and publishes the resulting events to the room's broadcast group.
type Coordinator struct {
	rooms    RoomRegistry
	conns    ConnIndex
	quizzes  QuizRepository
	clients  Broadcaster
	presence *Presence

	gracePeriod      time.Duration
	questionDuration time.Duration
	now              func() time.Time

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewCoordinator(rooms RoomRegistry, conns ConnIndex, quizzes QuizRepository, clients Broadcaster, opts Options) *Coordinator {
	return newCoordinatorWithClock(rooms, conns, quizzes, clients, opts, time.Now)
}

// NewCoordinatorWithClock is test-only for deterministic timestamps.
func NewCoordinatorWithClock(rooms RoomRegistry, conns ConnIndex, quizzes QuizRepository, clients Broadcaster, opts Options, now func() time.Time) *Coordinator {
	return newCoordinatorWithClock(rooms, conns, quizzes, clients, opts, now)
}

func newCoordinatorWithClock(rooms RoomRegistry, conns ConnIndex, quizzes QuizRepository, clients Broadcaster, opts Options, now func() time.Time) *Coordinator {
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = defaultGracePeriod
	}
	if opts.QuestionDuration <= 0 {
		opts.QuestionDuration = defaultQuestionDuration
	}
	return &Coordinator{
		rooms:            rooms,
		conns:            conns,
		quizzes:          quizzes,
		clients:          clients,
		presence:         NewPresence(),
		gracePeriod:      opts.GracePeriod,
		questionDuration: opts.QuestionDuration,
		now:              now,
		rnd:              rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateRoom fetches the quiz, registers a fresh room with the caller
// as host, and subscribes the caller to the room's group. The quiz
// lookup happens before any state exists, so a catalog failure leaves
// nothing behind.
func (c *Coordinator) CreateRoom(ctx context.Context, connID, hostUserID, displayName, quizID string) error {
	quiz, err := c.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		c.clients.ToClient(connID, EventError, errorPayload(err))
		return err
	}

	var room *Room
	for attempt := 0; attempt < createAttempts; attempt++ {
		candidate := NewRoom(c.newRoomCode(), hostUserID, displayName, quizID, quiz.Questions)
		if err = c.rooms.Create(candidate); err == nil {
			room = candidate
			break
		}
	}
	if room == nil {
		c.clients.ToClient(connID, EventError, errorPayload(err))
		return err
	}

	c.conns.Bind(connID, Binding{RoomCode: room.Code(), UserID: hostUserID})
	c.clients.JoinGroup(connID, room.Code())
	c.clients.ToClient(connID, EventRoomCreated, room.Snapshot())
	log.Printf("room %s created by %s (quiz %s, %d questions)", room.Code(), hostUserID, quizID, len(quiz.Questions))
	return nil
}

// JoinRoom seats a new player, or reconnects a returning one. New
// players are rejected while a quiz is active; returning ones are
// always let back in and any pending grace removal is disarmed.
func (c *Coordinator) JoinRoom(connID, roomCode, userID, displayName string) error {
	room, ok := c.rooms.Get(roomCode)
	if !ok {
		c.clients.ToClient(connID, EventRoomNotFound, nil)
		return domain.ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed {
		// Lost a race with the room closing between lookup and lock.
		c.clients.ToClient(connID, EventRoomNotFound, nil)
		return domain.ErrRoomNotFound
	}

	if p := room.playerLocked(userID); p != nil {
		p.IsConnected = true
		c.presence.CancelGrace(roomCode, userID)
		c.conns.Bind(connID, Binding{RoomCode: roomCode, UserID: userID})
		c.clients.JoinGroup(connID, roomCode)
		c.clients.ToClient(connID, EventPlayerReconnected, *p)
		c.clients.ToGroup(roomCode, EventRoomUpdated, room.snapshotLocked())
		c.clients.ToClient(connID, EventRoom, room.snapshotLocked())
		log.Printf("player %s reconnected to room %s", userID, roomCode)
		return nil
	}

	if room.state.IsActive {
		c.clients.ToClient(connID, EventError, errorPayload(domain.ErrGameInProgress))
		return domain.ErrGameInProgress
	}

	player := &domain.Player{UserID: userID, DisplayName: displayName, IsConnected: true}
	room.players = append(room.players, player)
	c.conns.Bind(connID, Binding{RoomCode: roomCode, UserID: userID})
	c.clients.JoinGroup(connID, roomCode)
	c.clients.ToGroup(roomCode, EventPlayerJoined, *player)
	c.clients.ToClient(connID, EventRoom, room.snapshotLocked())
	log.Printf("player %s (%s) joined room %s", displayName, userID, roomCode)
	return nil
}

// LeaveRoom removes a player deliberately. An empty roster or a
// departing host closes the room.
func (c *Coordinator) LeaveRoom(connID, roomCode, userID string) {
	defer func() {
		c.conns.Unbind(connID)
		c.clients.LeaveGroup(connID, roomCode)
	}()

	room, ok := c.rooms.Get(roomCode)
	if !ok {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed {
		return
	}
	if p := room.removePlayerLocked(userID); p != nil {
		c.clients.ToGroup(roomCode, EventPlayerLeft, *p)
	}
	if len(room.players) == 0 || userID == room.hostUserID {
		c.closeRoomLocked(room)
	}
}

// Disconnect handles a dropped transport connection: the player keeps
// their seat, marked disconnected, until the grace period runs out.
func (c *Coordinator) Disconnect(connID string) {
	binding, ok := c.conns.Unbind(connID)
	if !ok {
		return
	}
	room, ok := c.rooms.Get(binding.RoomCode)
	if !ok {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	p := room.playerLocked(binding.UserID)
	if room.closed || p == nil {
		return
	}
	p.IsConnected = false
	c.clients.ToGroup(binding.RoomCode, EventPlayerDisconnected, *p)
	log.Printf("player %s disconnected from room %s, grace period started", binding.UserID, binding.RoomCode)

	c.presence.ScheduleGrace(binding.RoomCode, binding.UserID, c.gracePeriod, func() {
		c.expireGrace(binding.RoomCode, binding.UserID)
	})
}

// expireGrace fires when a disconnected player's grace period ends. The
// player may have reconnected, left, or the room may be gone, so every
// condition is re-checked before acting.
func (c *Coordinator) expireGrace(roomCode, userID string) {
	room, ok := c.rooms.Get(roomCode)
	if !ok {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	p := room.playerLocked(userID)
	if room.closed || p == nil || p.IsConnected {
		return
	}
	room.removePlayerLocked(userID)
	c.clients.ToGroup(roomCode, EventPlayerLeft, *p)
	log.Printf("player %s grace period expired, removed from room %s", userID, roomCode)
	if len(room.players) == 0 || userID == room.hostUserID {
		c.closeRoomLocked(room)
	}
}

// closeRoomLocked removes the room from the registry, disarms its
// timers, and tells the group. Caller holds the room lock.
func (c *Coordinator) closeRoomLocked(room *Room) {
	room.closed = true
	c.rooms.Remove(room.code)
	c.presence.CancelRoom(room.code)
	c.clients.ToGroup(room.code, EventRoomClosed, nil)
	for _, connID := range c.conns.UnbindRoom(room.code) {
		c.clients.LeaveGroup(connID, room.code)
	}
	log.Printf("room %s closed", room.code)
}

// StartQuiz is host-only and moves the room from lobby to question 0.
func (c *Coordinator) StartQuiz(connID, roomCode string) error {
	room, err := c.hostRoom(connID, roomCode)
	if err != nil {
		return err
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed {
		c.clients.ToClient(connID, EventRoomNotFound, nil)
		return domain.ErrRoomNotFound
	}
	if room.state.IsActive {
		c.clients.ToClient(connID, EventError, errorPayload(domain.ErrGameInProgress))
		return domain.ErrGameInProgress
	}
	room.state.IsActive = true
	room.resetQuestionLocked(0, c.questionDeadline())
	c.armQuestionLocked(room)
	c.clients.ToGroup(roomCode, EventQuizStarted, room.snapshotLocked())
	c.clients.ToGroup(roomCode, EventStateUpdated, room.snapshotLocked().State)
	return nil
}

// SubmitAnswer records the caller's answer for the current question.
// The first answer per question per user wins; anything else (unknown
// room, no live question, duplicate, past the deadline) is silently
// ignored so client retries stay idempotent.
func (c *Coordinator) SubmitAnswer(connID, roomCode string, answerIndex int) {
	binding, ok := c.conns.Resolve(connID)
	if !ok || binding.RoomCode != roomCode {
		return
	}
	room, ok := c.rooms.Get(roomCode)
	if !ok {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	question := room.currentQuestionLocked()
	if room.closed || question == nil {
		return
	}
	if _, answered := room.state.Answers[binding.UserID]; answered {
		return
	}
	p := room.playerLocked(binding.UserID)
	if p == nil {
		return
	}
	now := c.now()
	if end := room.state.QuestionEndTime; end != nil && now.UnixMilli() > *end {
		return
	}

	room.state.Answers[binding.UserID] = answerIndex
	if answerIndex == question.CorrectAnswerIndex {
		awarded := Score(room.state.QuestionEndTime, now, true)
		p.Score += awarded
		log.Printf("player %s answered correctly in room %s (+%d)", binding.UserID, roomCode, awarded)
	}
	c.clients.ToGroup(roomCode, EventRoomUpdated, room.snapshotLocked())
}

// NextQuestion is host-only and advances the cursor, or finishes the
// quiz when the current question is the last one.
func (c *Coordinator) NextQuestion(connID, roomCode string) error {
	room, err := c.hostRoom(connID, roomCode)
	if err != nil {
		return err
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed {
		c.clients.ToClient(connID, EventRoomNotFound, nil)
		return domain.ErrRoomNotFound
	}
	if !room.state.IsActive {
		c.clients.ToClient(connID, EventError, errorPayload(domain.ErrQuizNotActive))
		return domain.ErrQuizNotActive
	}

	current := room.state.CurrentQuestionIndex
	c.presence.CancelDeadline(roomCode, current)
	if current >= len(room.questions)-1 {
		// Terminal: clients derive "finished" from the last index
		// plus the inactive flag.
		room.state.IsActive = false
		room.state.QuestionEndTime = nil
	} else {
		room.resetQuestionLocked(current+1, c.questionDeadline())
		c.armQuestionLocked(room)
	}
	c.clients.ToGroup(roomCode, EventStateUpdated, room.snapshotLocked().State)
	return nil
}

// RestartQuiz is host-only: zero every score and re-enter the active
// state at question 0.
func (c *Coordinator) RestartQuiz(connID, roomCode string) error {
	room, err := c.hostRoom(connID, roomCode)
	if err != nil {
		return err
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed {
		c.clients.ToClient(connID, EventRoomNotFound, nil)
		return domain.ErrRoomNotFound
	}
	c.presence.CancelDeadline(roomCode, room.state.CurrentQuestionIndex)
	for _, p := range room.players {
		p.Score = 0
	}
	room.state.IsActive = true
	room.resetQuestionLocked(0, c.questionDeadline())
	c.armQuestionLocked(room)
	c.clients.ToGroup(roomCode, EventRoomUpdated, room.snapshotLocked())
	return nil
}

// GetRoom sends the caller a read-only snapshot, e.g. after a reload.
func (c *Coordinator) GetRoom(connID, roomCode string) {
	room, ok := c.rooms.Get(roomCode)
	if !ok {
		c.clients.ToClient(connID, EventRoomNotFound, nil)
		return
	}
	c.clients.ToClient(connID, EventRoom, room.Snapshot())
}

// hostRoom resolves the caller through the connection index and checks
// the host claim; host-only operations never trust a client-sent id.
func (c *Coordinator) hostRoom(connID, roomCode string) (*Room, error) {
	binding, ok := c.conns.Resolve(connID)
	if !ok || binding.RoomCode != roomCode {
		c.clients.ToClient(connID, EventError, errorPayload(domain.ErrNotBound))
		return nil, domain.ErrNotBound
	}
	room, ok := c.rooms.Get(roomCode)
	if !ok {
		c.clients.ToClient(connID, EventRoomNotFound, nil)
		return nil, domain.ErrRoomNotFound
	}
	if binding.UserID != room.hostUserID {
		c.clients.ToClient(connID, EventError, errorPayload(domain.ErrNotHost))
		return nil, domain.ErrNotHost
	}
	return room, nil
}

// questionDeadline returns now + question duration in Unix millis.
func (c *Coordinator) questionDeadline() *int64 {
	end := c.now().Add(c.questionDuration).UnixMilli()
	return &end
}

// armQuestionLocked schedules the deadline broadcast for the room's
// current question. Firing re-validates: the room may have closed or
// advanced since scheduling.
func (c *Coordinator) armQuestionLocked(room *Room) {
	code := room.code
	idx := room.state.CurrentQuestionIndex
	c.presence.ScheduleDeadline(code, idx, c.questionDuration, func() {
		c.expireQuestion(code, idx)
	})
}

// expireQuestion tells the group time is up for a question, unless the
// room moved on (or away) in the meantime.
func (c *Coordinator) expireQuestion(roomCode string, questionIndex int) {
	room, ok := c.rooms.Get(roomCode)
	if !ok {
		return
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed || !room.state.IsActive || room.state.CurrentQuestionIndex != questionIndex {
		return
	}
	c.clients.ToGroup(roomCode, EventStateUpdated, room.snapshotLocked().State)
}

func (c *Coordinator) newRoomCode() string {
	code := make([]byte, roomCodeLength)
	c.rndMu.Lock()
	for i := range code {
		code[i] = roomCodeAlphabet[c.rnd.Intn(len(roomCodeAlphabet))]
	}
	c.rndMu.Unlock()
	return string(code)
}

type errorMessage struct {
	Message string `json:"message"`
}

func errorPayload(err error) errorMessage {
	return errorMessage{Message: err.Error()}
}
