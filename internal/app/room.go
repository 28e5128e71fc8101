package app

import (
	"sync"

	"quiz-room-service/internal/domain"
)

// Room is the in-memory state of one live session. All mutation happens
// under mu; operations against different rooms proceed in parallel.
type Room struct {
	mu sync.Mutex

	code       string
	closed     bool
	hostUserID string
	quizID     string
	players    []*domain.Player
	state      domain.RoomState
	questions  []domain.Question
}

// NewRoom builds a room with the host seated as its first player.
func NewRoom(code, hostUserID, hostName, quizID string, questions []domain.Question) *Room {
	return &Room{
		code:       code,
		hostUserID: hostUserID,
		quizID:     quizID,
		players: []*domain.Player{{
			UserID:      hostUserID,
			DisplayName: hostName,
			IsConnected: true,
		}},
		state: domain.RoomState{
			Answers: make(map[string]int),
		},
		questions: questions,
	}
}

// Code returns the room's join code.
func (r *Room) Code() string {
	return r.code
}

func (r *Room) playerLocked(userID string) *domain.Player {
	for _, p := range r.players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

func (r *Room) removePlayerLocked(userID string) *domain.Player {
	for i, p := range r.players {
		if p.UserID == userID {
			r.players = append(r.players[:i], r.players[i+1:]...)
			// Every answer key must refer to a seated player.
			delete(r.state.Answers, userID)
			return p
		}
	}
	return nil
}

func (r *Room) currentQuestionLocked() *domain.Question {
	idx := r.state.CurrentQuestionIndex
	if !r.state.IsActive || idx < 0 || idx >= len(r.questions) {
		return nil
	}
	return &r.questions[idx]
}

// resetQuestionLocked moves the cursor to idx with a clean answer sheet.
func (r *Room) resetQuestionLocked(idx int, endTime *int64) {
	r.state.CurrentQuestionIndex = idx
	r.state.Answers = make(map[string]int)
	r.state.QuestionEndTime = endTime
}

func (r *Room) snapshotLocked() domain.RoomSnapshot {
	players := make([]domain.Player, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, *p)
	}
	answers := make(map[string]int, len(r.state.Answers))
	for user, idx := range r.state.Answers {
		answers[user] = idx
	}
	state := r.state
	state.Answers = answers
	return domain.RoomSnapshot{
		RoomCode:   r.code,
		HostUserID: r.hostUserID,
		QuizID:     r.quizID,
		Players:    players,
		State:      state,
		Questions:  r.questions,
	}
}

// Snapshot returns a consistent client-facing copy of the room.
func (r *Room) Snapshot() domain.RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}
