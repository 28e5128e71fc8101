package app

import (
	"context"

	"quiz-room-service/internal/domain"
)

// RoomRegistry stores live rooms by code (in-memory, Redis-aware, etc).
type RoomRegistry interface {
	Create(room *Room) error
	Get(code string) (*Room, bool)
	Remove(code string)
}

// Binding ties a transport connection to the room and user it acts as.
type Binding struct {
	RoomCode string
	UserID   string
}

// ConnIndex resolves which room/user a connection belongs to. It is the
// only context available when the transport reports a dropped connection.
type ConnIndex interface {
	Bind(connID string, binding Binding)
	Resolve(connID string) (Binding, bool)
	Unbind(connID string) (Binding, bool)
	// UnbindRoom clears every binding for a closing room and returns
	// the affected connection IDs so their group memberships can be
	// released too.
	UnbindRoom(roomCode string) []string
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// Broadcaster delivers named events to one connection or a whole room
// group. Implementations must not block the caller: the coordinator
// publishes while holding a room's lock.
type Broadcaster interface {
	JoinGroup(connID, group string)
	LeaveGroup(connID, group string)
	ToClient(connID, event string, payload any)
	ToGroup(group, event string, payload any)
}

// Server-to-client event names. These match the wire protocol of the
// original SignalR-style clients one to one.
const (
	EventRoomCreated        = "RoomCreated"
	EventRoom               = "Room"
	EventRoomNotFound       = "RoomNotFound"
	EventPlayerJoined       = "PlayerJoined"
	EventPlayerReconnected  = "PlayerReconnected"
	EventPlayerDisconnected = "PlayerDisconnected"
	EventPlayerLeft         = "PlayerLeft"
	EventRoomClosed         = "RoomClosed"
	EventQuizStarted        = "QuizStarted"
	EventStateUpdated       = "StateUpdated"
	EventRoomUpdated        = "RoomUpdated"
	EventError              = "Error"
)
