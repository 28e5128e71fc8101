package domain

import "errors"

var (
	// ErrRoomNotFound is returned when a room code resolves to nothing.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomCodeTaken is returned by the registry on a code collision.
	ErrRoomCodeTaken = errors.New("room code already in use")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrGameInProgress rejects new players joining an active quiz.
	ErrGameInProgress = errors.New("quiz already in progress")
	// ErrQuizNotActive rejects progression while no quiz is running.
	ErrQuizNotActive = errors.New("quiz not active")
	// ErrNotHost rejects host-only operations from other players.
	ErrNotHost = errors.New("only the host may do that")
	// ErrPlayerNotFound is returned when a user acts before joining.
	ErrPlayerNotFound = errors.New("player not found in room")
	// ErrNotBound is returned when a connection has no room binding.
	ErrNotBound = errors.New("connection not bound to a room")
)
