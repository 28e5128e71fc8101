package domain

// Player is one seat in a room. Identity is UserID, unique within a room.
type Player struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	IsConnected bool   `json:"isConnected"`
	Score       int    `json:"score"`
}

// Question is an MCQ question copied into the room at creation time.
// The answer key never leaves the server: submissions are scored
// server-side, so the index is excluded from every client payload.
type Question struct {
	Text               string   `json:"text"`
	AnswerOptions      []string `json:"answerOptions"`
	CorrectAnswerIndex int      `json:"-"`
	MediaRef           string   `json:"mediaRef"`
}

// RoomState is the mutable progress cursor of a running quiz.
// QuestionEndTime is Unix milliseconds; nil means no deadline is set.
type RoomState struct {
	IsActive             bool           `json:"isActive"`
	CurrentQuestionIndex int            `json:"currentQuestionIndex"`
	Answers              map[string]int `json:"answers"`
	QuestionEndTime      *int64         `json:"questionEndTime"`
}

// RoomSnapshot is the client-facing view of a full room.
type RoomSnapshot struct {
	RoomCode   string     `json:"roomCode"`
	HostUserID string     `json:"hostUserId"`
	QuizID     string     `json:"quizId"`
	Players    []Player   `json:"players"`
	State      RoomState  `json:"state"`
	Questions  []Question `json:"questions"`
}

// Quiz is the catalog entity the coordinator copies questions from.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}
