package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"quiz-room-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuizLoader loads quiz JSONB from Postgres.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

// quizDocument is the stored shape. It carries the answer key
// explicitly since domain.Question hides it from client JSON.
type quizDocument struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Questions []struct {
		Text               string   `json:"text"`
		AnswerOptions      []string `json:"answerOptions"`
		CorrectAnswerIndex int      `json:"correctAnswerIndex"`
		MediaRef           string   `json:"mediaRef"`
	} `json:"questions"`
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, quizID).Scan(&raw)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	var doc quizDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	quiz := domain.Quiz{ID: doc.ID, Title: doc.Title, Questions: make([]domain.Question, 0, len(doc.Questions))}
	for _, q := range doc.Questions {
		quiz.Questions = append(quiz.Questions, domain.Question{
			Text:               q.Text,
			AnswerOptions:      q.AnswerOptions,
			CorrectAnswerIndex: q.CorrectAnswerIndex,
			MediaRef:           q.MediaRef,
		})
	}
	return quiz, nil
}
