package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"quiz-room-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuizLoader fetches quiz content from a backing store (e.g., Postgres).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizRepository caches whole quizzes in Redis and falls back to a
// loader on cache miss. Questions are index-addressed and carry their
// options, media refs and answer key, so the full quiz document is
// stored as one JSON value: SET quiz:{quizID}:data {json}
type QuizRepository struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuizRepository(client *redis.Client, loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	key := r.dataKey(quizID)

	if raw, err := r.client.Get(ctx, key).Bytes(); err == nil {
		if quiz, err := decodeQuiz(raw); err == nil {
			return quiz, nil
		}
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := r.client.Get(ctx, key).Bytes(); err == nil {
			if quiz, err := decodeQuiz(raw); err == nil {
				return quiz, nil
			}
		}

		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		if raw, err := encodeQuiz(quiz); err == nil {
			_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (r *QuizRepository) dataKey(quizID string) string {
	return "quiz:" + quizID + ":data"
}

// cachedQuestion keeps the answer key, which domain.Question hides from
// client-facing JSON.
type cachedQuestion struct {
	Text               string   `json:"text"`
	AnswerOptions      []string `json:"answerOptions"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
	MediaRef           string   `json:"mediaRef"`
}

type cachedQuiz struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Questions []cachedQuestion `json:"questions"`
}

func encodeQuiz(quiz domain.Quiz) ([]byte, error) {
	doc := cachedQuiz{ID: quiz.ID, Title: quiz.Title, Questions: make([]cachedQuestion, 0, len(quiz.Questions))}
	for _, q := range quiz.Questions {
		doc.Questions = append(doc.Questions, cachedQuestion{
			Text:               q.Text,
			AnswerOptions:      q.AnswerOptions,
			CorrectAnswerIndex: q.CorrectAnswerIndex,
			MediaRef:           q.MediaRef,
		})
	}
	return json.Marshal(doc)
}

func decodeQuiz(raw []byte) (domain.Quiz, error) {
	var doc cachedQuiz
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.Quiz{}, err
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

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
