package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/domain"
	"quiz-room-service/internal/infra/memory"
	pgloader "quiz-room-service/internal/infra/postgres"
	pgmigrations "quiz-room-service/internal/infra/postgres/migrations"
	infraredis "quiz-room-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestRoomFlowEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuiz(t, ctx, pgURL, sampleQuiz())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	quizRepo := infraredis.NewQuizRepository(redisClient, pgloader.NewQuizLoader(pool), 5*time.Minute)
	registry := infraredis.NewRoomRegistry(redisClient, 5*time.Minute)
	clients := &recordingBroadcaster{}
	coordinator := app.NewCoordinator(registry, memory.NewConnIndex(), quizRepo, clients, app.Options{
		QuestionDuration: 30 * time.Second,
	})

	if err := coordinator.CreateRoom(ctx, "host-conn", "h1", "Hosty", "quiz-1"); err != nil {
		t.Fatalf("create room: %v", err)
	}
	code := clients.roomCode(t)

	if exists, _ := redisClient.Exists(ctx, "room:"+code).Result(); exists != 1 {
		t.Fatalf("expected liveness key for room %s", code)
	}
	if exists, _ := redisClient.Exists(ctx, "quiz:quiz-1:data").Result(); exists != 1 {
		t.Fatalf("expected quiz cached in redis")
	}

	if err := coordinator.JoinRoom("p1-conn", code, "p1", "Paula"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := coordinator.StartQuiz("host-conn", code); err != nil {
		t.Fatalf("start: %v", err)
	}
	coordinator.SubmitAnswer("p1-conn", code, 1)

	room, ok := registry.Get(code)
	if !ok {
		t.Fatalf("room vanished")
	}
	snapshot := room.Snapshot()
	var score int
	for _, p := range snapshot.Players {
		if p.UserID == "p1" {
			score = p.Score
		}
	}
	if score < 30 {
		t.Fatalf("expected p1 scored at least the base award, got %d", score)
	}

	coordinator.LeaveRoom("host-conn", code, "h1")
	if _, ok := registry.Get(code); ok {
		t.Fatalf("expected room closed after host left")
	}
	if exists, _ := redisClient.Exists(ctx, "room:"+code).Result(); exists != 0 {
		t.Fatalf("expected liveness key cleared")
	}
}

// recordingBroadcaster drops events on the floor but remembers them.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []struct {
		name    string
		payload any
	}
}

func (r *recordingBroadcaster) JoinGroup(connID, group string)  {}
func (r *recordingBroadcaster) LeaveGroup(connID, group string) {}

func (r *recordingBroadcaster) ToClient(connID, event string, payload any) {
	r.record(event, payload)
}

func (r *recordingBroadcaster) ToGroup(group, event string, payload any) {
	r.record(event, payload)
}

func (r *recordingBroadcaster) record(event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, struct {
		name    string
		payload any
	}{event, payload})
}

func (r *recordingBroadcaster) roomCode(t *testing.T) string {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.name == app.EventRoomCreated {
			return e.payload.(domain.RoomSnapshot).RoomCode
		}
	}
	t.Fatalf("no RoomCreated event recorded")
	return ""
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedQuiz(t *testing.T, ctx context.Context, dsn string, quiz map[string]any) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(quiz)
	if err != nil {
		t.Fatalf("marshal quiz: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO quizzes (id, data) VALUES (? , ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, quiz["id"], string(data)); err != nil {
		t.Fatalf("insert quiz: %v", err)
	}
}

// sampleQuiz is the stored JSONB document shape, answer key included.
func sampleQuiz() map[string]any {
	return map[string]any{
		"id":    "quiz-1",
		"title": "Warm-up",
		"questions": []map[string]any{
			{
				"text":               "Which year did the track come out?",
				"answerOptions":      []string{"1999", "2003", "2011"},
				"correctAnswerIndex": 1,
				"mediaRef":           "spotify:track:sample",
			},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
