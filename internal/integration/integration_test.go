package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"kotoba-quiz-service/internal/app"
	"kotoba-quiz-service/internal/domain"
	"kotoba-quiz-service/internal/infra/memory"
	pgloader "kotoba-quiz-service/internal/infra/postgres"
	pgmigrations "kotoba-quiz-service/internal/infra/postgres/migrations"
	infraredis "kotoba-quiz-service/internal/infra/redis"
)

func TestQuizRunEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedContentSet(t, ctx, pgURL, sampleSet())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgloader.NewContentLoader(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	content := infraredis.NewContentRepository(redisClient, loader, 5*time.Minute)
	progress := infraredis.NewProgressSink(redisClient, 100)
	service := app.NewQuizService(memory.NewSessionStore(), content, progress, nil, app.Options{
		Rand: rand.New(rand.NewSource(1)),
	})

	cfg := domain.QuizConfig{
		AnswerType:    domain.AnswerFreeText,
		Direction:     domain.DirectionForward,
		QuestionCount: 2,
	}
	session, err := service.StartSession(ctx, "hiragana", cfg)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	events, cancel := session.Subscribe()
	defer cancel()
	if err := service.Begin(ctx, session.ID()); err != nil {
		t.Fatalf("begin: %v", err)
	}

	// Drive the run off the event stream: answer every prompted kana with its
	// romaji and advance until the session finishes.
	romaji := map[string]string{"あ": "a", "か": "ka", "さ": "sa"}
	var finished *domain.Summary
	timeout := time.After(10 * time.Second)
	for finished == nil {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("event stream closed before finish")
			}
			switch ev.Type {
			case app.EventQuestion:
				attempt, err := service.SubmitAnswer(ctx, session.ID(), romaji[ev.Question.Prompt])
				if err != nil {
					t.Fatalf("submit: %v", err)
				}
				if attempt.Verdict != domain.VerdictCorrect {
					t.Fatalf("expected correct, got %+v", attempt)
				}
				if err := service.Advance(ctx, session.ID()); err != nil {
					t.Fatalf("advance: %v", err)
				}
			case app.EventFinished:
				finished = ev.Summary
			}
		case <-timeout:
			t.Fatalf("session never finished")
		}
	}
	if finished.Score != 2 || finished.Total != 2 {
		t.Fatalf("expected 2/2, got %+v", finished)
	}

	// The summary lands in redis via the write-only progress sink.
	deadline := time.Now().Add(5 * time.Second)
	for {
		entries, err := redisClient.LRange(ctx, "progress:summaries", 0, -1).Result()
		if err == nil && len(entries) == 1 {
			var sum domain.Summary
			if err := json.Unmarshal([]byte(entries[0]), &sum); err != nil {
				t.Fatalf("unmarshal summary: %v", err)
			}
			if sum.Score != 2 || sum.Total != 2 {
				t.Fatalf("unexpected summary %+v", sum)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("summary never reached redis")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func sampleSet() domain.ContentSet {
	return domain.ContentSet{
		ID: "hiragana",
		Items: []domain.ContentItem{
			{Surface: "あ", Answer: "a"},
			{Surface: "か", Answer: "ka"},
			{Surface: "さ", Answer: "sa"},
		},
	}
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

func seedContentSet(t *testing.T, ctx context.Context, dsn string, set domain.ContentSet) {
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

	data, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("marshal set: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO content_sets (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, set.ID, string(data)); err != nil {
		t.Fatalf("insert content set: %v", err)
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
