package integration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"quiz-share-service/internal/app"
	"quiz-share-service/internal/cli"
	"quiz-share-service/internal/domain"
	pgstore "quiz-share-service/internal/infra/postgres"
	infraredis "quiz-share-service/internal/infra/redis"
	"quiz-share-service/internal/validation"
)

var (
	owner = &domain.Identity{UserID: "owner", Email: "owner@example.com", Name: "Owner"}
	alice = &domain.Identity{UserID: "alice", Email: "alice@example.com", Name: "Alice"}
	bob   = &domain.Identity{UserID: "bob", Email: "bob@example.com", Name: "Bob"}
)

func TestQuizLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := cli.Migrate(ctx, pgURL, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// A second run must be a no-op.
	if err := cli.Migrate(ctx, pgURL, logger); err != nil {
		t.Fatalf("migrate again: %v", err)
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	store := pgstore.NewStore(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	views := infraredis.NewViewCache(redisClient, store, 5*time.Minute)
	reports := app.NewReportService(store, infraredis.NewFeedStore(redisClient, 5*time.Minute))
	quizzes := app.NewQuizService(store, views, logger)
	takes := app.NewTakeService(store, views, reports, logger)
	users := app.NewUserService(store, views, logger)
	for _, id := range []*domain.Identity{owner, alice, bob} {
		if err := users.Ensure(ctx, id); err != nil {
			t.Fatalf("ensure user: %v", err)
		}
	}

	quiz, err := quizzes.Create(ctx, owner, validation.QuizPayload{
		Title: "Capitals",
		Questions: []any{
			map[string]any{"question": "Capital of France?", "options": []any{"Paris", "Rome"}, "correctAnswer": "Paris"},
			map[string]any{"question": "Capital of Italy?", "options": []any{"Paris", "Rome"}, "correctAnswer": "Rome"},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := takes.View(ctx, nil, quiz.ShareableID); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected draft to be hidden, got %v", err)
	}
	if _, err := quizzes.Publish(ctx, owner, quiz.ID); err != nil {
		t.Fatalf("publish: %v", err)
	}

	view, err := takes.View(ctx, alice, quiz.ShareableID)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if len(view.Quiz.Questions) != 2 || view.Quiz.Questions[0].Text != "Capital of France?" {
		t.Fatalf("unexpected view %+v", view.Quiz)
	}
	q1, q2 := view.Quiz.Questions[0].ID, view.Quiz.Questions[1].ID

	// Concurrent first submissions: exactly one wins.
	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- takes.Submit(ctx, alice, quiz.ShareableID, validation.AnswerPayload{
				Answers: map[string]any{q1: "Paris", q2: "Rome"},
			})
		}()
	}
	wg.Wait()
	close(errs)
	wins := 0
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case !errors.Is(err, domain.ErrAlreadySubmitted):
			t.Fatalf("unexpected submit error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one accepted submission, got %d", wins)
	}

	if err := takes.Submit(ctx, bob, quiz.ShareableID, validation.AnswerPayload{
		Answers: map[string]any{q1: "Paris", q2: "Paris"},
	}); err != nil {
		t.Fatalf("submit bob: %v", err)
	}

	results, err := takes.Results(ctx, alice, quiz.ShareableID)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if results.Score != 2 || results.Total != 2 {
		t.Fatalf("expected 2/2, got %d/%d", results.Score, results.Total)
	}

	report, err := reports.QuizReport(ctx, owner, quiz.ID)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.AverageScore != 1.5 || len(report.Respondents) != 2 {
		t.Fatalf("expected 2 respondents averaging 1.5, got %+v", report)
	}
	if report.Respondents[0].User.Email == "" {
		t.Fatalf("expected respondent user details, got %+v", report.Respondents[0].User)
	}

	dash, err := reports.Dashboard(ctx, owner, domain.Page{Limit: 10}, domain.Page{Limit: 10})
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if len(dash.CreatedQuizzes) != 1 || dash.CreatedQuizzes[0].RespondentCount != 2 || dash.CreatedQuizzes[0].QuestionCount != 2 {
		t.Fatalf("unexpected created list %+v", dash.CreatedQuizzes)
	}
	dash, err = reports.Dashboard(ctx, bob, domain.Page{Limit: 10}, domain.Page{Limit: 10})
	if err != nil {
		t.Fatalf("dashboard bob: %v", err)
	}
	if len(dash.TakenQuizzes) != 1 || dash.TakenQuizzes[0].UserScore != 1 || dash.TakenQuizzes[0].AvgScore != 1.5 {
		t.Fatalf("unexpected taken list %+v", dash.TakenQuizzes)
	}

	updated, err := quizzes.Update(ctx, owner, quiz.ID, validation.QuizPayload{
		Title: "Capitals v2",
		Questions: []any{
			map[string]any{"question": "Capital of Spain?", "options": []any{"Madrid", "Lisbon"}, "correctAnswer": "Madrid"},
		},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.Published {
		t.Fatalf("expected update to keep the quiz published")
	}
	view, err = takes.View(ctx, nil, quiz.ShareableID)
	if err != nil {
		t.Fatalf("view after update: %v", err)
	}
	if view.Quiz.Title != "Capitals v2" || len(view.Quiz.Questions) != 1 {
		t.Fatalf("expected cache invalidation after update, got %+v", view.Quiz)
	}

	clone, err := quizzes.Clone(ctx, bob, quiz.ID)
	if err != nil {
		t.Fatalf("clone: %v", err)
	}
	if clone.Published || clone.CreatorID != bob.UserID {
		t.Fatalf("unexpected clone %+v", clone)
	}

	n, err := users.DeleteByEmail(ctx, owner.Email)
	if err != nil || n != 1 {
		t.Fatalf("delete owner: n=%d err=%v", n, err)
	}
	if _, err := store.GetQuiz(ctx, quiz.ID); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected owner's quiz to cascade, got %v", err)
	}
	if _, err := store.GetQuiz(ctx, clone.ID); err != nil {
		t.Fatalf("expected bob's clone to survive: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
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

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
