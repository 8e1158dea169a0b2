package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-share-service/internal/domain"
)

func TestViewCacheCaches(t *testing.T) {
	loader := &countingLoader{quizzes: map[string]domain.Quiz{"share-1": sampleQuiz()}}
	cache := NewViewCache(loader, time.Minute)

	if _, err := cache.GetQuiz(context.Background(), "share-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := cache.GetQuiz(context.Background(), "share-1"); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestViewCacheInvalidateReloads(t *testing.T) {
	loader := &countingLoader{quizzes: map[string]domain.Quiz{"share-1": sampleQuiz()}}
	cache := NewViewCache(loader, time.Minute)
	ctx := context.Background()

	_, _ = cache.GetQuiz(ctx, "share-1")
	if err := cache.Invalidate(ctx, "share-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := cache.GetQuiz(ctx, "share-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls %d", loader.calls)
	}
}

func TestViewCacheExpires(t *testing.T) {
	loader := &countingLoader{quizzes: map[string]domain.Quiz{"share-1": sampleQuiz()}}
	cache := NewViewCache(loader, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.clock = func() time.Time { return now }

	_, _ = cache.GetQuiz(context.Background(), "share-1")
	now = now.Add(2 * time.Minute)
	_, _ = cache.GetQuiz(context.Background(), "share-1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.calls)
	}
}

func TestViewCacheDoesNotCacheMisses(t *testing.T) {
	loader := &countingLoader{quizzes: map[string]domain.Quiz{}}
	cache := NewViewCache(loader, time.Minute)

	for i := 0; i < 2; i++ {
		_, err := cache.GetQuiz(context.Background(), "missing")
		if !errors.Is(err, domain.ErrQuizNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	}
	if loader.calls != 2 {
		t.Fatalf("expected misses to reach the loader, got %d", loader.calls)
	}
}

type countingLoader struct {
	quizzes map[string]domain.Quiz
	calls   int
}

func (l *countingLoader) GetQuizByShareableID(_ context.Context, shareableID string) (domain.Quiz, error) {
	l.calls++
	if q, ok := l.quizzes[shareableID]; ok {
		return q, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:          "quiz-1",
		Title:       "Arithmetic",
		Published:   true,
		ShareableID: "share-1",
		CreatorID:   "u1",
		Questions: []domain.Question{
			{
				ID:            "q1",
				QuizID:        "quiz-1",
				Text:          "What is 2 + 2?",
				Options:       []string{"3", "4", "5"},
				CorrectAnswer: "4",
				Order:         0,
			},
		},
	}
}
