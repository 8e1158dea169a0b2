package app

import (
	"context"
	"time"

	"quiz-share-service/internal/domain"
)

// QuizStore persists users, quizzes, questions and answers.
// Quizzes are returned with their questions sorted by Order.
type QuizStore interface {
	GetUsers(ctx context.Context, ids []string) (map[string]domain.User, error)

	CreateQuiz(ctx context.Context, quiz domain.Quiz) error
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	GetQuizByShareableID(ctx context.Context, shareableID string) (domain.Quiz, error)
	// ReplaceQuiz updates the quiz header and swaps its whole question list atomically.
	ReplaceQuiz(ctx context.Context, quiz domain.Quiz) error
	SetPublished(ctx context.Context, quizID string, at time.Time) error
	// DeleteQuiz removes the quiz with its questions and answers.
	DeleteQuiz(ctx context.Context, quizID string) error

	HasSubmitted(ctx context.Context, quizID, userID string) (bool, error)
	// SaveAnswers stores one answer set; a second set for the same quiz and
	// user fails with domain.ErrAlreadySubmitted.
	SaveAnswers(ctx context.Context, quizID, userID string, answers []domain.Answer) error
	ListAnswers(ctx context.Context, quizID string) ([]domain.Answer, error)
	ListUserAnswers(ctx context.Context, quizID, userID string) ([]domain.Answer, error)

	ListCreated(ctx context.Context, userID string, page domain.Page) ([]domain.QuizStats, int, error)
	ListTaken(ctx context.Context, userID string, page domain.Page) ([]domain.QuizStats, int, error)
}

// UserStore keeps the users known from authenticated requests.
type UserStore interface {
	UpsertUser(ctx context.Context, user domain.User) error
	// DeleteUserByEmail and DeleteAllUsers cascade to the users' quizzes and answers.
	DeleteUserByEmail(ctx context.Context, email string) (domain.UserDeletion, error)
	DeleteAllUsers(ctx context.Context) (domain.UserDeletion, error)
}

// QuizViewCache serves quizzes by shareable id from a cache in front of the store.
type QuizViewCache interface {
	GetQuiz(ctx context.Context, shareableID string) (domain.Quiz, error)
	Invalidate(ctx context.Context, shareableID string) error
}

// FeedRepository abstracts where live report feeds are kept (in-memory, Redis, etc).
type FeedRepository interface {
	GetOrCreate(quizID string) *Feed
	Get(quizID string) (*Feed, bool)
	DeleteIfEmpty(quizID string)
}
