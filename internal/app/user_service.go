package app

import (
	"context"
	"fmt"
	"log/slog"

	"quiz-share-service/internal/domain"
)

// UserService records authenticated callers and runs user maintenance.
type UserService struct {
	store  UserStore
	views  QuizViewCache
	logger *slog.Logger
}

// NewUserService wires the user use cases. views may be nil when no shared
// cache fronts the store.
func NewUserService(store UserStore, views QuizViewCache, logger *slog.Logger) *UserService {
	return &UserService{store: store, views: views, logger: logger}
}

// Ensure makes sure the caller exists as a user so their quizzes and answers can reference it.
func (s *UserService) Ensure(ctx context.Context, id *domain.Identity) error {
	if id == nil {
		return domain.ErrUnauthorized
	}
	if err := s.store.UpsertUser(ctx, domain.User{ID: id.UserID, Email: id.Email, Name: id.Name}); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// DeleteByEmail removes the users with the given email.
func (s *UserService) DeleteByEmail(ctx context.Context, email string) (int64, error) {
	if email == "" {
		return 0, domain.Invalid("email is required")
	}
	deleted, err := s.store.DeleteUserByEmail(ctx, email)
	if err != nil {
		return 0, err
	}
	s.forget(ctx, deleted.ShareableIDs)
	return deleted.Users, nil
}

// Clear removes every user.
func (s *UserService) Clear(ctx context.Context) (int64, error) {
	deleted, err := s.store.DeleteAllUsers(ctx)
	if err != nil {
		return 0, err
	}
	s.forget(ctx, deleted.ShareableIDs)
	return deleted.Users, nil
}

// forget drops the cached take views of quizzes deleted with their creators.
func (s *UserService) forget(ctx context.Context, shareableIDs []string) {
	if s.views == nil {
		return
	}
	for _, id := range shareableIDs {
		if err := s.views.Invalidate(ctx, id); err != nil {
			s.logger.Warn("invalidate quiz view", "shareableId", id, "err", err)
		}
	}
}
