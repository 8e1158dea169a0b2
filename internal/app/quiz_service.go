package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"quiz-share-service/internal/domain"
	"quiz-share-service/internal/validation"
)

// QuizService contains the quiz authoring use cases.
type QuizService struct {
	store  QuizStore
	views  QuizViewCache
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

func NewQuizService(store QuizStore, views QuizViewCache, logger *slog.Logger) *QuizService {
	return NewQuizServiceWithClock(store, views, logger, time.Now)
}

// NewQuizServiceWithClock allows deterministic timestamps in tests.
func NewQuizServiceWithClock(store QuizStore, views QuizViewCache, logger *slog.Logger, now func() time.Time) *QuizService {
	return &QuizService{
		store:  store,
		views:  views,
		logger: logger,
		now:    now,
		newID:  uuid.NewString,
	}
}

// Create validates the payload and stores a new quiz owned by the caller.
func (s *QuizService) Create(ctx context.Context, id *domain.Identity, payload validation.QuizPayload) (domain.Quiz, error) {
	if id == nil {
		return domain.Quiz{}, domain.ErrUnauthorized
	}
	draft, err := validation.ValidateQuizPayload(payload)
	if err != nil {
		return domain.Quiz{}, err
	}

	now := s.now()
	quiz := domain.Quiz{
		ID:          s.newID(),
		Title:       draft.Title,
		Description: draft.Description,
		Published:   draft.Published,
		ShareableID: s.newID(),
		CreatorID:   id.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	quiz.Questions = s.questionsFromDraft(quiz.ID, draft.Questions)

	if err := s.store.CreateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("create quiz: %w", err)
	}
	return quiz, nil
}

// Get returns a quiz to its creator.
func (s *QuizService) Get(ctx context.Context, id *domain.Identity, quizID string) (domain.Quiz, error) {
	return s.owned(ctx, id, quizID)
}

// Update replaces the quiz header and its whole question list. Question ids
// are not preserved. A published quiz stays published.
func (s *QuizService) Update(ctx context.Context, id *domain.Identity, quizID string, payload validation.QuizPayload) (domain.Quiz, error) {
	if id == nil {
		return domain.Quiz{}, domain.ErrUnauthorized
	}
	draft, err := validation.ValidateQuizPayload(payload)
	if err != nil {
		return domain.Quiz{}, err
	}
	existing, err := s.owned(ctx, id, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}

	updated := existing
	updated.Title = draft.Title
	updated.Description = draft.Description
	updated.Published = existing.Published || draft.Published
	updated.UpdatedAt = s.now()
	updated.Questions = s.questionsFromDraft(existing.ID, draft.Questions)

	if err := s.store.ReplaceQuiz(ctx, updated); err != nil {
		return domain.Quiz{}, fmt.Errorf("replace quiz: %w", err)
	}
	s.invalidate(ctx, updated.ShareableID)
	return updated, nil
}

// Delete removes the quiz and everything recorded against it.
func (s *QuizService) Delete(ctx context.Context, id *domain.Identity, quizID string) error {
	quiz, err := s.owned(ctx, id, quizID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteQuiz(ctx, quiz.ID); err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	s.invalidate(ctx, quiz.ShareableID)
	return nil
}

// Publish makes a complete quiz available through its shareable id.
func (s *QuizService) Publish(ctx context.Context, id *domain.Identity, quizID string) (domain.Quiz, error) {
	quiz, err := s.owned(ctx, id, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if len(quiz.Questions) == 0 {
		return domain.Quiz{}, domain.Invalid("Cannot publish quiz with no questions")
	}
	for _, q := range quiz.Questions {
		if strings.TrimSpace(q.Text) == "" || q.CorrectAnswer == "" {
			return domain.Quiz{}, domain.Invalid("All questions must be complete before publishing")
		}
	}

	now := s.now()
	if err := s.store.SetPublished(ctx, quiz.ID, now); err != nil {
		return domain.Quiz{}, fmt.Errorf("publish quiz: %w", err)
	}
	quiz.Published = true
	quiz.UpdatedAt = now
	s.invalidate(ctx, quiz.ShareableID)
	return quiz, nil
}

// Clone copies a quiz into a new draft owned by the caller. The creator and
// anyone who has answered the quiz may clone it.
func (s *QuizService) Clone(ctx context.Context, id *domain.Identity, quizID string) (domain.Quiz, error) {
	if id == nil {
		return domain.Quiz{}, domain.ErrUnauthorized
	}
	original, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if original.CreatorID != id.UserID {
		taken, err := s.store.HasSubmitted(ctx, original.ID, id.UserID)
		if err != nil {
			return domain.Quiz{}, fmt.Errorf("check submission: %w", err)
		}
		if !taken {
			return domain.Quiz{}, domain.ErrForbidden
		}
	}
	sortQuestions(original.Questions)

	now := s.now()
	clone := domain.Quiz{
		ID:          s.newID(),
		Title:       original.Title + " (Copy)",
		Description: original.Description,
		Published:   false,
		ShareableID: s.newID(),
		CreatorID:   id.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
		Questions:   make([]domain.Question, 0, len(original.Questions)),
	}
	for i, q := range original.Questions {
		clone.Questions = append(clone.Questions, domain.Question{
			ID:            s.newID(),
			QuizID:        clone.ID,
			Text:          q.Text,
			Image:         q.Image,
			Options:       append([]string(nil), q.Options...),
			OptionImages:  append([]*string(nil), q.OptionImages...),
			CorrectAnswer: q.CorrectAnswer,
			Order:         i,
		})
	}

	if err := s.store.CreateQuiz(ctx, clone); err != nil {
		return domain.Quiz{}, fmt.Errorf("create clone: %w", err)
	}
	return clone, nil
}

func (s *QuizService) owned(ctx context.Context, id *domain.Identity, quizID string) (domain.Quiz, error) {
	if id == nil {
		return domain.Quiz{}, domain.ErrUnauthorized
	}
	quiz, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.CreatorID != id.UserID {
		return domain.Quiz{}, domain.ErrForbidden
	}
	sortQuestions(quiz.Questions)
	return quiz, nil
}

func (s *QuizService) questionsFromDraft(quizID string, drafts []domain.QuestionDraft) []domain.Question {
	questions := make([]domain.Question, 0, len(drafts))
	for i, d := range drafts {
		questions = append(questions, domain.Question{
			ID:            s.newID(),
			QuizID:        quizID,
			Text:          d.Text,
			Image:         d.Image,
			Options:       d.Options,
			OptionImages:  d.OptionImages,
			CorrectAnswer: d.CorrectAnswer,
			Order:         i,
		})
	}
	return questions
}

func (s *QuizService) invalidate(ctx context.Context, shareableID string) {
	if err := s.views.Invalidate(ctx, shareableID); err != nil {
		s.logger.Warn("invalidate quiz view", "shareableId", shareableID, "err", err)
	}
}
