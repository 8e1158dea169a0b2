package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"quiz-share-service/internal/domain"
	"quiz-share-service/internal/validation"
)

// TakeService serves published quizzes to respondents and records their answers.
type TakeService struct {
	store   QuizStore
	views   QuizViewCache
	reports *ReportService
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

func NewTakeService(store QuizStore, views QuizViewCache, reports *ReportService, logger *slog.Logger) *TakeService {
	return NewTakeServiceWithClock(store, views, reports, logger, time.Now)
}

// NewTakeServiceWithClock allows deterministic timestamps in tests.
func NewTakeServiceWithClock(store QuizStore, views QuizViewCache, reports *ReportService, logger *slog.Logger, now func() time.Time) *TakeService {
	return &TakeService{
		store:   store,
		views:   views,
		reports: reports,
		logger:  logger,
		now:     now,
		newID:   uuid.NewString,
	}
}

// View returns the public form of a published quiz. The identity is optional;
// when present the view reports whether the caller already answered.
func (s *TakeService) View(ctx context.Context, id *domain.Identity, shareableID string) (domain.TakeView, error) {
	quiz, err := s.views.GetQuiz(ctx, shareableID)
	if err != nil {
		return domain.TakeView{}, err
	}
	if !quiz.Published {
		return domain.TakeView{}, domain.ErrQuizNotFound
	}

	view := domain.TakeView{Quiz: publicQuiz(quiz)}
	if id != nil {
		taken, err := s.store.HasSubmitted(ctx, quiz.ID, id.UserID)
		if err != nil {
			return domain.TakeView{}, fmt.Errorf("check submission: %w", err)
		}
		view.AlreadyTaken = taken
	}
	return view, nil
}

// Submit records the caller's one and only answer set for a published quiz.
func (s *TakeService) Submit(ctx context.Context, id *domain.Identity, shareableID string, payload validation.AnswerPayload) error {
	quiz, err := s.publishedQuiz(ctx, shareableID)
	if err != nil {
		return err
	}
	if id == nil {
		return domain.ErrUnauthorized
	}

	answers, err := validation.ValidateAnswerPayload(payload, len(quiz.Questions))
	if err != nil {
		return err
	}
	if err := validation.ValidateAnswerKeys(answers, questionIDs(quiz.Questions)); err != nil {
		return err
	}

	taken, err := s.store.HasSubmitted(ctx, quiz.ID, id.UserID)
	if err != nil {
		return fmt.Errorf("check submission: %w", err)
	}
	if taken {
		return domain.ErrAlreadySubmitted
	}

	records := BuildAnswerRecords(quiz.Questions, answers, id.UserID, s.now(), s.newID)
	if err := s.store.SaveAnswers(ctx, quiz.ID, id.UserID, records); err != nil {
		if errors.Is(err, domain.ErrAlreadySubmitted) {
			return err
		}
		return fmt.Errorf("save answers: %w", err)
	}

	if s.reports != nil {
		if err := s.reports.Notify(ctx, quiz.ID); err != nil {
			s.logger.Warn("notify live report", "quizId", quiz.ID, "err", err)
		}
	}
	return nil
}

// Results returns the caller's own answers with the questions they answered.
func (s *TakeService) Results(ctx context.Context, id *domain.Identity, shareableID string) (domain.SelfResults, error) {
	if id == nil {
		return domain.SelfResults{}, domain.ErrUnauthorized
	}
	quiz, err := s.publishedQuiz(ctx, shareableID)
	if err != nil {
		return domain.SelfResults{}, err
	}
	answers, err := s.store.ListUserAnswers(ctx, quiz.ID, id.UserID)
	if err != nil {
		return domain.SelfResults{}, fmt.Errorf("list answers: %w", err)
	}
	if len(answers) == 0 {
		return domain.SelfResults{}, domain.ErrNoSubmission
	}

	byID := make(map[string]*domain.Question, len(quiz.Questions))
	for i := range quiz.Questions {
		byID[quiz.Questions[i].ID] = &quiz.Questions[i]
	}
	paired := make([]domain.AnsweredQuestion, 0, len(answers))
	for _, a := range answers {
		paired = append(paired, domain.AnsweredQuestion{Answer: a, Question: byID[a.QuestionID]})
	}

	return domain.SelfResults{
		Quiz:    quiz,
		Answers: paired,
		Score:   Score(answers),
		Total:   len(quiz.Questions),
	}, nil
}

func (s *TakeService) publishedQuiz(ctx context.Context, shareableID string) (domain.Quiz, error) {
	quiz, err := s.store.GetQuizByShareableID(ctx, shareableID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if !quiz.Published {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	sortQuestions(quiz.Questions)
	return quiz, nil
}

func publicQuiz(quiz domain.Quiz) domain.PublicQuiz {
	// the cached quiz is shared; sort a copy
	questions := append([]domain.Question(nil), quiz.Questions...)
	sortQuestions(questions)
	out := domain.PublicQuiz{
		ID:          quiz.ID,
		Title:       quiz.Title,
		Description: quiz.Description,
		Questions:   make([]domain.PublicQuestion, 0, len(questions)),
	}
	for _, q := range questions {
		out.Questions = append(out.Questions, domain.PublicQuestion{
			ID:           q.ID,
			Text:         q.Text,
			Image:        q.Image,
			Options:      q.Options,
			OptionImages: q.OptionImages,
			Order:        q.Order,
		})
	}
	return out
}
