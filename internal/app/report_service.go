package app

import (
	"context"
	"fmt"

	"quiz-share-service/internal/domain"
	"quiz-share-service/internal/validation"
)

// ReportService aggregates answers for quiz owners and respondents.
type ReportService struct {
	store QuizStore
	feeds FeedRepository
}

func NewReportService(store QuizStore, feeds FeedRepository) *ReportService {
	return &ReportService{store: store, feeds: feeds}
}

// QuizReport returns per-respondent scores and the average score of a quiz to its creator.
func (s *ReportService) QuizReport(ctx context.Context, id *domain.Identity, quizID string) (domain.QuizReport, error) {
	if id == nil {
		return domain.QuizReport{}, domain.ErrUnauthorized
	}
	quiz, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizReport{}, err
	}
	if quiz.CreatorID != id.UserID {
		return domain.QuizReport{}, domain.ErrForbidden
	}
	return s.buildReport(ctx, quiz)
}

// Dashboard lists the quizzes the caller created and the ones they answered,
// each with its own page window.
func (s *ReportService) Dashboard(ctx context.Context, id *domain.Identity, createdPage, takenPage domain.Page) (domain.Dashboard, error) {
	if id == nil {
		return domain.Dashboard{}, domain.ErrUnauthorized
	}

	created, createdTotal, err := s.store.ListCreated(ctx, id.UserID, createdPage)
	if err != nil {
		return domain.Dashboard{}, fmt.Errorf("list created quizzes: %w", err)
	}
	taken, takenTotal, err := s.store.ListTaken(ctx, id.UserID, takenPage)
	if err != nil {
		return domain.Dashboard{}, fmt.Errorf("list taken quizzes: %w", err)
	}

	var d domain.Dashboard
	d.CreatedQuizzes = make([]domain.CreatedQuiz, 0, len(created))
	for _, st := range created {
		d.CreatedQuizzes = append(d.CreatedQuizzes, domain.CreatedQuiz{
			ID:              st.Quiz.ID,
			Title:           st.Quiz.Title,
			Description:     st.Quiz.Description,
			Published:       st.Quiz.Published,
			ShareableID:     st.Quiz.ShareableID,
			QuestionCount:   st.QuestionCount,
			RespondentCount: st.RespondentCount,
			CreatedAt:       st.Quiz.CreatedAt,
			UpdatedAt:       st.Quiz.UpdatedAt,
		})
	}

	d.TakenQuizzes = make([]domain.TakenQuiz, 0, len(taken))
	for _, st := range taken {
		_, groups := GroupByRespondent(st.Answers)
		own := groups[id.UserID]
		dateTaken := EarliestAnswer(own)
		if dateTaken.IsZero() {
			dateTaken = st.Quiz.CreatedAt
		}
		d.TakenQuizzes = append(d.TakenQuizzes, domain.TakenQuiz{
			ID:             st.Quiz.ID,
			Title:          st.Quiz.Title,
			Description:    st.Quiz.Description,
			ShareableID:    st.Quiz.ShareableID,
			UserScore:      Score(own),
			TotalQuestions: st.QuestionCount,
			AvgScore:       AverageScore(st.Answers),
			DateTaken:      dateTaken,
			CreatedAt:      st.Quiz.CreatedAt,
		})
	}

	d.Pagination.Created = domain.PageInfo{
		Total:   createdTotal,
		Limit:   createdPage.Limit,
		Skip:    createdPage.Skip,
		HasMore: validation.HasMore(createdPage, createdTotal),
	}
	d.Pagination.Taken = domain.PageInfo{
		Total:   takenTotal,
		Limit:   takenPage.Limit,
		Skip:    takenPage.Skip,
		HasMore: validation.HasMore(takenPage, takenTotal),
	}
	return d, nil
}

// Subscribe streams the quiz report to its creator, starting with the current
// snapshot. The caller must invoke the returned cancel function to avoid leaks.
func (s *ReportService) Subscribe(ctx context.Context, id *domain.Identity, quizID string) (<-chan domain.QuizReport, func(), error) {
	if id == nil {
		return nil, nil, domain.ErrUnauthorized
	}
	quiz, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, nil, err
	}
	if quiz.CreatorID != id.UserID {
		return nil, nil, domain.ErrForbidden
	}

	// Register before reading answers so a submission stored meanwhile is
	// either in the snapshot or broadcast to this channel.
	feed := s.feeds.GetOrCreate(quizID)
	ch, cancelFeed := feed.subscribe()
	cancel := func() {
		cancelFeed()
		s.feeds.DeleteIfEmpty(quizID)
	}

	report, err := s.buildReport(ctx, quiz)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	feed.prime(ch, report)
	return ch, cancel, nil
}

// Notify pushes a fresh report to live subscribers of the quiz, if any.
func (s *ReportService) Notify(ctx context.Context, quizID string) error {
	feed, ok := s.feeds.Get(quizID)
	if !ok || feed.IsEmpty() {
		return nil
	}
	quiz, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	report, err := s.buildReport(ctx, quiz)
	if err != nil {
		return err
	}
	feed.broadcast(report)
	return nil
}

func (s *ReportService) buildReport(ctx context.Context, quiz domain.Quiz) (domain.QuizReport, error) {
	sortQuestions(quiz.Questions)
	answers, err := s.store.ListAnswers(ctx, quiz.ID)
	if err != nil {
		return domain.QuizReport{}, fmt.Errorf("list answers: %w", err)
	}
	userIDs, _ := GroupByRespondent(answers)
	users, err := s.store.GetUsers(ctx, userIDs)
	if err != nil {
		return domain.QuizReport{}, fmt.Errorf("load respondents: %w", err)
	}
	return BuildReport(quiz, answers, users), nil
}
