package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quiz-share-service/internal/domain"
)

func seedQuiz(t *testing.T, s *Store, id, creator string, published bool, createdAt time.Time) domain.Quiz {
	t.Helper()
	q := domain.Quiz{
		ID:          id,
		Title:       "Quiz " + id,
		Published:   published,
		ShareableID: "share-" + id,
		CreatorID:   creator,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
		Questions: []domain.Question{
			{ID: id + "-q2", QuizID: id, Text: "second", Options: []string{"A", "B"}, CorrectAnswer: "B", Order: 1},
			{ID: id + "-q1", QuizID: id, Text: "first", Options: []string{"A", "B"}, CorrectAnswer: "A", Order: 0},
		},
	}
	require.NoError(t, s.CreateQuiz(context.Background(), q))
	return q
}

func answersFor(q domain.Quiz, userID string, correct bool) []domain.Answer {
	out := make([]domain.Answer, 0, len(q.Questions))
	for _, question := range q.Questions {
		out = append(out, domain.Answer{
			ID:         fmt.Sprintf("%s-%s", userID, question.ID),
			QuizID:     q.ID,
			QuestionID: question.ID,
			UserID:     userID,
			Answer:     question.CorrectAnswer,
			IsCorrect:  correct,
		})
	}
	return out
}

func TestStoreReturnsQuestionsInOrder(t *testing.T) {
	s := NewStore()
	seedQuiz(t, s, "a", "u1", false, time.Now())

	q, err := s.GetQuizByShareableID(context.Background(), "share-a")
	require.NoError(t, err)
	require.Equal(t, "first", q.Questions[0].Text)
	require.Equal(t, "second", q.Questions[1].Text)

	q.Questions[0].Options[0] = "mutated"
	again, err := s.GetQuiz(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, "A", again.Questions[0].Options[0])
}

func TestStoreSaveAnswersIsWriteOnce(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	q := seedQuiz(t, s, "a", "u1", true, time.Now())

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.SaveAnswers(ctx, q.ID, "u2", answersFor(q, "u2", true))
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, domain.ErrAlreadySubmitted)
	}
	require.Equal(t, 1, succeeded)

	answers, err := s.ListAnswers(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, answers, 2)
}

func TestStoreDeleteQuizCascades(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	q := seedQuiz(t, s, "a", "u1", true, time.Now())
	require.NoError(t, s.SaveAnswers(ctx, q.ID, "u2", answersFor(q, "u2", true)))

	require.NoError(t, s.DeleteQuiz(ctx, q.ID))

	_, err := s.GetQuiz(ctx, q.ID)
	require.ErrorIs(t, err, domain.ErrQuizNotFound)
	_, err = s.GetQuizByShareableID(ctx, q.ShareableID)
	require.ErrorIs(t, err, domain.ErrQuizNotFound)
	taken, err := s.HasSubmitted(ctx, q.ID, "u2")
	require.NoError(t, err)
	require.False(t, taken)
	require.ErrorIs(t, s.DeleteQuiz(ctx, q.ID), domain.ErrQuizNotFound)
}

func TestStoreListCreatedPaginates(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedQuiz(t, s, fmt.Sprintf("q%d", i), "u1", true, base.Add(time.Duration(i)*time.Hour))
	}
	seedQuiz(t, s, "other", "u9", true, base)
	require.NoError(t, s.SaveAnswers(ctx, "q4", "u2", answersFor(domain.Quiz{ID: "q4", Questions: []domain.Question{{ID: "q4-q1"}}}, "u2", true)))
	require.NoError(t, s.SaveAnswers(ctx, "q4", "u3", answersFor(domain.Quiz{ID: "q4", Questions: []domain.Question{{ID: "q4-q1"}}}, "u3", false)))

	page, total, err := s.ListCreated(ctx, "u1", domain.Page{Limit: 2, Skip: 0})
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Len(t, page, 2)
	require.Equal(t, "q4", page[0].Quiz.ID)
	require.Equal(t, 2, page[0].RespondentCount)
	require.Equal(t, 2, page[0].QuestionCount)
	require.Nil(t, page[0].Quiz.Questions)

	page, _, err = s.ListCreated(ctx, "u1", domain.Page{Limit: 10, Skip: 4})
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "q0", page[0].Quiz.ID)

	page, _, err = s.ListCreated(ctx, "u1", domain.Page{Limit: 10, Skip: 50})
	require.NoError(t, err)
	require.Empty(t, page)
}

func TestStoreListTakenOnlyPublished(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Now()
	pub := seedQuiz(t, s, "pub", "u1", true, now)
	draft := seedQuiz(t, s, "draft", "u1", false, now)
	require.NoError(t, s.SaveAnswers(ctx, pub.ID, "u2", answersFor(pub, "u2", true)))
	require.NoError(t, s.SaveAnswers(ctx, draft.ID, "u2", answersFor(draft, "u2", true)))
	require.NoError(t, s.SaveAnswers(ctx, pub.ID, "u3", answersFor(pub, "u3", false)))

	taken, total, err := s.ListTaken(ctx, "u2", domain.Page{Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "pub", taken[0].Quiz.ID)
	require.Len(t, taken[0].Answers, 4)
}

func TestStoreDeleteUserCascades(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.UpsertUser(ctx, domain.User{ID: "u1", Email: "owner@example.com"}))
	require.NoError(t, s.UpsertUser(ctx, domain.User{ID: "u2", Email: "taker@example.com"}))
	owned := seedQuiz(t, s, "a", "u1", true, time.Now())
	other := seedQuiz(t, s, "b", "u2", true, time.Now())
	require.NoError(t, s.SaveAnswers(ctx, other.ID, "u1", answersFor(other, "u1", true)))

	deleted, err := s.DeleteUserByEmail(ctx, "owner@example.com")
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted.Users)
	require.Equal(t, []string{owned.ShareableID}, deleted.ShareableIDs)

	_, err = s.GetQuiz(ctx, owned.ID)
	require.ErrorIs(t, err, domain.ErrQuizNotFound)
	answers, err := s.ListAnswers(ctx, other.ID)
	require.NoError(t, err)
	require.Empty(t, answers)

	deleted, err = s.DeleteAllUsers(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted.Users)
	require.Equal(t, []string{other.ShareableID}, deleted.ShareableIDs)
	_, err = s.GetQuiz(ctx, other.ID)
	require.ErrorIs(t, err, domain.ErrQuizNotFound)
}
