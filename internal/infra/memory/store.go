package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"quiz-share-service/internal/domain"
)

type submissionKey struct {
	quizID string
	userID string
}

// Store is an in-memory implementation of app.QuizStore and app.UserStore.
// Values are copied in and out so callers never share slices with the store.
type Store struct {
	mu          sync.RWMutex
	users       map[string]domain.User
	quizzes     map[string]domain.Quiz
	byShareable map[string]string
	answers     map[string][]domain.Answer
	submissions map[submissionKey]struct{}
}

func NewStore() *Store {
	return &Store{
		users:       make(map[string]domain.User),
		quizzes:     make(map[string]domain.Quiz),
		byShareable: make(map[string]string),
		answers:     make(map[string][]domain.Answer),
		submissions: make(map[submissionKey]struct{}),
	}
}

func (s *Store) UpsertUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	return nil
}

func (s *Store) GetUsers(_ context.Context, ids []string) (map[string]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (s *Store) DeleteUserByEmail(_ context.Context, email string) (domain.UserDeletion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out domain.UserDeletion
	for id, u := range s.users {
		if u.Email == email {
			s.deleteUserLocked(id, &out)
		}
	}
	return out, nil
}

func (s *Store) DeleteAllUsers(_ context.Context) (domain.UserDeletion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out domain.UserDeletion
	for id := range s.users {
		s.deleteUserLocked(id, &out)
	}
	return out, nil
}

func (s *Store) deleteUserLocked(userID string, out *domain.UserDeletion) {
	delete(s.users, userID)
	out.Users++
	for id, q := range s.quizzes {
		if q.CreatorID == userID {
			out.ShareableIDs = append(out.ShareableIDs, q.ShareableID)
			s.deleteQuizLocked(id)
		}
	}
	for quizID, list := range s.answers {
		kept := list[:0]
		for _, a := range list {
			if a.UserID != userID {
				kept = append(kept, a)
			}
		}
		s.answers[quizID] = kept
		delete(s.submissions, submissionKey{quizID, userID})
	}
}

func (s *Store) CreateQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[quiz.ID] = copyQuiz(quiz)
	s.byShareable[quiz.ShareableID] = quiz.ID
	return nil
}

func (s *Store) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return copyQuiz(q), nil
}

func (s *Store) GetQuizByShareableID(ctx context.Context, shareableID string) (domain.Quiz, error) {
	s.mu.RLock()
	id, ok := s.byShareable[shareableID]
	s.mu.RUnlock()
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return s.GetQuiz(ctx, id)
}

func (s *Store) ReplaceQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quiz.ID]; !ok {
		return domain.ErrQuizNotFound
	}
	s.quizzes[quiz.ID] = copyQuiz(quiz)
	return nil
}

func (s *Store) SetPublished(_ context.Context, quizID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quizzes[quizID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	q.Published = true
	q.UpdatedAt = at
	s.quizzes[quizID] = q
	return nil
}

func (s *Store) DeleteQuiz(_ context.Context, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return domain.ErrQuizNotFound
	}
	s.deleteQuizLocked(quizID)
	return nil
}

func (s *Store) deleteQuizLocked(quizID string) {
	q := s.quizzes[quizID]
	delete(s.quizzes, quizID)
	delete(s.byShareable, q.ShareableID)
	for _, a := range s.answers[quizID] {
		delete(s.submissions, submissionKey{quizID, a.UserID})
	}
	delete(s.answers, quizID)
}

func (s *Store) HasSubmitted(_ context.Context, quizID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.submissions[submissionKey{quizID, userID}]
	return ok, nil
}

// SaveAnswers checks and records the submission under one lock, so concurrent
// submissions for the same quiz and user cannot both succeed.
func (s *Store) SaveAnswers(_ context.Context, quizID, userID string, answers []domain.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return domain.ErrQuizNotFound
	}
	key := submissionKey{quizID, userID}
	if _, ok := s.submissions[key]; ok {
		return domain.ErrAlreadySubmitted
	}
	s.submissions[key] = struct{}{}
	s.answers[quizID] = append(s.answers[quizID], answers...)
	return nil
}

func (s *Store) ListAnswers(_ context.Context, quizID string) ([]domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Answer(nil), s.answers[quizID]...), nil
}

func (s *Store) ListUserAnswers(_ context.Context, quizID, userID string) ([]domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Answer
	for _, a := range s.answers[quizID] {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) ListCreated(_ context.Context, userID string, page domain.Page) ([]domain.QuizStats, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := s.filterLocked(func(q domain.Quiz) bool { return q.CreatorID == userID })
	total := len(matched)
	matched = window(matched, page)

	out := make([]domain.QuizStats, 0, len(matched))
	for _, q := range matched {
		respondents := make(map[string]struct{})
		for _, a := range s.answers[q.ID] {
			respondents[a.UserID] = struct{}{}
		}
		out = append(out, domain.QuizStats{
			Quiz:            headerOf(q),
			QuestionCount:   len(q.Questions),
			RespondentCount: len(respondents),
		})
	}
	return out, total, nil
}

func (s *Store) ListTaken(_ context.Context, userID string, page domain.Page) ([]domain.QuizStats, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := s.filterLocked(func(q domain.Quiz) bool {
		_, ok := s.submissions[submissionKey{q.ID, userID}]
		return q.Published && ok
	})
	total := len(matched)
	matched = window(matched, page)

	out := make([]domain.QuizStats, 0, len(matched))
	for _, q := range matched {
		out = append(out, domain.QuizStats{
			Quiz:          headerOf(q),
			QuestionCount: len(q.Questions),
			Answers:       append([]domain.Answer(nil), s.answers[q.ID]...),
		})
	}
	return out, total, nil
}

// filterLocked returns matching quizzes newest first.
func (s *Store) filterLocked(keep func(domain.Quiz) bool) []domain.Quiz {
	var out []domain.Quiz
	for _, q := range s.quizzes {
		if keep(q) {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func window(quizzes []domain.Quiz, page domain.Page) []domain.Quiz {
	lo := min(page.Skip, len(quizzes))
	hi := min(lo+page.Limit, len(quizzes))
	return quizzes[lo:hi]
}

func headerOf(q domain.Quiz) domain.Quiz {
	q.Questions = nil
	return q
}

func copyQuiz(q domain.Quiz) domain.Quiz {
	out := q
	out.Questions = make([]domain.Question, len(q.Questions))
	for i, question := range q.Questions {
		question.Options = append([]string(nil), question.Options...)
		question.OptionImages = append([]*string(nil), question.OptionImages...)
		out.Questions[i] = question
	}
	sort.SliceStable(out.Questions, func(i, j int) bool {
		return out.Questions[i].Order < out.Questions[j].Order
	})
	return out
}
