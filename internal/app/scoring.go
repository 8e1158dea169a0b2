package app

import (
	"math"
	"sort"
	"time"

	"quiz-share-service/internal/domain"
)

// BuildAnswerRecords scores one respondent's answers against every question
// of the quiz. A question with no submitted answer is recorded as incorrect.
func BuildAnswerRecords(questions []domain.Question, submitted map[string]string, userID string, now time.Time, newID func() string) []domain.Answer {
	records := make([]domain.Answer, 0, len(questions))
	for _, q := range questions {
		answer, ok := submitted[q.ID]
		records = append(records, domain.Answer{
			ID:         newID(),
			QuizID:     q.QuizID,
			QuestionID: q.ID,
			UserID:     userID,
			Answer:     answer,
			IsCorrect:  ok && answer == q.CorrectAnswer,
			CreatedAt:  now,
		})
	}
	return records
}

// Score counts correct answers.
func Score(answers []domain.Answer) int {
	score := 0
	for _, a := range answers {
		if a.IsCorrect {
			score++
		}
	}
	return score
}

// EarliestAnswer returns the earliest CreatedAt, or the zero time for no answers.
func EarliestAnswer(answers []domain.Answer) time.Time {
	var earliest time.Time
	for i, a := range answers {
		if i == 0 || a.CreatedAt.Before(earliest) {
			earliest = a.CreatedAt
		}
	}
	return earliest
}

// GroupByRespondent splits answers per user, keeping first-seen user order.
func GroupByRespondent(answers []domain.Answer) ([]string, map[string][]domain.Answer) {
	order := make([]string, 0)
	groups := make(map[string][]domain.Answer)
	for _, a := range answers {
		if _, ok := groups[a.UserID]; !ok {
			order = append(order, a.UserID)
		}
		groups[a.UserID] = append(groups[a.UserID], a)
	}
	return order, groups
}

// AverageScore is the mean correct-answer count per distinct respondent,
// rounded to one decimal. No respondents yields 0.
func AverageScore(answers []domain.Answer) float64 {
	users, groups := GroupByRespondent(answers)
	if len(users) == 0 {
		return 0
	}
	total := 0
	for _, u := range users {
		total += Score(groups[u])
	}
	avg := float64(total) / float64(len(users))
	return math.Round(avg*10) / 10
}

// BuildReport aggregates every respondent of quiz. Respondents are ordered by
// the date they took the quiz.
func BuildReport(quiz domain.Quiz, answers []domain.Answer, users map[string]domain.User) domain.QuizReport {
	order, groups := GroupByRespondent(answers)
	respondents := make([]domain.RespondentResult, 0, len(order))
	for _, userID := range order {
		user, ok := users[userID]
		if !ok {
			user = domain.User{ID: userID}
		}
		own := groups[userID]
		respondents = append(respondents, domain.RespondentResult{
			User:      user,
			Answers:   own,
			Score:     Score(own),
			Total:     len(quiz.Questions),
			DateTaken: EarliestAnswer(own),
		})
	}
	sort.SliceStable(respondents, func(i, j int) bool {
		return respondents[i].DateTaken.Before(respondents[j].DateTaken)
	})
	return domain.QuizReport{
		Quiz:         quiz,
		Respondents:  respondents,
		AverageScore: AverageScore(answers),
	}
}

func sortQuestions(questions []domain.Question) {
	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].Order < questions[j].Order
	})
}

func questionIDs(questions []domain.Question) []string {
	ids := make([]string, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}
	return ids
}
