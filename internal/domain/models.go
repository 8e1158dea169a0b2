package domain

import "time"

// Identity is the authenticated caller of an operation.
type Identity struct {
	UserID string
	Email  string
	Name   string
}

// User is a person who creates quizzes or answers them.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// UserDeletion reports what a user delete removed, including the shareable
// ids of the quizzes that went with the users.
type UserDeletion struct {
	Users        int64
	ShareableIDs []string
}

// Question models an MCQ question whose correct answer is one of its options, verbatim.
type Question struct {
	ID            string    `json:"id"`
	QuizID        string    `json:"quizId"`
	Text          string    `json:"question"`
	Image         *string   `json:"questionImage"`
	Options       []string  `json:"options"`
	OptionImages  []*string `json:"optionImages"`
	CorrectAnswer string    `json:"correctAnswer"`
	Order         int       `json:"order"`
}

// Quiz is an ordered collection of questions owned by its creator.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Published   bool       `json:"published"`
	ShareableID string     `json:"shareableId"`
	CreatorID   string     `json:"creatorId"`
	Questions   []Question `json:"questions"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Answer is one respondent's answer to one question, scored when it was submitted.
type Answer struct {
	ID         string    `json:"id"`
	QuizID     string    `json:"quizId"`
	QuestionID string    `json:"questionId"`
	UserID     string    `json:"userId"`
	Answer     string    `json:"answer"`
	IsCorrect  bool      `json:"isCorrect"`
	CreatedAt  time.Time `json:"createdAt"`
}

// QuestionDraft is a validated question as submitted by an author.
type QuestionDraft struct {
	Text          string
	Image         *string
	Options       []string
	OptionImages  []*string
	CorrectAnswer string
}

// QuizDraft is a validated quiz definition ready to be persisted.
type QuizDraft struct {
	Title       string
	Description string
	Published   bool
	Questions   []QuestionDraft
}

// QuizStats is a quiz header with the facts the dashboard aggregates over.
type QuizStats struct {
	Quiz            Quiz
	QuestionCount   int
	RespondentCount int
	Answers         []Answer // only filled for the taken list
}

// Page is a clamped limit/skip window.
type Page struct {
	Limit int `json:"limit"`
	Skip  int `json:"skip"`
}
