package domain

import "time"

// PublicQuestion is a question as shown to someone taking the quiz.
type PublicQuestion struct {
	ID           string    `json:"id"`
	Text         string    `json:"question"`
	Image        *string   `json:"questionImage"`
	Options      []string  `json:"options"`
	OptionImages []*string `json:"optionImages"`
	Order        int       `json:"order"`
}

// PublicQuiz hides correct answers.
type PublicQuiz struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Questions   []PublicQuestion `json:"questions"`
}

// TakeView is the public "take" page payload.
type TakeView struct {
	Quiz         PublicQuiz `json:"quiz"`
	AlreadyTaken bool       `json:"alreadyTaken"`
}

// AnsweredQuestion pairs a stored answer with the question it answered.
// Question is nil when the question was replaced after the answer was recorded.
type AnsweredQuestion struct {
	Answer   Answer    `json:"answer"`
	Question *Question `json:"question"`
}

// SelfResults is a respondent's view of their own submission.
type SelfResults struct {
	Quiz    Quiz               `json:"quiz"`
	Answers []AnsweredQuestion `json:"userAnswers"`
	Score   int                `json:"score"`
	Total   int                `json:"total"`
}

// RespondentResult is one respondent's row in the owner report.
type RespondentResult struct {
	User      User      `json:"user"`
	Answers   []Answer  `json:"answers"`
	Score     int       `json:"score"`
	Total     int       `json:"total"`
	DateTaken time.Time `json:"dateTaken"`
}

// QuizReport is the owner's aggregate view of a quiz.
type QuizReport struct {
	Quiz         Quiz               `json:"quiz"`
	Respondents  []RespondentResult `json:"respondents"`
	AverageScore float64            `json:"averageScore"`
}

// CreatedQuiz is a dashboard row for a quiz the caller owns.
type CreatedQuiz struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Published       bool      `json:"published"`
	ShareableID     string    `json:"shareableId"`
	QuestionCount   int       `json:"questionCount"`
	RespondentCount int       `json:"respondentCount"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// TakenQuiz is a dashboard row for a quiz the caller answered.
type TakenQuiz struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	ShareableID    string    `json:"shareableId"`
	UserScore      int       `json:"userScore"`
	TotalQuestions int       `json:"totalQuestions"`
	AvgScore       float64   `json:"avgScore"`
	DateTaken      time.Time `json:"dateTaken"`
	CreatedAt      time.Time `json:"createdAt"`
}

// PageInfo describes one paginated dashboard list.
type PageInfo struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Skip    int  `json:"skip"`
	HasMore bool `json:"hasMore"`
}

// Dashboard is the caller's created and taken quiz lists.
type Dashboard struct {
	CreatedQuizzes []CreatedQuiz `json:"createdQuizzes"`
	TakenQuizzes   []TakenQuiz   `json:"takenQuizzes"`
	Pagination     struct {
		Created PageInfo `json:"created"`
		Taken   PageInfo `json:"taken"`
	} `json:"pagination"`
}
