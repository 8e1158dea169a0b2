// Package validation checks the shape and bounds of quiz definitions and
// answer submissions before they reach the store.
package validation

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"quiz-share-service/internal/domain"
)

const (
	// MaxRequestSize is the largest request body accepted, in bytes.
	MaxRequestSize = 10 * 1024 * 1024
	// MaxQuestionsPerQuiz bounds the question list of a quiz.
	MaxQuestionsPerQuiz = 200

	maxTitleLen       = 200
	maxDescriptionLen = 1000
	maxQuestionLen    = 500
	minOptions        = 2
	maxOptions        = 6
)

// QuizPayload is a quiz definition as decoded from JSON. Fields stay loosely
// typed so a wrong JSON type is reported as a validation failure.
type QuizPayload struct {
	Title       any `json:"title"`
	Description any `json:"description"`
	Questions   any `json:"questions"`
	Published   any `json:"published"`
}

// AnswerPayload is an answer submission as decoded from JSON.
type AnswerPayload struct {
	Answers any `json:"answers"`
}

// ValidateRequestSize rejects a declared content length above MaxRequestSize.
func ValidateRequestSize(contentLength int64) error {
	if contentLength > MaxRequestSize {
		return domain.ErrPayloadTooLarge
	}
	return nil
}

// ValidateQuizPayload returns the first violation found in p, or the typed draft.
func ValidateQuizPayload(p QuizPayload) (domain.QuizDraft, error) {
	title, ok := p.Title.(string)
	if !ok || title == "" {
		return domain.QuizDraft{}, domain.Invalid("Title is required and must be a string")
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return domain.QuizDraft{}, domain.Invalid("Title must be less than %d characters", maxTitleLen)
	}

	var description string
	switch d := p.Description.(type) {
	case nil:
	case string:
		description = d
	default:
		return domain.QuizDraft{}, domain.Invalid("Description must be a string")
	}
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return domain.QuizDraft{}, domain.Invalid("Description must be less than %d characters", maxDescriptionLen)
	}

	questions, ok := p.Questions.([]any)
	if !ok {
		return domain.QuizDraft{}, domain.Invalid("Questions must be an array")
	}
	if len(questions) == 0 {
		return domain.QuizDraft{}, domain.Invalid("Quiz must have at least one question")
	}
	if len(questions) > MaxQuestionsPerQuiz {
		return domain.QuizDraft{}, domain.Invalid("Quiz cannot have more than %d questions", MaxQuestionsPerQuiz)
	}

	draft := domain.QuizDraft{
		Title:       title,
		Description: description,
		Questions:   make([]domain.QuestionDraft, 0, len(questions)),
	}
	if published, ok := p.Published.(bool); ok {
		draft.Published = published
	}

	for i, raw := range questions {
		q, err := validateQuestion(i+1, raw)
		if err != nil {
			return domain.QuizDraft{}, err
		}
		draft.Questions = append(draft.Questions, q)
	}
	return draft, nil
}

func validateQuestion(n int, raw any) (domain.QuestionDraft, error) {
	fields, _ := raw.(map[string]any)

	text, ok := fields["question"].(string)
	if !ok || text == "" {
		return domain.QuestionDraft{}, domain.Invalid("Question %d: Question text is required", n)
	}
	if utf8.RuneCountInString(text) > maxQuestionLen {
		return domain.QuestionDraft{}, domain.Invalid("Question %d: Question text must be less than %d characters", n, maxQuestionLen)
	}

	rawOptions, ok := fields["options"].([]any)
	if !ok || len(rawOptions) < minOptions || len(rawOptions) > maxOptions {
		return domain.QuestionDraft{}, domain.Invalid("Question %d: Must have between %d and %d options", n, minOptions, maxOptions)
	}
	options := make([]string, 0, len(rawOptions))
	for _, o := range rawOptions {
		s, ok := o.(string)
		if !ok {
			return domain.QuestionDraft{}, domain.Invalid("Question %d: Options must be strings", n)
		}
		options = append(options, s)
	}

	correct, ok := fields["correctAnswer"].(string)
	if !ok || correct == "" {
		return domain.QuestionDraft{}, domain.Invalid("Question %d: Correct answer is required", n)
	}
	if !contains(options, correct) {
		return domain.QuestionDraft{}, domain.Invalid("Question %d: Correct answer must be one of the options", n)
	}

	draft := domain.QuestionDraft{
		Text:          text,
		Options:       options,
		CorrectAnswer: correct,
	}

	if img, ok := fields["questionImage"].(string); ok && img != "" {
		if !IsValidBase64Image(img) {
			return domain.QuestionDraft{}, domain.Invalid("Question %d: Invalid question image format", n)
		}
		draft.Image = &img
	}

	if rawImages, ok := fields["optionImages"].([]any); ok {
		draft.OptionImages = make([]*string, len(rawImages))
		for j, ri := range rawImages {
			if isFalsy(ri) {
				continue
			}
			img, ok := ri.(string)
			if !ok || !IsValidBase64Image(img) {
				return domain.QuestionDraft{}, domain.Invalid("Question %d, Option %d: Invalid image format", n, j+1)
			}
			draft.OptionImages[j] = &img
		}
	}
	return draft, nil
}

// isFalsy reports whether a decoded JSON value counts as absent: null, false,
// zero or the empty string.
func isFalsy(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case string:
		return x == ""
	case float64:
		return x == 0
	}
	return false
}

// ValidateAnswerPayload checks that p maps exactly questionCount keys to
// non-empty strings and returns the typed mapping.
func ValidateAnswerPayload(p AnswerPayload, questionCount int) (map[string]string, error) {
	raw, ok := p.Answers.(map[string]any)
	if !ok {
		return nil, domain.Invalid("Answers must be an object")
	}
	if len(raw) != questionCount {
		return nil, domain.Invalid("Expected %d answers, got %d", questionCount, len(raw))
	}
	answers := make(map[string]string, len(raw))
	for questionID, v := range raw {
		s, ok := v.(string)
		if !ok || s == "" {
			return nil, domain.Invalid("Answer for question %s: Answer text is required and must be a string", questionID)
		}
		answers[questionID] = s
	}
	return answers, nil
}

// ValidateAnswerKeys rejects answers keyed by anything other than the given question ids.
func ValidateAnswerKeys(answers map[string]string, questionIDs []string) error {
	known := make(map[string]struct{}, len(questionIDs))
	for _, id := range questionIDs {
		known[id] = struct{}{}
	}
	for questionID := range answers {
		if _, ok := known[questionID]; !ok {
			return domain.Invalid("Answer for question %s: Unknown question", questionID)
		}
	}
	return nil
}

// IsValidBase64Image reports whether s is a data:image URL whose payload is
// canonical standard base64.
func IsValidBase64Image(s string) bool {
	if !strings.HasPrefix(s, "data:image/") {
		return false
	}
	parts := strings.Split(s, ";base64,")
	if len(parts) < 2 || parts[1] == "" {
		return false
	}
	data, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}
	return base64.StdEncoding.EncodeToString(data) == parts[1]
}

func contains(options []string, want string) bool {
	for _, o := range options {
		if o == want {
			return true
		}
	}
	return false
}
