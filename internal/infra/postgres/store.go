package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-share-service/internal/domain"
)

const uniqueViolation = "23505"

// Store implements app.QuizStore and app.UserStore on Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) UpsertUser(ctx context.Context, user domain.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, name) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, name = EXCLUDED.name`,
		user.ID, user.Email, user.Name)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (s *Store) GetUsers(ctx context.Context, ids []string) (map[string]domain.User, error) {
	users := make(map[string]domain.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT id, email, name FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users[u.ID] = u
	}
	return users, rows.Err()
}

func (s *Store) DeleteUserByEmail(ctx context.Context, email string) (domain.UserDeletion, error) {
	return s.deleteUsers(ctx, `WHERE email = $1`, email)
}

func (s *Store) DeleteAllUsers(ctx context.Context) (domain.UserDeletion, error) {
	return s.deleteUsers(ctx, ``)
}

// deleteUsers removes the quizzes of the matched users first so their
// shareable ids can be returned, then the users; answers follow by cascade.
func (s *Store) deleteUsers(ctx context.Context, where string, args ...interface{}) (domain.UserDeletion, error) {
	var out domain.UserDeletion
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			DELETE FROM quizzes WHERE creator_id IN (SELECT id FROM users `+where+`)
			RETURNING shareable_id`, args...)
		if err != nil {
			return fmt.Errorf("delete user quizzes: %w", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scan shareable id: %w", err)
			}
			out.ShareableIDs = append(out.ShareableIDs, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("delete user quizzes: %w", err)
		}

		tag, err := tx.Exec(ctx, `DELETE FROM users `+where, args...)
		if err != nil {
			return fmt.Errorf("delete users: %w", err)
		}
		out.Users = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return domain.UserDeletion{}, err
	}
	return out, nil
}

// CreateQuiz inserts the quiz and its questions in one transaction.
func (s *Store) CreateQuiz(ctx context.Context, quiz domain.Quiz) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO quizzes (id, title, description, published, shareable_id, creator_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			quiz.ID, quiz.Title, quiz.Description, quiz.Published, quiz.ShareableID, quiz.CreatorID, quiz.CreatedAt, quiz.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert quiz: %w", err)
		}
		return insertQuestions(ctx, tx, quiz.Questions)
	})
}

func (s *Store) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return s.getQuiz(ctx, `WHERE id = $1`, quizID)
}

func (s *Store) GetQuizByShareableID(ctx context.Context, shareableID string) (domain.Quiz, error) {
	return s.getQuiz(ctx, `WHERE shareable_id = $1`, shareableID)
}

func (s *Store) getQuiz(ctx context.Context, where string, arg string) (domain.Quiz, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, title, description, published, shareable_id, creator_id, created_at, updated_at
		FROM quizzes `+where, arg)
	quiz, err := scanQuiz(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, quiz_id, question, question_image, options, option_images, correct_answer, position
		FROM questions WHERE quiz_id = $1 ORDER BY position ASC`, quiz.ID)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return domain.Quiz{}, err
		}
		quiz.Questions = append(quiz.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return domain.Quiz{}, fmt.Errorf("read questions: %w", err)
	}
	return quiz, nil
}

// ReplaceQuiz updates the quiz header, deletes every question and recreates
// the new list, all in one transaction.
func (s *Store) ReplaceQuiz(ctx context.Context, quiz domain.Quiz) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE quizzes SET title = $2, description = $3, published = $4, updated_at = $5
			WHERE id = $1`,
			quiz.ID, quiz.Title, quiz.Description, quiz.Published, quiz.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update quiz: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrQuizNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE quiz_id = $1`, quiz.ID); err != nil {
			return fmt.Errorf("delete questions: %w", err)
		}
		return insertQuestions(ctx, tx, quiz.Questions)
	})
}

func (s *Store) SetPublished(ctx context.Context, quizID string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE quizzes SET published = TRUE, updated_at = $2 WHERE id = $1`, quizID, at)
	if err != nil {
		return fmt.Errorf("publish quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

// DeleteQuiz relies on ON DELETE CASCADE for questions, submissions and answers.
func (s *Store) DeleteQuiz(ctx context.Context, quizID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM quizzes WHERE id = $1`, quizID)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (s *Store) HasSubmitted(ctx context.Context, quizID, userID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM submissions WHERE quiz_id = $1 AND user_id = $2)`,
		quizID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check submission: %w", err)
	}
	return exists, nil
}

// SaveAnswers claims the (quiz, user) submission row and writes the answer
// batch in the same transaction. A duplicate claim is ErrAlreadySubmitted.
func (s *Store) SaveAnswers(ctx context.Context, quizID, userID string, answers []domain.Answer) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO submissions (quiz_id, user_id, created_at) VALUES ($1, $2, $3)`,
			quizID, userID, submittedAt(answers))
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return domain.ErrAlreadySubmitted
			}
			return fmt.Errorf("insert submission: %w", err)
		}

		batch := &pgx.Batch{}
		for _, a := range answers {
			batch.Queue(`
				INSERT INTO answers (id, quiz_id, question_id, user_id, answer, is_correct, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				a.ID, a.QuizID, a.QuestionID, a.UserID, a.Answer, a.IsCorrect, a.CreatedAt)
		}
		return execBatch(ctx, tx, batch, "insert answer")
	})
}

func (s *Store) ListAnswers(ctx context.Context, quizID string) ([]domain.Answer, error) {
	return s.queryAnswers(ctx, `WHERE quiz_id = $1 ORDER BY created_at, id`, quizID)
}

func (s *Store) ListUserAnswers(ctx context.Context, quizID, userID string) ([]domain.Answer, error) {
	return s.queryAnswers(ctx, `WHERE quiz_id = $1 AND user_id = $2 ORDER BY created_at, id`, quizID, userID)
}

func (s *Store) queryAnswers(ctx context.Context, where string, args ...interface{}) ([]domain.Answer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, quiz_id, question_id, user_id, answer, is_correct, created_at
		FROM answers `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer rows.Close()
	var answers []domain.Answer
	for rows.Next() {
		var a domain.Answer
		if err := rows.Scan(&a.ID, &a.QuizID, &a.QuestionID, &a.UserID, &a.Answer, &a.IsCorrect, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

func (s *Store) ListCreated(ctx context.Context, userID string, page domain.Page) ([]domain.QuizStats, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM quizzes WHERE creator_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count created quizzes: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT q.id, q.title, q.description, q.published, q.shareable_id, q.creator_id, q.created_at, q.updated_at,
		       (SELECT count(*) FROM questions qs WHERE qs.quiz_id = q.id),
		       (SELECT count(*) FROM submissions sb WHERE sb.quiz_id = q.id)
		FROM quizzes q
		WHERE q.creator_id = $1
		ORDER BY q.created_at DESC, q.id
		LIMIT $2 OFFSET $3`, userID, page.Limit, page.Skip)
	if err != nil {
		return nil, 0, fmt.Errorf("query created quizzes: %w", err)
	}
	defer rows.Close()

	var stats []domain.QuizStats
	for rows.Next() {
		var st domain.QuizStats
		q := &st.Quiz
		if err := rows.Scan(&q.ID, &q.Title, &q.Description, &q.Published, &q.ShareableID, &q.CreatorID, &q.CreatedAt, &q.UpdatedAt,
			&st.QuestionCount, &st.RespondentCount); err != nil {
			return nil, 0, fmt.Errorf("scan created quiz: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, total, rows.Err()
}

func (s *Store) ListTaken(ctx context.Context, userID string, page domain.Page) ([]domain.QuizStats, int, error) {
	const takenFilter = `
		FROM quizzes q
		WHERE q.published
		  AND EXISTS (SELECT 1 FROM submissions sb WHERE sb.quiz_id = q.id AND sb.user_id = $1)`

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) `+takenFilter, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count taken quizzes: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT q.id, q.title, q.description, q.published, q.shareable_id, q.creator_id, q.created_at, q.updated_at,
		       (SELECT count(*) FROM questions qs WHERE qs.quiz_id = q.id)`+takenFilter+`
		ORDER BY q.created_at DESC, q.id
		LIMIT $2 OFFSET $3`, userID, page.Limit, page.Skip)
	if err != nil {
		return nil, 0, fmt.Errorf("query taken quizzes: %w", err)
	}
	var stats []domain.QuizStats
	for rows.Next() {
		var st domain.QuizStats
		q := &st.Quiz
		if err := rows.Scan(&q.ID, &q.Title, &q.Description, &q.Published, &q.ShareableID, &q.CreatorID, &q.CreatedAt, &q.UpdatedAt,
			&st.QuestionCount); err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("scan taken quiz: %w", err)
		}
		stats = append(stats, st)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("read taken quizzes: %w", err)
	}

	for i := range stats {
		answers, err := s.ListAnswers(ctx, stats[i].Quiz.ID)
		if err != nil {
			return nil, 0, err
		}
		stats[i].Answers = answers
	}
	return stats, total, nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func insertQuestions(ctx context.Context, tx pgx.Tx, questions []domain.Question) error {
	batch := &pgx.Batch{}
	for _, q := range questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("encode options: %w", err)
		}
		var optionImages *string
		if q.OptionImages != nil {
			raw, err := json.Marshal(q.OptionImages)
			if err != nil {
				return fmt.Errorf("encode option images: %w", err)
			}
			encoded := string(raw)
			optionImages = &encoded
		}
		batch.Queue(`
			INSERT INTO questions (id, quiz_id, question, question_image, options, option_images, correct_answer, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			q.ID, q.QuizID, q.Text, q.Image, string(options), optionImages, q.CorrectAnswer, q.Order)
	}
	return execBatch(ctx, tx, batch, "insert question")
}

func execBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch, what string) error {
	if batch.Len() == 0 {
		return nil
	}
	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("%s: %w", what, err)
		}
	}
	return results.Close()
}

func scanQuiz(row pgx.Row) (domain.Quiz, error) {
	var q domain.Quiz
	err := row.Scan(&q.ID, &q.Title, &q.Description, &q.Published, &q.ShareableID, &q.CreatorID, &q.CreatedAt, &q.UpdatedAt)
	return q, err
}

func scanQuestion(rows pgx.Rows) (domain.Question, error) {
	var (
		q            domain.Question
		options      string
		optionImages *string
	)
	if err := rows.Scan(&q.ID, &q.QuizID, &q.Text, &q.Image, &options, &optionImages, &q.CorrectAnswer, &q.Order); err != nil {
		return domain.Question{}, fmt.Errorf("scan question: %w", err)
	}
	if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
		return domain.Question{}, fmt.Errorf("decode options of question %s: %w", q.ID, err)
	}
	if optionImages != nil {
		if err := json.Unmarshal([]byte(*optionImages), &q.OptionImages); err != nil {
			return domain.Question{}, fmt.Errorf("decode option images of question %s: %w", q.ID, err)
		}
	}
	return q, nil
}

func submittedAt(answers []domain.Answer) time.Time {
	if len(answers) == 0 {
		return time.Now()
	}
	return answers[0].CreatedAt
}
