package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"braincraft/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Store is the transactional write side backed by bun. Every
// multi-statement operation runs inside one transaction.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateUser(ctx context.Context, user domain.User, passwordHash string) (domain.User, error) {
	row := &userModel{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: passwordHash,
		Role:         user.Role,
		AvatarURL:    user.AvatarURL,
	}
	if row.Role == "" {
		row.Role = domain.DefaultRole
	}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(row).Returning("*").Exec(ctx); err != nil {
			return userConflict(err)
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO user_stats (user_id) VALUES (?) ON CONFLICT (user_id) DO NOTHING`, row.ID)
		return err
	})
	if err != nil {
		return domain.User{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) GetCredentials(ctx context.Context, email string) (domain.User, string, error) {
	var row userModel
	err := s.db.NewSelect().Model(&row).Where("email = ?", email).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, "", domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, "", fmt.Errorf("get credentials: %w", err)
	}
	return row.toDomain(), row.PasswordHash, nil
}

func (s *Store) GetUser(ctx context.Context, userID string) (domain.User, error) {
	var row userModel
	err := s.db.NewSelect().Model(&row).Where("id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (domain.User, error) {
	var row userModel
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if update.Email != nil {
			taken, err := tx.NewSelect().Model((*userModel)(nil)).
				Where("email = ?", *update.Email).Where("id <> ?", userID).Exists(ctx)
			if err != nil {
				return err
			}
			if taken {
				return domain.ErrEmailTaken
			}
		}
		if update.Username != nil {
			taken, err := tx.NewSelect().Model((*userModel)(nil)).
				Where("username = ?", *update.Username).Where("id <> ?", userID).Exists(ctx)
			if err != nil {
				return err
			}
			if taken {
				return domain.ErrUsernameTaken
			}
		}

		_, err := tx.NewUpdate().Model(&row).
			Set("username = COALESCE(?, username)", update.Username).
			Set("email = COALESCE(?, email)", update.Email).
			Set("avatar_url = COALESCE(?, avatar_url)", update.AvatarURL).
			Where("id = ?", userID).
			Returning("*").
			Exec(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return userConflict(err)
		}
		if row.ID == "" {
			return domain.ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	row := newQuizModel(quiz)
	row.ID = 0
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(row).Returning("*").Exec(ctx); err != nil {
			return fmt.Errorf("insert quiz: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO user_stats (user_id, quizzes_created) VALUES (?, 1)
			ON CONFLICT (user_id) DO UPDATE SET quizzes_created = user_stats.quizzes_created + 1`,
			row.CreatorID)
		return err
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) ListQuizzesByCreator(ctx context.Context, creatorID string, limit int) ([]domain.Quiz, error) {
	var rows []quizModel
	q := s.db.NewSelect().Model(&rows).
		Where("creator_id = ?", creatorID).
		OrderExpr("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	out := make([]domain.Quiz, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	var row quizModel
	err := s.db.NewSelect().Model(&row).Where("id = ?", quizID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("get quiz: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) UpdateQuiz(ctx context.Context, quizID int64, update domain.QuizUpdate) (domain.Quiz, error) {
	var row quizModel
	_, err := s.db.NewUpdate().Model(&row).
		Set("title = COALESCE(?, title)", update.Title).
		Set("description = COALESCE(?, description)", update.Description).
		Set("is_published = COALESCE(?, is_published)", update.IsPublished).
		Set("updated_at = NOW()").
		Where("id = ?", quizID).
		Returning("*").
		Exec(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("update quiz: %w", err)
	}
	if row.ID == 0 {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return row.toDomain(), nil
}

func (s *Store) DeleteQuiz(ctx context.Context, quizID int64) error {
	res, err := s.db.NewDelete().Model((*quizModel)(nil)).Where("id = ?", quizID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (s *Store) ListQuestions(ctx context.Context, quizID int64) ([]domain.QuestionWithAnswers, error) {
	return listQuestions(ctx, s.db, quizID)
}

func (s *Store) GetQuestion(ctx context.Context, questionID int64) (domain.Question, error) {
	var row questionModel
	err := s.db.NewSelect().Model(&row).Where("id = ?", questionID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("get question: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) AddQuestion(ctx context.Context, quizID int64, input domain.QuestionInput) (domain.QuestionWithAnswers, error) {
	var out domain.QuestionWithAnswers
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// Lock the quiz so concurrent appends pick distinct orders.
		var locked int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM quizzes WHERE id = ? FOR UPDATE`, quizID).Scan(&locked)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrQuizNotFound
		}
		if err != nil {
			return err
		}

		var next int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(question_order), 0) + 1 FROM questions WHERE quiz_id = ?`, quizID,
		).Scan(&next); err != nil {
			return err
		}

		q := &questionModel{
			QuizID:        quizID,
			QuestionText:  input.QuestionText,
			QuestionOrder: next,
			QuestionType:  input.QuestionType,
			Points:        input.Points,
			ImageURL:      input.ImageURL,
		}
		if _, err := tx.NewInsert().Model(q).Returning("*").Exec(ctx); err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
		answers, err := insertAnswers(ctx, tx, q.ID, input.Answers)
		if err != nil {
			return err
		}
		out = domain.QuestionWithAnswers{Question: q.toDomain(), Answers: answers}
		return nil
	})
	return out, err
}

func (s *Store) UpdateQuestion(ctx context.Context, questionID int64, input domain.QuestionInput) (domain.QuestionWithAnswers, error) {
	var out domain.QuestionWithAnswers
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var q questionModel
		_, err := tx.NewUpdate().Model(&q).
			Set("question_text = ?", input.QuestionText).
			Set("question_type = ?", input.QuestionType).
			Set("points = ?", input.Points).
			Set("image_url = ?", input.ImageURL).
			Where("id = ?", questionID).
			Returning("*").
			Exec(ctx)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && q.ID == 0) {
			return domain.ErrQuestionNotFound
		}
		if err != nil {
			return fmt.Errorf("update question: %w", err)
		}

		if _, err := tx.NewDelete().Model((*answerModel)(nil)).Where("question_id = ?", questionID).Exec(ctx); err != nil {
			return fmt.Errorf("delete answers: %w", err)
		}
		answers, err := insertAnswers(ctx, tx, questionID, input.Answers)
		if err != nil {
			return err
		}
		out = domain.QuestionWithAnswers{Question: q.toDomain(), Answers: answers}
		return nil
	})
	return out, err
}

func (s *Store) DeleteQuestion(ctx context.Context, quizID, questionID int64) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().Model((*questionModel)(nil)).
			Where("id = ?", questionID).Where("quiz_id = ?", quizID).Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete question: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrQuestionNotFound
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE questions AS qn SET question_order = r.rn
			FROM (
				SELECT id, ROW_NUMBER() OVER (ORDER BY question_order) AS rn
				FROM questions WHERE quiz_id = ?
			) AS r
			WHERE qn.id = r.id AND qn.question_order <> r.rn`, quizID)
		if err != nil {
			return fmt.Errorf("resequence questions: %w", err)
		}
		return nil
	})
}

func insertAnswers(ctx context.Context, tx bun.Tx, questionID int64, inputs []domain.AnswerInput) ([]domain.Answer, error) {
	rows := newAnswerModels(questionID, inputs)
	if len(rows) == 0 {
		return []domain.Answer{}, nil
	}
	if _, err := tx.NewInsert().Model(&rows).Returning("*").Exec(ctx); err != nil {
		return nil, fmt.Errorf("insert answers: %w", err)
	}
	out := make([]domain.Answer, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// listQuestions loads a quiz's questions by order with their answers by id.
func listQuestions(ctx context.Context, db bun.IDB, quizID int64) ([]domain.QuestionWithAnswers, error) {
	var questions []questionModel
	if err := db.NewSelect().Model(&questions).
		Where("quiz_id = ?", quizID).
		Order("question_order").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	out := make([]domain.QuestionWithAnswers, 0, len(questions))
	if len(questions) == 0 {
		return out, nil
	}

	ids := make([]int64, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}
	byQuestion, err := answersFor(ctx, db, ids)
	if err != nil {
		return nil, err
	}
	for _, q := range questions {
		answers := byQuestion[q.ID]
		if answers == nil {
			answers = []domain.Answer{}
		}
		out = append(out, domain.QuestionWithAnswers{Question: q.toDomain(), Answers: answers})
	}
	return out, nil
}

func answersFor(ctx context.Context, db bun.IDB, questionIDs []int64) (map[int64][]domain.Answer, error) {
	var answers []answerModel
	if err := db.NewSelect().Model(&answers).
		Where("question_id IN (?)", bun.In(questionIDs)).
		Order("id").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	out := make(map[int64][]domain.Answer, len(questionIDs))
	for _, a := range answers {
		out[a.QuestionID] = append(out[a.QuestionID], a.toDomain())
	}
	return out, nil
}

// userConflict maps unique violations on users to domain conflicts.
func userConflict(err error) error {
	var pgErr pgdriver.Error
	if !errors.As(err, &pgErr) || pgErr.Field('C') != "23505" {
		return err
	}
	constraint := pgErr.Field('n')
	switch {
	case strings.Contains(constraint, "email"):
		return domain.ErrEmailTaken
	case strings.Contains(constraint, "username"):
		return domain.ErrUsernameTaken
	default:
		return domain.NewError(domain.ErrConflict, "user already exists")
	}
}
