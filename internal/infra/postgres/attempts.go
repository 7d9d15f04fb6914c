package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"braincraft/internal/domain"
	"github.com/uptrace/bun"
)

func (s *Store) StartAttempt(ctx context.Context, quizID int64, userID string) (domain.AttemptSheet, error) {
	var sheet domain.AttemptSheet
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var quiz quizModel
		err := tx.NewSelect().Model(&quiz).
			Where("id = ?", quizID).Where("is_published").
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrQuizUnavailable
		}
		if err != nil {
			return fmt.Errorf("load quiz: %w", err)
		}

		attempt := &attemptModel{QuizID: quizID, UserID: userID}
		if _, err := tx.NewInsert().Model(attempt).Returning("*").Exec(ctx); err != nil {
			return fmt.Errorf("insert attempt: %w", err)
		}

		questions, err := listQuestions(ctx, tx, quizID)
		if err != nil {
			return err
		}
		plain := make([]domain.Question, 0, len(questions))
		for _, q := range questions {
			plain = append(plain, q.Question)
		}
		attempt.MaxScore = domain.MaxScore(plain)
		if _, err := tx.NewUpdate().Model(attempt).Column("max_score").WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("store max score: %w", err)
		}

		sheet = domain.AttemptSheet{Attempt: attempt.toDomain(), Quiz: quiz.toDomain(), Questions: questions}
		return nil
	})
	return sheet, err
}

func (s *Store) CompleteAttempt(ctx context.Context, c domain.AttemptCompletion) (domain.QuizAttempt, error) {
	var out domain.QuizAttempt
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var completedAt *time.Time
		err := tx.QueryRowContext(ctx, `
			SELECT completed_at FROM quiz_attempts
			WHERE id = ? AND user_id = ? AND quiz_id = ?
			FOR UPDATE`, c.AttemptID, c.UserID, c.QuizID).Scan(&completedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrAttemptNotFound
		}
		if err != nil {
			return fmt.Errorf("lock attempt: %w", err)
		}
		if completedAt != nil {
			return domain.ErrAttemptCompleted
		}

		if len(c.Answers) > 0 {
			rows := make([]userAnswerModel, 0, len(c.Answers))
			for _, g := range c.Answers {
				row := userAnswerModel{AttemptID: c.AttemptID, QuestionID: g.QuestionID, IsCorrect: g.IsCorrect}
				if g.AnswerID != 0 {
					id := g.AnswerID
					row.AnswerID = &id
				}
				rows = append(rows, row)
			}
			if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
				return fmt.Errorf("insert user answers: %w", err)
			}
		}

		var attempt attemptModel
		if _, err := tx.NewUpdate().Model(&attempt).
			Set("score = ?", c.Score).
			Set("time_taken = ?", c.TimeTaken).
			Set("completed_at = NOW()").
			Where("id = ?", c.AttemptID).
			Returning("*").
			Exec(ctx); err != nil {
			return fmt.Errorf("complete attempt: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_stats (user_id, quizzes_taken, total_points, average_score, last_activity)
			VALUES (?, 1, ?, ?, NOW())
			ON CONFLICT (user_id) DO UPDATE SET
				quizzes_taken = user_stats.quizzes_taken + 1,
				total_points  = user_stats.total_points + EXCLUDED.total_points,
				average_score = (user_stats.total_points + EXCLUDED.total_points)::float8
				                / (user_stats.quizzes_taken + 1),
				last_activity = NOW()`,
			c.UserID, c.Score, float64(c.Score)); err != nil {
			return fmt.Errorf("update stats: %w", err)
		}

		out = attempt.toDomain()
		return nil
	})
	return out, err
}

func (s *Store) ListAttempts(ctx context.Context, quizID int64, userID string) ([]domain.AttemptSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT qa.id, qa.quiz_id, qa.user_id, qa.score, qa.max_score, qa.time_taken,
		       qa.started_at, qa.completed_at, q.title, q.category, q.difficulty
		FROM quiz_attempts qa
		JOIN quizzes q ON q.id = qa.quiz_id
		WHERE qa.quiz_id = ? AND qa.user_id = ?
		ORDER BY COALESCE(qa.completed_at, qa.started_at) DESC, qa.id DESC`, quizID, userID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	out := []domain.AttemptSummary{}
	for rows.Next() {
		var a domain.AttemptSummary
		if err := rows.Scan(&a.ID, &a.QuizID, &a.UserID, &a.Score, &a.MaxScore, &a.TimeTaken,
			&a.StartedAt, &a.CompletedAt, &a.QuizTitle, &a.QuizCategory, &a.QuizDifficulty); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) ReviewAttempt(ctx context.Context, attemptID int64, questionIDs []int64) ([]domain.QuestionReview, error) {
	out := make([]domain.QuestionReview, 0, len(questionIDs))
	if len(questionIDs) == 0 {
		return out, nil
	}

	var questions []questionModel
	if err := s.db.NewSelect().Model(&questions).
		Where("id IN (?)", bun.In(questionIDs)).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("review questions: %w", err)
	}
	byID := make(map[int64]questionModel, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	answers, err := answersFor(ctx, s.db, questionIDs)
	if err != nil {
		return nil, err
	}

	var picks []userAnswerModel
	if err := s.db.NewSelect().Model(&picks).
		Where("attempt_id = ?", attemptID).
		Where("question_id IN (?)", bun.In(questionIDs)).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("review user answers: %w", err)
	}
	picked := make(map[int64]domain.UserAnswer, len(picks))
	for _, p := range picks {
		picked[p.QuestionID] = p.toDomain()
	}

	for _, id := range questionIDs {
		q, ok := byID[id]
		if !ok {
			continue
		}
		review := domain.QuestionReview{Question: q.toDomain(), Answers: answers[id]}
		if review.Answers == nil {
			review.Answers = []domain.Answer{}
		}
		if ua, ok := picked[id]; ok {
			review.UserAnswer = &ua
		}
		out = append(out, review)
	}
	return out, nil
}
