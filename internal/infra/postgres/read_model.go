package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"braincraft/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// percentExpr is an attempt's percentage; NULL when max_score is 0.
const percentExpr = `(qa.score::float8 * 100 / NULLIF(qa.max_score, 0))`

// ReadModel serves the aggregate reads (leaderboards, analytics, catalog)
// and the answer key from a pgx pool.
type ReadModel struct {
	pool *pgxpool.Pool
}

func NewReadModel(pool *pgxpool.Pool) *ReadModel {
	return &ReadModel{pool: pool}
}

// Ping returns the database clock.
func (r *ReadModel) Ping(ctx context.Context) (time.Time, error) {
	var now time.Time
	if err := r.pool.QueryRow(ctx, `SELECT NOW()`).Scan(&now); err != nil {
		return time.Time{}, fmt.Errorf("ping: %w", err)
	}
	return now, nil
}

func (r *ReadModel) LoadAnswerKey(ctx context.Context, quizID int64) (domain.AnswerKey, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM quizzes WHERE id = $1)`, quizID).Scan(&exists); err != nil {
		return domain.AnswerKey{}, fmt.Errorf("load answer key: %w", err)
	}
	if !exists {
		return domain.AnswerKey{}, domain.ErrQuizNotFound
	}

	rows, err := r.pool.Query(ctx, `
		SELECT qn.id, qn.points, a.id, a.is_correct
		FROM questions qn
		JOIN answers a ON a.question_id = qn.id
		WHERE qn.quiz_id = $1
		ORDER BY qn.question_order, a.id`, quizID)
	if err != nil {
		return domain.AnswerKey{}, fmt.Errorf("load answer key: %w", err)
	}
	defer rows.Close()

	key := domain.AnswerKey{QuizID: quizID, Questions: make(map[int64]domain.KeyEntry)}
	for rows.Next() {
		var (
			questionID, answerID int64
			points               int
			correct              bool
		)
		if err := rows.Scan(&questionID, &points, &answerID, &correct); err != nil {
			return domain.AnswerKey{}, fmt.Errorf("scan answer key: %w", err)
		}
		entry := key.Questions[questionID]
		entry.Points = domain.Question{Points: points}.Score()
		entry.OptionID = append(entry.OptionID, answerID)
		if correct {
			entry.CorrectID = append(entry.CorrectID, answerID)
		}
		key.Questions[questionID] = entry
	}
	return key, rows.Err()
}

func (r *ReadModel) GlobalLeaderboard(ctx context.Context, limit int) ([]domain.GlobalLeaderboardEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.username, u.avatar_url,
		       us.total_points, us.quizzes_taken, us.average_score,
		       (SELECT COUNT(*) FROM quizzes q WHERE q.creator_id = u.id)
		FROM users u
		LEFT JOIN user_stats us ON us.user_id = u.id
		ORDER BY us.total_points DESC NULLS LAST, u.id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("global leaderboard: %w", err)
	}
	defer rows.Close()

	out := []domain.GlobalLeaderboardEntry{}
	for rows.Next() {
		var e domain.GlobalLeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.AvatarURL,
			&e.TotalPoints, &e.QuizzesTaken, &e.AverageScore, &e.QuizzesCreated); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *ReadModel) RankedAttempts(ctx context.Context, quizID int64) ([]domain.RankedAttempt, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT q.id, q.title, q.category, q.difficulty,
		       qa.user_id, u.username, u.avatar_url,
		       qa.score, qa.max_score, COALESCE(`+percentExpr+`, 0), qa.time_taken, qa.completed_at
		FROM quiz_attempts qa
		JOIN quizzes q ON q.id = qa.quiz_id
		JOIN users u ON u.id = qa.user_id
		WHERE qa.completed_at IS NOT NULL
		  AND q.is_published
		  AND ($1::bigint = 0 OR q.id = $1::bigint)
		ORDER BY q.id, 10 DESC, qa.time_taken ASC, qa.completed_at ASC`, quizID)
	if err != nil {
		return nil, fmt.Errorf("ranked attempts: %w", err)
	}
	defer rows.Close()

	out := []domain.RankedAttempt{}
	for rows.Next() {
		var a domain.RankedAttempt
		if err := rows.Scan(&a.QuizID, &a.QuizTitle, &a.Category, &a.Difficulty,
			&a.UserID, &a.Username, &a.AvatarURL,
			&a.Score, &a.MaxScore, &a.Percentage, &a.TimeTaken, &a.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan ranked attempt: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *ReadModel) UserRank(ctx context.Context, userID string) (*int64, error) {
	var rank int64
	err := r.pool.QueryRow(ctx, `
		SELECT rank FROM (
			SELECT user_id, RANK() OVER (ORDER BY total_points DESC NULLS LAST) AS rank
			FROM user_stats
		) ranked
		WHERE user_id = $1`, userID).Scan(&rank)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("user rank: %w", err)
	}
	return &rank, nil
}

func (r *ReadModel) UserStats(ctx context.Context, userID string) (domain.UserStats, error) {
	st := domain.UserStats{UserID: userID}
	err := r.pool.QueryRow(ctx, `
		SELECT quizzes_created, quizzes_taken, total_points, average_score, last_activity
		FROM user_stats WHERE user_id = $1`, userID).
		Scan(&st.QuizzesCreated, &st.QuizzesTaken, &st.TotalPoints, &st.AverageScore, &st.LastActivity)
	if errors.Is(err, pgx.ErrNoRows) {
		return st, nil
	}
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("user stats: %w", err)
	}
	return st, nil
}

func (r *ReadModel) CreationSummary(ctx context.Context, userID string) (domain.CreationSummary, error) {
	var out domain.CreationSummary
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_published), MAX(created_at)
		FROM quizzes WHERE creator_id = $1`, userID).
		Scan(&out.TotalQuizzes, &out.PublishedQuizzes, &out.LatestQuizDate)
	if err != nil {
		return domain.CreationSummary{}, fmt.Errorf("creation summary: %w", err)
	}
	return out, nil
}

func (r *ReadModel) AttemptTotals(ctx context.Context, userID string) (domain.AttemptTotals, error) {
	var out domain.AttemptTotals
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*), AVG(`+percentExpr+`), MAX(qa.completed_at)
		FROM quiz_attempts qa
		WHERE qa.user_id = $1 AND qa.completed_at IS NOT NULL`, userID).
		Scan(&out.TotalAttempts, &out.AveragePercentage, &out.LatestAttemptDate)
	if err != nil {
		return domain.AttemptTotals{}, fmt.Errorf("attempt totals: %w", err)
	}
	return out, nil
}

func (r *ReadModel) PopularOwnQuizzes(ctx context.Context, userID string, limit int) ([]domain.QuizPopularity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT q.id, q.title, q.description, q.created_at, q.is_published,
		       COUNT(qa.id), AVG(`+percentExpr+`)
		FROM quizzes q
		LEFT JOIN quiz_attempts qa ON qa.quiz_id = q.id AND qa.completed_at IS NOT NULL
		WHERE q.creator_id = $1
		GROUP BY q.id
		ORDER BY COUNT(qa.id) DESC, q.created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("popular own quizzes: %w", err)
	}
	defer rows.Close()

	out := []domain.QuizPopularity{}
	for rows.Next() {
		var p domain.QuizPopularity
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.CreatedAt, &p.IsPublished,
			&p.AttemptCount, &p.AverageScore); err != nil {
			return nil, fmt.Errorf("scan popular quiz: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ReadModel) RecentActivity(ctx context.Context, userID string, limit int) ([]domain.Activity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT * FROM (
			SELECT $2::text AS activity_type, q.id, q.title, q.created_at AS activity_date
			FROM quizzes q WHERE q.creator_id = $1
			UNION ALL
			SELECT $3::text, q.id, q.title, qa.completed_at
			FROM quiz_attempts qa JOIN quizzes q ON q.id = qa.quiz_id
			WHERE qa.user_id = $1 AND qa.completed_at IS NOT NULL
		) activity
		ORDER BY activity_date DESC
		LIMIT $4`, userID, domain.ActivityQuizCreated, domain.ActivityQuizAttempt, limit)
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	defer rows.Close()

	out := []domain.Activity{}
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ActivityType, &a.ItemID, &a.ItemName, &a.ActivityDate); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *ReadModel) CategoryPerformance(ctx context.Context, userID string) ([]domain.CategoryPerformance, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT q.category, COUNT(*), COALESCE(AVG(`+percentExpr+`), 0)
		FROM quiz_attempts qa
		JOIN quizzes q ON q.id = qa.quiz_id
		WHERE qa.user_id = $1 AND qa.completed_at IS NOT NULL AND q.category IS NOT NULL
		GROUP BY q.category
		ORDER BY 3 DESC, q.category`, userID)
	if err != nil {
		return nil, fmt.Errorf("category performance: %w", err)
	}
	defer rows.Close()

	out := []domain.CategoryPerformance{}
	for rows.Next() {
		var c domain.CategoryPerformance
		if err := rows.Scan(&c.Category, &c.AttemptCount, &c.AverageScore); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ReadModel) UserAttempts(ctx context.Context, userID string, limit int) ([]domain.AttemptSummary, error) {
	query := `
		SELECT qa.id, qa.quiz_id, qa.user_id, qa.score, qa.max_score, qa.time_taken,
		       qa.started_at, qa.completed_at, q.title, q.category, q.difficulty
		FROM quiz_attempts qa
		JOIN quizzes q ON q.id = qa.quiz_id
		WHERE qa.user_id = $1 AND qa.completed_at IS NOT NULL
		ORDER BY qa.completed_at DESC, qa.id DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("user attempts: %w", err)
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

func (r *ReadModel) ListPublished(ctx context.Context, filter domain.CatalogFilter) ([]domain.QuizSummary, error) {
	order := `q.created_at DESC, q.id DESC`
	if filter.OrderBy == domain.OrderPopular {
		order = `COUNT(qa.id) DESC, ` + order
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT q.id, q.title, q.description, q.creator_id, q.is_published, q.category,
		       q.difficulty, q.time_limit, q.cover_image, q.created_at, q.updated_at,
		       u.username, u.avatar_url, COUNT(qa.id), AVG(`+percentExpr+`)
		FROM quizzes q
		JOIN users u ON u.id = q.creator_id
		LEFT JOIN quiz_attempts qa ON qa.quiz_id = q.id AND qa.completed_at IS NOT NULL
		WHERE q.is_published
		  AND ($1::text = '' OR q.creator_id <> $1::text)
		  AND ($2::text = '' OR q.category = $2::text)
		GROUP BY q.id, u.id
		ORDER BY `+order+`
		LIMIT $3`, filter.ExcludeCreator, filter.Category, limit)
	if err != nil {
		return nil, fmt.Errorf("list published: %w", err)
	}
	defer rows.Close()

	out := []domain.QuizSummary{}
	for rows.Next() {
		var s domain.QuizSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.Description, &s.CreatorID, &s.IsPublished, &s.Category,
			&s.Difficulty, &s.TimeLimit, &s.CoverImage, &s.CreatedAt, &s.UpdatedAt,
			&s.CreatorName, &s.CreatorAvatar, &s.AttemptCount, &s.AverageScore); err != nil {
			return nil, fmt.Errorf("scan published quiz: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *ReadModel) PublishedCategories(ctx context.Context) ([]domain.CategoryCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT category, COUNT(*)
		FROM quizzes
		WHERE is_published AND category IS NOT NULL AND category <> ''
		GROUP BY category
		ORDER BY 2 DESC, category`)
	if err != nil {
		return nil, fmt.Errorf("published categories: %w", err)
	}
	defer rows.Close()

	out := []domain.CategoryCount{}
	for rows.Next() {
		var c domain.CategoryCount
		if err := rows.Scan(&c.Category, &c.QuizCount); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
