package app

import (
	"context"

	"braincraft/internal/domain"
)

// UserRepository persists accounts and their credentials.
type UserRepository interface {
	// CreateUser stores the user and an empty stats row. It returns
	// domain.ErrEmailTaken or domain.ErrUsernameTaken on duplicates.
	CreateUser(ctx context.Context, user domain.User, passwordHash string) (domain.User, error)
	// GetCredentials returns the user and password hash for an email.
	GetCredentials(ctx context.Context, email string) (domain.User, string, error)
	GetUser(ctx context.Context, userID string) (domain.User, error)
	// UpdateProfile applies a partial update, rejecting an email or
	// username owned by another user.
	UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (domain.User, error)
}

// QuizRepository persists quizzes, questions and answers.
type QuizRepository interface {
	// CreateQuiz stores the quiz and bumps the creator's quizzes_created total.
	CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error)
	// ListQuizzesByCreator returns newest first; limit <= 0 means no limit.
	ListQuizzesByCreator(ctx context.Context, creatorID string, limit int) ([]domain.Quiz, error)
	GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
	UpdateQuiz(ctx context.Context, quizID int64, update domain.QuizUpdate) (domain.Quiz, error)
	DeleteQuiz(ctx context.Context, quizID int64) error

	// ListQuestions returns the quiz's questions by question_order, each with all answers.
	ListQuestions(ctx context.Context, quizID int64) ([]domain.QuestionWithAnswers, error)
	GetQuestion(ctx context.Context, questionID int64) (domain.Question, error)
	// AddQuestion appends the question at max(order)+1 together with its answers.
	AddQuestion(ctx context.Context, quizID int64, input domain.QuestionInput) (domain.QuestionWithAnswers, error)
	// UpdateQuestion replaces the question's fields and its whole answer set.
	UpdateQuestion(ctx context.Context, questionID int64, input domain.QuestionInput) (domain.QuestionWithAnswers, error)
	// DeleteQuestion removes the question and re-sequences the rest of the quiz to 1..N.
	DeleteQuestion(ctx context.Context, quizID, questionID int64) error
}

// AttemptRepository persists the attempt lifecycle.
type AttemptRepository interface {
	// StartAttempt creates an attempt on a published quiz and returns it with
	// the quiz content. It returns domain.ErrQuizUnavailable otherwise.
	StartAttempt(ctx context.Context, quizID int64, userID string) (domain.AttemptSheet, error)
	// CompleteAttempt records graded answers, the final score and the
	// user's stats in one unit. It returns domain.ErrAttemptNotFound when
	// attempt, user and quiz do not match and domain.ErrAttemptCompleted
	// when the attempt was already submitted.
	CompleteAttempt(ctx context.Context, completion domain.AttemptCompletion) (domain.QuizAttempt, error)
	// ListAttempts returns the user's attempts on a quiz, newest first.
	ListAttempts(ctx context.Context, quizID int64, userID string) ([]domain.AttemptSummary, error)
	// ReviewAttempt returns, per question id, the question, all its answers
	// and the stored user answer.
	ReviewAttempt(ctx context.Context, attemptID int64, questionIDs []int64) ([]domain.QuestionReview, error)
}

// AnswerKeyRepository serves grading data, usually from a cache.
type AnswerKeyRepository interface {
	GetAnswerKey(ctx context.Context, quizID int64) (domain.AnswerKey, error)
	Invalidate(ctx context.Context, quizID int64) error
}

// AnswerKeyLoader reads the answer key of a quiz from the source of truth.
type AnswerKeyLoader interface {
	LoadAnswerKey(ctx context.Context, quizID int64) (domain.AnswerKey, error)
}

// LeaderboardReader runs the leaderboard aggregations.
type LeaderboardReader interface {
	GlobalLeaderboard(ctx context.Context, limit int) ([]domain.GlobalLeaderboardEntry, error)
	// RankedAttempts returns completed attempts on published quizzes ordered
	// by quiz id, percentage desc, time taken asc. quizID 0 means every quiz.
	RankedAttempts(ctx context.Context, quizID int64) ([]domain.RankedAttempt, error)
	// UserRank returns nil when the user has no stats row.
	UserRank(ctx context.Context, userID string) (*int64, error)
}

// AnalyticsReader runs the per-user aggregations.
type AnalyticsReader interface {
	// UserStats returns zero totals when the user has no stats row.
	UserStats(ctx context.Context, userID string) (domain.UserStats, error)
	CreationSummary(ctx context.Context, userID string) (domain.CreationSummary, error)
	AttemptTotals(ctx context.Context, userID string) (domain.AttemptTotals, error)
	PopularOwnQuizzes(ctx context.Context, userID string, limit int) ([]domain.QuizPopularity, error)
	RecentActivity(ctx context.Context, userID string, limit int) ([]domain.Activity, error)
	CategoryPerformance(ctx context.Context, userID string) ([]domain.CategoryPerformance, error)
	// UserAttempts returns completed attempts newest first; limit <= 0 means no limit.
	UserAttempts(ctx context.Context, userID string, limit int) ([]domain.AttemptSummary, error)
}

// CatalogReader lists published quizzes.
type CatalogReader interface {
	ListPublished(ctx context.Context, filter domain.CatalogFilter) ([]domain.QuizSummary, error)
	PublishedCategories(ctx context.Context) ([]domain.CategoryCount, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// TokenIssuer signs session tokens for authenticated users.
type TokenIssuer interface {
	Issue(user domain.User) (string, error)
}
