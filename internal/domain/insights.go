package domain

import "time"

// GlobalLeaderboardEntry is one user on the points leaderboard. Users
// without a stats row have nil totals.
type GlobalLeaderboardEntry struct {
	UserID         string   `json:"id"`
	Username       string   `json:"username"`
	AvatarURL      *string  `json:"avatar_url"`
	TotalPoints    *int     `json:"total_points"`
	QuizzesTaken   *int     `json:"quizzes_taken"`
	AverageScore   *float64 `json:"average_score"`
	QuizzesCreated int      `json:"quizzes_created"`
}

// RankedAttempt is a completed attempt on a published quiz as read for the
// per-quiz leaderboards, already ordered by quiz, percentage desc, time asc.
type RankedAttempt struct {
	QuizID      int64     `json:"-"`
	QuizTitle   string    `json:"-"`
	Category    *string   `json:"-"`
	Difficulty  *string   `json:"-"`
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	AvatarURL   *string   `json:"avatar_url"`
	Score       int       `json:"score"`
	MaxScore    int       `json:"max_score"`
	Percentage  float64   `json:"percentage"`
	TimeTaken   *int      `json:"time_taken"`
	CompletedAt time.Time `json:"completed_at"`
}

// QuizLeaderboard holds one row per user: their best attempt on the quiz.
type QuizLeaderboard struct {
	QuizID     int64           `json:"quiz_id"`
	QuizTitle  string          `json:"quiz_title"`
	Category   *string         `json:"category"`
	Difficulty *string         `json:"difficulty"`
	Attempts   []RankedAttempt `json:"attempts"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Leaderboards is the full leaderboard page for one caller.
type Leaderboards struct {
	Global   []GlobalLeaderboardEntry `json:"global"`
	Quizzes  []QuizLeaderboard        `json:"quizzes"`
	UserRank *int64                   `json:"user_rank"`
}

// CreationSummary aggregates the quizzes a user authored.
type CreationSummary struct {
	TotalQuizzes     int        `json:"total_quizzes"`
	PublishedQuizzes int        `json:"published_quizzes"`
	LatestQuizDate   *time.Time `json:"latest_quiz_date"`
}

// AttemptTotals aggregates the completed attempts of a user.
type AttemptTotals struct {
	TotalAttempts     int        `json:"total_attempts"`
	AveragePercentage *float64   `json:"average_percentage"`
	LatestAttemptDate *time.Time `json:"latest_attempt_date"`
}

// QuizPopularity is an authored quiz with its attempt statistics.
type QuizPopularity struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  *string   `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
	IsPublished  bool      `json:"is_published"`
	AttemptCount int       `json:"attempt_count"`
	AverageScore *float64  `json:"average_score"`
}

// Activity kinds reported in the recent activity feed.
const (
	ActivityQuizCreated = "quiz_created"
	ActivityQuizAttempt = "quiz_attempt"
)

// Activity is one item of a user's recent activity feed.
type Activity struct {
	ActivityType string    `json:"activity_type"`
	ItemID       int64     `json:"item_id"`
	ItemName     string    `json:"item_name"`
	ActivityDate time.Time `json:"activity_date"`
}

// CategoryPerformance is a user's average percentage per quiz category.
type CategoryPerformance struct {
	Category     string  `json:"category"`
	AttemptCount int     `json:"attempt_count"`
	AverageScore float64 `json:"average_score"`
}

// TimeBucket groups timed attempts by completion time.
type TimeBucket struct {
	Label             string  `json:"label"`
	Attempts          int     `json:"attempts"`
	AveragePercentage float64 `json:"average_percentage"`
}

// TimeAnalysis describes how quickly a user completes quizzes.
type TimeAnalysis struct {
	TimedAttempts  int          `json:"timed_attempts"`
	AverageSeconds float64      `json:"average_seconds"`
	Buckets        []TimeBucket `json:"buckets"`
}

// RangeSummary aggregates the attempts inside the selected time range.
type RangeSummary struct {
	Attempts          int     `json:"attempts"`
	AveragePercentage float64 `json:"average_percentage"`
	BestPercentage    float64 `json:"best_percentage"`
}

// Analytics is the analytics page of one user.
type Analytics struct {
	Range               string                `json:"range"`
	UserStats           UserStats             `json:"user_stats"`
	QuizCreation        CreationSummary       `json:"quiz_creation"`
	QuizAttempts        AttemptTotals         `json:"quiz_attempts"`
	PopularQuizzes      []QuizPopularity      `json:"popular_quizzes"`
	RecentActivity      []Activity            `json:"recent_activity"`
	CategoryPerformance []CategoryPerformance `json:"category_performance"`
	Attempts            []AttemptSummary      `json:"attempts"`
	Summary             RangeSummary          `json:"summary"`
	TimeAnalysis        TimeAnalysis          `json:"time_analysis"`
}

// QuizSummary is a published quiz as listed in the catalog.
type QuizSummary struct {
	Quiz
	CreatorName   string   `json:"creator_name"`
	CreatorAvatar *string  `json:"creator_avatar"`
	AttemptCount  int      `json:"attempt_count"`
	AverageScore  *float64 `json:"average_score"`
}

// Catalog orderings.
const (
	OrderPopular = "popular"
	OrderRecent  = "recent"
)

// CatalogFilter selects published quizzes for the catalog.
type CatalogFilter struct {
	ExcludeCreator string
	Category       string
	OrderBy        string
	Limit          int
}

// CategoryCount is the number of published quizzes in a category.
type CategoryCount struct {
	Category  string `json:"category"`
	QuizCount int    `json:"quiz_count"`
}

// CategoryShelf is one category of the discover page.
type CategoryShelf struct {
	Category string        `json:"category"`
	Quizzes  []QuizSummary `json:"quizzes"`
}

// Discover is the discover page of one user.
type Discover struct {
	PopularQuizzes    []QuizSummary   `json:"popular_quizzes"`
	QuizzesByCategory []CategoryShelf `json:"quizzes_by_category"`
	RecentQuizzes     []QuizSummary   `json:"recent_quizzes"`
}

// DashboardStats are the headline numbers of the dashboard.
type DashboardStats struct {
	QuizzesCreated int     `json:"quizzes_created"`
	QuizzesTaken   int     `json:"quizzes_taken"`
	TotalPoints    int     `json:"total_points"`
	AverageScore   float64 `json:"average_score"`
	TotalQuizzes   int     `json:"total_quizzes"`
	TotalAttempts  int     `json:"total_attempts"`
}

// Dashboard is the landing page of one user.
type Dashboard struct {
	RecentQuizzes  []Quiz           `json:"recent_quizzes"`
	RecentAttempts []AttemptSummary `json:"recent_attempts"`
	Stats          DashboardStats   `json:"stats"`
	PopularQuizzes []QuizSummary    `json:"popular_quizzes"`
}

// Profile is a user together with their stats.
type Profile struct {
	User
	Stats UserStats `json:"stats"`
}

// ProfileUpdate is a partial profile update; nil fields are kept.
type ProfileUpdate struct {
	Username  *string
	Email     *string
	AvatarURL *string
}
