package app

import (
	"context"
	"time"

	"braincraft/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Analytics ranges.
const (
	RangeAll   = "all"
	RangeWeek  = "week"
	RangeMonth = "month"
	RangeYear  = "year"
)

const (
	popularOwnLimit    = 5
	recentActivityLen  = 10
	dashboardListLimit = 5
	quickAttemptSecs   = 120
	thoroughAttemptSec = 300
)

// AnalyticsService assembles the analytics and dashboard pages.
type AnalyticsService struct {
	reader  AnalyticsReader
	quizzes QuizRepository
	catalog CatalogReader
	now     func() time.Time
}

func NewAnalyticsService(reader AnalyticsReader, quizzes QuizRepository, catalog CatalogReader) *AnalyticsService {
	return &AnalyticsService{reader: reader, quizzes: quizzes, catalog: catalog, now: time.Now}
}

// Analytics runs the independent aggregations concurrently and derives the
// range summary and time analysis from the attempts inside the range.
func (s *AnalyticsService) Analytics(ctx context.Context, userID, timeRange string) (domain.Analytics, error) {
	since, err := s.rangeStart(timeRange)
	if err != nil {
		return domain.Analytics{}, err
	}
	if timeRange == "" {
		timeRange = RangeAll
	}

	out := domain.Analytics{Range: timeRange}
	var attempts []domain.AttemptSummary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.UserStats, err = s.reader.UserStats(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		out.QuizCreation, err = s.reader.CreationSummary(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		out.QuizAttempts, err = s.reader.AttemptTotals(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		out.PopularQuizzes, err = s.reader.PopularOwnQuizzes(gctx, userID, popularOwnLimit)
		return err
	})
	g.Go(func() (err error) {
		out.RecentActivity, err = s.reader.RecentActivity(gctx, userID, recentActivityLen)
		return err
	})
	g.Go(func() (err error) {
		out.CategoryPerformance, err = s.reader.CategoryPerformance(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		attempts, err = s.reader.UserAttempts(gctx, userID, 0)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Analytics{}, err
	}

	out.Attempts = filterSince(attempts, since)
	out.Summary = summarize(out.Attempts)
	out.TimeAnalysis = analyzeTimes(out.Attempts)
	if out.PopularQuizzes == nil {
		out.PopularQuizzes = []domain.QuizPopularity{}
	}
	if out.RecentActivity == nil {
		out.RecentActivity = []domain.Activity{}
	}
	if out.CategoryPerformance == nil {
		out.CategoryPerformance = []domain.CategoryPerformance{}
	}
	return out, nil
}

// Dashboard returns the caller's recent quizzes and attempts, their totals
// and popular quizzes by other creators.
func (s *AnalyticsService) Dashboard(ctx context.Context, userID string) (domain.Dashboard, error) {
	var (
		out      domain.Dashboard
		stats    domain.UserStats
		creation domain.CreationSummary
		totals   domain.AttemptTotals
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.RecentQuizzes, err = s.quizzes.ListQuizzesByCreator(gctx, userID, dashboardListLimit)
		return err
	})
	g.Go(func() (err error) {
		out.RecentAttempts, err = s.reader.UserAttempts(gctx, userID, dashboardListLimit)
		return err
	})
	g.Go(func() (err error) {
		stats, err = s.reader.UserStats(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		creation, err = s.reader.CreationSummary(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		totals, err = s.reader.AttemptTotals(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		out.PopularQuizzes, err = s.catalog.ListPublished(gctx, domain.CatalogFilter{
			ExcludeCreator: userID,
			OrderBy:        domain.OrderPopular,
			Limit:          dashboardListLimit,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Dashboard{}, err
	}

	out.Stats = domain.DashboardStats{
		QuizzesCreated: stats.QuizzesCreated,
		QuizzesTaken:   stats.QuizzesTaken,
		TotalPoints:    stats.TotalPoints,
		AverageScore:   stats.AverageScore,
		TotalQuizzes:   creation.TotalQuizzes,
		TotalAttempts:  totals.TotalAttempts,
	}
	if out.RecentQuizzes == nil {
		out.RecentQuizzes = []domain.Quiz{}
	}
	if out.RecentAttempts == nil {
		out.RecentAttempts = []domain.AttemptSummary{}
	}
	if out.PopularQuizzes == nil {
		out.PopularQuizzes = []domain.QuizSummary{}
	}
	return out, nil
}

func (s *AnalyticsService) rangeStart(timeRange string) (time.Time, error) {
	now := s.now()
	switch timeRange {
	case "", RangeAll:
		return time.Time{}, nil
	case RangeWeek:
		return now.AddDate(0, 0, -7), nil
	case RangeMonth:
		return now.AddDate(0, -1, 0), nil
	case RangeYear:
		return now.AddDate(-1, 0, 0), nil
	default:
		return time.Time{}, domain.Invalid("range must be one of all, week, month, year")
	}
}

func filterSince(attempts []domain.AttemptSummary, since time.Time) []domain.AttemptSummary {
	out := make([]domain.AttemptSummary, 0, len(attempts))
	for _, a := range attempts {
		if a.CompletedAt == nil {
			continue
		}
		if !since.IsZero() && a.CompletedAt.Before(since) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func attemptPercentage(a domain.AttemptSummary) float64 {
	if a.MaxScore <= 0 {
		return 0
	}
	return float64(a.Score) * 100 / float64(a.MaxScore)
}

func summarize(attempts []domain.AttemptSummary) domain.RangeSummary {
	summary := domain.RangeSummary{Attempts: len(attempts)}
	if len(attempts) == 0 {
		return summary
	}
	sum := 0.0
	for _, a := range attempts {
		p := attemptPercentage(a)
		sum += p
		if p > summary.BestPercentage {
			summary.BestPercentage = p
		}
	}
	summary.AveragePercentage = sum / float64(len(attempts))
	return summary
}

// analyzeTimes buckets timed attempts into Quick, Average and Thorough.
func analyzeTimes(attempts []domain.AttemptSummary) domain.TimeAnalysis {
	buckets := []domain.TimeBucket{{Label: "Quick"}, {Label: "Average"}, {Label: "Thorough"}}
	sums := make([]float64, len(buckets))
	analysis := domain.TimeAnalysis{}
	totalSecs := 0
	for _, a := range attempts {
		if a.TimeTaken == nil {
			continue
		}
		secs := *a.TimeTaken
		analysis.TimedAttempts++
		totalSecs += secs

		i := 1
		switch {
		case secs < quickAttemptSecs:
			i = 0
		case secs >= thoroughAttemptSec:
			i = 2
		}
		buckets[i].Attempts++
		sums[i] += attemptPercentage(a)
	}
	for i := range buckets {
		if buckets[i].Attempts > 0 {
			buckets[i].AveragePercentage = sums[i] / float64(buckets[i].Attempts)
		}
	}
	if analysis.TimedAttempts > 0 {
		analysis.AverageSeconds = float64(totalSecs) / float64(analysis.TimedAttempts)
	}
	analysis.Buckets = buckets
	return analysis
}
