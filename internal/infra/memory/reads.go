package memory

import (
	"context"
	"sort"

	"braincraft/internal/domain"
)

func percentOf(a domain.QuizAttempt) (float64, bool) {
	if a.MaxScore <= 0 {
		return 0, false
	}
	return float64(a.Score) * 100 / float64(a.MaxScore), true
}

func (s *Store) GlobalLeaderboard(_ context.Context, limit int) ([]domain.GlobalLeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	created := make(map[string]int)
	for _, q := range s.quizzes {
		created[q.CreatorID]++
	}
	out := make([]domain.GlobalLeaderboardEntry, 0, len(s.users))
	for id, a := range s.users {
		entry := domain.GlobalLeaderboardEntry{
			UserID:         id,
			Username:       a.user.Username,
			AvatarURL:      a.user.AvatarURL,
			QuizzesCreated: created[id],
		}
		if st, ok := s.stats[id]; ok {
			total, taken, avg := st.TotalPoints, st.QuizzesTaken, st.AverageScore
			entry.TotalPoints, entry.QuizzesTaken, entry.AverageScore = &total, &taken, &avg
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].TotalPoints, out[j].TotalPoints
		switch {
		case ti == nil && tj == nil:
		case ti == nil:
			return false
		case tj == nil:
			return true
		case *ti != *tj:
			return *ti > *tj
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) RankedAttempts(_ context.Context, quizID int64) ([]domain.RankedAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.RankedAttempt{}
	for _, a := range s.attempts {
		if !a.Completed() || (quizID != 0 && a.QuizID != quizID) {
			continue
		}
		quiz, ok := s.quizzes[a.QuizID]
		if !ok || !quiz.IsPublished {
			continue
		}
		pct, _ := percentOf(*a)
		row := domain.RankedAttempt{
			QuizID:      quiz.ID,
			QuizTitle:   quiz.Title,
			Category:    quiz.Category,
			Difficulty:  quiz.Difficulty,
			UserID:      a.UserID,
			Score:       a.Score,
			MaxScore:    a.MaxScore,
			Percentage:  pct,
			TimeTaken:   a.TimeTaken,
			CompletedAt: *a.CompletedAt,
		}
		if u, ok := s.users[a.UserID]; ok {
			row.Username = u.user.Username
			row.AvatarURL = u.user.AvatarURL
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.QuizID != b.QuizID {
			return a.QuizID < b.QuizID
		}
		if a.Percentage != b.Percentage {
			return a.Percentage > b.Percentage
		}
		switch {
		case a.TimeTaken == nil && b.TimeTaken == nil:
		case a.TimeTaken == nil:
			return false
		case b.TimeTaken == nil:
			return true
		case *a.TimeTaken != *b.TimeTaken:
			return *a.TimeTaken < *b.TimeTaken
		}
		return a.CompletedAt.Before(b.CompletedAt)
	})
	return out, nil
}

func (s *Store) UserRank(_ context.Context, userID string) (*int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.stats[userID]
	if !ok {
		return nil, nil
	}
	rank := int64(1)
	for _, other := range s.stats {
		if other.TotalPoints > st.TotalPoints {
			rank++
		}
	}
	return &rank, nil
}

func (s *Store) UserStats(_ context.Context, userID string) (domain.UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.stats[userID]; ok {
		return *st, nil
	}
	return domain.UserStats{UserID: userID}, nil
}

func (s *Store) CreationSummary(_ context.Context, userID string) (domain.CreationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out domain.CreationSummary
	for _, q := range s.quizzes {
		if q.CreatorID != userID {
			continue
		}
		out.TotalQuizzes++
		if q.IsPublished {
			out.PublishedQuizzes++
		}
		if out.LatestQuizDate == nil || q.CreatedAt.After(*out.LatestQuizDate) {
			created := q.CreatedAt
			out.LatestQuizDate = &created
		}
	}
	return out, nil
}

func (s *Store) AttemptTotals(_ context.Context, userID string) (domain.AttemptTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		out   domain.AttemptTotals
		sum   float64
		rated int
	)
	for _, a := range s.attempts {
		if a.UserID != userID || !a.Completed() {
			continue
		}
		out.TotalAttempts++
		if pct, ok := percentOf(*a); ok {
			sum += pct
			rated++
		}
		if out.LatestAttemptDate == nil || a.CompletedAt.After(*out.LatestAttemptDate) {
			done := *a.CompletedAt
			out.LatestAttemptDate = &done
		}
	}
	if rated > 0 {
		avg := sum / float64(rated)
		out.AveragePercentage = &avg
	}
	return out, nil
}

func (s *Store) PopularOwnQuizzes(_ context.Context, userID string, limit int) ([]domain.QuizPopularity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.QuizPopularity{}
	for _, q := range s.quizzes {
		if q.CreatorID != userID {
			continue
		}
		count, avg := s.attemptStatsLocked(q.ID)
		out = append(out, domain.QuizPopularity{
			ID:           q.ID,
			Title:        q.Title,
			Description:  q.Description,
			CreatedAt:    q.CreatedAt,
			IsPublished:  q.IsPublished,
			AttemptCount: count,
			AverageScore: avg,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AttemptCount != out[j].AttemptCount {
			return out[i].AttemptCount > out[j].AttemptCount
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) RecentActivity(_ context.Context, userID string, limit int) ([]domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Activity{}
	for _, q := range s.quizzes {
		if q.CreatorID == userID {
			out = append(out, domain.Activity{
				ActivityType: domain.ActivityQuizCreated,
				ItemID:       q.ID,
				ItemName:     q.Title,
				ActivityDate: q.CreatedAt,
			})
		}
	}
	for _, a := range s.attempts {
		if a.UserID != userID || !a.Completed() {
			continue
		}
		name := ""
		if q, ok := s.quizzes[a.QuizID]; ok {
			name = q.Title
		}
		out = append(out, domain.Activity{
			ActivityType: domain.ActivityQuizAttempt,
			ItemID:       a.QuizID,
			ItemName:     name,
			ActivityDate: *a.CompletedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ActivityDate.After(out[j].ActivityDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CategoryPerformance(_ context.Context, userID string) ([]domain.CategoryPerformance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type agg struct {
		count int
		sum   float64
		rated int
	}
	byCategory := make(map[string]*agg)
	for _, a := range s.attempts {
		if a.UserID != userID || !a.Completed() {
			continue
		}
		q, ok := s.quizzes[a.QuizID]
		if !ok || q.Category == nil {
			continue
		}
		g, ok := byCategory[*q.Category]
		if !ok {
			g = &agg{}
			byCategory[*q.Category] = g
		}
		g.count++
		if pct, ok := percentOf(*a); ok {
			g.sum += pct
			g.rated++
		}
	}

	out := make([]domain.CategoryPerformance, 0, len(byCategory))
	for category, g := range byCategory {
		row := domain.CategoryPerformance{Category: category, AttemptCount: g.count}
		if g.rated > 0 {
			row.AverageScore = g.sum / float64(g.rated)
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AverageScore != out[j].AverageScore {
			return out[i].AverageScore > out[j].AverageScore
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

func (s *Store) UserAttempts(_ context.Context, userID string, limit int) ([]domain.AttemptSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.AttemptSummary{}
	for _, a := range s.attempts {
		if a.UserID == userID && a.Completed() {
			out = append(out, s.summaryLocked(*a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CompletedAt.Equal(*out[j].CompletedAt) {
			return out[i].CompletedAt.After(*out[j].CompletedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListPublished(_ context.Context, filter domain.CatalogFilter) ([]domain.QuizSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.QuizSummary{}
	for _, q := range s.quizzes {
		if !q.IsPublished {
			continue
		}
		if filter.ExcludeCreator != "" && q.CreatorID == filter.ExcludeCreator {
			continue
		}
		if filter.Category != "" && (q.Category == nil || *q.Category != filter.Category) {
			continue
		}
		count, avg := s.attemptStatsLocked(q.ID)
		summary := domain.QuizSummary{Quiz: *q, AttemptCount: count, AverageScore: avg}
		if u, ok := s.users[q.CreatorID]; ok {
			summary.CreatorName = u.user.Username
			summary.CreatorAvatar = u.user.AvatarURL
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool {
		if filter.OrderBy == domain.OrderPopular && out[i].AttemptCount != out[j].AttemptCount {
			return out[i].AttemptCount > out[j].AttemptCount
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) PublishedCategories(_ context.Context) ([]domain.CategoryCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, q := range s.quizzes {
		if q.IsPublished && q.Category != nil && *q.Category != "" {
			counts[*q.Category]++
		}
	}
	out := make([]domain.CategoryCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, domain.CategoryCount{Category: c, QuizCount: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].QuizCount != out[j].QuizCount {
			return out[i].QuizCount > out[j].QuizCount
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

// attemptStatsLocked counts completed attempts on a quiz and averages their percentage.
func (s *Store) attemptStatsLocked(quizID int64) (int, *float64) {
	count, rated := 0, 0
	sum := 0.0
	for _, a := range s.attempts {
		if a.QuizID != quizID || !a.Completed() {
			continue
		}
		count++
		if pct, ok := percentOf(*a); ok {
			sum += pct
			rated++
		}
	}
	if rated == 0 {
		return count, nil
	}
	avg := sum / float64(rated)
	return count, &avg
}
