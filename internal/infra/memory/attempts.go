package memory

import (
	"context"
	"sort"
	"time"

	"braincraft/internal/domain"
)

func (s *Store) StartAttempt(_ context.Context, quizID int64, userID string) (domain.AttemptSheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	quiz, ok := s.quizzes[quizID]
	if !ok || !quiz.IsPublished {
		return domain.AttemptSheet{}, domain.ErrQuizUnavailable
	}
	questions := s.questionsLocked(quizID)
	plain := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		plain = append(plain, q.Question)
	}

	attempt := &domain.QuizAttempt{
		ID:        s.next("attempts"),
		QuizID:    quizID,
		UserID:    userID,
		MaxScore:  domain.MaxScore(plain),
		StartedAt: s.now(),
	}
	s.attempts[attempt.ID] = attempt
	return domain.AttemptSheet{Attempt: *attempt, Quiz: *quiz, Questions: questions}, nil
}

func (s *Store) CompleteAttempt(_ context.Context, c domain.AttemptCompletion) (domain.QuizAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt, ok := s.attempts[c.AttemptID]
	if !ok || attempt.UserID != c.UserID || attempt.QuizID != c.QuizID {
		return domain.QuizAttempt{}, domain.ErrAttemptNotFound
	}
	if attempt.Completed() {
		return domain.QuizAttempt{}, domain.ErrAttemptCompleted
	}

	for _, g := range c.Answers {
		ua := domain.UserAnswer{
			ID:         s.next("user_answers"),
			AttemptID:  attempt.ID,
			QuestionID: g.QuestionID,
			IsCorrect:  g.IsCorrect,
		}
		if g.AnswerID != 0 {
			id := g.AnswerID
			ua.AnswerID = &id
		}
		s.userAnswers = append(s.userAnswers, ua)
	}

	now := s.now()
	attempt.Score = c.Score
	attempt.TimeTaken = c.TimeTaken
	attempt.CompletedAt = &now

	st := s.statsLocked(c.UserID)
	st.QuizzesTaken++
	st.TotalPoints += c.Score
	st.AverageScore = float64(st.TotalPoints) / float64(st.QuizzesTaken)
	st.LastActivity = &now
	return *attempt, nil
}

func (s *Store) ListAttempts(_ context.Context, quizID int64, userID string) ([]domain.AttemptSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.AttemptSummary{}
	for _, a := range s.attempts {
		if a.QuizID == quizID && a.UserID == userID {
			out = append(out, s.summaryLocked(*a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := lastTouched(out[i].QuizAttempt), lastTouched(out[j].QuizAttempt)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) ReviewAttempt(_ context.Context, attemptID int64, questionIDs []int64) ([]domain.QuestionReview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.attempts[attemptID]; !ok {
		return nil, domain.ErrAttemptNotFound
	}
	out := make([]domain.QuestionReview, 0, len(questionIDs))
	for _, qid := range questionIDs {
		q, ok := s.questions[qid]
		if !ok {
			continue
		}
		review := domain.QuestionReview{Question: *q, Answers: s.answersLocked(qid)}
		for _, ua := range s.userAnswers {
			if ua.AttemptID == attemptID && ua.QuestionID == qid {
				ua := ua
				review.UserAnswer = &ua
				break
			}
		}
		out = append(out, review)
	}
	return out, nil
}

func (s *Store) summaryLocked(a domain.QuizAttempt) domain.AttemptSummary {
	summary := domain.AttemptSummary{QuizAttempt: a}
	if q, ok := s.quizzes[a.QuizID]; ok {
		summary.QuizTitle = q.Title
		summary.QuizCategory = q.Category
		summary.QuizDifficulty = q.Difficulty
	}
	return summary
}

func lastTouched(a domain.QuizAttempt) time.Time {
	if a.CompletedAt != nil {
		return *a.CompletedAt
	}
	return a.StartedAt
}
