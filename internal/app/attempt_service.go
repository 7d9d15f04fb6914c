package app

import (
	"context"
	"math/rand"

	"braincraft/internal/domain"
	"github.com/sirupsen/logrus"
)

// PlayableAnswer is an answer as served to a quiz taker.
type PlayableAnswer struct {
	ID         int64  `json:"id"`
	AnswerText string `json:"answer_text"`
}

// PlayableQuestion is a question without its answer key.
type PlayableQuestion struct {
	ID            int64            `json:"id"`
	QuestionText  string           `json:"question_text"`
	QuestionOrder int              `json:"question_order"`
	QuestionType  string           `json:"question_type"`
	Points        int              `json:"points"`
	ImageURL      *string          `json:"image_url"`
	Answers       []PlayableAnswer `json:"answers"`
}

// StartedAttempt is returned when a quiz attempt begins.
type StartedAttempt struct {
	AttemptID int64              `json:"attempt_id"`
	Quiz      domain.Quiz        `json:"quiz"`
	Questions []PlayableQuestion `json:"questions"`
}

// Submission is a finished attempt as sent by the quiz taker.
type Submission struct {
	AttemptID int64
	Answers   []domain.AnswerSubmission
	TimeTaken *int
}

// AttemptResult is the graded outcome of a submission.
type AttemptResult struct {
	Score      int                     `json:"score"`
	MaxScore   int                     `json:"max_score"`
	Percentage int                     `json:"percentage"`
	Questions  []domain.QuestionReview `json:"questions"`
}

// LeaderboardPublisher pushes a fresh quiz leaderboard to live subscribers.
type LeaderboardPublisher interface {
	PublishQuiz(ctx context.Context, quizID int64) error
}

// AttemptService runs the attempt lifecycle: start, submit, history.
type AttemptService struct {
	attempts AttemptRepository
	keys     AnswerKeyRepository
	live     LeaderboardPublisher
	log      logrus.FieldLogger
	// shuffle is called from concurrent Start calls and must be goroutine safe.
	shuffle  func(n int, swap func(i, j int))
}

func NewAttemptService(attempts AttemptRepository, keys AnswerKeyRepository, live LeaderboardPublisher, log logrus.FieldLogger) *AttemptService {
	return &AttemptService{
		attempts: attempts,
		keys:     keys,
		live:     live,
		log:      log,
		shuffle:  rand.Shuffle,
	}
}

// WithShuffle replaces the answer shuffler; tests use it for stable order.
func (s *AttemptService) WithShuffle(shuffle func(n int, swap func(i, j int))) *AttemptService {
	s.shuffle = shuffle
	return s
}

// Start creates a new attempt and serves the quiz without its answer key.
func (s *AttemptService) Start(ctx context.Context, quizID int64, userID string) (StartedAttempt, error) {
	sheet, err := s.attempts.StartAttempt(ctx, quizID, userID)
	if err != nil {
		return StartedAttempt{}, err
	}

	questions := make([]PlayableQuestion, 0, len(sheet.Questions))
	for _, q := range sheet.Questions {
		answers := make([]PlayableAnswer, 0, len(q.Answers))
		for _, a := range q.Answers {
			answers = append(answers, PlayableAnswer{ID: a.ID, AnswerText: a.AnswerText})
		}
		s.shuffle(len(answers), func(i, j int) {
			answers[i], answers[j] = answers[j], answers[i]
		})
		questions = append(questions, PlayableQuestion{
			ID:            q.ID,
			QuestionText:  q.QuestionText,
			QuestionOrder: q.QuestionOrder,
			QuestionType:  q.QuestionType,
			Points:        q.Points,
			ImageURL:      q.ImageURL,
			Answers:       answers,
		})
	}

	return StartedAttempt{
		AttemptID: sheet.Attempt.ID,
		Quiz:      sheet.Quiz,
		Questions: questions,
	}, nil
}

// Submit grades the submission, completes the attempt and returns a review.
func (s *AttemptService) Submit(ctx context.Context, quizID int64, userID string, sub Submission) (AttemptResult, error) {
	if sub.AttemptID <= 0 {
		return AttemptResult{}, domain.Invalid("invalid submission data")
	}
	if sub.Answers == nil {
		return AttemptResult{}, domain.Invalid("invalid submission data")
	}
	if sub.TimeTaken != nil && *sub.TimeTaken < 0 {
		return AttemptResult{}, domain.Invalid("time_taken must not be negative")
	}

	key, err := s.keys.GetAnswerKey(ctx, quizID)
	if err != nil {
		return AttemptResult{}, err
	}
	graded, total := gradeSubmission(key, sub.Answers)

	attempt, err := s.attempts.CompleteAttempt(ctx, domain.AttemptCompletion{
		AttemptID: sub.AttemptID,
		QuizID:    quizID,
		UserID:    userID,
		Answers:   graded,
		Score:     total,
		TimeTaken: sub.TimeTaken,
	})
	if err != nil {
		return AttemptResult{}, err
	}

	questionIDs := make([]int64, 0, len(graded))
	for _, g := range graded {
		questionIDs = append(questionIDs, g.QuestionID)
	}
	review, err := s.attempts.ReviewAttempt(ctx, attempt.ID, questionIDs)
	if err != nil {
		return AttemptResult{}, err
	}

	if s.live != nil {
		if err := s.live.PublishQuiz(ctx, quizID); err != nil {
			s.log.WithError(err).WithField("quiz_id", quizID).Warn("live leaderboard refresh failed")
		}
	}

	return AttemptResult{
		Score:      attempt.Score,
		MaxScore:   attempt.MaxScore,
		Percentage: domain.Percentage(attempt.Score, attempt.MaxScore),
		Questions:  review,
	}, nil
}

// History lists the caller's attempts on a quiz, newest first.
func (s *AttemptService) History(ctx context.Context, quizID int64, userID string) ([]domain.AttemptSummary, error) {
	return s.attempts.ListAttempts(ctx, quizID, userID)
}

// gradeSubmission scores submissions against the answer key. Questions that
// are not part of the quiz are skipped, and a question answered twice is
// graded on its first occurrence only.
func gradeSubmission(key domain.AnswerKey, submissions []domain.AnswerSubmission) ([]domain.GradedAnswer, int) {
	graded := make([]domain.GradedAnswer, 0, len(submissions))
	seen := make(map[int64]struct{}, len(submissions))
	total := 0
	for _, sub := range submissions {
		entry, ok := key.Questions[sub.QuestionID]
		if !ok {
			continue
		}
		if _, dup := seen[sub.QuestionID]; dup {
			continue
		}
		seen[sub.QuestionID] = struct{}{}

		answerID := sub.AnswerID
		if !entry.Offers(answerID) {
			answerID = 0
		}
		awarded := 0
		correct := answerID != 0 && entry.Accepts(answerID)
		if correct {
			awarded = entry.Points
			if awarded <= 0 {
				awarded = 1
			}
		}
		total += awarded
		graded = append(graded, domain.GradedAnswer{
			QuestionID: sub.QuestionID,
			AnswerID:   answerID,
			IsCorrect:  correct,
			Awarded:    awarded,
		})
	}
	return graded, total
}
