package app

import (
	"context"
	"errors"
	"strings"

	"braincraft/internal/domain"
	"github.com/sirupsen/logrus"
)

// NewQuiz is the input for creating a quiz.
type NewQuiz struct {
	Title       string
	Description *string
	Category    *string
	Difficulty  *string
	TimeLimit   *int
	IsPublished bool
}

// QuizService contains the quiz authoring use cases. Every mutation is
// restricted to the creator; quizzes owned by others look missing.
type QuizService struct {
	quizzes QuizRepository
	keys    AnswerKeyRepository
	log     logrus.FieldLogger
}

func NewQuizService(quizzes QuizRepository, keys AnswerKeyRepository, log logrus.FieldLogger) *QuizService {
	return &QuizService{quizzes: quizzes, keys: keys, log: log}
}

// Create stores a new quiz owned by creatorID.
func (s *QuizService) Create(ctx context.Context, creatorID string, in NewQuiz) (domain.Quiz, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Quiz{}, domain.Invalid("title is required")
	}
	if in.TimeLimit != nil && *in.TimeLimit < 0 {
		return domain.Quiz{}, domain.Invalid("time_limit must not be negative")
	}
	return s.quizzes.CreateQuiz(ctx, domain.Quiz{
		Title:       title,
		Description: in.Description,
		CreatorID:   creatorID,
		IsPublished: in.IsPublished,
		Category:    in.Category,
		Difficulty:  in.Difficulty,
		TimeLimit:   in.TimeLimit,
	})
}

// ListMine returns the caller's quizzes, newest first.
func (s *QuizService) ListMine(ctx context.Context, creatorID string) ([]domain.Quiz, error) {
	return s.quizzes.ListQuizzesByCreator(ctx, creatorID, 0)
}

// Get returns a quiz with its questions. Other users only see published
// quizzes, without correctness flags and explanations.
func (s *QuizService) Get(ctx context.Context, quizID int64, userID string) (domain.QuizDetail, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizDetail{}, err
	}
	owner := quiz.CreatorID == userID
	if !owner && !quiz.IsPublished {
		return domain.QuizDetail{}, domain.ErrQuizNotFound
	}

	questions, err := s.quizzes.ListQuestions(ctx, quizID)
	if err != nil {
		return domain.QuizDetail{}, err
	}
	if !owner {
		for i := range questions {
			for j := range questions[i].Answers {
				questions[i].Answers[j].IsCorrect = false
				questions[i].Answers[j].Explanation = nil
			}
		}
	}
	return domain.QuizDetail{Quiz: quiz, Questions: questions}, nil
}

// Update applies a partial update of title, description and publish flag.
func (s *QuizService) Update(ctx context.Context, quizID int64, userID string, update domain.QuizUpdate) (domain.Quiz, error) {
	if _, err := s.owned(ctx, quizID, userID); err != nil {
		return domain.Quiz{}, err
	}
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return domain.Quiz{}, domain.Invalid("title must not be empty")
		}
		update.Title = &title
	}
	return s.quizzes.UpdateQuiz(ctx, quizID, update)
}

// Delete removes the quiz with its questions, answers and attempts.
func (s *QuizService) Delete(ctx context.Context, quizID int64, userID string) error {
	if _, err := s.owned(ctx, quizID, userID); err != nil {
		return err
	}
	if err := s.quizzes.DeleteQuiz(ctx, quizID); err != nil {
		return err
	}
	s.invalidate(ctx, quizID)
	return nil
}

// Questions lists the quiz's questions with their answer keys.
func (s *QuizService) Questions(ctx context.Context, quizID int64, userID string) ([]domain.QuestionWithAnswers, error) {
	if _, err := s.owned(ctx, quizID, userID); err != nil {
		return nil, err
	}
	return s.quizzes.ListQuestions(ctx, quizID)
}

// AddQuestion appends a question at the end of the quiz.
func (s *QuizService) AddQuestion(ctx context.Context, quizID int64, userID string, in domain.QuestionInput) (domain.QuestionWithAnswers, error) {
	if _, err := s.owned(ctx, quizID, userID); err != nil {
		return domain.QuestionWithAnswers{}, err
	}
	in, err := normalizeQuestion(in)
	if err != nil {
		return domain.QuestionWithAnswers{}, err
	}
	q, err := s.quizzes.AddQuestion(ctx, quizID, in)
	if err != nil {
		return domain.QuestionWithAnswers{}, err
	}
	s.invalidate(ctx, quizID)
	return q, nil
}

// UpdateQuestion replaces a question and its whole answer set.
func (s *QuizService) UpdateQuestion(ctx context.Context, quizID, questionID int64, userID string, in domain.QuestionInput) (domain.QuestionWithAnswers, error) {
	if err := s.ownedQuestion(ctx, quizID, questionID, userID); err != nil {
		return domain.QuestionWithAnswers{}, err
	}
	in, err := normalizeQuestion(in)
	if err != nil {
		return domain.QuestionWithAnswers{}, err
	}
	q, err := s.quizzes.UpdateQuestion(ctx, questionID, in)
	if err != nil {
		return domain.QuestionWithAnswers{}, err
	}
	s.invalidate(ctx, quizID)
	return q, nil
}

// DeleteQuestion removes a question; the remaining ones are re-sequenced 1..N.
func (s *QuizService) DeleteQuestion(ctx context.Context, quizID, questionID int64, userID string) error {
	if err := s.ownedQuestion(ctx, quizID, questionID, userID); err != nil {
		return err
	}
	if err := s.quizzes.DeleteQuestion(ctx, quizID, questionID); err != nil {
		return err
	}
	s.invalidate(ctx, quizID)
	return nil
}

func (s *QuizService) owned(ctx context.Context, quizID int64, userID string) (domain.Quiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.CreatorID != userID {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *QuizService) ownedQuestion(ctx context.Context, quizID, questionID int64, userID string) error {
	if _, err := s.owned(ctx, quizID, userID); err != nil {
		if errors.Is(err, domain.ErrQuizNotFound) {
			return domain.ErrQuestionNotFound
		}
		return err
	}
	q, err := s.quizzes.GetQuestion(ctx, questionID)
	if err != nil {
		return err
	}
	if q.QuizID != quizID {
		return domain.ErrQuestionNotFound
	}
	return nil
}

// invalidate drops the cached answer key; a stale key lives at most one TTL.
func (s *QuizService) invalidate(ctx context.Context, quizID int64) {
	if err := s.keys.Invalidate(ctx, quizID); err != nil {
		s.log.WithError(err).WithField("quiz_id", quizID).Warn("answer key invalidation failed")
	}
}

// normalizeQuestion enforces the authoring rules: non-empty text, at least
// two answers, at least one correct, and known question types.
func normalizeQuestion(in domain.QuestionInput) (domain.QuestionInput, error) {
	in.QuestionText = strings.TrimSpace(in.QuestionText)
	if in.QuestionText == "" || len(in.Answers) < 2 {
		return in, domain.ErrTooFewAnswers
	}
	hasCorrect := false
	for i, a := range in.Answers {
		in.Answers[i].AnswerText = strings.TrimSpace(a.AnswerText)
		if in.Answers[i].AnswerText == "" {
			return in, domain.Invalid("answer text is required")
		}
		if a.IsCorrect {
			hasCorrect = true
		}
	}
	if !hasCorrect {
		return in, domain.ErrNoCorrectAnswer
	}

	switch in.QuestionType {
	case "":
		in.QuestionType = domain.QuestionMultipleChoice
	case domain.QuestionMultipleChoice, domain.QuestionTrueFalse:
	default:
		return in, domain.Invalid("question_type must be multiple_choice or true_false")
	}
	if in.Points < 0 {
		return in, domain.Invalid("points must not be negative")
	}
	if in.Points == 0 {
		in.Points = 1
	}
	return in, nil
}
