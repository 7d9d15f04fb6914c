package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"braincraft/internal/domain"
)

type account struct {
	user domain.User
	hash string
}

// Store is an in-memory implementation of every repository and reader the
// application services use. It backs tests and local runs without Postgres.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time
	seq map[string]int64

	users       map[string]*account
	stats       map[string]*domain.UserStats
	quizzes     map[int64]*domain.Quiz
	questions   map[int64]*domain.Question
	answers     map[int64]*domain.Answer
	attempts    map[int64]*domain.QuizAttempt
	userAnswers []domain.UserAnswer
}

func NewStore() *Store {
	return NewStoreWithClock(time.Now)
}

// NewStoreWithClock allows deterministic timestamps in tests.
func NewStoreWithClock(now func() time.Time) *Store {
	return &Store{
		now:       now,
		seq:       make(map[string]int64),
		users:     make(map[string]*account),
		stats:     make(map[string]*domain.UserStats),
		quizzes:   make(map[int64]*domain.Quiz),
		questions: make(map[int64]*domain.Question),
		answers:   make(map[int64]*domain.Answer),
		attempts:  make(map[int64]*domain.QuizAttempt),
	}
}

func (s *Store) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

// Ping reports the store's clock; it never fails.
func (s *Store) Ping(_ context.Context) (time.Time, error) {
	return s.now(), nil
}

func (s *Store) CreateUser(_ context.Context, user domain.User, passwordHash string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.users {
		if a.user.Email == user.Email {
			return domain.User{}, domain.ErrEmailTaken
		}
		if a.user.Username == user.Username {
			return domain.User{}, domain.ErrUsernameTaken
		}
	}
	if user.Role == "" {
		user.Role = domain.DefaultRole
	}
	user.CreatedAt = s.now()
	s.users[user.ID] = &account{user: user, hash: passwordHash}
	s.stats[user.ID] = &domain.UserStats{UserID: user.ID}
	return user, nil
}

func (s *Store) GetCredentials(_ context.Context, email string) (domain.User, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.users {
		if a.user.Email == email {
			return a.user, a.hash, nil
		}
	}
	return domain.User{}, "", domain.ErrUserNotFound
}

func (s *Store) GetUser(_ context.Context, userID string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return a.user, nil
}

func (s *Store) UpdateProfile(_ context.Context, userID string, update domain.ProfileUpdate) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	for id, other := range s.users {
		if id == userID {
			continue
		}
		if update.Email != nil && other.user.Email == *update.Email {
			return domain.User{}, domain.ErrEmailTaken
		}
		if update.Username != nil && other.user.Username == *update.Username {
			return domain.User{}, domain.ErrUsernameTaken
		}
	}
	if update.Username != nil {
		a.user.Username = *update.Username
	}
	if update.Email != nil {
		a.user.Email = *update.Email
	}
	if update.AvatarURL != nil {
		a.user.AvatarURL = update.AvatarURL
	}
	return a.user, nil
}

func (s *Store) CreateQuiz(_ context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	quiz.ID = s.next("quizzes")
	quiz.CreatedAt = s.now()
	quiz.UpdatedAt = quiz.CreatedAt
	stored := quiz
	s.quizzes[quiz.ID] = &stored

	st := s.statsLocked(quiz.CreatorID)
	st.QuizzesCreated++
	return quiz, nil
}

func (s *Store) ListQuizzesByCreator(_ context.Context, creatorID string, limit int) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Quiz{}
	for _, q := range s.quizzes {
		if q.CreatorID == creatorID {
			out = append(out, *q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetQuiz(_ context.Context, quizID int64) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return *q, nil
}

func (s *Store) UpdateQuiz(_ context.Context, quizID int64, update domain.QuizUpdate) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if update.Title != nil {
		q.Title = *update.Title
	}
	if update.Description != nil {
		q.Description = update.Description
	}
	if update.IsPublished != nil {
		q.IsPublished = *update.IsPublished
	}
	q.UpdatedAt = s.now()
	return *q, nil
}

func (s *Store) DeleteQuiz(_ context.Context, quizID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.quizzes[quizID]; !ok {
		return domain.ErrQuizNotFound
	}
	for id, q := range s.questions {
		if q.QuizID == quizID {
			s.deleteQuestionLocked(id)
		}
	}
	for id, a := range s.attempts {
		if a.QuizID == quizID {
			s.deleteAttemptLocked(id)
		}
	}
	delete(s.quizzes, quizID)
	return nil
}

func (s *Store) ListQuestions(_ context.Context, quizID int64) ([]domain.QuestionWithAnswers, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.questionsLocked(quizID), nil
}

func (s *Store) GetQuestion(_ context.Context, questionID int64) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[questionID]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return *q, nil
}

func (s *Store) AddQuestion(_ context.Context, quizID int64, input domain.QuestionInput) (domain.QuestionWithAnswers, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.quizzes[quizID]; !ok {
		return domain.QuestionWithAnswers{}, domain.ErrQuizNotFound
	}
	order := 0
	for _, q := range s.questions {
		if q.QuizID == quizID && q.QuestionOrder > order {
			order = q.QuestionOrder
		}
	}
	q := &domain.Question{
		ID:            s.next("questions"),
		QuizID:        quizID,
		QuestionText:  input.QuestionText,
		QuestionOrder: order + 1,
		QuestionType:  input.QuestionType,
		Points:        input.Points,
		ImageURL:      input.ImageURL,
	}
	s.questions[q.ID] = q
	answers := s.insertAnswersLocked(q.ID, input.Answers)
	return domain.QuestionWithAnswers{Question: *q, Answers: answers}, nil
}

func (s *Store) UpdateQuestion(_ context.Context, questionID int64, input domain.QuestionInput) (domain.QuestionWithAnswers, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.questions[questionID]
	if !ok {
		return domain.QuestionWithAnswers{}, domain.ErrQuestionNotFound
	}
	q.QuestionText = input.QuestionText
	q.QuestionType = input.QuestionType
	q.Points = input.Points
	q.ImageURL = input.ImageURL

	for id, a := range s.answers {
		if a.QuestionID == questionID {
			s.deleteAnswerLocked(id)
		}
	}
	answers := s.insertAnswersLocked(questionID, input.Answers)
	return domain.QuestionWithAnswers{Question: *q, Answers: answers}, nil
}

func (s *Store) DeleteQuestion(_ context.Context, quizID, questionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.questions[questionID]
	if !ok || q.QuizID != quizID {
		return domain.ErrQuestionNotFound
	}
	s.deleteQuestionLocked(questionID)

	for i, rest := range s.questionsLocked(quizID) {
		s.questions[rest.ID].QuestionOrder = i + 1
	}
	return nil
}

// LoadAnswerKey derives the answer key from the stored questions.
func (s *Store) LoadAnswerKey(_ context.Context, quizID int64) (domain.AnswerKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return domain.AnswerKey{}, domain.ErrQuizNotFound
	}
	return domain.BuildAnswerKey(quizID, s.questionsLocked(quizID)), nil
}

// statsLocked returns the user's stats row, creating an empty one.
func (s *Store) statsLocked(userID string) *domain.UserStats {
	st, ok := s.stats[userID]
	if !ok {
		st = &domain.UserStats{UserID: userID}
		s.stats[userID] = st
	}
	return st
}

func (s *Store) questionsLocked(quizID int64) []domain.QuestionWithAnswers {
	out := []domain.QuestionWithAnswers{}
	for _, q := range s.questions {
		if q.QuizID == quizID {
			out = append(out, domain.QuestionWithAnswers{Question: *q, Answers: s.answersLocked(q.ID)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionOrder < out[j].QuestionOrder })
	return out
}

func (s *Store) answersLocked(questionID int64) []domain.Answer {
	out := []domain.Answer{}
	for _, a := range s.answers {
		if a.QuestionID == questionID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) insertAnswersLocked(questionID int64, inputs []domain.AnswerInput) []domain.Answer {
	out := make([]domain.Answer, 0, len(inputs))
	for _, in := range inputs {
		a := &domain.Answer{
			ID:          s.next("answers"),
			QuestionID:  questionID,
			AnswerText:  in.AnswerText,
			IsCorrect:   in.IsCorrect,
			Explanation: in.Explanation,
		}
		s.answers[a.ID] = a
		out = append(out, *a)
	}
	return out
}

func (s *Store) deleteQuestionLocked(questionID int64) {
	for id, a := range s.answers {
		if a.QuestionID == questionID {
			s.deleteAnswerLocked(id)
		}
	}
	kept := s.userAnswers[:0]
	for _, ua := range s.userAnswers {
		if ua.QuestionID != questionID {
			kept = append(kept, ua)
		}
	}
	s.userAnswers = kept
	delete(s.questions, questionID)
}

// deleteAnswerLocked removes an answer and clears references to it.
func (s *Store) deleteAnswerLocked(answerID int64) {
	for i, ua := range s.userAnswers {
		if ua.AnswerID != nil && *ua.AnswerID == answerID {
			s.userAnswers[i].AnswerID = nil
		}
	}
	delete(s.answers, answerID)
}

func (s *Store) deleteAttemptLocked(attemptID int64) {
	kept := s.userAnswers[:0]
	for _, ua := range s.userAnswers {
		if ua.AttemptID != attemptID {
			kept = append(kept, ua)
		}
	}
	s.userAnswers = kept
	delete(s.attempts, attemptID)
}
