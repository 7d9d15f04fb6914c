package domain

import "time"

// Question types accepted when authoring.
const (
	QuestionMultipleChoice = "multiple_choice"
	QuestionTrueFalse      = "true_false"
)

// DefaultRole is assigned to every registered user.
const DefaultRole = "user"

// User is a registered account. The password hash never leaves the store.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	AvatarURL *string   `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}

// UserStats holds the running totals maintained on every completed attempt.
type UserStats struct {
	UserID         string     `json:"user_id"`
	QuizzesCreated int        `json:"quizzes_created"`
	QuizzesTaken   int        `json:"quizzes_taken"`
	TotalPoints    int        `json:"total_points"`
	AverageScore   float64    `json:"average_score"`
	LastActivity   *time.Time `json:"last_activity"`
}

// Quiz is the authored quiz metadata.
type Quiz struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	CreatorID   string    `json:"creator_id"`
	IsPublished bool      `json:"is_published"`
	Category    *string   `json:"category"`
	Difficulty  *string   `json:"difficulty"`
	TimeLimit   *int      `json:"time_limit"`
	CoverImage  *string   `json:"cover_image"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// QuizUpdate is a partial update; nil fields are left unchanged.
type QuizUpdate struct {
	Title       *string
	Description *string
	IsPublished *bool
}

// Question belongs to exactly one quiz and is ordered within it.
type Question struct {
	ID            int64   `json:"id"`
	QuizID        int64   `json:"quiz_id"`
	QuestionText  string  `json:"question_text"`
	QuestionOrder int     `json:"question_order"`
	QuestionType  string  `json:"question_type"`
	Points        int     `json:"points"`
	ImageURL      *string `json:"image_url"`
}

// Score is the question's point value, defaulting to 1 when unset.
func (q Question) Score() int {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

// Answer is one option of a question.
type Answer struct {
	ID          int64   `json:"id"`
	QuestionID  int64   `json:"question_id"`
	AnswerText  string  `json:"answer_text"`
	IsCorrect   bool    `json:"is_correct"`
	Explanation *string `json:"explanation"`
}

// QuestionWithAnswers is a question together with its full answer set.
type QuestionWithAnswers struct {
	Question
	Answers []Answer `json:"answers"`
}

// QuizDetail is a quiz with every question and answer.
type QuizDetail struct {
	Quiz
	Questions []QuestionWithAnswers `json:"questions"`
}

// AnswerInput is an answer as submitted by a quiz author.
type AnswerInput struct {
	AnswerText  string
	IsCorrect   bool
	Explanation *string
}

// QuestionInput is a question as submitted by a quiz author.
type QuestionInput struct {
	QuestionText string
	QuestionType string
	Points       int
	ImageURL     *string
	Answers      []AnswerInput
}

// QuizAttempt is one user's run through a quiz. CompletedAt is nil while in progress.
type QuizAttempt struct {
	ID          int64      `json:"id"`
	QuizID      int64      `json:"quiz_id"`
	UserID      string     `json:"user_id"`
	Score       int        `json:"score"`
	MaxScore    int        `json:"max_score"`
	TimeTaken   *int       `json:"time_taken"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// Completed reports whether the attempt has been submitted.
func (a QuizAttempt) Completed() bool {
	return a.CompletedAt != nil
}

// AttemptSummary is an attempt joined with the quiz it belongs to.
type AttemptSummary struct {
	QuizAttempt
	QuizTitle      string  `json:"quiz_title"`
	QuizCategory   *string `json:"quiz_category,omitempty"`
	QuizDifficulty *string `json:"quiz_difficulty,omitempty"`
}

// UserAnswer records the answer selected for one question of an attempt.
// AnswerID is nil when the submitted id was not an option of the question.
type UserAnswer struct {
	ID         int64  `json:"id"`
	AttemptID  int64  `json:"attempt_id"`
	QuestionID int64  `json:"question_id"`
	AnswerID   *int64 `json:"answer_id"`
	IsCorrect  bool   `json:"is_correct"`
}

// AttemptSheet is what the store returns when an attempt is started:
// the new attempt, the quiz and its questions with full answers.
type AttemptSheet struct {
	Attempt   QuizAttempt
	Quiz      Quiz
	Questions []QuestionWithAnswers
}

// AnswerSubmission models one submitted answer.
type AnswerSubmission struct {
	QuestionID int64 `json:"question_id"`
	AnswerID   int64 `json:"answer_id"`
}

// GradedAnswer is a submission that matched a question of the quiz.
// AnswerID is 0 when the submitted id is not an option of the question.
type GradedAnswer struct {
	QuestionID int64
	AnswerID   int64
	IsCorrect  bool
	Awarded    int
}

// AttemptCompletion carries everything the store needs to finish an attempt.
type AttemptCompletion struct {
	AttemptID int64
	QuizID    int64
	UserID    string
	Answers   []GradedAnswer
	Score     int
	TimeTaken *int
}

// QuestionReview is returned after submission for every graded question.
type QuestionReview struct {
	Question   Question    `json:"question"`
	Answers    []Answer    `json:"answers"`
	UserAnswer *UserAnswer `json:"user_answer"`
}

// KeyEntry is the grading data for one question.
type KeyEntry struct {
	Points    int
	CorrectID []int64
	OptionID  []int64
}

// Accepts reports whether answerID is one of the correct answers.
func (k KeyEntry) Accepts(answerID int64) bool {
	for _, id := range k.CorrectID {
		if id == answerID {
			return true
		}
	}
	return false
}

// Offers reports whether answerID is an option of the question.
func (k KeyEntry) Offers(answerID int64) bool {
	for _, id := range k.OptionID {
		if id == answerID {
			return true
		}
	}
	return false
}

// AnswerKey maps question ids of a quiz to their grading data.
type AnswerKey struct {
	QuizID    int64
	Questions map[int64]KeyEntry
}

// BuildAnswerKey derives the answer key from a quiz's questions.
func BuildAnswerKey(quizID int64, questions []QuestionWithAnswers) AnswerKey {
	key := AnswerKey{QuizID: quizID, Questions: make(map[int64]KeyEntry, len(questions))}
	for _, q := range questions {
		entry := KeyEntry{Points: q.Score()}
		for _, a := range q.Answers {
			entry.OptionID = append(entry.OptionID, a.ID)
			if a.IsCorrect {
				entry.CorrectID = append(entry.CorrectID, a.ID)
			}
		}
		key.Questions[q.ID] = entry
	}
	return key
}

// MaxScore sums the point values of questions, each defaulting to 1.
func MaxScore(questions []Question) int {
	total := 0
	for _, q := range questions {
		total += q.Score()
	}
	return total
}

// Percentage rounds score/max to a whole percent; 0 when max is 0.
func Percentage(score, max int) int {
	if max <= 0 {
		return 0
	}
	return int(float64(score)*100/float64(max) + 0.5)
}
