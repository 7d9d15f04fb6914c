package postgres

import (
	"time"

	"braincraft/internal/domain"
	"github.com/uptrace/bun"
)

type userModel struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           string    `bun:"id,pk"`
	Username     string    `bun:"username,notnull"`
	Email        string    `bun:"email,notnull"`
	PasswordHash string    `bun:"password_hash,notnull"`
	Role         string    `bun:"role,notnull"`
	AvatarURL    *string   `bun:"avatar_url"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func (m userModel) toDomain() domain.User {
	return domain.User{
		ID:        m.ID,
		Username:  m.Username,
		Email:     m.Email,
		Role:      m.Role,
		AvatarURL: m.AvatarURL,
		CreatedAt: m.CreatedAt,
	}
}

type quizModel struct {
	bun.BaseModel `bun:"table:quizzes,alias:q"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Title       string    `bun:"title,notnull"`
	Description *string   `bun:"description"`
	CreatorID   string    `bun:"creator_id,notnull"`
	IsPublished bool      `bun:"is_published,notnull"`
	Category    *string   `bun:"category"`
	Difficulty  *string   `bun:"difficulty"`
	TimeLimit   *int      `bun:"time_limit"`
	CoverImage  *string   `bun:"cover_image"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func newQuizModel(q domain.Quiz) *quizModel {
	return &quizModel{
		ID:          q.ID,
		Title:       q.Title,
		Description: q.Description,
		CreatorID:   q.CreatorID,
		IsPublished: q.IsPublished,
		Category:    q.Category,
		Difficulty:  q.Difficulty,
		TimeLimit:   q.TimeLimit,
		CoverImage:  q.CoverImage,
	}
}

func (m quizModel) toDomain() domain.Quiz {
	return domain.Quiz{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		CreatorID:   m.CreatorID,
		IsPublished: m.IsPublished,
		Category:    m.Category,
		Difficulty:  m.Difficulty,
		TimeLimit:   m.TimeLimit,
		CoverImage:  m.CoverImage,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

type questionModel struct {
	bun.BaseModel `bun:"table:questions,alias:qn"`

	ID            int64   `bun:"id,pk,autoincrement"`
	QuizID        int64   `bun:"quiz_id,notnull"`
	QuestionText  string  `bun:"question_text,notnull"`
	QuestionOrder int     `bun:"question_order,notnull"`
	QuestionType  string  `bun:"question_type,notnull"`
	Points        int     `bun:"points,notnull"`
	ImageURL      *string `bun:"image_url"`
}

func (m questionModel) toDomain() domain.Question {
	return domain.Question{
		ID:            m.ID,
		QuizID:        m.QuizID,
		QuestionText:  m.QuestionText,
		QuestionOrder: m.QuestionOrder,
		QuestionType:  m.QuestionType,
		Points:        m.Points,
		ImageURL:      m.ImageURL,
	}
}

type answerModel struct {
	bun.BaseModel `bun:"table:answers,alias:a"`

	ID          int64   `bun:"id,pk,autoincrement"`
	QuestionID  int64   `bun:"question_id,notnull"`
	AnswerText  string  `bun:"answer_text,notnull"`
	IsCorrect   bool    `bun:"is_correct,notnull"`
	Explanation *string `bun:"explanation"`
}

func (m answerModel) toDomain() domain.Answer {
	return domain.Answer{
		ID:          m.ID,
		QuestionID:  m.QuestionID,
		AnswerText:  m.AnswerText,
		IsCorrect:   m.IsCorrect,
		Explanation: m.Explanation,
	}
}

func newAnswerModels(questionID int64, inputs []domain.AnswerInput) []answerModel {
	out := make([]answerModel, 0, len(inputs))
	for _, in := range inputs {
		out = append(out, answerModel{
			QuestionID:  questionID,
			AnswerText:  in.AnswerText,
			IsCorrect:   in.IsCorrect,
			Explanation: in.Explanation,
		})
	}
	return out
}

type attemptModel struct {
	bun.BaseModel `bun:"table:quiz_attempts,alias:qa"`

	ID          int64      `bun:"id,pk,autoincrement"`
	QuizID      int64      `bun:"quiz_id,notnull"`
	UserID      string     `bun:"user_id,notnull"`
	Score       int        `bun:"score,notnull"`
	MaxScore    int        `bun:"max_score,notnull"`
	TimeTaken   *int       `bun:"time_taken"`
	StartedAt   time.Time  `bun:"started_at,nullzero,notnull,default:current_timestamp"`
	CompletedAt *time.Time `bun:"completed_at"`
}

func (m attemptModel) toDomain() domain.QuizAttempt {
	return domain.QuizAttempt{
		ID:          m.ID,
		QuizID:      m.QuizID,
		UserID:      m.UserID,
		Score:       m.Score,
		MaxScore:    m.MaxScore,
		TimeTaken:   m.TimeTaken,
		StartedAt:   m.StartedAt,
		CompletedAt: m.CompletedAt,
	}
}

type userAnswerModel struct {
	bun.BaseModel `bun:"table:user_answers,alias:ua"`

	ID         int64  `bun:"id,pk,autoincrement"`
	AttemptID  int64  `bun:"attempt_id,notnull"`
	QuestionID int64  `bun:"question_id,notnull"`
	AnswerID   *int64 `bun:"answer_id"`
	IsCorrect  bool   `bun:"is_correct,notnull"`
}

func (m userAnswerModel) toDomain() domain.UserAnswer {
	return domain.UserAnswer{
		ID:         m.ID,
		AttemptID:  m.AttemptID,
		QuestionID: m.QuestionID,
		AnswerID:   m.AnswerID,
		IsCorrect:  m.IsCorrect,
	}
}
