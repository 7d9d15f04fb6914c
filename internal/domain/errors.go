package domain

import "errors"

// Error kinds. Every error returned by the application services wraps one
// of these, and the transport maps them to status codes.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
)

// Error is a client-safe error tied to one of the kinds above.
type Error struct {
	kind error
	msg  string
}

func NewError(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// Invalid builds an ErrInvalidInput error with a message for the client.
func Invalid(msg string) error {
	return NewError(ErrInvalidInput, msg)
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

var (
	// ErrQuizNotFound is returned for missing quizzes and quizzes the caller does not own.
	ErrQuizNotFound = NewError(ErrNotFound, "quiz not found or unauthorized")
	// ErrQuizUnavailable is returned when starting a quiz that is missing or unpublished.
	ErrQuizUnavailable = NewError(ErrNotFound, "quiz not found or not published")
	// ErrQuestionNotFound is returned for missing questions and questions of other quizzes.
	ErrQuestionNotFound = NewError(ErrNotFound, "question not found or unauthorized")
	// ErrAttemptNotFound is returned when no attempt matches attempt, user and quiz together.
	ErrAttemptNotFound = NewError(ErrNotFound, "attempt not found or unauthorized")
	// ErrAttemptCompleted rejects a second submission of the same attempt.
	ErrAttemptCompleted = NewError(ErrConflict, "attempt already submitted")
	ErrUserNotFound     = NewError(ErrNotFound, "user not found")
	ErrEmailTaken       = NewError(ErrConflict, "email is already in use")
	ErrUsernameTaken    = NewError(ErrConflict, "username is already in use")
	// ErrInvalidCredentials hides whether the email or the password was wrong.
	ErrInvalidCredentials = NewError(ErrUnauthorized, "invalid credentials")
	ErrTooFewAnswers      = NewError(ErrInvalidInput, "question text and at least two answers are required")
	ErrNoCorrectAnswer    = NewError(ErrInvalidInput, "at least one answer must be marked as correct")
)
