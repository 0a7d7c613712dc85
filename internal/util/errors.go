package util

import "errors"

var (
	ErrQuizNotFound         = errors.New("quiz not found")
	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrEmptyQuiz            = errors.New("quiz has no questions")
	ErrInvalidTimeLimit     = errors.New("quiz time limit must be positive")
	ErrQuestionOutOfRange   = errors.New("question index out of range")
	ErrOptionOutOfRange     = errors.New("option index out of range")
	ErrInvalidPhase         = errors.New("operation not allowed in current phase")
	ErrAnswerCountMismatch  = errors.New("answer count does not match question count")
	ErrAttemptAlreadyGraded = errors.New("attempt already graded")
	ErrAttemptNotGraded     = errors.New("attempt not graded yet")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrEmailRegistered      = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid credentials")
)
