package attempt

import "context"

// AttemptSubmission is the exact payload sent to the grading boundary.
type AttemptSubmission struct {
	AttemptID string
	QuizID    uint
	UserID    uint
	Snapshot  Snapshot
	TimedOut  bool
}

// GradingBoundary is the external quiz service consumed by attempt sessions.
// The server side of it owns idempotency: a duplicate submission for the
// same attempt ID must fail with util.ErrAttemptAlreadyGraded regardless of
// what the client-side phase gate did.
type GradingBoundary interface {
	// FetchQuiz loads a published quiz without correct answers. Returns
	// util.ErrQuizNotFound for unknown or unpublished quizzes.
	FetchQuiz(ctx context.Context, quizID uint) (*QuizDefinition, error)

	// SubmitAttempt grades a frozen snapshot. Returns
	// util.ErrAnswerCountMismatch if the answer slots do not line up with
	// the quiz, util.ErrAttemptAlreadyGraded on a duplicate attempt ID.
	SubmitAttempt(ctx context.Context, sub AttemptSubmission) (*GradingResult, error)

	// FetchResult retrieves the grading result of an already-submitted
	// attempt; the recovery path when SubmitAttempt reports a duplicate.
	FetchResult(ctx context.Context, attemptID string) (*GradingResult, error)
}
