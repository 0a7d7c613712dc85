package attempt

import (
	"context"
	"time"

	"edubridge_backend/internal/util"
	"edubridge_backend/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// submitTimeout bounds the auto-submit call fired by the countdown; there is
// no request context to inherit on that path.
const submitTimeout = 30 * time.Second

// Session orchestrates one student's pass through a quiz: load, countdown,
// answer/flag/navigate wiring, submission and review. It owns the store, the
// scheduler and the submitter for a single attempt and is discarded once the
// student navigates away after grading.
type Session struct {
	ID        string
	UserID    uint
	Def       *QuizDefinition
	CreatedAt time.Time

	store     *Store
	scheduler *Scheduler
	submitter *Submitter
}

// NewSession fetches the quiz definition and brings the attempt from Loading
// to Active. Quizzes with no questions or a non-positive time limit never
// enter Active.
func NewSession(ctx context.Context, boundary GradingBoundary, quizID, userID uint, tickInterval time.Duration) (*Session, error) {
	def, err := boundary.FetchQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if len(def.Questions) == 0 {
		return nil, util.ErrEmptyQuiz
	}
	if def.TimeLimitMinutes <= 0 {
		return nil, util.ErrInvalidTimeLimit
	}

	s := &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Def:       def,
		CreatedAt: time.Now(),
		store:     NewStore(len(def.Questions), def.TimeLimitMinutes),
	}
	s.submitter = NewSubmitter(boundary, s.store, s.ID, quizID, userID)
	s.scheduler = StartScheduler(tickInterval, s.store, s.autoSubmit)
	return s, nil
}

// autoSubmit is the timeout path: whatever answers exist at this instant are
// frozen and graded, with no further user action. The outcome must be
// indistinguishable from a manual submit of the same answers.
func (s *Session) autoSubmit() {
	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()

	if err := s.submitter.Submit(ctx, true); err != nil {
		logger.Log.Error("auto-submit failed",
			zap.String("attemptId", s.ID), zap.Error(err))
	}
}

// SelectAnswer records an option choice for a question.
func (s *Session) SelectAnswer(questionIndex, optionIndex int) error {
	return s.store.SelectAnswer(questionIndex, optionIndex)
}

// ToggleFlag flips the review marker on a question.
func (s *Session) ToggleFlag(questionIndex int) error {
	return s.store.ToggleFlag(questionIndex)
}

// Navigate moves the question cursor, clamped into range.
func (s *Session) Navigate(questionIndex int) {
	s.store.Navigate(questionIndex)
}

// Submit is the manual submission trigger. Safe to call repeatedly; only the
// first call while Active freezes and sends the snapshot.
func (s *Session) Submit(ctx context.Context) error {
	err := s.submitter.Submit(ctx, false)
	s.scheduler.Stop()
	return err
}

// Retry resends the frozen snapshot after a failed submission.
func (s *Session) Retry(ctx context.Context) error {
	return s.submitter.Retry(ctx)
}

// State returns the current attempt state view.
func (s *Session) State() StateView {
	return s.store.State()
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	return s.store.Phase()
}

// EndedAt reports when the attempt reached a terminal phase.
func (s *Session) EndedAt() (time.Time, bool) {
	return s.store.EndedAt()
}

// Watch subscribes to state updates (countdown ticks included).
func (s *Session) Watch() (<-chan StateView, func()) {
	return s.store.Watch()
}

// Review builds the graded review view. Only available once Graded.
func (s *Session) Review() (Review, error) {
	result, err := s.store.Result()
	if err != nil {
		return Review{}, err
	}
	state := s.store.State()
	return BuildReview(s.Def, state.Answers, state.FlaggedQuestions, result), nil
}

// Close releases the countdown on teardown. An attempt abandoned while
// Active is simply discarded; it is never auto-graded by teardown.
func (s *Session) Close() {
	s.scheduler.Stop()
}
