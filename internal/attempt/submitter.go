package attempt

import (
	"context"
	"errors"
	"sync"

	"edubridge_backend/internal/util"
	"edubridge_backend/pkg/logger"
	"edubridge_backend/pkg/monitoring"
	"go.uber.org/zap"
)

// Submitter sends one attempt's frozen snapshot across the grading boundary.
// The store's phase gate guarantees the snapshot is captured exactly once;
// the submitter itself does not deduplicate, it trusts that contract. The
// server-side duplicate check remains the source of truth.
type Submitter struct {
	boundary GradingBoundary

	attemptID string
	quizID    uint
	userID    uint
	store     *Store

	mu       sync.Mutex
	snapshot *Snapshot
	timedOut bool
}

func NewSubmitter(boundary GradingBoundary, store *Store, attemptID string, quizID, userID uint) *Submitter {
	return &Submitter{
		boundary:  boundary,
		store:     store,
		attemptID: attemptID,
		quizID:    quizID,
		userID:    userID,
	}
}

// Submit freezes the answers (if not frozen yet) and grades them. Calling it
// again while the attempt is Submitting or already Graded is a no-op, which
// is what makes a double-click or a timeout racing a manual submit send
// exactly one snapshot.
func (s *Submitter) Submit(ctx context.Context, timedOut bool) error {
	s.mu.Lock()
	if s.snapshot == nil {
		snap, err := s.store.BeginSubmission()
		if err != nil {
			s.mu.Unlock()
			if s.store.Phase().Terminal() || s.store.Phase() == PhaseSubmitting {
				return nil
			}
			return err
		}
		s.snapshot = &snap
		s.timedOut = timedOut
	} else {
		// 已有冻结快照：提交正在进行或已结束，不再触发第二次
		s.mu.Unlock()
		if s.store.Phase() == PhaseFailed {
			// 失败后只能走 Retry，不能当作新提交
			return util.ErrInvalidPhase
		}
		return nil
	}
	snap, timedOut := *s.snapshot, s.timedOut
	s.mu.Unlock()

	return s.deliver(ctx, snap, timedOut)
}

// Retry resends the identical frozen snapshot after a transport failure.
// Only legal from Failed; editing is never reopened.
func (s *Submitter) Retry(ctx context.Context) error {
	s.mu.Lock()
	if s.snapshot == nil {
		s.mu.Unlock()
		return util.ErrInvalidPhase
	}
	snap, timedOut := *s.snapshot, s.timedOut
	s.mu.Unlock()

	if err := s.store.BeginRetry(); err != nil {
		return err
	}
	return s.deliver(ctx, snap, timedOut)
}

func (s *Submitter) deliver(ctx context.Context, snap Snapshot, timedOut bool) error {
	result, err := s.boundary.SubmitAttempt(ctx, AttemptSubmission{
		AttemptID: s.attemptID,
		QuizID:    s.quizID,
		UserID:    s.userID,
		Snapshot:  snap,
		TimedOut:  timedOut,
	})

	if errors.Is(err, util.ErrAttemptAlreadyGraded) {
		// 冲突说明先前的提交（多半是超时自动提交）已经成功，取回已有结果
		logger.Log.Warn("duplicate submission, fetching existing result",
			zap.String("attemptId", s.attemptID))
		result, err = s.boundary.FetchResult(ctx, s.attemptID)
	}

	if err != nil {
		monitoring.AttemptsSubmitted.WithLabelValues("failed").Inc()
		if markErr := s.store.MarkFailed(err); markErr != nil {
			logger.Log.Error("failed to record submission failure",
				zap.String("attemptId", s.attemptID), zap.Error(markErr))
		}
		return err
	}

	outcome := "graded"
	if timedOut {
		outcome = "timeout"
	}
	monitoring.AttemptsSubmitted.WithLabelValues(outcome).Inc()
	return s.store.MarkGraded(result)
}
