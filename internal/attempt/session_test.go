package attempt_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"edubridge_backend/internal/attempt"
	"edubridge_backend/internal/util"
)

// stubBoundary is an in-memory grading boundary with scriptable failures.
type stubBoundary struct {
	mu sync.Mutex

	def       *attempt.QuizDefinition
	submitErr error

	submissions      []attempt.AttemptSubmission
	fetchResultCalls int
}

func newStubBoundary(questionCount, timeLimitMinutes int) *stubBoundary {
	questions := make([]attempt.Question, questionCount)
	for i := range questions {
		questions[i] = attempt.Question{
			Text:    "question",
			Options: []string{"a", "b", "c", "d"},
		}
	}
	return &stubBoundary{
		def: &attempt.QuizDefinition{
			QuizID:           1,
			Title:            "stub quiz",
			TimeLimitMinutes: timeLimitMinutes,
			Questions:        questions,
		},
	}
}

func (b *stubBoundary) FetchQuiz(ctx context.Context, quizID uint) (*attempt.QuizDefinition, error) {
	return b.def, nil
}

func (b *stubBoundary) SubmitAttempt(ctx context.Context, sub attempt.AttemptSubmission) (*attempt.GradingResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submissions = append(b.submissions, sub)
	if b.submitErr != nil {
		return nil, b.submitErr
	}
	return b.grade(sub), nil
}

func (b *stubBoundary) FetchResult(ctx context.Context, attemptID string) (*attempt.GradingResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetchResultCalls++
	if len(b.submissions) == 0 {
		return nil, util.ErrAttemptNotFound
	}
	return b.grade(b.submissions[0]), nil
}

// grade treats option 0 as the correct answer for every question.
func (b *stubBoundary) grade(sub attempt.AttemptSubmission) *attempt.GradingResult {
	correct := make([]int, len(b.def.Questions))
	score := 0
	for i := range correct {
		if i < len(sub.Snapshot.Answers) && sub.Snapshot.Answers[i] == 0 {
			score++
		}
	}
	return &attempt.GradingResult{
		Score:          score,
		TotalQuestions: len(b.def.Questions),
		CorrectAnswers: correct,
	}
}

func (b *stubBoundary) setSubmitErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submitErr = err
}

func (b *stubBoundary) submitted() []attempt.AttemptSubmission {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]attempt.AttemptSubmission, len(b.submissions))
	copy(out, b.submissions)
	return out
}

func waitForPhase(t *testing.T, session *attempt.Session, want attempt.Phase) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if session.Phase() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("phase never reached %s, stuck at %s", want, session.Phase())
}

func TestNewSessionRejectsEmptyQuiz(t *testing.T) {
	boundary := newStubBoundary(0, 10)
	if _, err := attempt.NewSession(context.Background(), boundary, 1, 1, time.Hour); err != util.ErrEmptyQuiz {
		t.Fatalf("expected empty quiz rejection, got %v", err)
	}
}

func TestNewSessionRejectsInvalidTimeLimit(t *testing.T) {
	boundary := newStubBoundary(3, 0)
	if _, err := attempt.NewSession(context.Background(), boundary, 1, 1, time.Hour); err != util.ErrInvalidTimeLimit {
		t.Fatalf("expected time limit rejection, got %v", err)
	}
}

func TestManualSubmitSendsExactlyOneSnapshot(t *testing.T) {
	boundary := newStubBoundary(3, 10)
	session, err := attempt.NewSession(context.Background(), boundary, 1, 1, time.Hour)
	if err != nil {
		t.Fatalf("new session failed: %v", err)
	}
	defer session.Close()

	if err := session.SelectAnswer(0, 0); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if err := session.SelectAnswer(2, 1); err != nil {
		t.Fatalf("select failed: %v", err)
	}

	ctx := context.Background()
	if err := session.Submit(ctx); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	// 重复提交（双击）是无害的空操作
	if err := session.Submit(ctx); err != nil {
		t.Fatalf("repeat submit should be a no-op, got %v", err)
	}

	subs := boundary.submitted()
	if len(subs) != 1 {
		t.Fatalf("expected exactly one network submission, got %d", len(subs))
	}
	if subs[0].TimedOut {
		t.Fatal("manual submit flagged as timeout")
	}
	if want := []int{0, attempt.NoAnswer, 1}; !reflect.DeepEqual(subs[0].Snapshot.Answers, want) {
		t.Fatalf("unexpected snapshot answers: %v", subs[0].Snapshot.Answers)
	}
	if session.Phase() != attempt.PhaseGraded {
		t.Fatalf("expected graded, got %s", session.Phase())
	}
}

func TestAutoSubmitAtDeadline(t *testing.T) {
	boundary := newStubBoundary(5, 1) // 60 秒，毫秒级 tick 下很快归零
	session, err := attempt.NewSession(context.Background(), boundary, 1, 1, time.Millisecond)
	if err != nil {
		t.Fatalf("new session failed: %v", err)
	}
	defer session.Close()

	if err := session.SelectAnswer(0, 0); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if err := session.SelectAnswer(1, 2); err != nil {
		t.Fatalf("select failed: %v", err)
	}

	waitForPhase(t, session, attempt.PhaseGraded)

	subs := boundary.submitted()
	if len(subs) != 1 {
		t.Fatalf("expected one auto submission, got %d", len(subs))
	}
	if !subs[0].TimedOut {
		t.Fatal("expected timeout submission to be marked as such")
	}
	want := []int{0, 2, attempt.NoAnswer, attempt.NoAnswer, attempt.NoAnswer}
	if !reflect.DeepEqual(subs[0].Snapshot.Answers, want) {
		t.Fatalf("expected partial answers frozen as-is, got %v", subs[0].Snapshot.Answers)
	}

	review, err := session.Review()
	if err != nil {
		t.Fatalf("review failed: %v", err)
	}
	if review.Score != 1 {
		t.Fatalf("expected score 1 from partial answers, got %d", review.Score)
	}
}

func TestTimeoutRacingManualSubmit(t *testing.T) {
	boundary := newStubBoundary(2, 1)
	session, err := attempt.NewSession(context.Background(), boundary, 1, 1, time.Millisecond)
	if err != nil {
		t.Fatalf("new session failed: %v", err)
	}
	defer session.Close()

	// 手动提交与倒计时归零竞争，哪边赢都只能有一次网络提交
	_ = session.Submit(context.Background())
	waitForPhase(t, session, attempt.PhaseGraded)

	if subs := boundary.submitted(); len(subs) != 1 {
		t.Fatalf("expected exactly one submission under race, got %d", len(subs))
	}
}

func TestRetryResendsIdenticalSnapshot(t *testing.T) {
	boundary := newStubBoundary(3, 10)
	transportErr := errors.New("grading service unreachable")
	boundary.setSubmitErr(transportErr)

	session, err := attempt.NewSession(context.Background(), boundary, 1, 1, time.Hour)
	if err != nil {
		t.Fatalf("new session failed: %v", err)
	}
	defer session.Close()

	if err := session.SelectAnswer(0, 0); err != nil {
		t.Fatalf("select failed: %v", err)
	}

	ctx := context.Background()
	if err := session.Submit(ctx); !errors.Is(err, transportErr) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if session.Phase() != attempt.PhaseFailed {
		t.Fatalf("expected failed phase, got %s", session.Phase())
	}

	// 失败不会悄悄回到 Active，也不能当作新提交
	if err := session.SelectAnswer(1, 1); err != util.ErrInvalidPhase {
		t.Fatalf("expected editing to stay frozen, got %v", err)
	}
	if err := session.Submit(ctx); err != util.ErrInvalidPhase {
		t.Fatalf("expected submit in failed phase to be rejected, got %v", err)
	}

	boundary.setSubmitErr(nil)
	if err := session.Retry(ctx); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if session.Phase() != attempt.PhaseGraded {
		t.Fatalf("expected graded after retry, got %s", session.Phase())
	}

	subs := boundary.submitted()
	if len(subs) != 2 {
		t.Fatalf("expected two wire attempts, got %d", len(subs))
	}
	if !reflect.DeepEqual(subs[0].Snapshot, subs[1].Snapshot) {
		t.Fatalf("retry sent a different snapshot: %+v vs %+v", subs[0].Snapshot, subs[1].Snapshot)
	}
	if subs[0].AttemptID != subs[1].AttemptID {
		t.Fatal("retry changed the attempt ID")
	}
}

func TestDuplicateSubmissionFetchesExistingResult(t *testing.T) {
	boundary := newStubBoundary(2, 10)
	session, err := attempt.NewSession(context.Background(), boundary, 1, 1, time.Hour)
	if err != nil {
		t.Fatalf("new session failed: %v", err)
	}
	defer session.Close()

	if err := session.SelectAnswer(0, 0); err != nil {
		t.Fatalf("select failed: %v", err)
	}

	// 服务端报告该 attempt 已评分（例如超时自动提交先到达）
	boundary.setSubmitErr(util.ErrAttemptAlreadyGraded)
	// FetchResult 需要一份已有提交来评分
	boundary.mu.Lock()
	boundary.submissions = append(boundary.submissions, attempt.AttemptSubmission{
		AttemptID: session.ID,
		Snapshot:  attempt.Snapshot{Answers: []int{0, attempt.NoAnswer}},
	})
	boundary.mu.Unlock()

	if err := session.Submit(context.Background()); err != nil {
		t.Fatalf("expected conflict to resolve via existing result, got %v", err)
	}
	if session.Phase() != attempt.PhaseGraded {
		t.Fatalf("expected graded after conflict recovery, got %s", session.Phase())
	}

	boundary.mu.Lock()
	fetches := boundary.fetchResultCalls
	boundary.mu.Unlock()
	if fetches != 1 {
		t.Fatalf("expected one result fetch, got %d", fetches)
	}
}

func TestReviewRequiresGrading(t *testing.T) {
	boundary := newStubBoundary(2, 10)
	session, err := attempt.NewSession(context.Background(), boundary, 1, 1, time.Hour)
	if err != nil {
		t.Fatalf("new session failed: %v", err)
	}
	defer session.Close()

	if _, err := session.Review(); err != util.ErrAttemptNotGraded {
		t.Fatalf("expected not-graded error, got %v", err)
	}
}

func TestWatchStreamsCountdown(t *testing.T) {
	boundary := newStubBoundary(1, 1)
	session, err := attempt.NewSession(context.Background(), boundary, 1, 1, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("new session failed: %v", err)
	}
	defer session.Close()

	ch, cancel := session.Watch()
	defer cancel()

	initial := <-ch
	deadline := time.After(5 * time.Second)
	for {
		select {
		case view := <-ch:
			if view.RemainingSeconds < initial.RemainingSeconds {
				return
			}
		case <-deadline:
			t.Fatal("never observed a countdown tick over the watch channel")
		}
	}
}
