package attempt_test

import (
	"testing"

	"edubridge_backend/internal/attempt"
	"edubridge_backend/internal/util"
)

func TestNewStoreInitialState(t *testing.T) {
	store := attempt.NewStore(5, 10)

	state := store.State()
	if state.Phase != "active" {
		t.Fatalf("expected active phase, got %s", state.Phase)
	}
	if state.RemainingSeconds != 600 {
		t.Fatalf("expected 600 seconds, got %d", state.RemainingSeconds)
	}
	if state.QuestionCount != 5 || len(state.Answers) != 5 {
		t.Fatalf("expected 5 answer slots, got %d", len(state.Answers))
	}
	for i, a := range state.Answers {
		if a != attempt.NoAnswer {
			t.Fatalf("expected question %d unanswered, got %d", i, a)
		}
	}
	if state.CurrentQuestion != 0 {
		t.Fatalf("expected cursor at 0, got %d", state.CurrentQuestion)
	}
	if state.AnsweredCount != 0 || state.FlaggedCount != 0 {
		t.Fatalf("expected empty counters, got %+v", state)
	}
}

func TestSelectAnswerBounds(t *testing.T) {
	store := attempt.NewStore(3, 10)

	if err := store.SelectAnswer(0, 2); err != nil {
		t.Fatalf("valid selection failed: %v", err)
	}
	if err := store.SelectAnswer(3, 0); err != util.ErrQuestionOutOfRange {
		t.Fatalf("expected question range error, got %v", err)
	}
	if err := store.SelectAnswer(-1, 0); err != util.ErrQuestionOutOfRange {
		t.Fatalf("expected question range error, got %v", err)
	}
	if err := store.SelectAnswer(0, attempt.OptionsPerQuestion); err != util.ErrOptionOutOfRange {
		t.Fatalf("expected option range error, got %v", err)
	}

	state := store.State()
	if state.Answers[0] != 2 || state.AnsweredCount != 1 {
		t.Fatalf("selection not recorded: %+v", state)
	}
}

func TestSelectAnswerOverwrites(t *testing.T) {
	store := attempt.NewStore(2, 10)

	if err := store.SelectAnswer(1, 0); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if err := store.SelectAnswer(1, 3); err != nil {
		t.Fatalf("reselect failed: %v", err)
	}

	state := store.State()
	if state.Answers[1] != 3 || state.AnsweredCount != 1 {
		t.Fatalf("expected overwritten answer, got %+v", state)
	}
}

func TestToggleFlag(t *testing.T) {
	store := attempt.NewStore(3, 10)

	if err := store.ToggleFlag(1); err != nil {
		t.Fatalf("flag failed: %v", err)
	}
	if state := store.State(); state.FlaggedCount != 1 || state.FlaggedQuestions[0] != 1 {
		t.Fatalf("flag not recorded: %+v", state)
	}

	if err := store.ToggleFlag(1); err != nil {
		t.Fatalf("unflag failed: %v", err)
	}
	if state := store.State(); state.FlaggedCount != 0 {
		t.Fatalf("flag not cleared: %+v", state)
	}

	if err := store.ToggleFlag(5); err != util.ErrQuestionOutOfRange {
		t.Fatalf("expected range error, got %v", err)
	}
}

func TestNavigateClamps(t *testing.T) {
	store := attempt.NewStore(4, 10)

	store.Navigate(2)
	if state := store.State(); state.CurrentQuestion != 2 {
		t.Fatalf("expected cursor 2, got %d", state.CurrentQuestion)
	}

	store.Navigate(-3)
	if state := store.State(); state.CurrentQuestion != 0 {
		t.Fatalf("expected clamp to 0, got %d", state.CurrentQuestion)
	}

	store.Navigate(99)
	if state := store.State(); state.CurrentQuestion != 3 {
		t.Fatalf("expected clamp to last question, got %d", state.CurrentQuestion)
	}
}

func TestTickFloorsAtZero(t *testing.T) {
	store := attempt.NewStore(1, 10)

	for i := 0; i < 599; i++ {
		store.Tick()
	}
	remaining, active := store.Tick()
	if remaining != 0 || !active {
		t.Fatalf("expected 0 remaining while active, got %d active=%v", remaining, active)
	}

	// 已到零之后再 tick 不会变成负数
	remaining, active = store.Tick()
	if remaining != 0 || !active {
		t.Fatalf("expected floor at 0, got %d active=%v", remaining, active)
	}
}

func TestTickStopsAfterSubmission(t *testing.T) {
	store := attempt.NewStore(1, 10)

	if _, err := store.BeginSubmission(); err != nil {
		t.Fatalf("begin submission failed: %v", err)
	}
	if _, active := store.Tick(); active {
		t.Fatal("expected tick to report inactive after submission began")
	}
}

func TestSubmissionFreezesEditing(t *testing.T) {
	store := attempt.NewStore(3, 10)
	if err := store.SelectAnswer(0, 1); err != nil {
		t.Fatalf("select failed: %v", err)
	}

	snap, err := store.BeginSubmission()
	if err != nil {
		t.Fatalf("begin submission failed: %v", err)
	}
	if snap.Answers[0] != 1 || snap.Answers[1] != attempt.NoAnswer {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	if err := store.SelectAnswer(1, 2); err != util.ErrInvalidPhase {
		t.Fatalf("expected phase error, got %v", err)
	}
	if err := store.ToggleFlag(0); err != util.ErrInvalidPhase {
		t.Fatalf("expected phase error, got %v", err)
	}
	if _, err := store.BeginSubmission(); err != util.ErrInvalidPhase {
		t.Fatalf("expected second submission to be rejected, got %v", err)
	}
}

func TestSnapshotDetachedFromState(t *testing.T) {
	store := attempt.NewStore(2, 10)
	if err := store.SelectAnswer(0, 1); err != nil {
		t.Fatalf("select failed: %v", err)
	}

	snap, err := store.BeginSubmission()
	if err != nil {
		t.Fatalf("begin submission failed: %v", err)
	}
	snap.Answers[0] = 3

	if state := store.State(); state.Answers[0] != 1 {
		t.Fatalf("snapshot mutation leaked into store: %+v", state)
	}
}

func TestGradedLifecycle(t *testing.T) {
	store := attempt.NewStore(2, 10)

	if _, err := store.Result(); err != util.ErrAttemptNotGraded {
		t.Fatalf("expected not-graded error, got %v", err)
	}

	if _, err := store.BeginSubmission(); err != nil {
		t.Fatalf("begin submission failed: %v", err)
	}

	result := &attempt.GradingResult{Score: 1, TotalQuestions: 2, CorrectAnswers: []int{1, 0}}
	if err := store.MarkGraded(result); err != nil {
		t.Fatalf("mark graded failed: %v", err)
	}

	if got, err := store.Result(); err != nil || got.Score != 1 {
		t.Fatalf("expected stored result, got %v err=%v", got, err)
	}
	if _, ended := store.EndedAt(); !ended {
		t.Fatal("expected ended timestamp after grading")
	}
	if err := store.MarkGraded(result); err != util.ErrInvalidPhase {
		t.Fatalf("expected repeat grading to be rejected, got %v", err)
	}
}

func TestRetryClearsFailure(t *testing.T) {
	store := attempt.NewStore(1, 10)

	if err := store.BeginRetry(); err != util.ErrInvalidPhase {
		t.Fatalf("expected retry from active to fail, got %v", err)
	}

	if _, err := store.BeginSubmission(); err != nil {
		t.Fatalf("begin submission failed: %v", err)
	}
	if err := store.MarkFailed(util.ErrPermissionDenied); err != nil {
		t.Fatalf("mark failed errored: %v", err)
	}
	if store.Failure() == nil {
		t.Fatal("expected recorded failure")
	}

	if err := store.BeginRetry(); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if store.Failure() != nil {
		t.Fatal("expected failure cleared on retry")
	}
	if _, ended := store.EndedAt(); ended {
		t.Fatal("expected ended timestamp cleared on retry")
	}
	if store.Phase() != attempt.PhaseSubmitting {
		t.Fatalf("expected submitting phase, got %s", store.Phase())
	}
}

func TestWatchReceivesUpdates(t *testing.T) {
	store := attempt.NewStore(2, 10)

	ch, cancel := store.Watch()
	defer cancel()

	initial := <-ch
	if initial.Phase != "active" || initial.QuestionCount != 2 {
		t.Fatalf("unexpected initial view: %+v", initial)
	}

	if err := store.SelectAnswer(0, 2); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	update := <-ch
	if update.Answers[0] != 2 || update.AnsweredCount != 1 {
		t.Fatalf("expected answer in update, got %+v", update)
	}
}

func TestWatchDropsStaleFrames(t *testing.T) {
	store := attempt.NewStore(1, 10)

	ch, cancel := store.Watch()
	defer cancel()

	// 订阅者不读，连续变更也不允许阻塞计时与编辑
	for i := 0; i < 50; i++ {
		store.Tick()
	}

	var last attempt.StateView
	for {
		select {
		case view := <-ch:
			last = view
			continue
		default:
		}
		break
	}
	if last.RemainingSeconds != 600-50 {
		t.Fatalf("expected latest frame to survive, got %d remaining", last.RemainingSeconds)
	}
}
