package attempt

import (
	"sort"
	"sync"
	"time"

	"edubridge_backend/internal/util"
)

// Phase is the lifecycle state of one quiz attempt. Exactly one value holds
// at any time; Graded and Failed are terminal (Failed still allows a retry
// that resends the frozen snapshot).
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseActive
	PhaseSubmitting
	PhaseGraded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseActive:
		return "active"
	case PhaseSubmitting:
		return "submitting"
	case PhaseGraded:
		return "graded"
	case PhaseFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether no further editing is possible.
func (p Phase) Terminal() bool {
	return p == PhaseGraded || p == PhaseFailed
}

// NoAnswer marks an unanswered slot.
const NoAnswer = -1

// Question is one quiz question as shown to the student (no correct answer).
type Question struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// QuizDefinition is the immutable quiz content an attempt runs against.
type QuizDefinition struct {
	QuizID           uint       `json:"quizId"`
	Title            string     `json:"title"`
	TimeLimitMinutes int        `json:"timeLimitMinutes"`
	Questions        []Question `json:"questions"`
}

// GradingResult is what the grading boundary returns after submission.
type GradingResult struct {
	Score          int   `json:"score"`
	TotalQuestions int   `json:"totalQuestions"`
	CorrectAnswers []int `json:"correctAnswers"`
}

// Snapshot freezes answers and flags at the moment submission begins. It is
// the single payload sent over the grading boundary; later store mutations
// can never reach it.
type Snapshot struct {
	Answers          []int `json:"answers"`
	FlaggedQuestions []int `json:"flaggedQuestions"`
}

// StateView is a read-only copy of the attempt state for callers.
type StateView struct {
	Phase            string `json:"phase"`
	RemainingSeconds int    `json:"remainingSeconds"`
	CurrentQuestion  int    `json:"currentQuestion"`
	QuestionCount    int    `json:"questionCount"`
	AnsweredCount    int    `json:"answeredCount"`
	FlaggedCount     int    `json:"flaggedCount"`
	Answers          []int  `json:"answers"`
	FlaggedQuestions []int  `json:"flaggedQuestions"`
}

// Store owns the mutable state of one attempt. All mutations go through its
// methods; the mutex serializes countdown ticks against user edits, so a
// tick can never observe a half-applied mutation.
type Store struct {
	mu        sync.Mutex
	answers   []int
	flagged   map[int]struct{}
	remaining int
	phase     Phase
	cursor    int
	result    *GradingResult
	failure   error
	endedAt   time.Time
	watchers  map[chan StateView]struct{}
}

// NewStore initializes the state for an attempt entering Active: one slot
// per question (all unanswered), full time budget, cursor at question 0.
func NewStore(questionCount, timeLimitMinutes int) *Store {
	answers := make([]int, questionCount)
	for i := range answers {
		answers[i] = NoAnswer
	}
	return &Store{
		answers:   answers,
		flagged:   make(map[int]struct{}),
		remaining: timeLimitMinutes * 60,
		phase:     PhaseActive,
		watchers:  make(map[chan StateView]struct{}),
	}
}

// SelectAnswer records the selected option for a question. Only legal while
// Active; out-of-range indices are contract violations.
func (s *Store) SelectAnswer(questionIndex, optionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseActive {
		return util.ErrInvalidPhase
	}
	if questionIndex < 0 || questionIndex >= len(s.answers) {
		return util.ErrQuestionOutOfRange
	}
	if optionIndex < 0 || optionIndex >= OptionsPerQuestion {
		return util.ErrOptionOutOfRange
	}

	s.answers[questionIndex] = optionIndex
	s.notifyLocked()
	return nil
}

// OptionsPerQuestion is fixed for single-choice quizzes.
const OptionsPerQuestion = 4

// ToggleFlag flips the advisory review marker on a question. Flags never
// affect scoring and never block submission.
func (s *Store) ToggleFlag(questionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseActive {
		return util.ErrInvalidPhase
	}
	if questionIndex < 0 || questionIndex >= len(s.answers) {
		return util.ErrQuestionOutOfRange
	}

	if _, ok := s.flagged[questionIndex]; ok {
		delete(s.flagged, questionIndex)
	} else {
		s.flagged[questionIndex] = struct{}{}
	}
	s.notifyLocked()
	return nil
}

// Navigate moves the cursor, clamped to [0, questionCount). Never fails: the
// cursor is a UI concern, not part of the graded payload.
func (s *Store) Navigate(questionIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseActive {
		return
	}
	if questionIndex < 0 {
		questionIndex = 0
	}
	if questionIndex >= len(s.answers) {
		questionIndex = len(s.answers) - 1
	}
	s.cursor = questionIndex
	s.notifyLocked()
}

// Tick decrements the countdown by one second, floored at zero. Returns the
// remaining seconds and whether the attempt is still Active; a false second
// return tells the scheduler to stand down.
func (s *Store) Tick() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseActive {
		return s.remaining, false
	}
	if s.remaining > 0 {
		s.remaining--
	}
	s.notifyLocked()
	return s.remaining, true
}

// BeginSubmission transitions Active -> Submitting and returns the frozen
// snapshot. The phase gate guarantees at most one snapshot per attempt; a
// second caller gets ErrInvalidPhase.
func (s *Store) BeginSubmission() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseActive {
		return Snapshot{}, util.ErrInvalidPhase
	}

	s.phase = PhaseSubmitting
	snap := s.snapshotLocked()
	s.notifyLocked()
	return snap, nil
}

// BeginRetry transitions Failed -> Submitting for a resubmission of the
// original snapshot. Editing is never reopened.
func (s *Store) BeginRetry() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseFailed {
		return util.ErrInvalidPhase
	}
	s.phase = PhaseSubmitting
	s.failure = nil
	s.endedAt = time.Time{}
	s.notifyLocked()
	return nil
}

// MarkGraded stores the grading result and ends the attempt.
func (s *Store) MarkGraded(result *GradingResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseSubmitting {
		return util.ErrInvalidPhase
	}
	s.phase = PhaseGraded
	s.result = result
	s.remaining = 0
	s.endedAt = time.Now()
	s.notifyLocked()
	return nil
}

// MarkFailed records a transport failure during submission. The snapshot
// stays frozen; only a retry can leave this phase.
func (s *Store) MarkFailed(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseSubmitting {
		return util.ErrInvalidPhase
	}
	s.phase = PhaseFailed
	s.failure = err
	s.endedAt = time.Now()
	s.notifyLocked()
	return nil
}

// Phase returns the current lifecycle phase.
func (s *Store) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Result returns the grading result once Graded.
func (s *Store) Result() (*GradingResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseGraded || s.result == nil {
		return nil, util.ErrAttemptNotGraded
	}
	return s.result, nil
}

// EndedAt returns when the attempt reached a terminal phase. The second
// return is false while the attempt is still running. A retry from Failed
// clears the mark.
func (s *Store) EndedAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endedAt, !s.endedAt.IsZero()
}

// Failure returns the error recorded by MarkFailed, if any.
func (s *Store) Failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// State returns a detached copy of the attempt state.
func (s *Store) State() StateView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Watch subscribes to state updates. Every mutation and tick pushes a fresh
// StateView; slow consumers get stale frames dropped rather than blocking
// the attempt. The cancel func must be called to release the channel.
func (s *Store) Watch() (<-chan StateView, func()) {
	ch := make(chan StateView, 8)

	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	initial := s.stateLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.watchers[ch]; ok {
			delete(s.watchers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Store) snapshotLocked() Snapshot {
	answers := make([]int, len(s.answers))
	copy(answers, s.answers)
	return Snapshot{
		Answers:          answers,
		FlaggedQuestions: s.flaggedSortedLocked(),
	}
}

func (s *Store) flaggedSortedLocked() []int {
	flagged := make([]int, 0, len(s.flagged))
	for i := range s.flagged {
		flagged = append(flagged, i)
	}
	sort.Ints(flagged)
	return flagged
}

func (s *Store) stateLocked() StateView {
	answers := make([]int, len(s.answers))
	copy(answers, s.answers)

	answered := 0
	for _, a := range answers {
		if a != NoAnswer {
			answered++
		}
	}

	return StateView{
		Phase:            s.phase.String(),
		RemainingSeconds: s.remaining,
		CurrentQuestion:  s.cursor,
		QuestionCount:    len(s.answers),
		AnsweredCount:    answered,
		FlaggedCount:     len(s.flagged),
		Answers:          answers,
		FlaggedQuestions: s.flaggedSortedLocked(),
	}
}

func (s *Store) notifyLocked() {
	if len(s.watchers) == 0 {
		return
	}
	view := s.stateLocked()
	for ch := range s.watchers {
		select {
		case ch <- view:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
}
