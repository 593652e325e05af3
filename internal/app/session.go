package app

import (
	"sync"
	"time"

	"kotoba-quiz-service/internal/domain"
	"kotoba-quiz-service/internal/grade"
)

// Timing holds the resolved timer durations for one session.
type Timing struct {
	// Countdown is the per-question time limit; zero disables the timer.
	Countdown time.Duration
	// AdvanceCorrect and AdvanceWrong are the auto-advance delays. The wrong
	// delay is longer so the learner has time to read the diff.
	AdvanceCorrect time.Duration
	AdvanceWrong   time.Duration
}

// Session is the quiz state machine: Menu -> Configuring -> InProgress ->
// Finished, with an Unanswered/Answered sub-state per question. Exactly one
// live instance exists per quiz launch; it is discarded, never persisted.
type Session struct {
	id     string
	setID  string
	now    func() time.Time
	grader *grade.Grader
	timing Timing

	// announce is invoked when a forward question is shown; implementations
	// must not block.
	announce func(Announcement)
	// onFinish receives the summary once per run, on its own goroutine.
	onFinish func(domain.Summary)

	mu        sync.Mutex
	cfg       domain.QuizConfig
	phase     Phase
	questions []domain.Question
	attempts  []domain.Attempt
	index     int
	answered  bool
	hintUsed  bool
	score     int
	streak    int
	maxStreak int
	bonus     int
	shownAt   time.Time
	deadline  time.Time

	// epoch invalidates scheduled timer callbacks: a callback only fires if
	// the epoch it captured is still current, so a stale timer can never
	// mutate a superseded question or a retried session.
	epoch         uint64
	questionTimer *time.Timer
	advanceTimer  *time.Timer

	subscribers map[chan Event]struct{}
}

// NewSession builds a session in the Menu phase.
func NewSession(id, setID string, cfg domain.QuizConfig, grader *grade.Grader, timing Timing) *Session {
	return NewSessionWithClock(id, setID, cfg, grader, timing, time.Now)
}

// NewSessionWithClock allows deterministic timestamps in tests.
func NewSessionWithClock(id, setID string, cfg domain.QuizConfig, grader *grade.Grader, timing Timing, now func() time.Time) *Session {
	return &Session{
		id:          id,
		setID:       setID,
		now:         now,
		grader:      grader,
		timing:      timing,
		cfg:         cfg,
		phase:       PhaseMenu,
		subscribers: make(map[chan Event]struct{}),
	}
}

func (s *Session) ID() string { return s.id }

// SetID names the content pool this session draws from; retry reuses it.
func (s *Session) SetID() string { return s.setID }

func (s *Session) Config() domain.QuizConfig { return s.cfg }

// SetAnnouncer wires the audio trigger. Call before Start.
func (s *Session) SetAnnouncer(fn func(Announcement)) { s.announce = fn }

// SetFinishHook wires the progress sink emission. Call before Start.
func (s *Session) SetFinishHook(fn func(domain.Summary)) { s.onFinish = fn }

// Customize moves Menu -> Configuring.
func (s *Session) Customize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseMenu {
		return domain.ErrInvalidTransition
	}
	s.phase = PhaseConfiguring
	return nil
}

// Start begins a run over a freshly generated question list. Valid from
// Menu, Configuring, and Finished (retry); never from InProgress.
func (s *Session) Start(questions []domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.phase {
	case PhaseMenu, PhaseConfiguring, PhaseFinished:
	default:
		return domain.ErrInvalidTransition
	}
	if len(questions) == 0 {
		return domain.ErrEmptyPool
	}

	s.cancelTimersLocked()
	s.phase = PhaseInProgress
	s.questions = questions
	s.attempts = s.attempts[:0]
	s.index = 0
	s.score = 0
	s.streak = 0
	s.maxStreak = 0
	s.bonus = 0
	s.showLocked()
	return nil
}

// Submit grades a learner answer for the current question. Multiple-choice
// submissions pass the chosen option label and match exactly.
func (s *Session) Submit(text string) (domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseInProgress {
		return domain.Attempt{}, domain.ErrInvalidTransition
	}
	if s.answered {
		return domain.Attempt{}, domain.ErrAlreadyAnswered
	}

	q := &s.questions[s.index]
	res := s.grader.Evaluate(text, q.CorrectAnswer, q.Acceptable)
	attempt := domain.Attempt{
		QuestionIndex: s.index,
		Submitted:     text,
		Verdict:       res.Verdict,
		Distance:      res.Distance,
		Similarity:    res.Similarity,
		Elapsed:       s.now().Sub(s.shownAt),
		Diff:          grade.Positional(text, q.CorrectAnswer),
	}
	s.recordLocked(attempt)
	return attempt, nil
}

// Skip gives up on the current question, recording a timeout verdict. The
// countdown timer takes the same path, so timeout never needs its own state.
func (s *Session) Skip() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseInProgress {
		return domain.ErrInvalidTransition
	}
	if s.answered {
		return domain.ErrAlreadyAnswered
	}
	s.timeoutLocked()
	return nil
}

// UseHint reveals the meaning hint for the current question and flags the
// question for the bonus penalty.
func (s *Session) UseHint() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseInProgress || s.answered {
		return "", domain.ErrInvalidTransition
	}
	s.hintUsed = true
	return s.questions[s.index].MeaningHint, nil
}

// Advance moves past an answered question: to the next one, or to Finished
// after the last. Manual advance cancels any pending auto-advance.
func (s *Session) Advance() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseInProgress {
		return domain.ErrInvalidTransition
	}
	if !s.answered {
		return domain.ErrNotAnswered
	}
	s.advanceLocked()
	return nil
}

// ToMenu is the explicit restart reset, the only non-monotonic transition.
func (s *Session) ToMenu() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelTimersLocked()
	s.phase = PhaseMenu
	s.questions = nil
	s.attempts = nil
	s.index = 0
	s.answered = false
	s.hintUsed = false
	s.score = 0
	s.streak = 0
	s.maxStreak = 0
	s.bonus = 0
	s.broadcastLocked(Event{Type: EventMenu})
	return nil
}

// Close cancels all timers and drops subscribers. Call on disconnect.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelTimersLocked()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// Snapshot returns the current scoreboard state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Summary builds the progress-sink payload. Meaningful once Finished.
func (s *Session) Summary() domain.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryLocked()
}

// Attempts returns a copy of the attempts recorded so far, for answer review.
func (s *Session) Attempts() []domain.Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Attempt, len(s.attempts))
	copy(out, s.attempts)
	return out
}

// Subscribe returns a channel of session events. The caller must invoke the
// returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// showLocked makes questions[index] current: resets the sub-state, arms the
// countdown, and emits question and announce events.
func (s *Session) showLocked() {
	s.answered = false
	s.hintUsed = false
	s.shownAt = s.now()
	s.deadline = time.Time{}

	if s.timing.Countdown > 0 {
		s.deadline = s.shownAt.Add(s.timing.Countdown)
		epoch := s.epoch
		s.questionTimer = time.AfterFunc(s.timing.Countdown, func() { s.expire(epoch) })
	}

	q := s.questions[s.index]
	view := &QuestionView{
		Index:       s.index,
		Total:       len(s.questions),
		Prompt:      q.Prompt,
		Options:     q.Options,
		Direction:   q.Direction,
		MeaningHint: q.MeaningHint != "",
		CountdownMs: s.timing.Countdown.Milliseconds(),
	}
	s.broadcastLocked(Event{Type: EventQuestion, Question: view})

	// Reverse prompts are romaji/meaning; announcing their audio would leak
	// the answer, so only forward questions are announced.
	if q.Direction == domain.DirectionForward {
		ann := Announcement{Surface: q.Prompt, AudioURL: q.AudioURL}
		s.broadcastLocked(Event{Type: EventAnnounce, Announce: &ann})
		if s.announce != nil {
			s.announce(ann)
		}
	}
}

// expire is the countdown callback. A stale epoch means the question was
// answered, advanced, or the run was superseded; the timer then no-ops.
func (s *Session) expire(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch || s.phase != PhaseInProgress || s.answered {
		return
	}
	s.timeoutLocked()
}

func (s *Session) timeoutLocked() {
	q := s.questions[s.index]
	s.recordLocked(domain.Attempt{
		QuestionIndex: s.index,
		Verdict:       domain.VerdictTimeout,
		Distance:      len([]rune(q.CorrectAnswer)),
		Elapsed:       s.now().Sub(s.shownAt),
		Diff:          grade.Positional("", q.CorrectAnswer),
	})
}

// recordLocked appends the attempt, applies scoring, and schedules the
// Answered -> Unanswered/Finished transition when one is due.
func (s *Session) recordLocked(attempt domain.Attempt) {
	timeLeft := time.Duration(0)
	if !s.deadline.IsZero() {
		if left := s.deadline.Sub(s.now()); left > 0 {
			timeLeft = left
		}
	}
	s.cancelTimersLocked()

	s.questions[s.index].Submitted = attempt.Submitted
	s.attempts = append(s.attempts, attempt)
	s.answered = true

	if attempt.Verdict.Counts() {
		s.score++
		s.streak++
		s.bonus += Bonus(s.streak, timeLeft, s.hintUsed, s.cfg.DifficultyFilter)
	} else {
		if s.streak > s.maxStreak {
			s.maxStreak = s.streak
		}
		s.streak = 0
	}

	s.broadcastLocked(Event{Type: EventResult, Attempt: &attempt})

	// Timeouts always advance on their own; otherwise auto-advance follows
	// the config, with a longer delay after a miss.
	schedule := attempt.Verdict == domain.VerdictTimeout || s.cfg.AutoAdvance
	if !schedule {
		return
	}
	delay := s.timing.AdvanceWrong
	if attempt.Verdict.Counts() {
		delay = s.timing.AdvanceCorrect
	}
	epoch := s.epoch
	s.advanceTimer = time.AfterFunc(delay, func() { s.autoAdvance(epoch) })
}

func (s *Session) autoAdvance(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch || s.phase != PhaseInProgress || !s.answered {
		return
	}
	s.advanceLocked()
}

func (s *Session) advanceLocked() {
	s.cancelTimersLocked()
	if s.index == len(s.questions)-1 {
		s.finishLocked()
		return
	}
	s.index++
	s.showLocked()
}

func (s *Session) finishLocked() {
	if s.streak > s.maxStreak {
		s.maxStreak = s.streak
	}
	s.phase = PhaseFinished
	summary := s.summaryLocked()
	s.broadcastLocked(Event{Type: EventFinished, Summary: &summary})
	if s.onFinish != nil {
		go s.onFinish(summary)
	}
}

// cancelTimersLocked stops pending timers and bumps the epoch so callbacks
// already in flight become no-ops.
func (s *Session) cancelTimersLocked() {
	s.epoch++
	if s.questionTimer != nil {
		s.questionTimer.Stop()
		s.questionTimer = nil
	}
	if s.advanceTimer != nil {
		s.advanceTimer.Stop()
		s.advanceTimer = nil
	}
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Phase:         s.phase,
		Index:         s.index,
		Total:         len(s.questions),
		Score:         s.score,
		Streak:        s.streak,
		MaxStreak:     s.maxStreak,
		NextMilestone: NextStreakMilestone(s.streak),
		Bonus:         s.bonus,
	}
}

func (s *Session) summaryLocked() domain.Summary {
	attempts := make([]domain.Attempt, len(s.attempts))
	copy(attempts, s.attempts)
	return domain.Summary{
		SessionID: s.id,
		Score:     s.score,
		Total:     len(s.questions),
		MaxStreak: s.maxStreak,
		Attempts:  attempts,
	}
}

// broadcastLocked fans the event out, dropping the oldest buffered event for
// a slow subscriber so broadcast never blocks the state machine.
func (s *Session) broadcastLocked(ev Event) {
	ev.Snapshot = s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}
