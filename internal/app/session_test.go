package app

import (
	"testing"
	"time"

	"kotoba-quiz-service/internal/domain"
	"kotoba-quiz-service/internal/grade"
)

func testQuestions() []domain.Question {
	return []domain.Question{
		{Prompt: "あ", CorrectAnswer: "a", Direction: domain.DirectionForward},
		{Prompt: "か", CorrectAnswer: "ka", Direction: domain.DirectionForward},
		{Prompt: "さ", CorrectAnswer: "sa", Direction: domain.DirectionForward},
	}
}

func testSession(timing Timing) *Session {
	cfg := domain.QuizConfig{QuestionCount: 3}.Normalized()
	return NewSession("s1", "hiragana", cfg, grade.NewGrader(0), timing)
}

func TestPhaseTransitions(t *testing.T) {
	s := testSession(Timing{})

	if s.Snapshot().Phase != PhaseMenu {
		t.Fatalf("expected menu phase, got %s", s.Snapshot().Phase)
	}
	if err := s.Customize(); err != nil {
		t.Fatalf("customize: %v", err)
	}
	if err := s.Customize(); err != domain.ErrInvalidTransition {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if err := s.Start(testQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.Snapshot().Phase != PhaseInProgress {
		t.Fatalf("expected in-progress, got %s", s.Snapshot().Phase)
	}
	// Starting mid-run is not a valid transition.
	if err := s.Start(testQuestions()); err != domain.ErrInvalidTransition {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestSubmitAndAdvanceToFinished(t *testing.T) {
	s := testSession(Timing{})
	if err := s.Start(testQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}

	answers := []string{"a", "ka", "sa"}
	for i, answer := range answers {
		attempt, err := s.Submit(answer)
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		if attempt.Verdict != domain.VerdictCorrect {
			t.Fatalf("expected correct, got %+v", attempt)
		}
		if _, err := s.Submit(answer); err != domain.ErrAlreadyAnswered {
			t.Fatalf("expected double submit rejected, got %v", err)
		}
		if err := s.Advance(); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}

	snap := s.Snapshot()
	if snap.Phase != PhaseFinished {
		t.Fatalf("expected finished, got %s", snap.Phase)
	}
	if snap.Score != 3 || snap.Streak != 3 || snap.MaxStreak != 3 {
		t.Fatalf("unexpected scoreboard: %+v", snap)
	}
	if snap.NextMilestone != 5 {
		t.Fatalf("expected next streak milestone 5 at streak 3, got %d", snap.NextMilestone)
	}
}

func TestAdvanceRequiresAnswer(t *testing.T) {
	s := testSession(Timing{})
	if err := s.Start(testQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Advance(); err != domain.ErrNotAnswered {
		t.Fatalf("expected ErrNotAnswered, got %v", err)
	}
}

func TestStreakResetOnMiss(t *testing.T) {
	s := testSession(Timing{})
	if err := s.Start(testQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := s.Submit("a"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := s.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	attempt, err := s.Submit("zzzzzz")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if attempt.Verdict != domain.VerdictIncorrect {
		t.Fatalf("expected incorrect, got %+v", attempt)
	}

	snap := s.Snapshot()
	if snap.Streak != 0 || snap.MaxStreak != 1 || snap.Score != 1 {
		t.Fatalf("expected streak folded into maxStreak, got %+v", snap)
	}
	if snap.NextMilestone != 5 {
		t.Fatalf("expected milestone back at 5 after the reset, got %d", snap.NextMilestone)
	}
}

func TestTimeoutVerdictViaExpire(t *testing.T) {
	s := testSession(Timing{})
	if err := s.Start(testQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Drive the countdown path directly with the current epoch.
	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()
	s.expire(epoch)

	attempts := s.Attempts()
	if len(attempts) != 1 || attempts[0].Verdict != domain.VerdictTimeout {
		t.Fatalf("expected a timeout attempt, got %+v", attempts)
	}
	if snap := s.Snapshot(); snap.Streak != 0 {
		t.Fatalf("expected streak reset on timeout, got %+v", snap)
	}
}

func TestStaleTimerEpochNoOps(t *testing.T) {
	s := testSession(Timing{})
	if err := s.Start(testQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}

	s.mu.Lock()
	stale := s.epoch
	s.mu.Unlock()

	if _, err := s.Submit("a"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	// The countdown from before the submission must not fire a second attempt.
	s.expire(stale)

	if attempts := s.Attempts(); len(attempts) != 1 {
		t.Fatalf("stale timer mutated the session: %+v", attempts)
	}
}

func TestTimeoutAutoAdvances(t *testing.T) {
	s := testSession(Timing{Countdown: 20 * time.Millisecond, AdvanceCorrect: 10 * time.Millisecond, AdvanceWrong: 10 * time.Millisecond})
	if err := s.Start(testQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		snap := s.Snapshot()
		if snap.Index > 0 && snap.Phase == PhaseInProgress {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected timeout to advance the session, stuck at %+v", snap)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if attempts := s.Attempts(); attempts[0].Verdict != domain.VerdictTimeout {
		t.Fatalf("expected first attempt to be a timeout, got %+v", attempts[0])
	}
}

func TestManualAdvanceCancelsAutoAdvance(t *testing.T) {
	cfg := domain.QuizConfig{QuestionCount: 3, AutoAdvance: true}.Normalized()
	s := NewSession("s1", "hiragana", cfg, grade.NewGrader(0), Timing{AdvanceCorrect: 30 * time.Millisecond, AdvanceWrong: 30 * time.Millisecond})
	if err := s.Start(testQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := s.Submit("a"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := s.Advance(); err != nil {
		t.Fatalf("manual advance: %v", err)
	}
	index := s.Snapshot().Index

	// The canceled auto-advance must not move the session a second time.
	time.Sleep(80 * time.Millisecond)
	if got := s.Snapshot().Index; got != index {
		t.Fatalf("stale auto-advance fired: index %d -> %d", index, got)
	}
}

func TestRetryResetsAndRegenerates(t *testing.T) {
	s := testSession(Timing{})
	if err := s.Start(testQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, answer := range []string{"a", "ka", "sa"} {
		if _, err := s.Submit(answer); err != nil {
			t.Fatalf("submit: %v", err)
		}
		if err := s.Advance(); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	if s.Snapshot().Phase != PhaseFinished {
		t.Fatalf("expected finished")
	}

	if err := s.Start(testQuestions()); err != nil {
		t.Fatalf("retry start: %v", err)
	}
	snap := s.Snapshot()
	if snap.Phase != PhaseInProgress || snap.Score != 0 || snap.Index != 0 {
		t.Fatalf("expected a fresh run after retry, got %+v", snap)
	}
	if len(s.Attempts()) != 0 {
		t.Fatalf("expected attempts cleared on retry")
	}
}

func TestToMenuReset(t *testing.T) {
	s := testSession(Timing{})
	if err := s.Start(testQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.ToMenu(); err != nil {
		t.Fatalf("to menu: %v", err)
	}
	snap := s.Snapshot()
	if snap.Phase != PhaseMenu || snap.Total != 0 || snap.Score != 0 {
		t.Fatalf("expected clean menu state, got %+v", snap)
	}
}

func TestFinishHookFiresOnce(t *testing.T) {
	s := testSession(Timing{})
	got := make(chan domain.Summary, 2)
	s.SetFinishHook(func(sum domain.Summary) { got <- sum })

	if err := s.Start(testQuestions()[:1]); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := s.Submit("a"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := s.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}

	select {
	case sum := <-got:
		if sum.Score != 1 || sum.Total != 1 || sum.MaxStreak != 1 {
			t.Fatalf("unexpected summary %+v", sum)
		}
	case <-time.After(time.Second):
		t.Fatalf("finish hook never fired")
	}
	select {
	case sum := <-got:
		t.Fatalf("finish hook fired twice: %+v", sum)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHintMarksPenalty(t *testing.T) {
	cfg := domain.QuizConfig{QuestionCount: 1}.Normalized()
	s := NewSession("s1", "hiragana", cfg, grade.NewGrader(0), Timing{})
	qs := []domain.Question{{Prompt: "猫", CorrectAnswer: "neko", MeaningHint: "cat", Direction: domain.DirectionForward}}
	if err := s.Start(qs); err != nil {
		t.Fatalf("start: %v", err)
	}
	hint, err := s.UseHint()
	if err != nil {
		t.Fatalf("hint: %v", err)
	}
	if hint != "cat" {
		t.Fatalf("expected meaning hint, got %q", hint)
	}
	s.mu.Lock()
	used := s.hintUsed
	s.mu.Unlock()
	if !used {
		t.Fatalf("expected hint flagged for the bonus penalty")
	}
}

func TestSubscribeReceivesQuestionAndResult(t *testing.T) {
	s := testSession(Timing{})
	ch, cancel := s.Subscribe()
	defer cancel()

	if err := s.Start(testQuestions()); err != nil {
		t.Fatalf("start: %v", err)
	}
	ev := <-ch
	if ev.Type != EventQuestion || ev.Question == nil || ev.Question.Total != 3 {
		t.Fatalf("expected question event, got %+v", ev)
	}
	// Forward questions are announced for audio playback.
	ev = <-ch
	if ev.Type != EventAnnounce || ev.Announce == nil || ev.Announce.Surface == "" {
		t.Fatalf("expected announce event, got %+v", ev)
	}

	if _, err := s.Submit("a"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	ev = <-ch
	if ev.Type != EventResult || ev.Attempt == nil || ev.Attempt.Verdict != domain.VerdictCorrect {
		t.Fatalf("expected result event, got %+v", ev)
	}
	if ev.Snapshot.Score != 1 {
		t.Fatalf("expected snapshot attached, got %+v", ev.Snapshot)
	}
}
