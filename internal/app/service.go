package app

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"kotoba-quiz-service/internal/domain"
	"kotoba-quiz-service/internal/generate"
	"kotoba-quiz-service/internal/grade"
)

// ContentRepository loads content pools (from cache/backing store).
type ContentRepository interface {
	GetContentSet(ctx context.Context, setID string) (domain.ContentSet, error)
}

// SessionRepository abstracts how live sessions are indexed by ID.
type SessionRepository interface {
	Put(session *Session)
	Get(id string) (*Session, bool)
	Delete(id string)
}

// ProgressSink receives the final summary of a finished run. Write-only from
// the engine's perspective; a collaborator may use it for spaced-repetition
// bookkeeping.
type ProgressSink interface {
	RecordSummary(ctx context.Context, summary domain.Summary) error
}

// Announcer is the audio/TTS trigger port. Implementations must not block.
type Announcer interface {
	AnnouncePrompt(surface, audioURL string)
}

// NopAnnouncer discards announcements.
type NopAnnouncer struct{}

func (NopAnnouncer) AnnouncePrompt(string, string) {}

// TimingPolicy resolves timer durations per difficulty tag.
type TimingPolicy struct {
	CountdownByDifficulty map[string]time.Duration
	DefaultCountdown      time.Duration // zero disables the countdown
	AdvanceCorrect        time.Duration
	AdvanceWrong          time.Duration
}

// For picks the Timing for one session.
func (p TimingPolicy) For(difficulty string) Timing {
	countdown := p.DefaultCountdown
	if d, ok := p.CountdownByDifficulty[difficulty]; ok {
		countdown = d
	}
	correct := p.AdvanceCorrect
	if correct <= 0 {
		correct = 1200 * time.Millisecond
	}
	wrong := p.AdvanceWrong
	if wrong <= 0 {
		wrong = 3 * time.Second
	}
	return Timing{Countdown: countdown, AdvanceCorrect: correct, AdvanceWrong: wrong}
}

// Options tunes the service; zero values pick sane defaults.
type Options struct {
	CloseThreshold  float64
	DistractorCount int // server-side default when the session config leaves it unset
	Timing          TimingPolicy
	Rand            *rand.Rand // nil means time-seeded
}

// QuizService contains the quiz engine use cases.
type QuizService struct {
	sessions    SessionRepository
	content     ContentRepository
	progress    ProgressSink
	announcer   Announcer
	grader      *grade.Grader
	timing      TimingPolicy
	distractors int

	// the injected rand source is not safe for concurrent use
	genMu sync.Mutex
	gen   *generate.Generator
}

func NewQuizService(sessions SessionRepository, content ContentRepository, progress ProgressSink, announcer Announcer, opts Options) *QuizService {
	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if announcer == nil {
		announcer = NopAnnouncer{}
	}
	return &QuizService{
		sessions:    sessions,
		content:     content,
		progress:    progress,
		announcer:   announcer,
		grader:      grade.NewGrader(opts.CloseThreshold),
		timing:      opts.Timing,
		distractors: opts.DistractorCount,
		gen:         generate.New(rnd),
	}
}

// StartSession validates the config, materializes the full question list,
// and starts a new session over it. Configuration problems fail fast here;
// the caller falls back to the menu.
func (s *QuizService) StartSession(ctx context.Context, setID string, cfg domain.QuizConfig) (*Session, error) {
	if cfg.DistractorCount <= 0 && s.distractors > 0 {
		cfg.DistractorCount = s.distractors
	}
	cfg = cfg.Normalized()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	_, err := s.buildQuestions(ctx, setID, cfg)
	if err != nil {
		return nil, err
	}

	session := NewSession(uuid.NewString(), setID, cfg, s.grader, s.timing.For(cfg.DifficultyFilter))
	session.SetAnnouncer(func(a Announcement) {
		s.announcer.AnnouncePrompt(a.Surface, a.AudioURL)
	})
	session.SetFinishHook(s.recordProgress)
	s.sessions.Put(session)
	return session, nil
}

// Begin generates no new state; it runs the already-registered session.
// Separated from StartSession so transports can subscribe before the first
// question event fires.
func (s *QuizService) Begin(ctx context.Context, sessionID string) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	questions, err := s.buildQuestions(ctx, session.SetID(), session.Config())
	if err != nil {
		return err
	}
	return session.Start(questions)
}

// SubmitAnswer grades a free-text or option submission for a session.
func (s *QuizService) SubmitAnswer(_ context.Context, sessionID, text string) (domain.Attempt, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Attempt{}, domain.ErrSessionNotFound
	}
	return session.Submit(text)
}

// Advance moves an answered session forward.
func (s *QuizService) Advance(_ context.Context, sessionID string) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.Advance()
}

// Skip records a timeout verdict for the current question.
func (s *QuizService) Skip(_ context.Context, sessionID string) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.Skip()
}

// Hint reveals the meaning hint, at the cost of the bonus penalty.
func (s *QuizService) Hint(_ context.Context, sessionID string) (string, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return "", domain.ErrSessionNotFound
	}
	return session.UseHint()
}

// Retry regenerates questions with the same config and restarts the session,
// producing a fresh random sample.
func (s *QuizService) Retry(ctx context.Context, sessionID string) error {
	return s.Begin(ctx, sessionID)
}

// ToMenu resets the session to the menu phase.
func (s *QuizService) ToMenu(_ context.Context, sessionID string) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.ToMenu()
}

// Subscribe returns a channel of session events. The caller must invoke the
// returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, sessionID string) (<-chan Event, func(), error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// Close tears a session down: timers canceled, subscribers dropped, the
// session removed from the index. Safe to call for unknown IDs.
func (s *QuizService) Close(_ context.Context, sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.Close()
	s.sessions.Delete(sessionID)
}

func (s *QuizService) buildQuestions(ctx context.Context, setID string, cfg domain.QuizConfig) ([]domain.Question, error) {
	set, err := s.content.GetContentSet(ctx, setID)
	if err != nil {
		return nil, err
	}
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gen.Build(set.Items, cfg)
}

// recordProgress pushes the summary to the sink, best effort. Runs on the
// session's finish goroutine, never on the state machine's lock.
func (s *QuizService) recordProgress(summary domain.Summary) {
	if s.progress == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.progress.RecordSummary(ctx, summary); err != nil {
		log.Printf("warn: progress sink rejected summary for session %s: %v", summary.SessionID, err)
	}
}
