package domain

import (
	"fmt"
	"time"
)

// ContentItem is a single drillable record: a kana character, a vocabulary
// word, or a sentence. Items are owned by the content source; the engine
// only reads them.
type ContentItem struct {
	Surface    string   `json:"surface"`              // kana/kanji form
	Answer     string   `json:"answer"`               // romaji or meaning
	Alternates []string `json:"alternates,omitempty"` // other valid readings
	Meaning    string   `json:"meaning,omitempty"`
	Difficulty string   `json:"difficulty,omitempty"` // e.g. a JLPT tag
	AudioURL   string   `json:"audioUrl,omitempty"`
}

// ContentSet is a named pool of content items (a script, a level, a category).
type ContentSet struct {
	ID    string        `json:"id"`
	Items []ContentItem `json:"items"`
}

// Mode selects which scripts a session draws from.
type Mode string

const (
	ModeSingleScript Mode = "single-script"
	ModeMixedScript  Mode = "mixed-script"
)

// AnswerType selects how the learner responds.
type AnswerType string

const (
	AnswerMultipleChoice AnswerType = "multiple-choice"
	AnswerFreeText       AnswerType = "free-text"
)

// Direction controls which side of an item becomes the prompt.
type Direction string

const (
	DirectionForward Direction = "forward" // surface shown, answer form expected
	DirectionReverse Direction = "reverse" // answer form shown, surface expected
	DirectionRandom  Direction = "random"  // resolved 50/50 per question
)

// Granularity controls prompt length for pools of single units.
type Granularity string

const (
	GranularitySingleUnit    Granularity = "single-unit"
	GranularityMultiWord     Granularity = "multi-unit-word"
	GranularityMultiSentence Granularity = "multi-unit-sentence"
)

// SourceKind distinguishes synthesized composite drills from curated pools.
type SourceKind string

const (
	SourceSynthetic SourceKind = "synthetic-combination"
	SourceCurated   SourceKind = "curated-pool"
)

// QuizConfig captures the options a learner picks before a session starts.
// It is validated once at session start and immutable afterwards.
type QuizConfig struct {
	Mode             Mode        `json:"mode"`
	AnswerType       AnswerType  `json:"answerType"`
	Direction        Direction   `json:"direction"`
	QuestionCount    int         `json:"questionCount"`
	Granularity      Granularity `json:"granularity"`
	Source           SourceKind  `json:"source"`
	AutoAdvance      bool        `json:"autoAdvance"`
	DifficultyFilter string      `json:"difficultyFilter,omitempty"`
	DistractorCount  int         `json:"distractorCount,omitempty"` // 0 means the default of 3
}

// DefaultDistractorCount is how many wrong options a multiple-choice
// question asks for when the config does not say otherwise.
const DefaultDistractorCount = 3

// Normalized returns a copy with empty fields replaced by defaults.
func (c QuizConfig) Normalized() QuizConfig {
	if c.Mode == "" {
		c.Mode = ModeSingleScript
	}
	if c.AnswerType == "" {
		c.AnswerType = AnswerFreeText
	}
	if c.Direction == "" {
		c.Direction = DirectionForward
	}
	if c.Granularity == "" {
		c.Granularity = GranularitySingleUnit
	}
	if c.Source == "" {
		c.Source = SourceCurated
	}
	if c.DistractorCount <= 0 {
		c.DistractorCount = DefaultDistractorCount
	}
	return c
}

// Validate reports the first configuration problem, or nil. Callers are
// expected to fall back to a default config instead of crashing.
func (c QuizConfig) Validate() error {
	if c.QuestionCount <= 0 {
		return fmt.Errorf("%w: questionCount must be positive, got %d", ErrInvalidConfig, c.QuestionCount)
	}
	switch c.Mode {
	case ModeSingleScript, ModeMixedScript:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}
	switch c.AnswerType {
	case AnswerMultipleChoice, AnswerFreeText:
	default:
		return fmt.Errorf("%w: unknown answerType %q", ErrInvalidConfig, c.AnswerType)
	}
	switch c.Direction {
	case DirectionForward, DirectionReverse, DirectionRandom:
	default:
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidConfig, c.Direction)
	}
	switch c.Granularity {
	case GranularitySingleUnit, GranularityMultiWord, GranularityMultiSentence:
	default:
		return fmt.Errorf("%w: unknown contentGranularity %q", ErrInvalidConfig, c.Granularity)
	}
	switch c.Source {
	case SourceSynthetic, SourceCurated:
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidConfig, c.Source)
	}
	return nil
}

// Question is one slot of a session. Created once by the generator; the only
// later mutation is attaching the learner's submission for answer review.
type Question struct {
	Prompt        string    `json:"prompt"`
	CorrectAnswer string    `json:"correctAnswer"`
	Acceptable    []string  `json:"acceptable,omitempty"` // alternate readings and folded variants
	Options       []string  `json:"options,omitempty"`    // multiple-choice only; exactly one equals CorrectAnswer
	Direction     Direction `json:"direction"`            // resolved, never DirectionRandom
	MeaningHint   string    `json:"meaningHint,omitempty"`
	AudioURL      string    `json:"audioUrl,omitempty"`
	Submitted     string    `json:"submitted,omitempty"`
}

// Verdict classifies a graded submission.
type Verdict string

const (
	VerdictCorrect   Verdict = "correct"
	VerdictClose     Verdict = "close" // near miss; still counts toward score
	VerdictIncorrect Verdict = "incorrect"
	VerdictTimeout   Verdict = "timeout"
)

// Counts reports whether the verdict adds a point and extends the streak.
func (v Verdict) Counts() bool {
	return v == VerdictCorrect || v == VerdictClose
}

// DiffStatus marks one cell of a positional diff.
type DiffStatus string

const (
	DiffCorrect DiffStatus = "correct"
	DiffMissing DiffStatus = "missing"
)

// DiffCell is one position of the learner-facing diff: the expected
// character, what the learner actually typed there (if anything), and
// whether they agree.
type DiffCell struct {
	Expected string     `json:"expected,omitempty"`
	Actual   string     `json:"actual,omitempty"`
	Status   DiffStatus `json:"status"`
}

// Attempt is the per-question record created on submission or timer expiry.
// Attempts are append-only within a session.
type Attempt struct {
	QuestionIndex int           `json:"questionIndex"`
	Submitted     string        `json:"submitted"`
	Verdict       Verdict       `json:"verdict"`
	Distance      int           `json:"distance"`
	Similarity    float64       `json:"similarity"`
	Elapsed       time.Duration `json:"elapsed"`
	Diff          []DiffCell    `json:"diff,omitempty"`
}

// Summary is what the engine hands to the progress sink after a session
// finishes. The engine never reads it back.
type Summary struct {
	SessionID string    `json:"sessionId"`
	Score     int       `json:"score"`
	Total     int       `json:"total"`
	MaxStreak int       `json:"maxStreak"`
	Attempts  []Attempt `json:"attempts"`
}
