// Package generate builds the ordered question list for a quiz session from
// a content pool and a validated config.
package generate

import (
	"log"
	"math/rand"

	"kotoba-quiz-service/internal/domain"
	"kotoba-quiz-service/internal/grade"
)

// Composite prompts concatenate this many randomly chosen single units.
const (
	compositeMinUnits = 2
	compositeMaxUnits = 5
)

// Generator materializes question sets. The random source is injected so
// tests can fix the seed and assert exact question and option ordering.
type Generator struct {
	rnd *rand.Rand
}

// New wraps an existing random source.
func New(rnd *rand.Rand) *Generator {
	return &Generator{rnd: rnd}
}

// NewSeeded builds a generator from a seed.
func NewSeeded(seed int64) *Generator {
	return New(rand.New(rand.NewSource(seed)))
}

// Build produces the full question list for one session. Generation is
// batch: the session length is known before the first question is shown.
// The config must already be validated and normalized.
func (g *Generator) Build(pool []domain.ContentItem, cfg domain.QuizConfig) ([]domain.Question, error) {
	usable := usableItems(pool)
	if len(usable) == 0 {
		return nil, domain.ErrEmptyPool
	}

	if cfg.DifficultyFilter != "" {
		filtered := filterDifficulty(usable, cfg.DifficultyFilter)
		if len(filtered) == 0 {
			// Graceful degradation: an over-narrow filter falls back to the
			// whole pool instead of failing the session.
			log.Printf("warn: difficulty filter %q matched no items, using unfiltered pool", cfg.DifficultyFilter)
		} else {
			usable = filtered
		}
	}

	order := g.rnd.Perm(len(usable))
	questions := make([]domain.Question, 0, cfg.QuestionCount)
	for i := 0; i < cfg.QuestionCount; i++ {
		item := usable[order[i%len(order)]]
		if cfg.Source == domain.SourceSynthetic && cfg.Granularity != domain.GranularitySingleUnit {
			item = g.composite(usable)
		}

		dir := cfg.Direction
		if dir == domain.DirectionRandom {
			if g.rnd.Intn(2) == 0 {
				dir = domain.DirectionForward
			} else {
				dir = domain.DirectionReverse
			}
		}

		q := buildQuestion(item, dir)
		if cfg.AnswerType == domain.AnswerMultipleChoice {
			q.Options = g.options(usable, q.CorrectAnswer, dir, cfg.DistractorCount)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// composite concatenates 2-5 random pool units into a non-lexical drill.
// This is a deliberate difficulty mode for single-unit pools, distinct from
// drawing real dictionary words out of a richer pool.
func (g *Generator) composite(pool []domain.ContentItem) domain.ContentItem {
	units := compositeMinUnits + g.rnd.Intn(compositeMaxUnits-compositeMinUnits+1)
	var item domain.ContentItem
	for i := 0; i < units; i++ {
		part := pool[g.rnd.Intn(len(pool))]
		item.Surface += part.Surface
		item.Answer += part.Answer
	}
	return item
}

func buildQuestion(item domain.ContentItem, dir domain.Direction) domain.Question {
	q := domain.Question{
		Direction:   dir,
		MeaningHint: item.Meaning,
		AudioURL:    item.AudioURL,
	}
	switch dir {
	case domain.DirectionReverse:
		q.Prompt = item.Answer
		q.CorrectAnswer = item.Surface
	default:
		q.Prompt = item.Surface
		q.CorrectAnswer = item.Answer
		q.Acceptable = acceptableAnswers(item)
	}
	return q
}

// acceptableAnswers collects alternate readings plus the script- and
// macron-folded variants of the canonical answer, deduplicated.
func acceptableAnswers(item domain.ContentItem) []string {
	seen := map[string]struct{}{item.Answer: {}}
	var out []string
	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, alt := range item.Alternates {
		add(alt)
	}
	keys := grade.Canonical(item.Answer)
	add(keys.Strict)
	add(keys.Folded)
	return out
}

// usableItems drops malformed records (missing either form) so they never
// reach sampling. If that empties the pool the caller reports a config error.
func usableItems(pool []domain.ContentItem) []domain.ContentItem {
	out := make([]domain.ContentItem, 0, len(pool))
	for _, item := range pool {
		if item.Surface == "" || item.Answer == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

func filterDifficulty(pool []domain.ContentItem, tag string) []domain.ContentItem {
	out := make([]domain.ContentItem, 0, len(pool))
	for _, item := range pool {
		if item.Difficulty == tag {
			out = append(out, item)
		}
	}
	return out
}
