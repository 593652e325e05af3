package grade

import (
	"strings"

	"kotoba-quiz-service/internal/domain"
)

// DefaultCloseThreshold is the similarity a submission must exceed to count
// as a near miss. Policy, not derived; overridable via config.
const DefaultCloseThreshold = 0.8

// Result carries the verdict plus the numbers behind it, kept for the diff
// and for answer review.
type Result struct {
	Verdict    domain.Verdict
	Distance   int
	Similarity float64
}

// Grader classifies submissions against reference answers.
type Grader struct {
	threshold float64
}

// NewGrader builds a grader with the given close threshold; values outside
// (0,1) fall back to the default.
func NewGrader(threshold float64) *Grader {
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultCloseThreshold
	}
	return &Grader{threshold: threshold}
}

// Evaluate grades a free-text submission against the correct answer and any
// acceptable alternates. Both the strict and script-folded keys are tried
// and the better classification wins. An empty submission is always
// incorrect, even against malformed empty reference strings.
func (g *Grader) Evaluate(submitted, correct string, acceptable []string) Result {
	if strings.TrimSpace(submitted) == "" {
		return Result{
			Verdict:  domain.VerdictIncorrect,
			Distance: len([]rune(Canonical(correct).Strict)),
		}
	}

	sub := Canonical(submitted)
	refs := make([]Keys, 0, 1+len(acceptable))
	refs = append(refs, Canonical(correct))
	for _, alt := range acceptable {
		if strings.TrimSpace(alt) == "" {
			continue
		}
		refs = append(refs, Canonical(alt))
	}

	for _, ref := range refs {
		if equalWithLongVowel(sub.Strict, ref.Strict) || equalWithLongVowel(sub.Folded, ref.Folded) {
			return Result{Verdict: domain.VerdictCorrect, Similarity: 1}
		}
	}

	// Select by similarity, not by raw distance: against a longer alternate a
	// slightly larger distance can still be the better classification.
	best := Result{Verdict: domain.VerdictIncorrect, Similarity: -1}
	for _, ref := range refs {
		for _, pair := range [][2]string{{sub.Strict, ref.Strict}, {sub.Folded, ref.Folded}} {
			d := Distance(pair[0], pair[1])
			sim := similarity(d, pair[0], pair[1])
			if sim <= best.Similarity {
				continue
			}
			best.Distance = d
			best.Similarity = sim
		}
	}

	switch {
	case best.Similarity == 1:
		best.Verdict = domain.VerdictCorrect
	case best.Similarity > g.threshold:
		best.Verdict = domain.VerdictClose
	default:
		best.Verdict = domain.VerdictIncorrect
	}
	return best
}
