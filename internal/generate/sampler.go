package generate

import "kotoba-quiz-service/internal/domain"

// maxDistractorDraws caps the rejection-sampling loop so generation always
// terminates on pools too small to yield enough unique wrong options.
const maxDistractorDraws = 50

// Distractors draws up to want unique wrong options from the pool, deriving
// each candidate under the same direction as the question. A partial set is
// a legitimate outcome: a question may ship with fewer options when the pool
// is small.
func (g *Generator) Distractors(pool []domain.ContentItem, correct string, dir domain.Direction, want int) []string {
	seen := map[string]struct{}{correct: {}}
	out := make([]string, 0, want)
	for draws := 0; draws < maxDistractorDraws && len(out) < want; draws++ {
		item := pool[g.rnd.Intn(len(pool))]
		label := item.Answer
		if dir == domain.DirectionReverse {
			label = item.Surface
		}
		if label == "" {
			continue
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out
}

// options merges the correct answer into the sampled distractors and
// shuffles, so exactly one option equals the correct answer and no two
// options share a label.
func (g *Generator) options(pool []domain.ContentItem, correct string, dir domain.Direction, distractors int) []string {
	opts := append(g.Distractors(pool, correct, dir, distractors), correct)
	g.rnd.Shuffle(len(opts), func(i, j int) {
		opts[i], opts[j] = opts[j], opts[i]
	})
	return opts
}
