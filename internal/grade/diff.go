package grade

import "kotoba-quiz-service/internal/domain"

// Positional compares the learner's submission against the correct string
// position by position, over the original (non-normalized) text so learners
// see exactly what they typed. This is deliberately not a minimal-edit-script
// diff: a positional walk is stable and predictable for short answers, at the
// cost of over-flagging everything after a single early insertion or deletion.
func Positional(submitted, correct string) []domain.DiffCell {
	sub := []rune(submitted)
	ref := []rune(correct)
	n := len(ref)
	if len(sub) > n {
		n = len(sub)
	}

	cells := make([]domain.DiffCell, 0, n)
	for i := 0; i < n; i++ {
		var cell domain.DiffCell
		if i < len(ref) {
			cell.Expected = string(ref[i])
		}
		if i < len(sub) {
			cell.Actual = string(sub[i])
		}
		if i < len(ref) && i < len(sub) && ref[i] == sub[i] {
			cell.Status = domain.DiffCorrect
		} else {
			cell.Status = domain.DiffMissing
		}
		cells = append(cells, cell)
	}
	return cells
}
