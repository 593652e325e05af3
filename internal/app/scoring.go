package app

import "time"

// Scoring policy lives here, isolated from verdict logic, so bonus rules can
// change without touching grading correctness.

const streakMilestoneStep = 5

// NextStreakMilestone returns the next streak length that awards a bonus.
func NextStreakMilestone(current int) int {
	thresholds := []int{5, 10, 15, 20}
	for _, t := range thresholds {
		if t > current {
			return t
		}
	}
	// Beyond 20, every 5.
	return ((current / streakMilestoneStep) + 1) * streakMilestoneStep
}

// Bonus computes the extra points awarded on top of the base point for a
// counting verdict. Pure function of its inputs.
func Bonus(streak int, timeLeft time.Duration, hintUsed bool, difficulty string) int {
	b := 0
	if streak > 0 && streak%streakMilestoneStep == 0 {
		b += 2
	}
	if timeLeft >= 10*time.Second {
		b++
	}
	switch difficulty {
	case "n1", "n2":
		b++
	}
	if hintUsed {
		b /= 2
	}
	return b
}
