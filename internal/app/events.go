package app

import "kotoba-quiz-service/internal/domain"

// Phase is the lifecycle position of a session.
type Phase string

const (
	PhaseMenu        Phase = "menu"
	PhaseConfiguring Phase = "configuring"
	PhaseInProgress  Phase = "in-progress"
	PhaseFinished    Phase = "finished"
)

// EventType tags session events pushed to subscribers.
type EventType string

const (
	EventQuestion EventType = "question" // a new question became current
	EventResult   EventType = "result"   // an attempt was recorded
	EventFinished EventType = "finished" // the last question was advanced past
	EventAnnounce EventType = "announce" // prompt surface for audio playback
	EventMenu     EventType = "menu"     // session reset to the menu
)

// Snapshot is the always-present state block attached to every event.
type Snapshot struct {
	Phase     Phase `json:"phase"`
	Index     int   `json:"index"`
	Total     int   `json:"total"`
	Score     int   `json:"score"`
	Streak    int   `json:"streak"`
	MaxStreak int   `json:"maxStreak"`
	// NextMilestone is the streak length that awards the next streak bonus,
	// so clients can show progress toward it.
	NextMilestone int `json:"nextMilestone"`
	Bonus         int `json:"bonus"`
}

// QuestionView is the learner-facing slice of a question. The correct answer
// and acceptable variants never leave the server.
type QuestionView struct {
	Index       int              `json:"index"`
	Total       int              `json:"total"`
	Prompt      string           `json:"prompt"`
	Options     []string         `json:"options,omitempty"`
	Direction   domain.Direction `json:"direction"`
	MeaningHint bool             `json:"meaningHint"` // whether a hint exists
	CountdownMs int64            `json:"countdownMs,omitempty"`
}

// Announcement carries the prompt surface form for the audio collaborator.
type Announcement struct {
	Surface  string `json:"surface"`
	AudioURL string `json:"audioUrl,omitempty"`
}

// Event is one session state change, fanned out to subscribers.
type Event struct {
	Type     EventType       `json:"type"`
	Question *QuestionView   `json:"question,omitempty"`
	Attempt  *domain.Attempt `json:"attempt,omitempty"`
	Summary  *domain.Summary `json:"summary,omitempty"`
	Announce *Announcement   `json:"announce,omitempty"`
	Snapshot Snapshot        `json:"snapshot"`
}
