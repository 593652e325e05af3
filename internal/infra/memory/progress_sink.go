package memory

import (
	"context"
	"sync"

	"kotoba-quiz-service/internal/domain"
)

// ProgressLog keeps finished-run summaries in memory. Useful for tests and
// for running the server without redis.
type ProgressLog struct {
	mu        sync.Mutex
	summaries []domain.Summary
}

func NewProgressLog() *ProgressLog {
	return &ProgressLog{}
}

func (p *ProgressLog) RecordSummary(_ context.Context, summary domain.Summary) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.summaries = append(p.summaries, summary)
	return nil
}

// Summaries returns a copy of everything recorded so far.
func (p *ProgressLog) Summaries() []domain.Summary {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Summary, len(p.summaries))
	copy(out, p.summaries)
	return out
}
