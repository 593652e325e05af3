package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"kotoba-quiz-service/internal/domain"
)

// progressKey is the list finished-run summaries are appended to. The engine
// only ever writes here; a spaced-repetition collaborator consumes it.
const progressKey = "progress:summaries"

// ProgressSink appends session summaries to a Redis list, capped so an
// unattended instance cannot grow the list without bound.
type ProgressSink struct {
	client *redis.Client
	keep   int64
}

func NewProgressSink(client *redis.Client, keep int64) *ProgressSink {
	if keep <= 0 {
		keep = 1000
	}
	return &ProgressSink{client: client, keep: keep}
}

func (p *ProgressSink) RecordSummary(ctx context.Context, summary domain.Summary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	pipe := p.client.Pipeline()
	pipe.RPush(ctx, progressKey, data)
	pipe.LTrim(ctx, progressKey, -p.keep, -1)
	_, err = pipe.Exec(ctx)
	return err
}
