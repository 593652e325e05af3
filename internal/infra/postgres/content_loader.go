package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"kotoba-quiz-service/internal/domain"
)

// ContentLoader loads content-set JSONB from Postgres. The admin CRUD layer
// owns the table; this side only reads it.
type ContentLoader struct {
	pool *pgxpool.Pool
}

func NewContentLoader(pool *pgxpool.Pool) *ContentLoader {
	return &ContentLoader{pool: pool}
}

func (l *ContentLoader) LoadContentSet(ctx context.Context, setID string) (domain.ContentSet, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM content_sets WHERE id=$1`, setID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ContentSet{}, domain.ErrContentSetNotFound
	}
	if err != nil {
		return domain.ContentSet{}, fmt.Errorf("load content set: %w", err)
	}
	var set domain.ContentSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return domain.ContentSet{}, fmt.Errorf("unmarshal content set: %w", err)
	}
	return set, nil
}
