package redis

import (
	"context"
	"encoding/json"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"kotoba-quiz-service/internal/domain"
)

func TestProgressSinkAppendsSummaries(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	sink := NewProgressSink(newClient(mr), 100)
	summary := domain.Summary{
		SessionID: "s1",
		Score:     2,
		Total:     3,
		MaxStreak: 2,
	}
	if err := sink.RecordSummary(context.Background(), summary); err != nil {
		t.Fatalf("record: %v", err)
	}

	raw, err := mr.List(progressKey)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(raw) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(raw))
	}
	var got domain.Summary
	if err := json.Unmarshal([]byte(raw[0]), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.SessionID != "s1" || got.Score != 2 || got.MaxStreak != 2 {
		t.Fatalf("unexpected summary %+v", got)
	}
}

func TestProgressSinkTrimsToCap(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	sink := NewProgressSink(newClient(mr), 2)
	for i := 0; i < 5; i++ {
		if err := sink.RecordSummary(context.Background(), domain.Summary{SessionID: "s", Score: i}); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	raw, err := mr.List(progressKey)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(raw) != 2 {
		t.Fatalf("expected trim to 2, got %d", len(raw))
	}
}
