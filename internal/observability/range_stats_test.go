package observability

import (
	"sync"
	"testing"
	"time"
)

func TestRecordConcurrent(t *testing.T) {
	stats := NewRangeStats(time.Hour)
	var wg sync.WaitGroup
	numGoroutines := 10
	recordsPerGoroutine := 100

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < recordsPerGoroutine; j++ {
				stats.Record("0", "05c014")
				stats.Record("1", "1fff")
			}
		}()
	}
	wg.Wait()

	top := stats.TopRanges(10)
	if len(top) != 2 {
		t.Fatalf("expected 2 ranges, got %d", len(top))
	}
	expected := int64(numGoroutines * recordsPerGoroutine)
	for _, h := range top {
		if h.Hits != expected {
			t.Errorf("expected %d hits for %s, got %d", expected, h.RangeID, h.Hits)
		}
	}
	if stats.Total() != 2*expected {
		t.Errorf("expected total %d, got %d", 2*expected, stats.Total())
	}
}

func TestTopRangesOrdering(t *testing.T) {
	stats := NewRangeStats(time.Hour)
	for i := 0; i < 10; i++ {
		stats.Record("b", "10")
	}
	for i := 0; i < 20; i++ {
		stats.Record("c", "20")
	}
	for i := 0; i < 10; i++ {
		stats.Record("a", "05")
	}

	top := stats.TopRanges(2)
	if len(top) != 2 {
		t.Fatalf("expected 2 ranges, got %d", len(top))
	}
	if top[0].RangeID != "c" || top[1].RangeID != "a" {
		t.Errorf("unexpected order: %s, %s", top[0].RangeID, top[1].RangeID)
	}
	if top[0].Keys["20"] != 20 {
		t.Errorf("expected 20 hits on key 20, got %d", top[0].Keys["20"])
	}

	top[0].Keys["20"] = 0
	if stats.TopRanges(1)[0].Keys["20"] != 20 {
		t.Error("TopRanges must return a copy")
	}

	if got := stats.TopRanges(0); len(got) != 0 {
		t.Errorf("expected no ranges for n=0, got %d", len(got))
	}
}

func TestPrune(t *testing.T) {
	stats := NewRangeStats(time.Minute)
	now := time.Unix(1_700_000_000, 0)
	stats.now = func() time.Time { return now }

	stats.Record("old", "05")
	now = now.Add(2 * time.Minute)
	stats.Record("new", "10")
	stats.Prune()

	top := stats.TopRanges(10)
	if len(top) != 1 || top[0].RangeID != "new" {
		t.Errorf("expected only the recent range to survive, got %v", top)
	}
}
