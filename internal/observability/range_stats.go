// Package observability tracks how routed traffic spreads over partition key
// ranges, to surface hot ranges worth splitting.
package observability

import (
	"sort"
	"sync"
	"time"
)

// RangeStats counts routed keys per partition key range.
type RangeStats struct {
	mu     sync.RWMutex
	ranges map[string]*RangeHits
	window time.Duration
	now    func() time.Time
}

// RangeHits holds statistics for one range.
type RangeHits struct {
	RangeID  string
	Hits     int64
	LastSeen time.Time
	Keys     map[string]int64 // effective key -> count
}

// NewRangeStats creates a tracker that forgets ranges idle for longer than
// window.
func NewRangeStats(window time.Duration) *RangeStats {
	return &RangeStats{
		ranges: make(map[string]*RangeHits),
		window: window,
		now:    time.Now,
	}
}

// Record counts one key routed to rangeID.
// This method is O(1) and thread-safe.
func (s *RangeStats) Record(rangeID, epk string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hits, exists := s.ranges[rangeID]
	if !exists {
		hits = &RangeHits{RangeID: rangeID, Keys: make(map[string]int64)}
		s.ranges[rangeID] = hits
	}
	hits.Hits++
	hits.LastSeen = s.now()
	hits.Keys[epk]++
}

// Total returns the number of recorded keys across all ranges.
func (s *RangeStats) Total() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, h := range s.ranges {
		total += h.Hits
	}
	return total
}

// TopRanges returns the n busiest ranges, busiest first. Ties are broken by
// range id. The result is a copy.
func (s *RangeStats) TopRanges(n int) []RangeHits {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || len(s.ranges) == 0 {
		return []RangeHits{}
	}

	out := make([]RangeHits, 0, len(s.ranges))
	for _, h := range s.ranges {
		cp := RangeHits{
			RangeID:  h.RangeID,
			Hits:     h.Hits,
			LastSeen: h.LastSeen,
			Keys:     make(map[string]int64, len(h.Keys)),
		}
		for k, c := range h.Keys {
			cp.Keys[k] = c
		}
		out = append(out, cp)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Hits != out[j].Hits {
			return out[i].Hits > out[j].Hits
		}
		return out[i].RangeID < out[j].RangeID
	})

	if n > len(out) {
		n = len(out)
	}
	return out[:n]
}

// Prune removes ranges not seen within the window.
func (s *RangeStats) Prune() {
	s.mu.Lock()
	defer s.mu.Unlock()

	threshold := s.now().Add(-s.window)
	for id, h := range s.ranges {
		if h.LastSeen.Before(threshold) {
			delete(s.ranges, id)
		}
	}
}
