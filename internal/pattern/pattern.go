// Package pattern accumulates per-category temporal usage statistics: how
// often a category is used, at what hours, and on what weekdays. Samples are
// capped at the most recent 50; the total count keeps growing past the cap.
package pattern

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nikhil/unapp/internal/category"
	"github.com/nikhil/unapp/internal/store"
)

// maxSamples bounds the hour/day sample windows per category.
const maxSamples = 50

type Pattern struct {
	Count       int       `json:"count"`
	Times       []int     `json:"times"` // hour-of-day, 0-23
	Days        []int     `json:"days"`  // day-of-week, 0=Sunday
	LastQueried time.Time `json:"lastQueried"`
}

// Established reports whether the pattern has enough data to drive a
// proactive suggestion.
func (p Pattern) Established() bool {
	return p.Count >= 2 && len(p.Times) >= 2
}

// PeakHour returns the most frequent hour in the sample window. Ties break
// toward the hour seen first in insertion order. ok is false with no samples.
func (p Pattern) PeakHour() (hour int, ok bool) {
	if len(p.Times) == 0 {
		return 0, false
	}
	counts := make(map[int]int, len(p.Times))
	best, bestCount := 0, 0
	for _, h := range p.Times {
		counts[h]++
		if counts[h] > bestCount {
			best, bestCount = h, counts[h]
		}
	}
	return best, true
}

// MeanHour returns the arithmetic mean of the sampled hours.
func (p Pattern) MeanHour() (float64, bool) {
	if len(p.Times) == 0 {
		return 0, false
	}
	sum := 0
	for _, h := range p.Times {
		sum += h
	}
	return float64(sum) / float64(len(p.Times)), true
}

// Store keeps the per-category pattern map in memory and persists the whole
// map as one blob after every mutation.
type Store struct {
	db       *store.Store
	patterns map[category.Category]*Pattern
}

func NewStore(db *store.Store) *Store {
	return &Store{db: db, patterns: make(map[category.Category]*Pattern)}
}

// Load reads the persisted map, drops entries with invalid keys or a count
// below 1, and rewrites the cleaned map. A blob that fails to parse is
// deleted and the store starts empty — losing data beats a crash loop.
func (s *Store) Load() error {
	blob, err := s.db.Get(store.KeyPatterns)
	if err != nil {
		return fmt.Errorf("loading patterns: %w", err)
	}
	if blob == nil {
		return nil
	}

	var raw map[category.Category]*Pattern
	if err := json.Unmarshal(blob, &raw); err != nil {
		log.Printf("patterns record corrupt, resetting: %v", err)
		if err := s.db.Delete(store.KeyPatterns); err != nil {
			return fmt.Errorf("deleting corrupt patterns: %w", err)
		}
		return nil
	}

	cleaned := make(map[category.Category]*Pattern, len(raw))
	for c, p := range raw {
		if !category.Valid(c) || p == nil || p.Count < 1 {
			continue
		}
		cleaned[c] = p
	}
	s.patterns = cleaned

	if len(cleaned) != len(raw) {
		return s.persist()
	}
	return nil
}

// Record registers one occurrence of a category at time t and persists.
// Non-valid categories (general) are ignored.
func (s *Store) Record(c category.Category, t time.Time) error {
	if !category.Valid(c) {
		return nil
	}
	p, ok := s.patterns[c]
	if !ok {
		p = &Pattern{}
		s.patterns[c] = p
	}
	p.Count++
	p.Times = append(p.Times, t.Hour())
	p.Days = append(p.Days, int(t.Weekday()))
	if len(p.Times) > maxSamples {
		p.Times = p.Times[len(p.Times)-maxSamples:]
		p.Days = p.Days[len(p.Days)-maxSamples:]
	}
	p.LastQueried = t
	return s.persist()
}

// Get returns a copy of the pattern for c.
func (s *Store) Get(c category.Category) (Pattern, bool) {
	p, ok := s.patterns[c]
	if !ok {
		return Pattern{}, false
	}
	return *p, true
}

// Counts returns the per-category occurrence counts, zero for categories
// never seen. Used to build the inference feature vector.
func (s *Store) Counts() map[category.Category]int {
	counts := make(map[category.Category]int, 5)
	for _, c := range category.All() {
		if p, ok := s.patterns[c]; ok {
			counts[c] = p.Count
		} else {
			counts[c] = 0
		}
	}
	return counts
}

// Each calls fn for every recorded category in classifier priority order,
// which keeps downstream scoring deterministic.
func (s *Store) Each(fn func(c category.Category, p Pattern)) {
	for _, c := range category.All() {
		if p, ok := s.patterns[c]; ok {
			fn(c, *p)
		}
	}
}

func (s *Store) persist() error {
	blob, err := json.Marshal(s.patterns)
	if err != nil {
		return fmt.Errorf("encoding patterns: %w", err)
	}
	if err := s.db.Put(store.KeyPatterns, blob); err != nil {
		return fmt.Errorf("persisting patterns: %w", err)
	}
	return nil
}
