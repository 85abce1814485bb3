// Package engage tracks how well the proactive layer is doing: prediction
// accuracy, a taps-saved counter, and a day-based usage streak computed from
// the query history. Each counter is its own durable record.
package engage

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nikhil/unapp/internal/category"
	"github.com/nikhil/unapp/internal/store"
)

// maxHistory bounds the query history used for streak computation.
const maxHistory = 50

// maxStreakDays caps the backward walk when computing the streak.
const maxStreakDays = 30

type Accuracy struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// Ratio returns correct/total, or 0 with no data.
func (a Accuracy) Ratio() float64 {
	if a.Total == 0 {
		return 0
	}
	return float64(a.Correct) / float64(a.Total)
}

type HistoryEntry struct {
	Query     string            `json:"query"`
	Type      category.Category `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
}

type Tracker struct {
	db        *store.Store
	accuracy  Accuracy
	tapsSaved int
	history   []HistoryEntry // most recent first
}

func NewTracker(db *store.Store) *Tracker {
	return &Tracker{db: db}
}

// Load reads the three records. A corrupt record resets to its zero value
// and is deleted; the others are unaffected.
func (t *Tracker) Load() error {
	if blob, err := t.db.Get(store.KeyAccuracy); err != nil {
		return fmt.Errorf("loading accuracy: %w", err)
	} else if blob != nil {
		if err := json.Unmarshal(blob, &t.accuracy); err != nil {
			log.Printf("accuracy record corrupt, resetting: %v", err)
			t.accuracy = Accuracy{}
			_ = t.db.Delete(store.KeyAccuracy)
		}
	}

	if blob, err := t.db.Get(store.KeyTapsSaved); err != nil {
		return fmt.Errorf("loading taps saved: %w", err)
	} else if blob != nil {
		if err := json.Unmarshal(blob, &t.tapsSaved); err != nil {
			log.Printf("taps-saved record corrupt, resetting: %v", err)
			t.tapsSaved = 0
			_ = t.db.Delete(store.KeyTapsSaved)
		}
	}

	if blob, err := t.db.Get(store.KeyHistory); err != nil {
		return fmt.Errorf("loading history: %w", err)
	} else if blob != nil {
		if err := json.Unmarshal(blob, &t.history); err != nil {
			log.Printf("history record corrupt, resetting: %v", err)
			t.history = nil
			_ = t.db.Delete(store.KeyHistory)
		}
	}
	return nil
}

// RecordPredictionOutcome scores a shown prediction against what the user
// actually did. Callers must only invoke this while a prediction is live.
func (t *Tracker) RecordPredictionOutcome(predicted, actual category.Category) error {
	t.accuracy.Total++
	if predicted == actual {
		t.accuracy.Correct++
	}
	blob, _ := json.Marshal(t.accuracy)
	if err := t.db.Put(store.KeyAccuracy, blob); err != nil {
		return fmt.Errorf("persisting accuracy: %w", err)
	}
	return nil
}

func (t *Tracker) Accuracy() Accuracy {
	return t.accuracy
}

// IncrementTapsSaved bumps the counter for one accepted proactive
// suggestion. Typed queries never come through here.
func (t *Tracker) IncrementTapsSaved() error {
	t.tapsSaved++
	blob, _ := json.Marshal(t.tapsSaved)
	if err := t.db.Put(store.KeyTapsSaved, blob); err != nil {
		return fmt.Errorf("persisting taps saved: %w", err)
	}
	return nil
}

func (t *Tracker) TapsSaved() int {
	return t.tapsSaved
}

// RecordQuery prepends an entry to the bounded history.
func (t *Tracker) RecordQuery(query string, c category.Category, at time.Time) error {
	t.history = append([]HistoryEntry{{Query: query, Type: c, Timestamp: at}}, t.history...)
	if len(t.history) > maxHistory {
		t.history = t.history[:maxHistory]
	}
	blob, _ := json.Marshal(t.history)
	if err := t.db.Put(store.KeyHistory, blob); err != nil {
		return fmt.Errorf("persisting history: %w", err)
	}
	return nil
}

func (t *Tracker) History() []HistoryEntry {
	out := make([]HistoryEntry, len(t.history))
	copy(out, t.history)
	return out
}

// Streak counts consecutive calendar days with at least one query, walking
// backward from today. A day with no entries yet (today) starts the walk at
// yesterday without breaking the chain. Stops at the first gap or after 30
// days.
func (t *Tracker) Streak(now time.Time) int {
	days := make(map[string]bool, len(t.history))
	for _, e := range t.history {
		days[dayKey(e.Timestamp)] = true
	}

	day := now
	if !days[dayKey(day)] {
		day = day.AddDate(0, 0, -1)
	}

	streak := 0
	for streak < maxStreakDays && days[dayKey(day)] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
