// Package widget projects a compact snapshot of the engine's state into the
// shared store for the always-visible home-screen surface, which reads it on
// its own schedule. One-way and fire-and-forget: a failed write or refresh
// signal is logged, never surfaced.
package widget

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/nikhil/unapp/internal/cards"
	"github.com/nikhil/unapp/internal/store"
)

// maxCards is how many cards fit on the widget surface.
const maxCards = 3

// SnapshotCard is the widget's view of a card — no id or category, the
// surface only renders and dispatches the action token.
type SnapshotCard struct {
	Emoji    string `json:"emoji"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Action   string `json:"action"`
}

type Snapshot struct {
	Prediction  string         `json:"prediction"` // category name or "none"
	Confidence  float64        `json:"confidence"`
	Greeting    string         `json:"greeting"`
	Cards       []SnapshotCard `json:"cards"`
	LastUpdated time.Time      `json:"lastUpdated"`
}

type Publisher struct {
	db         *store.Store
	webhookURL string // refresh signal for the surface; empty disables it
	http       *http.Client
}

func NewPublisher(db *store.Store, webhookURL string) *Publisher {
	return &Publisher{
		db:         db,
		webhookURL: webhookURL,
		http:       &http.Client{Timeout: 5 * time.Second},
	}
}

// Publish serializes the snapshot into the shared store and pokes the
// surface to refresh. Never returns an error — this path must not disturb
// the engine.
func (p *Publisher) Publish(snap Snapshot) {
	if len(snap.Cards) > maxCards {
		snap.Cards = snap.Cards[:maxCards]
	}
	blob, err := json.Marshal(snap)
	if err != nil {
		log.Printf("widget: encoding snapshot: %v", err)
		return
	}
	if err := p.db.Put(store.KeyWidget, blob); err != nil {
		log.Printf("widget: writing snapshot: %v", err)
		return
	}
	if p.webhookURL != "" {
		if err := p.signal(blob); err != nil {
			log.Printf("widget: refresh signal: %v", err)
		}
	}
}

// Last returns the most recently published snapshot, if any.
func (p *Publisher) Last() (Snapshot, bool) {
	blob, err := p.db.Get(store.KeyWidget)
	if err != nil || blob == nil {
		return Snapshot{}, false
	}
	var snap Snapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		return Snapshot{}, false
	}
	return snap, true
}

func (p *Publisher) signal(blob []byte) error {
	resp, err := p.http.Post(p.webhookURL, "application/json", bytes.NewReader(blob))
	if err != nil {
		return fmt.Errorf("posting refresh signal: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("refresh signal returned status %d", resp.StatusCode)
	}
	return nil
}

// Build assembles a snapshot from the current evaluation. prediction is the
// category name or empty for none.
func Build(now time.Time, prediction string, confidence float64, visible []cards.Card) Snapshot {
	if prediction == "" {
		prediction = "none"
		confidence = 0
	}
	snap := Snapshot{
		Prediction:  prediction,
		Confidence:  confidence,
		Greeting:    Greeting(now),
		LastUpdated: now,
	}
	for i, c := range visible {
		if i == maxCards {
			break
		}
		snap.Cards = append(snap.Cards, SnapshotCard{
			Emoji:    c.Emoji,
			Title:    c.Title,
			Subtitle: c.Subtitle,
			Action:   c.Action,
		})
	}
	return snap
}

// Greeting picks a time-of-day salutation for the surface header.
func Greeting(now time.Time) string {
	switch h := now.Hour(); {
	case h < 5:
		return "Up late?"
	case h < 12:
		return "Good morning"
	case h < 17:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}
