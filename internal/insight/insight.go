// Package insight generates a short weekly summary of the user's usage
// patterns via a text-generation model. Strictly an enrichment: every
// failure leaves the previous insight (or nothing) in place.
package insight

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nikhil/unapp/internal/category"
	"github.com/nikhil/unapp/internal/pattern"
	"github.com/nikhil/unapp/internal/store"
)

const systemPrompt = `You write one-line insights about a user's app usage habits.
Given their per-category usage counts and streak, produce a single friendly,
specific observation under 140 characters. No emoji, no preamble, no quotes.`

type Generator struct {
	client Client
	db     *store.Store
}

func NewGenerator(client Client, db *store.Store) *Generator {
	return &Generator{client: client, db: db}
}

// Generate builds a usage summary prompt, asks the model, and stores the
// result under the weekly-insight record. Returns the new insight.
func (g *Generator) Generate(ctx context.Context, patterns *pattern.Store, streak int) (string, error) {
	if g.client == nil {
		return "", fmt.Errorf("no insight client configured")
	}

	prompt := buildPrompt(patterns, streak)
	text, err := g.client.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("generating insight: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("generating insight: empty response")
	}

	if err := g.db.Put(store.KeyInsight, []byte(text)); err != nil {
		return "", fmt.Errorf("storing insight: %w", err)
	}
	return text, nil
}

// Last returns the most recently stored insight, or "" if none exists.
func (g *Generator) Last() string {
	blob, err := g.db.Get(store.KeyInsight)
	if err != nil || blob == nil {
		return ""
	}
	return string(blob)
}

func buildPrompt(patterns *pattern.Store, streak int) string {
	var b strings.Builder
	b.WriteString("Usage over the sampled window:\n")
	patterns.Each(func(c category.Category, p pattern.Pattern) {
		peak, ok := p.PeakHour()
		if ok {
			fmt.Fprintf(&b, "- %s: %d times, usually around %02d:00, last %s\n",
				c, p.Count, peak, p.LastQueried.Format(time.Kitchen))
		} else {
			fmt.Fprintf(&b, "- %s: %d times\n", c, p.Count)
		}
	})
	fmt.Fprintf(&b, "Current streak: %d day(s).\n", streak)
	return b.String()
}
