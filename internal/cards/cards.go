// Package cards generates the proactive suggestion cards: a fixed ordered
// list of time-window rules, then pattern-derived rules for whatever those
// left unclaimed, then asynchronous enrichment appended at merge time.
// Cards are ephemeral — regenerated fresh on every re-evaluation, never stored.
package cards

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nikhil/unapp/internal/category"
	"github.com/nikhil/unapp/internal/pattern"
)

type Card struct {
	ID       string            `json:"id"`
	Emoji    string            `json:"emoji"`
	Title    string            `json:"title"`
	Subtitle string            `json:"subtitle"`
	Action   string            `json:"action"`
	Category category.Category `json:"category"`
}

// Enricher is an external live-status lookup that contributes extra cards
// after the synchronous pass. Failures mean no cards, never a visible error.
type Enricher interface {
	Cards(ctx context.Context, now time.Time) ([]Card, error)
}

// windowRule is a closed interval of minutes-since-midnight. End may exceed
// 1440 for windows that cross midnight; a current time earlier than Start is
// shifted forward a day before comparing.
type windowRule struct {
	id           string
	cat          category.Category
	start, end   int // minutes since midnight
	weekdaysOnly bool
	title        func(connected bool) (title, subtitle string)
}

const minutesPerDay = 24 * 60

func (r windowRule) matches(now time.Time) bool {
	wd := now.Weekday()
	if r.weekdaysOnly && (wd == time.Saturday || wd == time.Sunday) {
		return false
	}
	m := now.Hour()*60 + now.Minute()
	if r.end > minutesPerDay && m < r.start {
		m += minutesPerDay
	}
	return m >= r.start && m <= r.end
}

// rules is the fixed priority order. The first rule to claim a category
// suppresses every later rule for that category.
var rules = []windowRule{
	{
		id: "stocks-market-open", cat: category.Stocks,
		start: 9*60 + 15, end: 15*60 + 30, weekdaysOnly: true,
		title: func(connected bool) (string, string) {
			if connected {
				return "Markets are open", "Check your portfolio"
			}
			return "Markets are open", "Connect Zerodha to track"
		},
	},
	{
		id: "stocks-us-market", cat: category.Stocks,
		start: 19 * 60, end: 25*60 + 30, weekdaysOnly: true, // 19:00-01:30 IST
		title: func(connected bool) (string, string) {
			if connected {
				return "US markets trading", "Check overnight moves"
			}
			return "US markets trading", "Connect a broker to track"
		},
	},
	{
		id: "cab-morning-commute", cat: category.Cab,
		start: 8 * 60, end: 10 * 60, weekdaysOnly: true,
		title: func(connected bool) (string, string) {
			if connected {
				return "Heading to work?", "Book your usual ride"
			}
			return "Heading to work?", "Connect a ride service"
		},
	},
	{
		id: "food-lunch", cat: category.Food,
		start: 11*60 + 30, end: 14 * 60,
		title: func(connected bool) (string, string) {
			if connected {
				return "Lunch time", "Reorder your usual?"
			}
			return "Lunch time", "Connect Swiggy to order"
		},
	},
	{
		id: "cab-evening-commute", cat: category.Cab,
		start: 17*60 + 30, end: 20 * 60, weekdaysOnly: true,
		title: func(connected bool) (string, string) {
			if connected {
				return "Heading home?", "Book your ride back"
			}
			return "Heading home?", "Connect a ride service"
		},
	},
	{
		id: "food-dinner", cat: category.Food,
		start: 19 * 60, end: 21*60 + 30,
		title: func(connected bool) (string, string) {
			if connected {
				return "Dinner time", "Order something in?"
			}
			return "Dinner time", "Connect Swiggy to order"
		},
	},
}

// Generate runs the synchronous pass: time-window rules in fixed order, then
// pattern-derived cards for unclaimed established categories whose peak hour
// is within one hour of now. Dismissed categories never appear; at most one
// card per category.
func Generate(now time.Time, patterns *pattern.Store, connected, dismissed map[category.Category]bool) []Card {
	var out []Card
	claimed := make(map[category.Category]bool)

	for _, r := range rules {
		if claimed[r.cat] || dismissed[r.cat] {
			continue
		}
		if !r.matches(now) {
			continue
		}
		title, subtitle := r.title(connected[r.cat])
		out = append(out, Card{
			ID:       r.id,
			Emoji:    category.Lookup(r.cat).Emoji,
			Title:    title,
			Subtitle: subtitle,
			Action:   category.Action(r.cat, connected[r.cat]),
			Category: r.cat,
		})
		claimed[r.cat] = true
	}

	hour := now.Hour()
	patterns.Each(func(c category.Category, p pattern.Pattern) {
		if claimed[c] || dismissed[c] || !p.Established() {
			return
		}
		peak, ok := p.PeakHour()
		if !ok || absInt(peak-hour) > 1 {
			return
		}
		meta := category.Lookup(c)
		out = append(out, Card{
			ID:       fmt.Sprintf("pattern-%s", c),
			Emoji:    meta.Emoji,
			Title:    fmt.Sprintf("%s time?", meta.Label),
			Subtitle: fmt.Sprintf("You usually check around %02d:00", peak),
			Action:   category.Action(c, connected[c]),
			Category: c,
		})
		claimed[c] = true
	})

	return out
}

// Merge appends enrichment cards to an existing list without ever replacing
// earlier cards. Enrichment that completed after its category was claimed or
// dismissed is filtered here rather than cancelled in flight.
func Merge(existing, extra []Card, dismissed map[category.Category]bool) []Card {
	claimed := make(map[category.Category]bool, len(existing))
	for _, c := range existing {
		claimed[c.Category] = true
	}
	out := existing
	for _, c := range extra {
		if claimed[c.Category] || dismissed[c.Category] {
			continue
		}
		out = append(out, c)
		claimed[c.Category] = true
	}
	return out
}

// Enrich runs every enricher and merges whatever they produce. Individual
// failures are skipped — live-status lookups are best-effort.
func Enrich(ctx context.Context, now time.Time, existing []Card, enrichers []Enricher, dismissed map[category.Category]bool) []Card {
	out := existing
	for _, e := range enrichers {
		extra, err := e.Cards(ctx, now)
		if err != nil {
			log.Printf("enrichment skipped: %v", err)
			continue
		}
		out = Merge(out, extra, dismissed)
	}
	return out
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
