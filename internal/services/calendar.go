package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nikhil/unapp/internal/cards"
	"github.com/nikhil/unapp/internal/category"
)

// ErrCalendarPermission means the user has not granted calendar access.
// Unlike a network failure it is not retried; the surface needs to show an
// explicit settings action instead.
var ErrCalendarPermission = errors.New("calendar permission not granted")

// CalendarSource is the read-only boundary to the device calendar. The host
// wires a platform implementation; the engine only consumes free slots.
type CalendarSource interface {
	NextFreeSlot(ctx context.Context, now time.Time) (time.Time, error)
}

// CalendarEnricher turns the next free slot into an enrichment card.
type CalendarEnricher struct {
	source CalendarSource
}

func NewCalendarEnricher(source CalendarSource) *CalendarEnricher {
	return &CalendarEnricher{source: source}
}

// Cards implements cards.Enricher. Only slots later today are worth a card.
// A permission error propagates so the caller can log it distinctly; the
// card is skipped either way.
func (c *CalendarEnricher) Cards(ctx context.Context, now time.Time) ([]cards.Card, error) {
	slot, err := c.source.NextFreeSlot(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("looking up free slot: %w", err)
	}
	if slot.Before(now) || slot.YearDay() != now.YearDay() || slot.Year() != now.Year() {
		return nil, nil
	}
	return []cards.Card{{
		ID:       "calendar-free-slot",
		Emoji:    category.Lookup(category.Calendar).Emoji,
		Title:    fmt.Sprintf("Free at %s", slot.Format("15:04")),
		Subtitle: "Gap in your schedule",
		Action:   category.Action(category.Calendar, true),
		Category: category.Calendar,
	}}, nil
}
