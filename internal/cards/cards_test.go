package cards

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nikhil/unapp/internal/category"
	"github.com/nikhil/unapp/internal/pattern"
	"github.com/nikhil/unapp/internal/store"
)

func testPatterns(t *testing.T) *pattern.Store {
	t.Helper()
	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return pattern.NewStore(db)
}

// clock builds a wall-clock time on a known date with a given weekday.
func clock(t *testing.T, weekday time.Weekday, hour, minute int) time.Time {
	t.Helper()
	base := time.Date(2025, 6, 1, hour, minute, 0, 0, time.UTC) // a Sunday
	return base.AddDate(0, 0, int(weekday-base.Weekday()+7)%7)
}

func none() map[category.Category]bool { return map[category.Category]bool{} }

func categories(cs []Card) []category.Category {
	var out []category.Category
	for _, c := range cs {
		out = append(out, c.Category)
	}
	return out
}

func hasCategory(cs []Card, c category.Category) bool {
	for _, card := range cs {
		if card.Category == c {
			return true
		}
	}
	return false
}

func TestEmptyPatternsOnlyWindowRules(t *testing.T) {
	p := testPatterns(t)

	// Tuesday 10:00: market open + morning commute.
	got := Generate(clock(t, time.Tuesday, 10, 0), p, none(), none())
	if len(got) != 2 {
		t.Fatalf("expected 2 cards, got %v", categories(got))
	}
	if got[0].Category != category.Stocks || got[1].Category != category.Cab {
		t.Errorf("unexpected cards: %v", categories(got))
	}

	// Sunday 03:00: outside every window.
	got = Generate(clock(t, time.Sunday, 3, 0), p, none(), none())
	if len(got) != 0 {
		t.Errorf("expected no cards at 03:00 Sunday, got %v", categories(got))
	}
}

func TestWeekdayOnlyRulesSkipWeekends(t *testing.T) {
	p := testPatterns(t)

	got := Generate(clock(t, time.Saturday, 10, 0), p, none(), none())
	if hasCategory(got, category.Stocks) || hasCategory(got, category.Cab) {
		t.Errorf("weekday-only rules fired on Saturday: %v", categories(got))
	}

	// Lunch has no weekday constraint.
	got = Generate(clock(t, time.Saturday, 12, 0), p, none(), none())
	if !hasCategory(got, category.Food) {
		t.Errorf("lunch should fire on Saturday, got %v", categories(got))
	}
}

func TestCrossMidnightWindow(t *testing.T) {
	p := testPatterns(t)

	// 00:30 Tuesday falls inside the 19:00-01:30 US market window.
	got := Generate(clock(t, time.Tuesday, 0, 30), p, none(), none())
	if !hasCategory(got, category.Stocks) {
		t.Errorf("expected US market card at 00:30, got %v", categories(got))
	}

	// 02:00 is past the window's end.
	got = Generate(clock(t, time.Tuesday, 2, 0), p, none(), none())
	if hasCategory(got, category.Stocks) {
		t.Errorf("US market window should be closed at 02:00, got %v", categories(got))
	}
}

func TestOneCardPerCategory(t *testing.T) {
	p := testPatterns(t)

	// 19:30 Tuesday: US market (stocks), evening commute (cab), dinner (food)
	// all fire; dinner and evening commute overlap but claim different
	// categories. Add an established food pattern peaking now — it must be
	// suppressed by the dinner card's claim.
	now := clock(t, time.Tuesday, 19, 30)
	p.Record(category.Food, now.Add(-48*time.Hour))
	p.Record(category.Food, now.Add(-24*time.Hour))

	got := Generate(now, p, none(), none())
	seen := make(map[category.Category]int)
	for _, c := range got {
		seen[c.Category]++
	}
	for cat, n := range seen {
		if n > 1 {
			t.Errorf("category %s emitted %d cards", cat, n)
		}
	}
	if seen[category.Food] != 1 {
		t.Errorf("expected exactly one food card, got %d", seen[category.Food])
	}
}

func TestEarlierRuleClaimsCategory(t *testing.T) {
	p := testPatterns(t)

	// 19:30 weekday is inside the US market window only; at 15:00 both NSE
	// and nothing else overlap. Use a time where only NSE matches and check
	// the id, then one where the NSE rule has priority over nothing.
	got := Generate(clock(t, time.Tuesday, 10, 0), p, none(), none())
	for _, c := range got {
		if c.Category == category.Stocks && c.ID != "stocks-market-open" {
			t.Errorf("expected NSE rule to win, got %q", c.ID)
		}
	}
}

func TestPatternDerivedCard(t *testing.T) {
	p := testPatterns(t)
	now := clock(t, time.Sunday, 16, 0) // outside every time window

	// Cricket checked twice around 16:00 on previous days.
	p.Record(category.Cricket, now.Add(-48*time.Hour))
	p.Record(category.Cricket, now.Add(-24*time.Hour).Add(time.Hour))

	got := Generate(now, p, none(), none())
	if len(got) != 1 || got[0].Category != category.Cricket {
		t.Fatalf("expected one cricket pattern card, got %v", categories(got))
	}
	if got[0].ID != "pattern-cricket" {
		t.Errorf("card id = %q", got[0].ID)
	}
}

func TestNonEstablishedPatternEmitsNothing(t *testing.T) {
	p := testPatterns(t)
	now := clock(t, time.Sunday, 16, 0)

	p.Record(category.Cricket, now.Add(-24*time.Hour)) // count == 1

	got := Generate(now, p, none(), none())
	if hasCategory(got, category.Cricket) {
		t.Errorf("single occurrence must not produce a pattern card: %v", categories(got))
	}
}

func TestPeakHourMustBeNearCurrentHour(t *testing.T) {
	p := testPatterns(t)
	now := clock(t, time.Sunday, 16, 0)

	// Peak at 09:00, far from 16:00.
	p.Record(category.Calendar, clock(t, time.Friday, 9, 0))
	p.Record(category.Calendar, clock(t, time.Thursday, 9, 0))

	got := Generate(now, p, none(), none())
	if hasCategory(got, category.Calendar) {
		t.Errorf("peak hour 9 should not fire at 16: %v", categories(got))
	}
}

func TestDismissedCategoriesExcluded(t *testing.T) {
	p := testPatterns(t)
	now := clock(t, time.Tuesday, 12, 0) // lunch window

	dismissed := map[category.Category]bool{category.Food: true}
	got := Generate(now, p, none(), dismissed)
	if hasCategory(got, category.Food) {
		t.Errorf("dismissed food still emitted: %v", categories(got))
	}
}

func TestConnectionStateChangesAction(t *testing.T) {
	p := testPatterns(t)
	now := clock(t, time.Tuesday, 12, 0)

	foodAction := func(connected map[category.Category]bool) string {
		for _, c := range Generate(now, p, connected, none()) {
			if c.Category == category.Food {
				return c.Action
			}
		}
		return ""
	}

	if got := foodAction(none()); got != "connect_food" {
		t.Errorf("unconnected action = %q", got)
	}
	if got := foodAction(map[category.Category]bool{category.Food: true}); got != "open_food" {
		t.Errorf("connected action = %q", got)
	}
}

func TestMergeNeverReplacesAndFiltersStale(t *testing.T) {
	existing := []Card{{ID: "food-lunch", Category: category.Food}}
	extra := []Card{
		{ID: "cricket-live", Category: category.Cricket},
		{ID: "food-live", Category: category.Food},     // already claimed
		{ID: "cab-late", Category: category.Cab},       // dismissed meanwhile
		{ID: "cricket-dup", Category: category.Cricket}, // second for same category
	}
	dismissed := map[category.Category]bool{category.Cab: true}

	got := Merge(existing, extra, dismissed)
	if len(got) != 2 {
		t.Fatalf("expected 2 cards after merge, got %v", categories(got))
	}
	if got[0].ID != "food-lunch" || got[1].ID != "cricket-live" {
		t.Errorf("merge reordered or replaced cards: %v", got)
	}
}

type stubEnricher struct {
	cards []Card
	err   error
}

func (s stubEnricher) Cards(ctx context.Context, now time.Time) ([]Card, error) {
	return s.cards, s.err
}

func TestEnrichSwallowsFailures(t *testing.T) {
	existing := []Card{{ID: "food-lunch", Category: category.Food}}
	enrichers := []Enricher{
		stubEnricher{err: errors.New("network down")},
		stubEnricher{cards: []Card{{ID: "cricket-live", Category: category.Cricket}}},
	}

	got := Enrich(context.Background(), time.Now(), existing, enrichers, none())
	if len(got) != 2 || got[1].ID != "cricket-live" {
		t.Errorf("expected surviving enricher's card appended, got %v", got)
	}
}
