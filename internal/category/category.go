// Package category holds the closed set of request categories the engine
// understands and everything keyed by them: classifier keywords, display
// metadata, action tokens, and scorer activity windows. Keeping it all in
// one table stops the classifier and the card generator from drifting apart.
package category

import "strings"

type Category string

const (
	Stocks   Category = "stocks"
	Food     Category = "food"
	Cab      Category = "cab"
	Calendar Category = "calendar"
	Cricket  Category = "cricket"

	// General is the classifier's sentinel for text that matches nothing.
	// It never gets a pattern, a card, or a prediction.
	General Category = "general"
)

// HourWindow is a closed range of hours [Start, End] a category is "active" in.
type HourWindow struct {
	Start, End int
}

func (w HourWindow) Contains(hour int) bool {
	return hour >= w.Start && hour <= w.End
}

type Meta struct {
	Emoji         string
	Label         string
	Keywords      []string
	OpenAction    string // action token when the service is connected
	ConnectAction string // action token when it still needs connecting
	Windows       []HourWindow
}

// priority is the classifier match order. First hit wins, so e.g. "order food
// to the office" is food even though "office" appears in calendar keywords.
var priority = []Category{Stocks, Food, Calendar, Cricket, Cab}

var metas = map[Category]Meta{
	Stocks: {
		Emoji:         "📈",
		Label:         "Stocks",
		Keywords:      []string{"stock", "nifty", "sensex", "portfolio", "market", "zerodha", "share"},
		OpenAction:    "check_stocks",
		ConnectAction: "connect_stocks",
		Windows:       []HourWindow{{9, 16}},
	},
	Food: {
		Emoji:         "🍕",
		Label:         "Food",
		Keywords:      []string{"pizza", "food", "order", "swiggy", "zomato", "hungry", "lunch", "dinner"},
		OpenAction:    "open_food",
		ConnectAction: "connect_food",
		Windows:       []HourWindow{{11, 14}, {19, 22}},
	},
	Calendar: {
		Emoji:         "📅",
		Label:         "Calendar",
		Keywords:      []string{"calendar", "meeting", "schedule", "event", "appointment", "free time"},
		OpenAction:    "check_calendar",
		ConnectAction: "connect_calendar",
		Windows:       []HourWindow{{8, 12}},
	},
	Cricket: {
		Emoji:         "🏏",
		Label:         "Cricket",
		Keywords:      []string{"score", "cricket", "match", "india", "ipl", "wicket"},
		OpenAction:    "check_cricket",
		ConnectAction: "check_cricket", // scores need no account
		Windows:       []HourWindow{{14, 23}},
	},
	Cab: {
		Emoji:         "🚕",
		Label:         "Cab",
		Keywords:      []string{"cab", "ride", "ola", "uber", "auto", "yatri", "commute"},
		OpenAction:    "open_cab",
		ConnectAction: "connect_cab",
		Windows:       []HourWindow{{8, 10}, {17, 20}},
	},
}

// All returns the five real categories in classifier priority order.
func All() []Category {
	out := make([]Category, len(priority))
	copy(out, priority)
	return out
}

// Valid reports whether c is one of the five real categories.
func Valid(c Category) bool {
	_, ok := metas[c]
	return ok
}

// Lookup returns the metadata for a category. The zero Meta for unknown keys.
func Lookup(c Category) Meta {
	return metas[c]
}

// Action returns the dispatch token for a category given its connection state.
func Action(c Category, connected bool) string {
	m := metas[c]
	if connected {
		return m.OpenAction
	}
	return m.ConnectAction
}

// InActivityWindow reports whether hour falls inside any of the category's
// activity windows.
func InActivityWindow(c Category, hour int) bool {
	for _, w := range metas[c].Windows {
		if w.Contains(hour) {
			return true
		}
	}
	return false
}

// Classify maps raw query text to a category by ordered substring matching.
// Deliberately coarse: a wrong match just feeds the wrong pattern bucket.
func Classify(text string) Category {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return General
	}
	for _, c := range priority {
		for _, kw := range metas[c].Keywords {
			if strings.Contains(lower, kw) {
				return c
			}
		}
	}
	return General
}

// Parse converts user-typed text like "stocks" into a valid category.
func Parse(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	return c, Valid(c)
}
