package engine

import "github.com/nikhil/unapp/internal/category"

// Session is the process-lifetime state: which categories the user already
// acted on or dismissed, which services are connected, and the currently
// remembered prediction. Built fresh on cold start, never persisted.
type Session struct {
	Dismissed map[category.Category]bool
	Connected map[category.Category]bool

	// remembered is the prediction currently on screen, kept so the next
	// typed query or tap can be scored against it. Empty means none.
	remembered category.Category
}

func NewSession() *Session {
	return &Session{
		Dismissed: make(map[category.Category]bool),
		Connected: make(map[category.Category]bool),
	}
}

// Dismiss excludes a category from all future card generations until the
// session is reset.
func (s *Session) Dismiss(c category.Category) {
	if category.Valid(c) {
		s.Dismissed[c] = true
	}
}

// Connect marks a third-party service as connected, which flips the action
// tokens its cards carry.
func (s *Session) Connect(c category.Category) {
	if category.Valid(c) {
		s.Connected[c] = true
	}
}

// Remembered returns the live prediction, if any.
func (s *Session) Remembered() (category.Category, bool) {
	return s.remembered, s.remembered != ""
}
