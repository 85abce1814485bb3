// Package predict picks the engine's single best-guess category for the
// current moment. The heuristic scorer always works; an optional on-device
// inference service can override it when it answers with enough confidence.
package predict

import (
	"math"
	"time"

	"github.com/nikhil/unapp/internal/category"
	"github.com/nikhil/unapp/internal/pattern"
)

const (
	windowBoost    = 1.5 // current hour inside the category's activity window
	proximityBoost = 1.2 // stocks/cricket within two hours of their mean hour
	minScore       = 1.0
)

// Prediction is the scorer's output. Confidence is in (0, 1).
type Prediction struct {
	Category   category.Category
	Confidence float64
}

// Score runs the heuristic over every established pattern and returns the
// best category, or ok=false when nothing clears the minimum score. Ties
// resolve by classifier priority order, which Each iterates in — the observed
// source relied on map iteration order here, so the deterministic order is a
// documented choice rather than preserved behavior.
func Score(now time.Time, patterns *pattern.Store) (Prediction, bool) {
	hour := now.Hour()

	var best Prediction
	bestScore := 0.0
	found := false
	patterns.Each(func(c category.Category, p pattern.Pattern) {
		if !p.Established() {
			return
		}
		score := float64(p.Count)
		if category.InActivityWindow(c, hour) {
			score *= windowBoost
		}
		if c == category.Stocks || c == category.Cricket {
			if mean, ok := p.MeanHour(); ok && math.Abs(mean-float64(hour)) <= 2 {
				score *= proximityBoost
			}
		}
		if score < minScore || score <= bestScore {
			return
		}
		best = Prediction{Category: c, Confidence: confidence(score)}
		bestScore = score
		found = true
	})
	return best, found
}

// confidence squashes an unbounded score into (0, 1).
func confidence(score float64) float64 {
	return score / (score + 5)
}
