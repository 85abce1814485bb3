// Package engine wires the classifier, pattern store, card generator,
// prediction scorer, engagement tracker, and widget publisher into one
// event-driven loop. Every state transition runs to completion before the
// next event; re-evaluation is an explicit call, not a reactive side effect.
package engine

import (
	"context"
	"log"
	"time"

	"github.com/nikhil/unapp/internal/cards"
	"github.com/nikhil/unapp/internal/category"
	"github.com/nikhil/unapp/internal/engage"
	"github.com/nikhil/unapp/internal/pattern"
	"github.com/nikhil/unapp/internal/predict"
	"github.com/nikhil/unapp/internal/widget"
)

// minInferenceConfidence is the floor below which a model answer is ignored
// in favor of the heuristic.
const minInferenceConfidence = 0.5

// Evaluation is the result of one re-evaluation pass.
type Evaluation struct {
	Cards      []cards.Card
	Prediction category.Category // empty when nothing is predicted
	Confidence float64
}

type Engine struct {
	patterns  *pattern.Store
	tracker   *engage.Tracker
	publisher *widget.Publisher  // nil disables widget sync
	inference predict.Inference  // nil disables model delegation
	enrichers []cards.Enricher
	session   *Session

	// Now is the clock, swappable in tests.
	Now func() time.Time
}

func New(patterns *pattern.Store, tracker *engage.Tracker, publisher *widget.Publisher) *Engine {
	return &Engine{
		patterns:  patterns,
		tracker:   tracker,
		publisher: publisher,
		session:   NewSession(),
		Now:       time.Now,
	}
}

// SetInference plugs in the optional on-device model runner.
func (e *Engine) SetInference(inf predict.Inference) {
	e.inference = inf
}

// AddEnricher registers a live-status lookup for the enrichment pass.
func (e *Engine) AddEnricher(en cards.Enricher) {
	e.enrichers = append(e.enrichers, en)
}

func (e *Engine) Session() *Session {
	return e.session
}

func (e *Engine) Tracker() *engage.Tracker {
	return e.tracker
}

// Reevaluate runs the synchronous pass: generate cards, pick a prediction,
// remember it, and republish the widget snapshot.
func (e *Engine) Reevaluate(ctx context.Context) Evaluation {
	now := e.Now()
	cs := cards.Generate(now, e.patterns, e.session.Connected, e.session.Dismissed)
	eval := Evaluation{Cards: cs}

	if c, conf, ok := e.predict(ctx, now, cs); ok {
		eval.Prediction = c
		eval.Confidence = conf
		e.session.remembered = c
	} else {
		// No displayable prediction; nothing left to score a query against.
		e.session.remembered = ""
	}

	e.publish(now, eval)
	return eval
}

// Enrich runs the asynchronous enrichment pass on top of the latest
// synchronous evaluation and republishes. Enrichment only ever appends;
// anything that completed for a since-dismissed category is filtered at
// merge time.
func (e *Engine) Enrich(ctx context.Context, eval Evaluation) Evaluation {
	if len(e.enrichers) == 0 {
		return eval
	}
	now := e.Now()
	eval.Cards = cards.Enrich(ctx, now, eval.Cards, e.enrichers, e.session.Dismissed)
	e.publish(now, eval)
	return eval
}

// HandleQuery processes a typed query: classify, score any live prediction
// against it, record history and pattern, then re-evaluate.
func (e *Engine) HandleQuery(ctx context.Context, text string) (category.Category, Evaluation) {
	now := e.Now()
	cat := category.Classify(text)

	if remembered, ok := e.session.Remembered(); ok {
		if err := e.tracker.RecordPredictionOutcome(remembered, cat); err != nil {
			log.Printf("engine: recording prediction outcome: %v", err)
		}
		e.session.remembered = ""
	}

	if err := e.tracker.RecordQuery(text, cat, now); err != nil {
		log.Printf("engine: recording query: %v", err)
	}
	if category.Valid(cat) {
		if err := e.patterns.Record(cat, now); err != nil {
			log.Printf("engine: recording occurrence: %v", err)
		}
	}

	return cat, e.Reevaluate(ctx)
}

// HandleCardTap processes an accepted context-card suggestion: one tap
// saved, the live prediction (if any) scored against the tapped category,
// the occurrence recorded, and the category dismissed for the session.
func (e *Engine) HandleCardTap(ctx context.Context, cat category.Category) Evaluation {
	now := e.Now()

	if err := e.tracker.IncrementTapsSaved(); err != nil {
		log.Printf("engine: incrementing taps saved: %v", err)
	}
	if remembered, ok := e.session.Remembered(); ok {
		if err := e.tracker.RecordPredictionOutcome(remembered, cat); err != nil {
			log.Printf("engine: recording prediction outcome: %v", err)
		}
		e.session.remembered = ""
	}
	if err := e.patterns.Record(cat, now); err != nil {
		log.Printf("engine: recording occurrence: %v", err)
	}
	e.session.Dismiss(cat)

	return e.Reevaluate(ctx)
}

// HandlePredictionTap processes an accepted prediction. No-op when no
// prediction is live.
func (e *Engine) HandlePredictionTap(ctx context.Context) (Evaluation, bool) {
	cat, ok := e.session.Remembered()
	if !ok {
		return Evaluation{}, false
	}
	return e.HandleCardTap(ctx, cat), true
}

// Dismiss excludes a category for the rest of the session and re-evaluates.
func (e *Engine) Dismiss(ctx context.Context, cat category.Category) Evaluation {
	e.session.Dismiss(cat)
	return e.Reevaluate(ctx)
}

// predict picks the single best-guess category, preferring a confident
// model answer over the heuristic, and suppressing anything already covered
// by a card or dismissed.
func (e *Engine) predict(ctx context.Context, now time.Time, cs []cards.Card) (category.Category, float64, bool) {
	covered := make(map[category.Category]bool, len(cs))
	for _, c := range cs {
		covered[c.Category] = true
	}

	if e.inference != nil {
		feats := predict.Features(now, e.patterns.Counts())
		res, err := e.inference.Predict(ctx, feats)
		if err != nil {
			log.Printf("engine: inference unavailable, using heuristic: %v", err)
		} else if res.Prediction != "none" && res.Confidence >= minInferenceConfidence {
			cat := category.Category(res.Prediction)
			if category.Valid(cat) && !covered[cat] && !e.session.Dismissed[cat] {
				return cat, res.Confidence, true
			}
		}
	}

	p, ok := predict.Score(now, e.patterns)
	if !ok || covered[p.Category] || e.session.Dismissed[p.Category] {
		return "", 0, false
	}
	return p.Category, p.Confidence, true
}

func (e *Engine) publish(now time.Time, eval Evaluation) {
	if e.publisher == nil {
		return
	}
	e.publisher.Publish(widget.Build(now, string(eval.Prediction), eval.Confidence, eval.Cards))
}
