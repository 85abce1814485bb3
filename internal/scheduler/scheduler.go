// Package scheduler drives the engine's periodic work: re-evaluating
// suggestions so the widget snapshot stays fresh, and the weekly insight.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nikhil/unapp/internal/engine"
	"github.com/nikhil/unapp/internal/insight"
	"github.com/nikhil/unapp/internal/pattern"
)

type Scheduler struct {
	cron     *cron.Cron
	engine   *engine.Engine
	patterns *pattern.Store
	insights *insight.Generator // nil disables the insight schedule
}

func New(eng *engine.Engine, patterns *pattern.Store, insights *insight.Generator) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		engine:   eng,
		patterns: patterns,
		insights: insights,
	}
}

// Start registers the cron entries and begins running them. Invalid cron
// expressions are logged and skipped; the engine's manual path stays usable.
func (s *Scheduler) Start(syncCron, insightCron string) {
	if _, err := s.cron.AddFunc(syncCron, s.runSync); err != nil {
		log.Printf("scheduler: invalid sync cron %q: %v", syncCron, err)
	}
	if s.insights != nil && insightCron != "" {
		if _, err := s.cron.AddFunc(insightCron, s.runInsight); err != nil {
			log.Printf("scheduler: invalid insight cron %q: %v", insightCron, err)
		}
	}
	s.cron.Start()
	log.Println("scheduler started")
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) runSync() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	eval := s.engine.Reevaluate(ctx)
	eval = s.engine.Enrich(ctx, eval)
	log.Printf("scheduler: sync complete, %d card(s), prediction %q", len(eval.Cards), eval.Prediction)
}

func (s *Scheduler) runInsight() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	streak := s.engine.Tracker().Streak(time.Now())
	text, err := s.insights.Generate(ctx, s.patterns, streak)
	if err != nil {
		log.Printf("scheduler: weekly insight: %v", err)
		return
	}
	log.Printf("scheduler: weekly insight refreshed: %s", text)
}
