package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/nikhil/unapp/config"
	"github.com/nikhil/unapp/internal/cards"
	"github.com/nikhil/unapp/internal/category"
	"github.com/nikhil/unapp/internal/engage"
	"github.com/nikhil/unapp/internal/engine"
	"github.com/nikhil/unapp/internal/insight"
	"github.com/nikhil/unapp/internal/pattern"
	"github.com/nikhil/unapp/internal/predict"
	"github.com/nikhil/unapp/internal/scheduler"
	"github.com/nikhil/unapp/internal/service"
	"github.com/nikhil/unapp/internal/services"
	"github.com/nikhil/unapp/internal/store"
	"github.com/nikhil/unapp/internal/widget"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "install":
			fatalOnErr(service.Install())
			return
		case "uninstall":
			fatalOnErr(service.Uninstall())
			return
		case "start":
			fatalOnErr(service.Start())
			return
		case "stop":
			fatalOnErr(service.Stop())
			return
		case "restart":
			fatalOnErr(service.Restart())
			return
		case "status":
			fatalOnErr(service.Status())
			return
		case "logs":
			fatalOnErr(service.Logs())
			return
		case "run":
			// falls through to the engine below
		default:
			fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
			os.Exit(1)
		}
	}

	cfg := config.Load()

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer db.Close()

	patterns := pattern.NewStore(db)
	if err := patterns.Load(); err != nil {
		log.Fatalf("failed to load patterns: %v", err)
	}
	tracker := engage.NewTracker(db)
	if err := tracker.Load(); err != nil {
		log.Fatalf("failed to load engagement records: %v", err)
	}

	eng := engine.New(patterns, tracker, widget.NewPublisher(db, cfg.WidgetWebhook))
	if cfg.InferenceURL != "" {
		eng.SetInference(predict.NewHTTPInference(cfg.InferenceURL))
	}
	if cfg.CricketAPIKey != "" {
		eng.AddEnricher(services.NewCricketClient(cfg.CricketAPIURL, cfg.CricketAPIKey))
	}

	insights := buildInsights(cfg, db)

	sched := scheduler.New(eng, patterns, insights)
	sched.Start(cfg.SyncCron, cfg.InsightCron)
	defer sched.Stop()

	// Seed the widget on startup so the surface never shows stale state
	// from a previous run.
	eval := eng.Reevaluate(context.Background())
	eval = eng.Enrich(context.Background(), eval)

	if headless() {
		log.Println("running headless. Press Ctrl+C to exit.")
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Println("shutting down.")
		return
	}

	runREPL(eng, patterns, insights, eval)
}

func headless() bool {
	for _, a := range os.Args[1:] {
		if a == "--headless" {
			return true
		}
	}
	return false
}

func buildInsights(cfg *config.Config, db *store.Store) *insight.Generator {
	apiKey := cfg.AnthropicKey
	if cfg.LLMProvider == "openai" {
		apiKey = cfg.OpenAIKey
	}
	if apiKey == "" && cfg.LLMProvider != "ollama" {
		return insight.NewGenerator(nil, db) // Last() still works without a client
	}
	client, err := insight.NewClient(insight.ProviderConfig{
		Provider: cfg.LLMProvider,
		APIKey:   apiKey,
		Model:    cfg.LLMModel,
		BaseURL:  cfg.OllamaBaseURL,
	})
	if err != nil {
		log.Printf("insight client disabled: %v", err)
		return insight.NewGenerator(nil, db)
	}
	return insight.NewGenerator(client, db)
}

func runREPL(eng *engine.Engine, patterns *pattern.Store, insights *insight.Generator, eval engine.Evaluation) {
	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)

	// Check if stdin is a pipe (non-interactive)
	stat, _ := os.Stdin.Stat()
	isPipe := (stat.Mode() & os.ModeCharDevice) == 0

	printEval(eval)
	if !isPipe {
		fmt.Print("unapp> ")
	}

	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			if !isPipe {
				fmt.Print("unapp> ")
			}
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		eval = dispatch(ctx, eng, patterns, insights, input)

		if isPipe {
			break // single exchange in pipe mode
		}
		fmt.Print("unapp> ")
	}
}

func dispatch(ctx context.Context, eng *engine.Engine, patterns *pattern.Store, insights *insight.Generator, input string) engine.Evaluation {
	fields := strings.Fields(input)
	cmd := fields[0]

	switch cmd {
	case "cards":
		eval := eng.Reevaluate(ctx)
		eval = eng.Enrich(ctx, eval)
		printEval(eval)
		return eval

	case "dismiss":
		if len(fields) < 2 {
			fmt.Println("usage: dismiss <category>")
			return eng.Reevaluate(ctx)
		}
		cat, ok := category.Parse(fields[1])
		if !ok {
			fmt.Printf("unknown category %q\n", fields[1])
			return eng.Reevaluate(ctx)
		}
		eval := eng.Dismiss(ctx, cat)
		printEval(eval)
		return eval

	case "tap":
		if len(fields) < 2 {
			fmt.Println("usage: tap <category>")
			return eng.Reevaluate(ctx)
		}
		cat, ok := category.Parse(fields[1])
		if !ok {
			fmt.Printf("unknown category %q\n", fields[1])
			return eng.Reevaluate(ctx)
		}
		eval := eng.HandleCardTap(ctx, cat)
		fmt.Printf("dispatching %s\n", category.Action(cat, eng.Session().Connected[cat]))
		printEval(eval)
		return eval

	case "predict":
		eval, ok := eng.HandlePredictionTap(ctx)
		if !ok {
			fmt.Println("no prediction right now")
			return eng.Reevaluate(ctx)
		}
		printEval(eval)
		return eval

	case "connect":
		if len(fields) < 2 {
			fmt.Println("usage: connect <category>")
			return eng.Reevaluate(ctx)
		}
		cat, ok := category.Parse(fields[1])
		if !ok {
			fmt.Printf("unknown category %q\n", fields[1])
			return eng.Reevaluate(ctx)
		}
		eng.Session().Connect(cat)
		fmt.Printf("%s connected\n", category.Lookup(cat).Label)
		eval := eng.Reevaluate(ctx)
		printEval(eval)
		return eval

	case "stats":
		printStats(eng, patterns, insights)
		return eng.Reevaluate(ctx)

	case "insight":
		streak := eng.Tracker().Streak(time.Now())
		text, err := insights.Generate(ctx, patterns, streak)
		if err != nil {
			if last := insights.Last(); last != "" {
				fmt.Println(last)
			} else {
				fmt.Printf("no insight available: %v\n", err)
			}
			return eng.Reevaluate(ctx)
		}
		fmt.Println(text)
		return eng.Reevaluate(ctx)

	default:
		cat, eval := eng.HandleQuery(ctx, input)
		if category.Valid(cat) {
			meta := category.Lookup(cat)
			fmt.Printf("%s %s — dispatching %s\n", meta.Emoji, meta.Label,
				category.Action(cat, eng.Session().Connected[cat]))
		} else {
			fmt.Println("🤔 I'm learning! Try asking about scores, stocks, food, or rides.")
		}
		printEval(eval)
		return eval
	}
}

func printEval(eval engine.Evaluation) {
	if len(eval.Cards) > 0 {
		fmt.Println("suggestions:")
		for _, c := range eval.Cards {
			printCard(c)
		}
	}
	if eval.Prediction != "" {
		meta := category.Lookup(eval.Prediction)
		fmt.Printf("best guess: %s %s (%.0f%%) — type \"predict\" to accept\n",
			meta.Emoji, meta.Label, eval.Confidence*100)
	}
}

func printCard(c cards.Card) {
	fmt.Printf("  %s %s — %s\n", c.Emoji, c.Title, c.Subtitle)
}

func printStats(eng *engine.Engine, patterns *pattern.Store, insights *insight.Generator) {
	tr := eng.Tracker()
	a := tr.Accuracy()
	if a.Total > 0 {
		fmt.Printf("prediction accuracy: %d/%d (%.0f%%)\n", a.Correct, a.Total, a.Ratio()*100)
	} else {
		fmt.Println("prediction accuracy: no predictions scored yet")
	}
	fmt.Printf("taps saved: %d\n", tr.TapsSaved())
	fmt.Printf("streak: %d day(s)\n", tr.Streak(time.Now()))

	patterns.Each(func(c category.Category, p pattern.Pattern) {
		meta := category.Lookup(c)
		fmt.Printf("%s %s: %d times, last %s\n", meta.Emoji, meta.Label, p.Count,
			humanize.Time(p.LastQueried))
	})

	if last := insights.Last(); last != "" {
		fmt.Printf("insight: %s\n", last)
	}
}

func fatalOnErr(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
