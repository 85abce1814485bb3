package insight

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nikhil/unapp/internal/category"
	"github.com/nikhil/unapp/internal/pattern"
	"github.com/nikhil/unapp/internal/store"
)

type stubClient struct {
	reply  string
	err    error
	prompt string
}

func (s *stubClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	s.prompt = prompt
	return s.reply, s.err
}

func fixtures(t *testing.T) (*store.Store, *pattern.Store) {
	t.Helper()
	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	p := pattern.NewStore(db)
	now := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)
	p.Record(category.Stocks, now)
	p.Record(category.Stocks, now.Add(24*time.Hour))
	return db, p
}

func TestGenerateStoresInsight(t *testing.T) {
	db, p := fixtures(t)
	client := &stubClient{reply: "  You check stocks most mornings.  "}
	g := NewGenerator(client, db)

	got, err := g.Generate(context.Background(), p, 3)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "You check stocks most mornings." {
		t.Errorf("insight = %q", got)
	}
	if g.Last() != got {
		t.Errorf("Last() = %q, want stored insight", g.Last())
	}
	if !strings.Contains(client.prompt, "stocks: 2 times") {
		t.Errorf("prompt missing usage summary: %q", client.prompt)
	}
	if !strings.Contains(client.prompt, "streak: 3") {
		t.Errorf("prompt missing streak: %q", client.prompt)
	}
}

func TestGenerateFailureLeavesPreviousInsight(t *testing.T) {
	db, p := fixtures(t)
	db.Put(store.KeyInsight, []byte("old insight"))

	g := NewGenerator(&stubClient{err: errors.New("api down")}, db)
	if _, err := g.Generate(context.Background(), p, 1); err == nil {
		t.Fatal("expected error")
	}
	if g.Last() != "old insight" {
		t.Errorf("previous insight should survive failure, got %q", g.Last())
	}
}

func TestGenerateNilClient(t *testing.T) {
	db, p := fixtures(t)
	g := NewGenerator(nil, db)
	if _, err := g.Generate(context.Background(), p, 0); err == nil {
		t.Error("expected error with no client")
	}
}

func TestLastEmpty(t *testing.T) {
	db, _ := fixtures(t)
	g := NewGenerator(nil, db)
	// fixtures stored patterns but no insight record.
	db.Delete(store.KeyInsight)
	if g.Last() != "" {
		t.Errorf("Last() on empty store = %q", g.Last())
	}
}
