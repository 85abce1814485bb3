package predict

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
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

func clock(t *testing.T, weekday time.Weekday, hour int) time.Time {
	t.Helper()
	base := time.Date(2025, 6, 1, hour, 0, 0, 0, time.UTC) // a Sunday
	return base.AddDate(0, 0, int(weekday-base.Weekday()+7)%7)
}

func TestScoreStocksMorningScenario(t *testing.T) {
	p := testPatterns(t)
	// stocks: count 3, times [9, 9, 10].
	p.Record(category.Stocks, clock(t, time.Friday, 9))
	p.Record(category.Stocks, clock(t, time.Monday, 9))
	p.Record(category.Stocks, clock(t, time.Monday, 10))

	got, ok := Score(clock(t, time.Tuesday, 9), p)
	if !ok {
		t.Fatal("expected a prediction")
	}
	if got.Category != category.Stocks {
		t.Errorf("prediction = %s, want stocks", got.Category)
	}
	if got.Confidence <= 0 || got.Confidence >= 1 {
		t.Errorf("confidence out of range: %v", got.Confidence)
	}
}

func TestScoreEmptyPatterns(t *testing.T) {
	p := testPatterns(t)
	if _, ok := Score(clock(t, time.Tuesday, 9), p); ok {
		t.Error("empty pattern map must yield no prediction")
	}
}

func TestScoreSkipsNonEstablished(t *testing.T) {
	p := testPatterns(t)
	p.Record(category.Food, clock(t, time.Monday, 12)) // count == 1

	if _, ok := Score(clock(t, time.Tuesday, 12), p); ok {
		t.Error("non-established pattern must never be predicted")
	}
}

func TestScoreHighestWins(t *testing.T) {
	p := testPatterns(t)
	now := clock(t, time.Tuesday, 12)

	// Food inside its lunch window, used often.
	for i := 0; i < 5; i++ {
		p.Record(category.Food, clock(t, time.Monday, 12))
	}
	// Cab outside its windows, used less.
	p.Record(category.Cab, clock(t, time.Monday, 8))
	p.Record(category.Cab, clock(t, time.Friday, 8))

	got, ok := Score(now, p)
	if !ok || got.Category != category.Food {
		t.Errorf("prediction = %v ok=%v, want food", got.Category, ok)
	}
}

func TestScoreTieBreaksByPriorityOrder(t *testing.T) {
	p := testPatterns(t)
	// Identical histories for calendar and cab, both outside their activity
	// windows at 15:00 so both score exactly count=2.
	p.Record(category.Calendar, clock(t, time.Monday, 15))
	p.Record(category.Calendar, clock(t, time.Friday, 15))
	p.Record(category.Cab, clock(t, time.Monday, 15))
	p.Record(category.Cab, clock(t, time.Friday, 15))

	got, ok := Score(clock(t, time.Tuesday, 15), p)
	if !ok || got.Category != category.Calendar {
		t.Errorf("tie should break to calendar (priority order), got %v", got.Category)
	}
}

func TestFeaturesVector(t *testing.T) {
	// Tuesday 2025-06-03 09:30 UTC.
	now := time.Date(2025, 6, 3, 9, 30, 0, 0, time.UTC)
	counts := map[category.Category]int{
		category.Stocks:   3,
		category.Food:     1,
		category.Cab:      0,
		category.Calendar: 2,
		category.Cricket:  7,
	}

	f := Features(now, counts)
	if len(f) != FeatureCount {
		t.Fatalf("feature count = %d, want %d", len(f), FeatureCount)
	}
	if f[0] != 9 {
		t.Errorf("hour = %v", f[0])
	}
	if f[1] != 1 { // Tuesday, Monday=0
		t.Errorf("weekday = %v, want 1", f[1])
	}
	if f[2] != 0 {
		t.Errorf("weekend flag = %v", f[2])
	}
	if f[3] != 9*60+30 {
		t.Errorf("minutes since midnight = %v", f[3])
	}
	if math.Abs(f[4]-math.Sin(2*math.Pi*9/24)) > 1e-9 {
		t.Errorf("hour sin = %v", f[4])
	}
	if f[8] != 3 || f[9] != 1 || f[10] != 0 || f[11] != 2 || f[12] != 7 {
		t.Errorf("count tail = %v", f[8:])
	}

	// Saturday flips the weekend flag.
	sat := Features(time.Date(2025, 6, 7, 9, 0, 0, 0, time.UTC), counts)
	if sat[2] != 1 {
		t.Errorf("Saturday weekend flag = %v", sat[2])
	}
}

func TestHTTPInference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Features []float64 `json:"features"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Features) != FeatureCount {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(InferenceResult{
			Prediction: "stocks",
			Confidence: 0.82,
			AllScores:  map[string]float64{"stocks": 0.82, "none": 0.1},
		})
	}))
	defer srv.Close()

	client := NewHTTPInference(srv.URL)
	res, err := client.Predict(context.Background(), make([]float64, FeatureCount))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if res.Prediction != "stocks" || res.Confidence != 0.82 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestHTTPInferenceRejectsBadVectorLength(t *testing.T) {
	client := NewHTTPInference("http://localhost:0")
	if _, err := client.Predict(context.Background(), []float64{1, 2}); err == nil {
		t.Error("expected error for short feature vector")
	}
}

func TestHTTPInferenceServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewHTTPInference(srv.URL)
	if _, err := client.Predict(context.Background(), make([]float64, FeatureCount)); err == nil {
		t.Error("expected error from 500 response")
	}
}
