package predict

import (
	"math"
	"time"

	"github.com/nikhil/unapp/internal/category"
)

// FeatureCount is the fixed length of the inference feature vector.
const FeatureCount = 13

// Features builds the 13-element vector the inference model was trained on:
// hour, weekday (Mon=0), weekend flag, minutes since midnight, cyclical
// sin/cos encodings of hour and weekday, then the five per-category counts
// in stocks/food/cab/calendar/cricket order.
func Features(now time.Time, counts map[category.Category]int) []float64 {
	hour := float64(now.Hour())
	// Go weekdays start at Sunday=0; the model wants Monday=0.
	weekday := float64((int(now.Weekday()) + 6) % 7)
	isWeekend := 0.0
	if weekday >= 5 {
		isWeekend = 1.0
	}
	minutes := hour*60 + float64(now.Minute())

	return []float64{
		hour,
		weekday,
		isWeekend,
		minutes,
		math.Sin(2 * math.Pi * hour / 24),
		math.Cos(2 * math.Pi * hour / 24),
		math.Sin(2 * math.Pi * weekday / 7),
		math.Cos(2 * math.Pi * weekday / 7),
		float64(counts[category.Stocks]),
		float64(counts[category.Food]),
		float64(counts[category.Cab]),
		float64(counts[category.Calendar]),
		float64(counts[category.Cricket]),
	}
}
