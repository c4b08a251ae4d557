package reputation

import "time"

// Decay parameters: scores lose 5% of their current value for every full
// 30-day period elapsed since the last update. The reference checkpoint is
// 1000 → 950 after exactly 30 days.
const (
	decayPeriod     = 30 * 24 * time.Hour
	decayPercentage = 5
)

// decayedScore returns the score after applying lazy decay for the elapsed
// interval, along with the number of whole periods consumed. Partial periods
// decay nothing and consume nothing, so repeated reads within one period are
// stable and decay is never applied twice for the same interval.
func decayedScore(score int64, elapsed time.Duration) (int64, int64) {
	if score <= 0 || elapsed < decayPeriod {
		return max(score, 0), 0
	}
	periods := int64(elapsed / decayPeriod)
	factor := 100 - decayPercentage*periods
	if factor <= 0 {
		return 0, periods
	}
	return score * factor / 100, periods
}
