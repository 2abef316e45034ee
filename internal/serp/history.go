package serp

import "sort"

// Trend classifies a rank movement against the most recent prior measurement.
type Trend string

// Trend values.
const (
	TrendNew    Trend = "new"
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// StableBand is the rank-change magnitude still considered stable. Tunable,
// not derived.
const StableBand = 2

// Comparison is the outcome of weighing a current rank against history.
type Comparison struct {
	Keyword      string `json:"keyword"`
	CurrentRank  int    `json:"current_rank"`
	PreviousRank int    `json:"previous_rank"`
	// RankChange is previousRank - currentRank: positive means the keyword
	// moved toward rank 1.
	RankChange int   `json:"rank_change"`
	Trend      Trend `json:"trend"`
}

// Compare classifies the trend for a keyword given its prior records. Prior
// records may arrive in any order; the most recently dated entry wins.
func Compare(keyword string, currentRank int, prior []PerformanceRecord) Comparison {
	if len(prior) == 0 {
		return Comparison{
			Keyword:     keyword,
			CurrentRank: currentRank,
			Trend:       TrendNew,
		}
	}

	sorted := make([]PerformanceRecord, len(prior))
	copy(sorted, prior)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date > sorted[j].Date
	})

	previousRank := sorted[0].Rank()
	change := previousRank - currentRank

	trend := TrendStable
	switch {
	case change > StableBand:
		trend = TrendUp
	case change < -StableBand:
		trend = TrendDown
	}

	return Comparison{
		Keyword:      keyword,
		CurrentRank:  currentRank,
		PreviousRank: previousRank,
		RankChange:   change,
		Trend:        trend,
	}
}
