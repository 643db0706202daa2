package scoring

import "sort"

// Rank is the tier label derived from the normalized percentage.
type Rank string

const (
	RankDiamond Rank = "diamond"
	RankGold    Rank = "gold"
	RankSilver  Rank = "silver"
	RankBronze  Rank = "bronze"
)

// Threshold maps a rank to its minimum (inclusive) percentage.
type Threshold struct {
	Rank Rank    `json:"rank"`
	Min  float64 `json:"min_percentage"`
}

// DefaultThresholds is the global rank table, ordered highest to lowest.
// Used for paths that define no override.
func DefaultThresholds() []Threshold {
	return []Threshold{
		{RankDiamond, 90},
		{RankGold, 75},
		{RankSilver, 60},
		{RankBronze, 0},
	}
}

// ResolveRank picks the first threshold whose minimum is <= pct.
// The table must be ordered highest to lowest; the last entry is the fallback.
func ResolveRank(pct float64, thresholds []Threshold) Rank {
	for _, th := range thresholds {
		if pct >= th.Min {
			return th.Rank
		}
	}
	if len(thresholds) > 0 {
		return thresholds[len(thresholds)-1].Rank
	}
	return RankBronze
}

// thresholdsFromOverride builds an ordered rank table from a config override
// ({rank: min}); unknown rank names are ignored. Returns nil when the override
// carries no usable entry.
func thresholdsFromOverride(override map[string]float64) []Threshold {
	if len(override) == 0 {
		return nil
	}
	table := make([]Threshold, 0, len(override))
	for name, min := range override {
		switch rank := Rank(name); rank {
		case RankDiamond, RankGold, RankSilver, RankBronze:
			table = append(table, Threshold{rank, min})
		}
	}
	if len(table) == 0 {
		return nil
	}
	sort.Slice(table, func(i, j int) bool { return table[i].Min > table[j].Min })
	return table
}
