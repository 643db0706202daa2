package scoring

import (
	"testing"

	"github.com/shieldhq/shield/core/catalog"
)

// cappedStrategy reports a max score that can fall below the answer sum,
// as a catalog edited mid-run would.
type cappedStrategy struct {
	max float64
}

var _ Strategy = (*cappedStrategy)(nil)

func (s cappedStrategy) Path() catalog.Path { return catalog.PathStrategic }

func (s cappedStrategy) BasePoints(q catalog.Question, option string) (float64, error) {
	return q.Points[option], nil
}

func (s cappedStrategy) Weighted(base float64, q catalog.Question) float64 {
	return base * q.Weight
}

func (s cappedStrategy) MaxScore([]catalog.Question) float64 { return s.max }

func (s cappedStrategy) Thresholds() []Threshold { return DefaultThresholds() }

func Test_clamp(t *testing.T) {
	tests := []struct {
		name string
		val  float64
		want float64
	}{
		{name: "below min", val: -3, want: 0},
		{name: "min", val: 0, want: 0},
		{name: "in range", val: 87.5, want: 87.5},
		{name: "max", val: 100, want: 100},
		{name: "above max", val: 105, want: 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clamp(tt.val, 0, 100); got != tt.want {
				t.Errorf("clamp(%v) = %v, want %v", tt.val, got, tt.want)
			}
		})
	}
}

// An answer sum above the max score must still yield a percentage capped at 100.
func Test_compute_percentageCapped(t *testing.T) {
	svc := &Service{maxCache: make(map[catalog.Path]maxCacheEntry)}
	q := catalog.Question{
		ID:      1,
		Path:    catalog.PathStrategic,
		Options: []string{"Yes"},
		Points:  map[string]float64{"Yes": 20},
		Weight:  1,
	}
	sub := Submission{
		ID:      "sub1",
		Path:    catalog.PathStrategic,
		Answers: []Answer{{QuestionID: 1, Option: "Yes"}},
	}

	res, err := svc.compute(sub, []catalog.Question{q}, cappedStrategy{max: 10}, 1)
	if err != nil {
		t.Fatalf("compute() error = %v", err)
	}
	if res.RawScore != 20 {
		t.Errorf("RawScore = %v, want 20", res.RawScore)
	}
	if res.MaxScore != 10 {
		t.Errorf("MaxScore = %v, want 10", res.MaxScore)
	}
	if res.Percentage != 100 {
		t.Errorf("Percentage = %v, want 100", res.Percentage)
	}
	if res.Rank != RankDiamond {
		t.Errorf("Rank = %v, want %v", res.Rank, RankDiamond)
	}
}

// The max-score cache is keyed by the revision the question snapshot was
// loaded under: a cached value must not leak across revisions.
func Test_maxScoreFor_revisionCache(t *testing.T) {
	svc := &Service{maxCache: make(map[catalog.Path]maxCacheEntry)}
	strat := NewStrategy(catalog.PathStrategic, nil, nil)

	snapshot := []catalog.Question{{
		ID:      1,
		Path:    catalog.PathStrategic,
		Options: []string{"Yes"},
		Points:  map[string]float64{"Yes": 10},
		Weight:  1,
	}}
	edited := []catalog.Question{{
		ID:      1,
		Path:    catalog.PathStrategic,
		Options: []string{"Yes"},
		Points:  map[string]float64{"Yes": 10},
		Weight:  2,
	}}

	max, err := svc.maxScoreFor(strat, catalog.PathStrategic, snapshot, 1)
	if err != nil {
		t.Fatalf("maxScoreFor() error = %v", err)
	}
	if max != 10 {
		t.Errorf("maxScoreFor() = %v, want 10", max)
	}

	// same revision hits the cache regardless of the slice handed in
	max, err = svc.maxScoreFor(strat, catalog.PathStrategic, edited, 1)
	if err != nil {
		t.Fatalf("maxScoreFor() error = %v", err)
	}
	if max != 10 {
		t.Errorf("maxScoreFor() = %v, want cached 10", max)
	}

	// a bumped revision recomputes from the new snapshot
	max, err = svc.maxScoreFor(strat, catalog.PathStrategic, edited, 2)
	if err != nil {
		t.Fatalf("maxScoreFor() error = %v", err)
	}
	if max != 20 {
		t.Errorf("maxScoreFor() = %v, want 20", max)
	}
}
