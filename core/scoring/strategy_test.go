package scoring

import (
	"testing"

	"github.com/shieldhq/shield/core/catalog"
)

func strategicCatalog() []catalog.Question {
	return []catalog.Question{
		{
			ID:      1,
			Path:    catalog.PathStrategic,
			Options: []string{"A", "B"},
			Points:  map[string]float64{"A": 10, "B": 20},
			Weight:  2,
		},
		{
			ID:      2,
			Path:    catalog.PathStrategic,
			Options: []string{"A", "B"},
			Points:  map[string]float64{"A": 5, "B": 15},
			Weight:  1,
		},
	}
}

func TestLinearStrategy(t *testing.T) {
	strat := NewStrategy(catalog.PathStrategic, nil, nil)
	questions := strategicCatalog()

	// max = 20*2 + 15*1
	if max := strat.MaxScore(questions); max != 55 {
		t.Errorf("MaxScore() = %v, want 55", max)
	}

	tests := []struct {
		name   string
		q      catalog.Question
		option string
		want   float64
	}{
		{name: "best option weighted", q: questions[0], option: "B", want: 40},
		{name: "worst option weighted", q: questions[0], option: "A", want: 20},
		{name: "unit weight", q: questions[1], option: "B", want: 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, err := strat.BasePoints(tt.q, tt.option)
			if err != nil {
				t.Fatalf("BasePoints() error = %v", err)
			}
			if got := strat.Weighted(base, tt.q); got != tt.want {
				t.Errorf("Weighted() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLinearStrategy_unknownOption(t *testing.T) {
	strat := NewStrategy(catalog.PathOperational, nil, nil)
	q := strategicCatalog()[0]

	_, err := strat.BasePoints(q, "C")
	if err == nil {
		t.Fatal("BasePoints() expected error, got nil")
	}
	uerr, ok := err.(*UnknownOptionError)
	if !ok {
		t.Fatalf("BasePoints() error type = %T, want *UnknownOptionError", err)
	}
	if uerr.QuestionID != q.ID || uerr.Option != "C" {
		t.Errorf("UnknownOptionError = %+v", uerr)
	}
}

func TestHRStrategy(t *testing.T) {
	axes := []catalog.Axis{
		{ID: 1, Path: catalog.PathHR, Name: "Recruitment", Weight: 3},
		{ID: 2, Path: catalog.PathHR, Name: "Training", Weight: 1},
	}
	strat := NewStrategy(catalog.PathHR, axes, nil)

	q := catalog.Question{
		ID:      10,
		Path:    catalog.PathHR,
		AxisID:  1,
		Options: []string{"Yes", "No"},
		Points:  map[string]float64{"Yes": 100, "No": 0},
		Weight:  2,
	}

	// (100/100) * axis weight 3 * question weight 2
	base, err := strat.BasePoints(q, "Yes")
	if err != nil {
		t.Fatalf("BasePoints() error = %v", err)
	}
	if got := strat.Weighted(base, q); got != 6 {
		t.Errorf("Weighted() = %v, want 6", got)
	}

	if max := strat.MaxScore([]catalog.Question{q}); max != 6 {
		t.Errorf("MaxScore() = %v, want 6", max)
	}
}

// the single weighting formula guarantees that answering every question with
// its best option normalizes to exactly 100%.
func TestStrategy_maxAnswersNormalizeTo100(t *testing.T) {
	questions := strategicCatalog()
	strat := NewStrategy(catalog.PathStrategic, nil, nil)

	var sum float64
	for _, q := range questions {
		sum += strat.Weighted(q.MaxPoints(), q)
	}
	if max := strat.MaxScore(questions); sum/max*100 != 100 {
		t.Errorf("normalized best score = %v, want 100", sum/max*100)
	}
}

// a strictly better option can never lower the weighted contribution.
func TestStrategy_monotonicity(t *testing.T) {
	strat := NewStrategy(catalog.PathStrategic, nil, nil)
	q := strategicCatalog()[0]

	lo, _ := strat.BasePoints(q, "A")
	hi, _ := strat.BasePoints(q, "B")
	if strat.Weighted(hi, q) < strat.Weighted(lo, q) {
		t.Error("Weighted() decreased for a higher-point option")
	}
}
