package scoring

import "github.com/shieldhq/shield/core/catalog"

// Strategy computes weighted points for one certification path.
//
// MaxScore must apply the exact same weighting as Weighted: normalization
// divides an answer sum by the max-score sum, and the two are only comparable
// when both run through one formula.
type Strategy interface {
	Path() catalog.Path
	// BasePoints looks up the selected option's raw points.
	BasePoints(q catalog.Question, option string) (float64, error)
	// Weighted applies the path's weighting formula to raw points.
	Weighted(base float64, q catalog.Question) float64
	// MaxScore sums the maximum achievable weighted points over the path's questions.
	MaxScore(questions []catalog.Question) float64
	// Thresholds returns the path's rank table, ordered highest to lowest.
	Thresholds() []Threshold
}

// NewStrategy returns the Strategy for a path. HR needs the path's axes for
// its axis-level weights; the other paths ignore them.
func NewStrategy(path catalog.Path, axes []catalog.Axis, thresholds []Threshold) Strategy {
	if thresholds == nil {
		thresholds = DefaultThresholds()
	}
	if path == catalog.PathHR {
		axisWeights := make(map[int]float64, len(axes))
		for _, axis := range axes {
			axisWeights[axis.ID] = axis.Weight
		}
		return &hrStrategy{axisWeights: axisWeights, thresholds: thresholds}
	}
	return &linearStrategy{path: path, thresholds: thresholds}
}

// basePoints is shared by all strategies: option lookup in the points mapping.
func basePoints(q catalog.Question, option string) (float64, error) {
	pts, ok := q.Points[option]
	if !ok {
		return 0, &UnknownOptionError{QuestionID: q.ID, Option: option}
	}
	return pts, nil
}

// maxScore is shared by all strategies so that the weighting formula used for
// answers and for normalization cannot diverge.
func maxScore(s Strategy, questions []catalog.Question) float64 {
	var sum float64
	for _, q := range questions {
		sum += s.Weighted(q.MaxPoints(), q)
	}
	return sum
}

// linearStrategy weights raw points by the question weight only.
// Used by the strategic and operational paths.
type linearStrategy struct {
	path       catalog.Path
	thresholds []Threshold
}

var _ Strategy = (*linearStrategy)(nil)

func (s *linearStrategy) Path() catalog.Path { return s.path }

func (s *linearStrategy) BasePoints(q catalog.Question, option string) (float64, error) {
	return basePoints(q, option)
}

func (s *linearStrategy) Weighted(base float64, q catalog.Question) float64 {
	return base * q.Weight
}

func (s *linearStrategy) MaxScore(questions []catalog.Question) float64 {
	return maxScore(s, questions)
}

func (s *linearStrategy) Thresholds() []Threshold { return s.thresholds }

// hrStrategy interprets raw points as percentages-of-100 and weights them by
// both the owning axis weight and the question weight.
type hrStrategy struct {
	axisWeights map[int]float64
	thresholds  []Threshold
}

var _ Strategy = (*hrStrategy)(nil)

func (s *hrStrategy) Path() catalog.Path { return catalog.PathHR }

func (s *hrStrategy) BasePoints(q catalog.Question, option string) (float64, error) {
	return basePoints(q, option)
}

func (s *hrStrategy) Weighted(base float64, q catalog.Question) float64 {
	return (base / 100.0) * s.axisWeights[q.AxisID] * q.Weight
}

func (s *hrStrategy) MaxScore(questions []catalog.Question) float64 {
	return maxScore(s, questions)
}

func (s *hrStrategy) Thresholds() []Threshold { return s.thresholds }
