package scoring

import "salesdesk_backend/platform/config"

// BucketWeight maps an ordinal category to its point contribution.
// Tables must be monotonic: a larger bucket never scores below a smaller one.
type BucketWeight struct {
	Bucket string
	Points float64
}

// Weights is the configurable scoring table. All point values are tuning
// constants; the invariants (per-signal monotonicity, total clamped to 0-100)
// hold for any table, which the tests exercise.
type Weights struct {
	BaseScore float64

	RevenueBuckets  []BucketWeight
	EmployeeBuckets []BucketWeight

	PainPointValue float64
	PainPointCap   float64

	// InterestScaleMax is 5 or 10 depending on the deployment.
	InterestScaleMax int
	// InterestMax is the contribution at the top of the interest scale.
	InterestMax float64

	DualChannelBonus float64

	NeedsLengthThreshold int
	NeedsTextBonus       float64
}

// FromConfig starts from the default table and applies the deployment
// overrides. Interest contribution stays at InterestMax for a top-of-scale
// lead regardless of whether the scale runs to 5 or 10.
func FromConfig(cfg config.ScoringConfig) Weights {
	w := DefaultWeights()
	if cfg == nil {
		return w
	}
	if base := cfg.GetScoringBaseScore(); base > 0 {
		w.BaseScore = base
	}
	if scale := cfg.GetInterestScaleMax(); scale == 5 || scale == 10 {
		w.InterestScaleMax = scale
	}
	return w
}

// DefaultWeights returns the production tuning.
func DefaultWeights() Weights {
	return Weights{
		BaseScore: 20,
		RevenueBuckets: []BucketWeight{
			{"under_100k", 2},
			{"100k_500k", 6},
			{"500k_1m", 10},
			{"1m_10m", 15},
			{"10m_plus", 20},
		},
		EmployeeBuckets: []BucketWeight{
			{"1-10", 1},
			{"11-50", 3},
			{"51-200", 6},
			{"201-1000", 8},
			{"1000+", 10},
		},
		PainPointValue:       4,
		PainPointCap:         12,
		InterestScaleMax:     5,
		InterestMax:          25,
		DualChannelBonus:     10,
		NeedsLengthThreshold: 20,
		NeedsTextBonus:       8,
	}
}
