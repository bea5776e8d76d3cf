// Package scoring computes BANT qualification criteria, a 0-100 score, and a
// lifecycle stage for a lead.
package scoring

import (
	"math"
	"strings"

	"salesdesk_backend/internal/leads/domain"
	"salesdesk_backend/platform/apperr"
	"salesdesk_backend/platform/logger"
)

// scoreVersion tracks the scoring model for debugging and analysis.
// Bump this when changing scoring logic significantly.
const scoreVersion = "2026-v1"

// Result holds the completed criteria, the clamped score, and the stage.
type Result struct {
	Criteria domain.QualificationCriteria
	Score    int
	Stage    domain.Stage
	Factors  map[string]float64
	Version  string
}

// Service computes lead qualification scores. Pure and safe for concurrent
// use: all state is the immutable weight table.
type Service struct {
	weights Weights
	log     *logger.Logger
}

// New creates a scoring service with the given weight table.
func New(weights Weights, log *logger.Logger) *Service {
	return &Service{weights: weights, log: log}
}

// Qualify completes the criteria, scores the lead, and infers its stage.
// A partially-filled criteria from earlier qualification rounds may be
// supplied; established flags are never regressed. currentStage carries the
// workflow's present stage so inference never moves backwards; pass "" for a
// lead entering qualification for the first time.
func (s *Service) Qualify(lead domain.LeadRecord, prior *domain.QualificationCriteria, currentStage domain.Stage) (Result, error) {
	if prior != nil {
		if err := validateCriteria(*prior); err != nil {
			return Result{}, err
		}
	}

	criteria := s.deriveCriteria(lead)
	if prior != nil {
		criteria = criteria.Merge(*prior)
	}

	score, factors := s.computeScore(lead)
	stage := domain.InferStage(lead, currentStage, s.weights.InterestScaleMax)

	return Result{
		Criteria: criteria,
		Score:    score,
		Stage:    stage,
		Factors:  factors,
		Version:  scoreVersion,
	}, nil
}

func validateCriteria(c domain.QualificationCriteria) error {
	if c.BudgetMin != nil && c.BudgetMax != nil && *c.BudgetMin > *c.BudgetMax {
		return apperr.Validation("budget minimum exceeds maximum")
	}
	if c.TimelineMonths != nil && *c.TimelineMonths < 0 {
		return apperr.Validation("timeline months cannot be negative")
	}
	return nil
}

// deriveCriteria fills the BANT flags from lead attributes. Budget can only
// come from explicit qualification input, so it is never derived here.
func (s *Service) deriveCriteria(lead domain.LeadRecord) domain.QualificationCriteria {
	criteria := domain.QualificationCriteria{}

	if strings.TrimSpace(lead.NeedsText()) != "" || len(lead.PainPoints) > 0 {
		criteria.HasNeed = true
		criteria.PainPoints = lead.PainPoints
	}
	if lead.DecisionMaker != nil && strings.TrimSpace(*lead.DecisionMaker) != "" {
		criteria.HasAuthority = true
	}
	if domain.BandForInterest(lead.InterestLevel, s.weights.InterestScaleMax) == domain.InterestTop {
		// Top-band interest is treated as a timeline signal: the prospect is
		// actively shopping rather than researching.
		criteria.HasTimeline = true
	}

	return criteria
}

func (s *Service) computeScore(lead domain.LeadRecord) (int, map[string]float64) {
	w := s.weights
	score := w.BaseScore
	factors := map[string]float64{}

	// Revenue bucket: larger bucket, larger bonus, capped by the table.
	revenueScore := bucketScore(lead.RevenueBucket, w.RevenueBuckets)
	score += addFactor(factors, "revenue_bucket", revenueScore)

	// Employee-count bucket: same ordinal pattern.
	employeeScore := bucketScore(lead.EmployeeBucket, w.EmployeeBuckets)
	score += addFactor(factors, "employee_bucket", employeeScore)

	// Pain points: each distinct pain point adds, capped.
	painScore := math.Min(float64(distinctCount(lead.PainPoints))*w.PainPointValue, w.PainPointCap)
	score += addFactor(factors, "pain_points", painScore)

	// Interest level: proportional to the deployment scale.
	interestScore := interestContribution(lead.InterestLevel, w.InterestScaleMax, w.InterestMax)
	score += addFactor(factors, "interest", interestScore)

	// Reachability: both a phone and an email channel present.
	if lead.HasPhone() && lead.HasEmail() {
		score += addFactor(factors, "dual_channel", w.DualChannelBonus)
	}

	// Needs text: a considered prospect writes more than a cursory submission.
	if len(strings.TrimSpace(lead.NeedsText())) >= w.NeedsLengthThreshold {
		score += addFactor(factors, "needs_text", w.NeedsTextBonus)
	}

	return clampScore(score), factors
}

func bucketScore(bucket string, table []BucketWeight) float64 {
	normalized := strings.ToLower(strings.TrimSpace(bucket))
	for _, entry := range table {
		if entry.Bucket == normalized {
			return entry.Points
		}
	}
	return 0
}

func interestContribution(level, scaleMax int, max float64) float64 {
	if scaleMax <= 0 || level <= 0 {
		return 0
	}
	if level > scaleMax {
		level = scaleMax
	}
	return float64(level) / float64(scaleMax) * max
}

func distinctCount(values []string) int {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		normalized := strings.ToLower(strings.TrimSpace(v))
		if normalized == "" {
			continue
		}
		seen[normalized] = struct{}{}
	}
	return len(seen)
}

func addFactor(factors map[string]float64, key string, value float64) float64 {
	if math.Abs(value) < 0.01 {
		return 0
	}
	// Round to 1 decimal place for cleaner factor display
	factors[key] = math.Round(value*10) / 10
	return value
}

func clampScore(value float64) int {
	rounded := int(math.Round(value))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}
