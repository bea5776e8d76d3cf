// Package forecast estimates close probability and expected time-to-close for
// a lead workflow.
package forecast

import (
	"math"
	"strings"

	"salesdesk_backend/internal/leads/domain"
	"salesdesk_backend/platform/logger"
)

// Estimate is the forecast for a single workflow. Deterministic for identical
// inputs: no randomness enters the computation.
type Estimate struct {
	Probability  float64 // 0-1, capped below the hard ceiling
	ETADays      int     // >= 1
	UsedDefaults bool    // true when no historical aggregate was available
}

// Config holds the estimator tuning. The score carries lead-specific signal
// the population average cannot, so it dominates the blend.
type Config struct {
	ScoreWeight   float64 // weight of score/100 in the blend
	HistoryWeight float64 // weight of historical conversion rate

	// Conservative defaults applied when historical data is missing or the
	// fetch failed.
	DefaultConversionRate float64
	DefaultDaysToClose    float64

	InterestBoost      float64 // multiplier for top-band interest
	NeedsBoost         float64 // multiplier for a detailed needs text
	NeedsLengthMin     int
	PainPointBoostStep float64 // per pain point, capped at PainPointBoostMax
	PainPointBoostMax  float64

	// Ceiling reserves headroom: no deal is ever a sure thing.
	Ceiling float64

	InterestScaleMax int
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		ScoreWeight:           0.6,
		HistoryWeight:         0.4,
		DefaultConversionRate: 0.25,
		DefaultDaysToClose:    30,
		InterestBoost:         1.15,
		NeedsBoost:            1.10,
		NeedsLengthMin:        50,
		PainPointBoostStep:    0.03,
		PainPointBoostMax:     0.12,
		Ceiling:               0.95,
		InterestScaleMax:      5,
	}
}

// Service estimates deal probability. Pure and safe for concurrent use.
type Service struct {
	cfg Config
	log *logger.Logger
}

// New creates an estimator service.
func New(cfg Config, log *logger.Logger) *Service {
	return &Service{cfg: cfg, log: log}
}

// Estimate blends the qualification score with the historical conversion
// rate, applies capped boosts, and derives the expected time-to-close.
// Pass nil historical data (or a zero-count aggregate) to fall back to the
// conservative defaults; a failed fetch must never fail the estimate.
func (s *Service) Estimate(workflow domain.LeadWorkflow, lead domain.LeadRecord, hist *domain.HistoricalOutcome) Estimate {
	conversionRate := s.cfg.DefaultConversionRate
	daysToClose := s.cfg.DefaultDaysToClose
	usedDefaults := true

	if hist != nil && hist.Count > 0 {
		conversionRate = clamp01(hist.ConversionRate)
		if hist.AvgDaysToClose > 0 {
			daysToClose = hist.AvgDaysToClose
		}
		usedDefaults = false
	}

	probability := s.cfg.ScoreWeight*(float64(workflow.Score)/100) + s.cfg.HistoryWeight*conversionRate

	if domain.BandForInterest(lead.InterestLevel, s.cfg.InterestScaleMax) == domain.InterestTop {
		probability *= s.cfg.InterestBoost
	}
	if len(strings.TrimSpace(lead.NeedsText())) >= s.cfg.NeedsLengthMin {
		probability *= s.cfg.NeedsBoost
	}
	probability *= 1 + math.Min(float64(len(lead.PainPoints))*s.cfg.PainPointBoostStep, s.cfg.PainPointBoostMax)

	if probability > s.cfg.Ceiling {
		probability = s.cfg.Ceiling
	}
	probability = clamp01(probability)

	return Estimate{
		Probability:  probability,
		ETADays:      scaleETA(daysToClose, probability),
		UsedDefaults: usedDefaults,
	}
}

// scaleETA shrinks the historical average as probability rises: a likelier
// deal is assumed to close faster. Floored at one day.
func scaleETA(avgDays, probability float64) int {
	eta := int(math.Round(avgDays * (1 - 0.6*probability)))
	if eta < 1 {
		return 1
	}
	return eta
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
