// Package assignment selects a sales rep for a lead, balancing workload
// across a territory.
package assignment

import (
	"sort"

	"salesdesk_backend/internal/leads/domain"
	"salesdesk_backend/platform/apperr"
	"salesdesk_backend/platform/logger"
)

// Assignment is the outcome of an assignment request. Overflow is set when
// the chosen rep is already at or over capacity; callers must surface it,
// never swallow it.
type Assignment struct {
	Rep      domain.SalesRep
	Overflow bool
}

// Service ranks candidate reps. Pure: it reads a rep-population snapshot and
// never mutates it, so concurrent callers need no coordination. The snapshot
// can be stale the instant after it is read; assignment is a best-effort
// heuristic, not a hard reservation.
type Service struct {
	log *logger.Logger
}

// New creates an assignment service.
func New(log *logger.Logger) *Service {
	return &Service{log: log}
}

// AutoAssign picks the best-ranked rep serving the territory. Unavailable
// reps are excluded unless that would leave no candidates, in which case the
// least-overloaded rep is chosen and the assignment is flagged as overflow.
// The urgency tag travels with the request for audit logging; it does not
// change the ranking.
func (s *Service) AutoAssign(territory, urgency string, reps []domain.SalesRep) (Assignment, error) {
	serving := filterByTerritory(territory, reps)
	if len(serving) == 0 {
		return Assignment{}, apperr.NoCandidates("no sales reps serve this territory", "territory_unserved")
	}

	eligible := make([]domain.SalesRep, 0, len(serving))
	for _, rep := range serving {
		if rep.AvailabilityTier() != domain.Unavailable {
			eligible = append(eligible, rep)
		}
	}

	if len(eligible) == 0 {
		// Every serving rep is at capacity: overflow to the least-overloaded
		// one rather than dropping the lead, and say so.
		rankReps(serving)
		chosen := serving[0]
		if s.log != nil {
			s.log.Warn("overflow assignment: all reps at capacity",
				"territory", territory,
				"urgency", urgency,
				"repId", chosen.ID,
				"loadPercent", chosen.LoadPercent(),
			)
		}
		return Assignment{Rep: chosen, Overflow: true}, nil
	}

	rankReps(eligible)
	return Assignment{Rep: eligible[0]}, nil
}

// ManualAssign bypasses ranking but still refuses an unavailable target with
// a recoverable CapacityExceeded unless the caller explicitly forces it. The
// rep is the caller's chosen target, loaded with its current derived load.
func (s *Service) ManualAssign(rep domain.SalesRep, force bool) (Assignment, error) {
	if rep.AvailabilityTier() != domain.Unavailable {
		return Assignment{Rep: rep}, nil
	}
	if !force {
		return Assignment{}, apperr.CapacityExceeded("rep is at capacity; retry with force to override")
	}

	if s.log != nil {
		s.log.Warn("forced over-capacity assignment",
			"repId", rep.ID,
			"load", rep.Load,
			"capacity", rep.Capacity,
		)
	}
	return Assignment{Rep: rep, Overflow: true}, nil
}

// rankReps orders candidates by ascending load percentage, then descending
// historical conversion rate, then rep ID for determinism.
func rankReps(reps []domain.SalesRep) {
	sort.SliceStable(reps, func(i, j int) bool {
		li, lj := reps[i].LoadPercent(), reps[j].LoadPercent()
		if li != lj {
			return li < lj
		}
		if reps[i].ConversionRate != reps[j].ConversionRate {
			return reps[i].ConversionRate > reps[j].ConversionRate
		}
		return reps[i].ID.String() < reps[j].ID.String()
	})
}

func filterByTerritory(territory string, reps []domain.SalesRep) []domain.SalesRep {
	out := make([]domain.SalesRep, 0, len(reps))
	for _, rep := range reps {
		if rep.ServesTerritory(territory) {
			out = append(out, rep)
		}
	}
	return out
}

