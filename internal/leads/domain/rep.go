package domain

import "github.com/google/uuid"

// Availability is a derived label from load vs. capacity, never stored.
type Availability string

const (
	Available   Availability = "available"
	Busy        Availability = "busy"
	Unavailable Availability = "unavailable"
)

// busyThresholdPct is the load percentage at which a rep counts as busy.
const busyThresholdPct = 80

// SalesRep is a candidate for lead assignment. Load is recomputed from the
// current open-lead population on every assignment request, not persisted as
// authoritative state by the engine.
type SalesRep struct {
	ID             uuid.UUID
	Name           string
	Territories    []string
	Load           int
	Capacity       int // > 0
	ConversionRate float64 // historical, 0-1
	AvgDaysToClose float64
}

// ServesTerritory reports whether the rep covers the given territory.
func (r SalesRep) ServesTerritory(territory string) bool {
	for _, t := range r.Territories {
		if t == territory {
			return true
		}
	}
	return false
}

// LoadPercent returns load/capacity as a percentage. Values above 100
// deliberately signal overload rather than being clamped.
func (r SalesRep) LoadPercent() float64 {
	if r.Capacity <= 0 {
		return 0
	}
	pct := float64(r.Load) / float64(r.Capacity) * 100
	if pct < 0 {
		return 0
	}
	return pct
}

// AvailabilityTier derives the rep's availability from load vs. capacity.
func (r SalesRep) AvailabilityTier() Availability {
	if r.Capacity <= 0 || r.Load >= r.Capacity {
		return Unavailable
	}
	if r.LoadPercent() >= busyThresholdPct {
		return Busy
	}
	return Available
}
