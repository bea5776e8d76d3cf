package domain

import "testing"

func TestAvailabilityTier(t *testing.T) {
	tests := []struct {
		name     string
		load     int
		capacity int
		want     Availability
	}{
		{"empty book", 0, 20, Available},
		{"under busy threshold", 15, 20, Available},
		{"at busy threshold", 16, 20, Busy},
		{"one slot left", 19, 20, Busy},
		{"at capacity", 20, 20, Unavailable},
		{"over capacity", 25, 20, Unavailable},
		{"zero capacity", 0, 0, Unavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rep := SalesRep{Load: tc.load, Capacity: tc.capacity}
			if got := rep.AvailabilityTier(); got != tc.want {
				t.Errorf("AvailabilityTier() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestLoadPercentSignalsOverload(t *testing.T) {
	rep := SalesRep{Load: 25, Capacity: 20}
	if got := rep.LoadPercent(); got != 125 {
		t.Errorf("LoadPercent() = %v, want 125 (overload must stay visible)", got)
	}
}

func TestServesTerritory(t *testing.T) {
	rep := SalesRep{Territories: []string{"Kingston", "Portmore"}}
	if !rep.ServesTerritory("Kingston") {
		t.Error("expected rep to serve Kingston")
	}
	if rep.ServesTerritory("Montego Bay") {
		t.Error("did not expect rep to serve Montego Bay")
	}
}
