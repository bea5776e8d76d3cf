package domain

import (
	"testing"
	"time"
)

func TestCanTransitionFollowsLifecycleEdges(t *testing.T) {
	tests := []struct {
		from Stage
		to   Stage
		want bool
	}{
		{StageNew, StageContacted, true},
		{StageContacted, StageQualified, true},
		{StageQualified, StageOpportunity, true},
		{StageOpportunity, StageCustomer, true},

		// lost is reachable from any non-terminal stage
		{StageNew, StageLost, true},
		{StageContacted, StageLost, true},
		{StageOpportunity, StageLost, true},

		// no skipping without a manual override
		{StageNew, StageQualified, false},
		{StageContacted, StageOpportunity, false},
		{StageNew, StageCustomer, false},

		// no reversing
		{StageQualified, StageContacted, false},
		{StageOpportunity, StageNew, false},

		// terminal stages never transition
		{StageCustomer, StageLost, false},
		{StageLost, StageNew, false},
		{StageLost, StageContacted, false},
	}

	for _, tc := range tests {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTransitionPathWalksOneAllowedEdgeAtATime(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		from Stage
		to   Stage
		want []Stage // the To of each recorded hop, in order
	}{
		{"single step", StageNew, StageContacted, []Stage{StageContacted}},
		{"skip expands to every hop", StageNew, StageQualified, []Stage{StageContacted, StageQualified}},
		{"full run to customer", StageNew, StageCustomer, []Stage{StageContacted, StageQualified, StageOpportunity, StageCustomer}},
		{"lost is a single edge", StageQualified, StageLost, []Stage{StageLost}},
		{"no change", StageQualified, StageQualified, nil},
		{"backwards is not a path", StageOpportunity, StageContacted, nil},
		{"out of terminal is not a path", StageLost, StageNew, nil},
		{"unknown stage is not a path", StageNew, Stage("archived"), nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := TransitionPath(tc.from, tc.to, now, "system")
			if len(path) != len(tc.want) {
				t.Fatalf("TransitionPath(%s, %s) recorded %d hops, want %d", tc.from, tc.to, len(path), len(tc.want))
			}

			prev := tc.from
			for i, hop := range path {
				if hop.From != prev || hop.To != tc.want[i] {
					t.Errorf("hop %d = %s->%s, want %s->%s", i, hop.From, hop.To, prev, tc.want[i])
				}
				if !CanTransition(hop.From, hop.To) {
					t.Errorf("hop %d (%s->%s) is not an allowed edge", i, hop.From, hop.To)
				}
				prev = hop.To
			}
		})
	}
}

func TestInferStageFromAttributes(t *testing.T) {
	phone := "+14155550123"
	tests := []struct {
		name string
		lead LeadRecord
		want Stage
	}{
		{
			name: "closed won becomes customer",
			lead: LeadRecord{InterestLevel: 2, ClosedWon: true},
			want: StageCustomer,
		},
		{
			name: "top interest with package seen becomes opportunity",
			lead: LeadRecord{InterestLevel: 5, PackageSeen: true},
			want: StageOpportunity,
		},
		{
			name: "top interest without package stays qualified",
			lead: LeadRecord{InterestLevel: 5},
			want: StageQualified,
		},
		{
			name: "mid interest becomes qualified",
			lead: LeadRecord{InterestLevel: 3},
			want: StageQualified,
		},
		{
			name: "low interest with contact channel becomes contacted",
			lead: LeadRecord{InterestLevel: 1, Phone: &phone},
			want: StageContacted,
		},
		{
			name: "nothing populated stays new",
			lead: LeadRecord{InterestLevel: 1},
			want: StageNew,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := InferStage(tc.lead, "", 5); got != tc.want {
				t.Errorf("InferStage() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestInferStageNeverReversesCurrentStage(t *testing.T) {
	// Lead attributes alone would suggest "contacted", but the workflow is
	// already at opportunity. The engine must not silently reverse.
	phone := "+14155550123"
	lead := LeadRecord{InterestLevel: 1, Phone: &phone}

	if got := InferStage(lead, StageOpportunity, 5); got != StageOpportunity {
		t.Errorf("InferStage() regressed stage to %s", got)
	}
}

func TestInferStagePreservesTerminalStages(t *testing.T) {
	lead := LeadRecord{InterestLevel: 5, PackageSeen: true}

	if got := InferStage(lead, StageLost, 5); got != StageLost {
		t.Errorf("InferStage() revived lost workflow to %s", got)
	}
	if got := InferStage(lead, StageCustomer, 5); got != StageCustomer {
		t.Errorf("InferStage() moved customer workflow to %s", got)
	}
}

func TestBandForInterestTenPointScale(t *testing.T) {
	tests := []struct {
		level int
		want  InterestBand
	}{
		{10, InterestTop},
		{8, InterestTop},
		{7, InterestMid},
		{5, InterestMid},
		{4, InterestLow},
		{1, InterestLow},
	}

	for _, tc := range tests {
		if got := BandForInterest(tc.level, 10); got != tc.want {
			t.Errorf("BandForInterest(%d, 10) = %v, want %v", tc.level, got, tc.want)
		}
	}
}

func TestCriteriaMergeNeverRegressesFlags(t *testing.T) {
	min := 5000.0
	prev := QualificationCriteria{HasBudget: true, HasNeed: true, BudgetMin: &min}
	next := QualificationCriteria{HasAuthority: true}

	merged := next.Merge(prev)

	if !merged.HasBudget || !merged.HasNeed || !merged.HasAuthority {
		t.Errorf("Merge() dropped an established flag: %+v", merged)
	}
	if merged.BudgetMin == nil || *merged.BudgetMin != min {
		t.Errorf("Merge() lost budget detail")
	}
}
