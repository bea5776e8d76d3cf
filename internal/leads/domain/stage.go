package domain

import "time"

// Stage is a lead's position in the qualification lifecycle.
type Stage string

const (
	StageNew         Stage = "new"
	StageContacted   Stage = "contacted"
	StageQualified   Stage = "qualified"
	StageOpportunity Stage = "opportunity"
	StageCustomer    Stage = "customer"
	StageLost        Stage = "lost"
)

// stageOrder ranks the forward path new → customer. Lost is outside the
// forward path and reachable from any non-terminal stage.
var stageOrder = map[Stage]int{
	StageNew:         0,
	StageContacted:   1,
	StageQualified:   2,
	StageOpportunity: 3,
	StageCustomer:    4,
}

// IsKnownStage reports whether the stage is part of the lifecycle.
func IsKnownStage(s Stage) bool {
	if s == StageLost {
		return true
	}
	_, ok := stageOrder[s]
	return ok
}

// IsTerminal reports whether no further transitions are allowed.
func IsTerminal(s Stage) bool {
	return s == StageCustomer || s == StageLost
}

// CanTransition reports whether the engine may move a workflow from one stage
// to the next on its own: exactly one step forward along the lifecycle, or to
// lost from any non-terminal stage. Anything else requires a manual override.
func CanTransition(from, to Stage) bool {
	if IsTerminal(from) {
		return false
	}
	if to == StageLost {
		return true
	}

	fromRank, okFrom := stageOrder[from]
	toRank, okTo := stageOrder[to]
	if !okFrom || !okTo {
		return false
	}
	return toRank == fromRank+1
}

// stageByRank is the forward path in order, for expanding multi-step moves.
var stageByRank = []Stage{StageNew, StageContacted, StageQualified, StageOpportunity, StageCustomer}

// TransitionPath expands an automatic stage change into the chain of
// single-step transitions the lifecycle allows, each edge validated with
// CanTransition. Inference can land several stages ahead of the current one;
// the recorded history still walks every intermediate stage. Returns nil when
// from == to or when no valid chain exists (a backwards move is a manual
// override and records its own single transition).
func TransitionPath(from, to Stage, at time.Time, actor string) []StageTransition {
	if from == to || !IsKnownStage(from) || !IsKnownStage(to) {
		return nil
	}

	if to == StageLost {
		if !CanTransition(from, to) {
			return nil
		}
		return []StageTransition{{From: from, To: to, At: at, Actor: actor}}
	}

	fromRank, okFrom := stageOrder[from]
	toRank, okTo := stageOrder[to]
	if !okFrom || !okTo || toRank <= fromRank {
		return nil
	}

	path := make([]StageTransition, 0, toRank-fromRank)
	current := from
	for rank := fromRank + 1; rank <= toRank; rank++ {
		next := stageByRank[rank]
		if !CanTransition(current, next) {
			return nil
		}
		path = append(path, StageTransition{From: current, To: next, At: at, Actor: actor})
		current = next
	}
	return path
}

// InterestBand buckets a 1..max interest level.
type InterestBand int

const (
	InterestLow InterestBand = iota
	InterestMid
	InterestTop
)

// BandForInterest classifies an interest level against the deployment's
// scale maximum (5 or 10). Top band starts at 80% of the scale, mid at 50%.
func BandForInterest(level, scaleMax int) InterestBand {
	if scaleMax <= 0 {
		scaleMax = 5
	}
	switch {
	case level*10 >= scaleMax*8:
		return InterestTop
	case level*2 >= scaleMax:
		return InterestMid
	default:
		return InterestLow
	}
}

// InferStage derives a stage from lead attributes when no explicit transition
// is supplied. The engine never moves a workflow backwards on its own: when
// the inferred stage trails the current one, the current stage stands.
func InferStage(lead LeadRecord, current Stage, scaleMax int) Stage {
	inferred := inferFromAttributes(lead, scaleMax)

	if current == "" {
		return inferred
	}
	if IsTerminal(current) {
		return current
	}
	if stageOrder[inferred] > stageOrder[current] {
		return inferred
	}
	return current
}

func inferFromAttributes(lead LeadRecord, scaleMax int) Stage {
	band := BandForInterest(lead.InterestLevel, scaleMax)

	switch {
	case lead.ClosedWon:
		return StageCustomer
	case band == InterestTop && lead.PackageSeen:
		return StageOpportunity
	case band >= InterestMid:
		return StageQualified
	case lead.HasContactChannel():
		return StageContacted
	default:
		return StageNew
	}
}
