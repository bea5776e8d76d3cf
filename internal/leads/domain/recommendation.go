package domain

import "github.com/google/uuid"

// RecommendationType categorizes a follow-up action.
type RecommendationType string

const (
	TypeCall    RecommendationType = "call"
	TypeEmail   RecommendationType = "email"
	TypeMeeting RecommendationType = "meeting"
	TypeContent RecommendationType = "content"
	TypeTask    RecommendationType = "task"
)

// Priority orders follow-up recommendations.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// priorityRank orders priorities for sorting: urgent < high < medium < low.
var priorityRank = map[Priority]int{
	PriorityUrgent: 0,
	PriorityHigh:   1,
	PriorityMedium: 2,
	PriorityLow:    3,
}

// Rank returns the sort rank of the priority. Unknown priorities sort last.
func (p Priority) Rank() int {
	if rank, ok := priorityRank[p]; ok {
		return rank
	}
	return len(priorityRank)
}

// Origin tags where a recommendation came from.
type Origin string

const (
	OriginRule Origin = "rule"
	OriginAI   Origin = "ai"
)

// FollowUpRecommendation is a ranked next action for a lead. Ephemeral:
// generated per request, not persisted.
type FollowUpRecommendation struct {
	ID       uuid.UUID
	Type     RecommendationType
	Priority Priority
	Action   string // never empty
	Reason   string
	Timing   string
	Origin   Origin
}
