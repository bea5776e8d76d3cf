// Package transport defines the request and response DTOs for the leads API.
package transport

import (
	"time"

	"salesdesk_backend/internal/leads/domain"
	"salesdesk_backend/internal/leads/forecast"

	"github.com/google/uuid"
)

// Request DTOs

// QualifyRequest carries explicit qualification input. Every field is
// optional: an empty body re-scores from lead attributes alone.
type QualifyRequest struct {
	HasBudget      *bool    `json:"hasBudget,omitempty"`
	HasAuthority   *bool    `json:"hasAuthority,omitempty"`
	HasNeed        *bool    `json:"hasNeed,omitempty"`
	HasTimeline    *bool    `json:"hasTimeline,omitempty"`
	BudgetMin      *float64 `json:"budgetMin,omitempty" validate:"omitempty,gte=0"`
	BudgetMax      *float64 `json:"budgetMax,omitempty" validate:"omitempty,gte=0"`
	TimelineMonths *int     `json:"timelineMonths,omitempty" validate:"omitempty,gte=0,lte=120"`
	PainPoints     []string `json:"painPoints,omitempty" validate:"omitempty,max=20,dive,min=1,max=200"`
}

// Criteria maps the request onto domain criteria. Returns nil when the
// request carries no explicit input at all.
func (r QualifyRequest) Criteria() *domain.QualificationCriteria {
	if r.HasBudget == nil && r.HasAuthority == nil && r.HasNeed == nil &&
		r.HasTimeline == nil && r.BudgetMin == nil && r.BudgetMax == nil &&
		r.TimelineMonths == nil && len(r.PainPoints) == 0 {
		return nil
	}
	c := &domain.QualificationCriteria{
		BudgetMin:      r.BudgetMin,
		BudgetMax:      r.BudgetMax,
		TimelineMonths: r.TimelineMonths,
		PainPoints:     r.PainPoints,
	}
	if r.HasBudget != nil {
		c.HasBudget = *r.HasBudget
	}
	if r.HasAuthority != nil {
		c.HasAuthority = *r.HasAuthority
	}
	if r.HasNeed != nil {
		c.HasNeed = *r.HasNeed
	}
	if r.HasTimeline != nil {
		c.HasTimeline = *r.HasTimeline
	}
	return c
}

// AssignRequest targets a specific rep. Force overrides the capacity check.
type AssignRequest struct {
	RepID uuid.UUID `json:"repId" validate:"required"`
	Force bool      `json:"force"`
}

// AutoAssignRequest triggers territory-based assignment.
type AutoAssignRequest struct {
	Urgency string `json:"urgency" validate:"omitempty,oneof=low normal urgent"`
}

// OverrideStageRequest moves a workflow to an explicit stage.
type OverrideStageRequest struct {
	Stage string `json:"stage" validate:"required,oneof=new contacted qualified opportunity customer lost"`
}

// Response DTOs

type CriteriaResponse struct {
	HasBudget      bool     `json:"hasBudget"`
	HasAuthority   bool     `json:"hasAuthority"`
	HasNeed        bool     `json:"hasNeed"`
	HasTimeline    bool     `json:"hasTimeline"`
	BudgetMin      *float64 `json:"budgetMin,omitempty"`
	BudgetMax      *float64 `json:"budgetMax,omitempty"`
	TimelineMonths *int     `json:"timelineMonths,omitempty"`
	PainPoints     []string `json:"painPoints,omitempty"`
}

type WorkflowResponse struct {
	LeadID        uuid.UUID        `json:"leadId"`
	Stage         string           `json:"stage"`
	Score         int              `json:"score"`
	Criteria      CriteriaResponse `json:"criteria"`
	NextActions   []string         `json:"nextActions,omitempty"`
	AssignedRepID *uuid.UUID       `json:"assignedRepId,omitempty"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

func ToWorkflowResponse(wf domain.LeadWorkflow) WorkflowResponse {
	return WorkflowResponse{
		LeadID: wf.LeadID,
		Stage:  string(wf.Stage),
		Score:  wf.Score,
		Criteria: CriteriaResponse{
			HasBudget:      wf.Criteria.HasBudget,
			HasAuthority:   wf.Criteria.HasAuthority,
			HasNeed:        wf.Criteria.HasNeed,
			HasTimeline:    wf.Criteria.HasTimeline,
			BudgetMin:      wf.Criteria.BudgetMin,
			BudgetMax:      wf.Criteria.BudgetMax,
			TimelineMonths: wf.Criteria.TimelineMonths,
			PainPoints:     wf.Criteria.PainPoints,
		},
		NextActions:   wf.NextActions,
		AssignedRepID: wf.AssignedRepID,
		UpdatedAt:     wf.UpdatedAt,
	}
}

type ForecastResponse struct {
	Probability  float64 `json:"probability"`
	ETADays      int     `json:"etaDays"`
	UsedDefaults bool    `json:"usedDefaults"`
}

func ToForecastResponse(est forecast.Estimate) ForecastResponse {
	return ForecastResponse{
		Probability:  est.Probability,
		ETADays:      est.ETADays,
		UsedDefaults: est.UsedDefaults,
	}
}

type AssignmentResponse struct {
	RepID    uuid.UUID `json:"repId"`
	RepName  string    `json:"repName"`
	Overflow bool      `json:"overflow"`
}

type RecommendationResponse struct {
	ID       uuid.UUID `json:"id"`
	Type     string    `json:"type"`
	Priority string    `json:"priority"`
	Action   string    `json:"action"`
	Reason   string    `json:"reason,omitempty"`
	Timing   string    `json:"timing"`
	Origin   string    `json:"origin"`
}

func ToRecommendationResponses(recs []domain.FollowUpRecommendation) []RecommendationResponse {
	out := make([]RecommendationResponse, 0, len(recs))
	for _, r := range recs {
		out = append(out, RecommendationResponse{
			ID:       r.ID,
			Type:     string(r.Type),
			Priority: string(r.Priority),
			Action:   r.Action,
			Reason:   r.Reason,
			Timing:   r.Timing,
			Origin:   string(r.Origin),
		})
	}
	return out
}

type StageTransitionResponse struct {
	From  string    `json:"from"`
	To    string    `json:"to"`
	At    time.Time `json:"at"`
	Actor string    `json:"actor,omitempty"`
}

func ToTimelineResponse(history []domain.StageTransition) []StageTransitionResponse {
	out := make([]StageTransitionResponse, 0, len(history))
	for _, t := range history {
		out = append(out, StageTransitionResponse{
			From:  string(t.From),
			To:    string(t.To),
			At:    t.At,
			Actor: t.Actor,
		})
	}
	return out
}
