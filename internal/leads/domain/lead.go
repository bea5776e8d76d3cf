// Package domain provides core business rules for the leads bounded context.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// LeadRecord is an immutable snapshot of a prospect. It is owned by the
// storage collaborator; the engine only reads it.
type LeadRecord struct {
	ID             uuid.UUID
	Name           string
	Phone          *string
	Email          *string
	InterestLevel  int // 1..InterestScaleMax, consistent within a deployment
	Needs          *string
	PainPoints     []string
	Territory      string
	RevenueBucket  string // ordinal category, see scoring weight tables
	EmployeeBucket string
	DecisionMaker  *string
	PackageSeen    bool // qualifying milestone: prospect has reviewed the offer package
	ClosedWon      bool
	CreatedAt      time.Time
}

// HasPhone reports whether a phone contact channel is populated.
func (l LeadRecord) HasPhone() bool {
	return l.Phone != nil && *l.Phone != ""
}

// HasEmail reports whether an email contact channel is populated.
func (l LeadRecord) HasEmail() bool {
	return l.Email != nil && *l.Email != ""
}

// HasContactChannel reports whether any contact channel is populated.
func (l LeadRecord) HasContactChannel() bool {
	return l.HasPhone() || l.HasEmail()
}

// NeedsText returns the trimmed free-text needs field, or "" when absent.
func (l LeadRecord) NeedsText() string {
	if l.Needs == nil {
		return ""
	}
	return *l.Needs
}

// QualificationCriteria holds the BANT flags plus supporting detail. Derived
// by the qualification scorer or supplied by explicit user input; a true flag
// is never regressed to false automatically.
type QualificationCriteria struct {
	HasBudget      bool
	HasAuthority   bool
	HasNeed        bool
	HasTimeline    bool
	BudgetMin      *float64
	BudgetMax      *float64
	TimelineMonths *int
	PainPoints     []string
}

// Merge returns the union of c with previously established criteria: flags
// only ever strengthen, detail fields keep the most recent non-nil value.
func (c QualificationCriteria) Merge(prev QualificationCriteria) QualificationCriteria {
	out := c
	out.HasBudget = c.HasBudget || prev.HasBudget
	out.HasAuthority = c.HasAuthority || prev.HasAuthority
	out.HasNeed = c.HasNeed || prev.HasNeed
	out.HasTimeline = c.HasTimeline || prev.HasTimeline
	if out.BudgetMin == nil {
		out.BudgetMin = prev.BudgetMin
	}
	if out.BudgetMax == nil {
		out.BudgetMax = prev.BudgetMax
	}
	if out.TimelineMonths == nil {
		out.TimelineMonths = prev.TimelineMonths
	}
	if len(out.PainPoints) == 0 {
		out.PainPoints = prev.PainPoints
	}
	return out
}

// StageTransition is one entry in a workflow's ordered stage-history log.
type StageTransition struct {
	From  Stage
	To    Stage
	At    time.Time
	Actor string
}

// LeadWorkflow is the mutable aggregate tracking a lead through qualification.
// Created when a lead first enters qualification; never deleted, only
// superseded.
type LeadWorkflow struct {
	LeadID        uuid.UUID
	Stage         Stage
	Score         int // 0-100
	Criteria      QualificationCriteria
	StageHistory  []StageTransition
	NextActions   []string
	AssignedRepID *uuid.UUID
	UpdatedAt     time.Time
}

// HistoricalOutcome is an aggregate over previously closed similar leads,
// supplied by the storage collaborator.
type HistoricalOutcome struct {
	Count          int
	ConversionRate float64 // 0-1
	AvgDaysToClose float64
}

// HistoryQuery selects the "similar leads" population for an outcome
// aggregate: same territory and revenue bucket, interest level within the
// inclusive range.
type HistoryQuery struct {
	Territory     string
	RevenueBucket string
	InterestMin   int
	InterestMax   int
}

// SimilarLeadsQuery builds the history query for a lead: its own segment,
// interest within one level of its own.
func SimilarLeadsQuery(lead LeadRecord) HistoryQuery {
	min := lead.InterestLevel - 1
	if min < 1 {
		min = 1
	}
	return HistoryQuery{
		Territory:     lead.Territory,
		RevenueBucket: lead.RevenueBucket,
		InterestMin:   min,
		InterestMax:   lead.InterestLevel + 1,
	}
}
