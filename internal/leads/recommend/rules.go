// Package recommend produces follow-up recommendations for a lead from the
// rule engine and merges in classified model-generated candidates.
package recommend

import (
	"fmt"
	"strings"

	"salesdesk_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// hotScoreThreshold marks the score at which a lead warrants immediate
// high-touch follow-up.
const hotScoreThreshold = 75

// RuleEngine derives follow-up recommendations from lead and workflow state.
// Pure and safe for concurrent use; the returned list is already ordered by
// priority.
type RuleEngine struct {
	interestScaleMax int
}

// NewRuleEngine creates a rule engine for the deployment's interest scale.
func NewRuleEngine(interestScaleMax int) *RuleEngine {
	if interestScaleMax <= 0 {
		interestScaleMax = 5
	}
	return &RuleEngine{interestScaleMax: interestScaleMax}
}

// Recommend evaluates the rule set against the lead and workflow. Rules fire
// independently; ordering by priority happens at the end so rule order in the
// source stays insertion-friendly.
func (e *RuleEngine) Recommend(lead domain.LeadRecord, workflow domain.LeadWorkflow) []domain.FollowUpRecommendation {
	var out []domain.FollowUpRecommendation

	add := func(t domain.RecommendationType, p domain.Priority, action, reason, timing string) {
		out = append(out, domain.FollowUpRecommendation{
			ID:       uuid.New(),
			Type:     t,
			Priority: p,
			Action:   action,
			Reason:   reason,
			Timing:   timing,
			Origin:   domain.OriginRule,
		})
	}

	if domain.IsTerminal(workflow.Stage) {
		if workflow.Stage == domain.StageCustomer {
			add(domain.TypeTask, domain.PriorityLow,
				"Hand the account over to customer success",
				"The deal is closed won and onboarding should start",
				"within 48 hours")
		}
		return out
	}

	if workflow.Score >= hotScoreThreshold {
		if lead.HasPhone() {
			add(domain.TypeCall, domain.PriorityUrgent,
				"Call to schedule a product demo",
				fmt.Sprintf("Qualification score %d signals a hot lead", workflow.Score),
				"within 2 hours")
		} else {
			add(domain.TypeEmail, domain.PriorityUrgent,
				"Email to schedule a product demo",
				fmt.Sprintf("Qualification score %d signals a hot lead but no phone is on file", workflow.Score),
				"within 24 hours")
		}
	}

	if workflow.Stage == domain.StageNew {
		if lead.HasPhone() {
			add(domain.TypeCall, domain.PriorityHigh,
				"Make the initial contact call",
				"The lead has not been contacted yet",
				"within 24 hours")
		} else if lead.HasEmail() {
			add(domain.TypeEmail, domain.PriorityHigh,
				"Send an introduction email",
				"The lead has not been contacted yet and only email is on file",
				"within 24 hours")
		}
	}

	if workflow.Criteria.HasBudget && workflow.Criteria.HasAuthority {
		add(domain.TypeMeeting, domain.PriorityHigh,
			"Book a proposal meeting with the decision maker",
			"Budget and authority are both confirmed",
			"this week")
	}

	if lead.PackageSeen && workflow.Stage != domain.StageOpportunity {
		add(domain.TypeCall, domain.PriorityHigh,
			"Follow up on the package they reviewed",
			"The prospect already reviewed the offer package",
			"within 24 hours")
	}

	if len(lead.PainPoints) > 0 {
		add(domain.TypeContent, domain.PriorityMedium,
			"Send a case study addressing "+lead.PainPoints[0],
			"Named pain points map directly to reference material",
			"within 48 hours")
	}

	if workflow.Stage == domain.StageContacted &&
		domain.BandForInterest(lead.InterestLevel, e.interestScaleMax) >= domain.InterestMid {
		add(domain.TypeCall, domain.PriorityMedium,
			"Run a qualification call",
			"Interest is above the midpoint but BANT is incomplete",
			"within 48 hours")
	}

	if !workflow.Criteria.HasNeed && strings.TrimSpace(lead.NeedsText()) == "" {
		add(domain.TypeTask, domain.PriorityLow,
			"Capture the prospect's stated needs",
			"The needs field is empty so scoring is running blind",
			"within 48 hours")
	}

	if len(out) == 0 {
		add(domain.TypeTask, domain.PriorityLow,
			"Review the lead record for missing qualification data",
			"No rule produced a stronger signal",
			"within 48 hours")
	}

	sortByPriority(out)
	return out
}
