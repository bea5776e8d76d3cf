// Package service orchestrates the lead qualification engine: scoring,
// forecasting, assignment, and follow-up recommendation.
package service

import (
	"context"
	"errors"
	"time"

	"salesdesk_backend/internal/events"
	"salesdesk_backend/internal/leads/advisor"
	"salesdesk_backend/internal/leads/assignment"
	"salesdesk_backend/internal/leads/domain"
	"salesdesk_backend/internal/leads/forecast"
	"salesdesk_backend/internal/leads/ports"
	"salesdesk_backend/internal/leads/recommend"
	"salesdesk_backend/internal/leads/repository"
	"salesdesk_backend/internal/leads/scoring"
	"salesdesk_backend/platform/apperr"
	"salesdesk_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Store is the persistence surface the orchestrator needs.
type Store interface {
	ports.LeadReader
	ports.WorkflowStore
	ports.RepReader
}

// Service composes the engine components per lead. All components except the
// advisor are pure, so the service itself holds no mutable state beyond its
// collaborators and is safe for concurrent use.
type Service struct {
	store     Store
	history   ports.HistoryReader
	scorer    *scoring.Service
	estimator *forecast.Service
	balancer  *assignment.Service
	advisor   *advisor.Adapter
	rules     *recommend.RuleEngine
	bus       events.Bus
	scheduler ports.FollowUpScheduler
	log       *logger.Logger
}

func New(
	store Store,
	history ports.HistoryReader,
	scorer *scoring.Service,
	estimator *forecast.Service,
	balancer *assignment.Service,
	adv *advisor.Adapter,
	rules *recommend.RuleEngine,
	bus events.Bus,
	log *logger.Logger,
) *Service {
	return &Service{
		store:     store,
		history:   history,
		scorer:    scorer,
		estimator: estimator,
		balancer:  balancer,
		advisor:   adv,
		rules:     rules,
		bus:       bus,
		log:       log,
	}
}

// SetFollowUpScheduler wires the optional reminder scheduler. Without it,
// recommendation generation still works but no reminders are planned.
func (s *Service) SetFollowUpScheduler(scheduler ports.FollowUpScheduler) {
	s.scheduler = scheduler
}

// GetWorkflow returns the workflow for a lead.
func (s *Service) GetWorkflow(ctx context.Context, leadID uuid.UUID) (domain.LeadWorkflow, error) {
	workflow, err := s.store.GetWorkflow(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.LeadWorkflow{}, apperr.NotFound("lead workflow not found")
	}
	if err != nil {
		return domain.LeadWorkflow{}, apperr.Wrap(apperr.KindInternal, "failed to load workflow", err)
	}
	return workflow, nil
}

// Timeline returns the ordered stage-transition history for a lead.
func (s *Service) Timeline(ctx context.Context, leadID uuid.UUID) ([]domain.StageTransition, error) {
	history, err := s.store.StageHistory(ctx, leadID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load stage history", err)
	}
	return history, nil
}

// Qualify scores a lead and advances its workflow. Supplied criteria are
// merged with the stored ones before scoring so explicit user qualification
// input survives re-scoring; a true flag never regresses.
func (s *Service) Qualify(ctx context.Context, leadID uuid.UUID, supplied *domain.QualificationCriteria, actor string) (domain.LeadWorkflow, error) {
	lead, workflow, err := s.loadLeadAndWorkflow(ctx, leadID)
	if err != nil {
		return domain.LeadWorkflow{}, err
	}

	prior := workflow.Criteria
	if supplied != nil {
		prior = supplied.Merge(workflow.Criteria)
	}

	result, err := s.scorer.Qualify(lead, &prior, workflow.Stage)
	if err != nil {
		return domain.LeadWorkflow{}, err
	}

	oldStage := workflow.Stage
	now := time.Now()

	workflow.Score = result.Score
	workflow.Criteria = result.Criteria
	workflow.Stage = result.Stage
	workflow.UpdatedAt = now

	// The inferred stage can be several steps ahead of the current one. The
	// recorded history still walks one allowed edge at a time, so every hop
	// satisfies CanTransition.
	transitions := domain.TransitionPath(oldStage, result.Stage, now, actor)
	workflow.StageHistory = append(workflow.StageHistory, transitions...)

	if err := s.store.SaveWorkflow(ctx, workflow, transitions); err != nil {
		return domain.LeadWorkflow{}, apperr.Wrap(apperr.KindInternal, "failed to persist workflow", err)
	}

	s.publish(ctx, events.LeadQualified{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		Score:     result.Score,
		OldStage:  string(oldStage),
		NewStage:  string(result.Stage),
	})
	if len(transitions) > 0 {
		s.publish(ctx, events.StageChanged{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    leadID,
			OldStage:  string(oldStage),
			NewStage:  string(result.Stage),
			Actor:     actor,
		})
	}

	return workflow, nil
}

// OverrideStage moves a workflow to an explicit target stage. This is the
// manual escape hatch: unlike automatic inference it may move backwards or
// out of a terminal stage, but the target must be a known stage.
func (s *Service) OverrideStage(ctx context.Context, leadID uuid.UUID, target domain.Stage, actor string) (domain.LeadWorkflow, error) {
	if !domain.IsKnownStage(target) {
		return domain.LeadWorkflow{}, apperr.Validation("unknown stage: " + string(target))
	}

	workflow, err := s.GetWorkflow(ctx, leadID)
	if err != nil {
		return domain.LeadWorkflow{}, err
	}
	if workflow.Stage == target {
		return workflow, nil
	}

	// A manual override may jump or move backwards, so it records exactly one
	// transition instead of a stepwise path.
	now := time.Now()
	transitions := []domain.StageTransition{{From: workflow.Stage, To: target, At: now, Actor: actor}}
	oldStage := workflow.Stage
	workflow.Stage = target
	workflow.UpdatedAt = now
	workflow.StageHistory = append(workflow.StageHistory, transitions...)

	if err := s.store.SaveWorkflow(ctx, workflow, transitions); err != nil {
		return domain.LeadWorkflow{}, apperr.Wrap(apperr.KindInternal, "failed to persist workflow", err)
	}

	s.publish(ctx, events.StageChanged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		OldStage:  string(oldStage),
		NewStage:  string(target),
		Actor:     actor,
	})
	return workflow, nil
}

// Forecast estimates close probability and expected time-to-close. A failed
// historical fetch degrades to the estimator defaults, never to an error.
func (s *Service) Forecast(ctx context.Context, leadID uuid.UUID) (forecast.Estimate, error) {
	lead, workflow, err := s.loadLeadAndWorkflow(ctx, leadID)
	if err != nil {
		return forecast.Estimate{}, err
	}

	hist, histErr := s.history.HistoricalOutcome(ctx, domain.SimilarLeadsQuery(lead))
	if histErr != nil {
		if s.log != nil {
			s.log.DatabaseError("historical_outcome", histErr)
		}
		hist = nil
	}

	return s.estimator.Estimate(workflow, lead, hist), nil
}

// AutoAssign picks the best available rep for the lead's territory and
// persists the assignment. Overflow assignments are flagged in the result and
// the published event, never silently.
func (s *Service) AutoAssign(ctx context.Context, leadID uuid.UUID, urgency string) (assignment.Assignment, error) {
	lead, workflow, err := s.loadLeadAndWorkflow(ctx, leadID)
	if err != nil {
		return assignment.Assignment{}, err
	}

	reps, err := s.store.ListRepsWithLoad(ctx)
	if err != nil {
		return assignment.Assignment{}, apperr.Wrap(apperr.KindInternal, "failed to load rep population", err)
	}

	assigned, err := s.balancer.AutoAssign(lead.Territory, urgency, reps)
	if err != nil {
		return assignment.Assignment{}, err
	}

	if err := s.persistAssignment(ctx, &workflow, assigned, lead.Territory, false); err != nil {
		return assignment.Assignment{}, err
	}
	return assigned, nil
}

// ManualAssign assigns the lead to a specific rep. An unavailable target is
// rejected with CapacityExceeded unless force is set, in which case the
// overflow is flagged.
func (s *Service) ManualAssign(ctx context.Context, leadID, repID uuid.UUID, force bool) (assignment.Assignment, error) {
	lead, workflow, err := s.loadLeadAndWorkflow(ctx, leadID)
	if err != nil {
		return assignment.Assignment{}, err
	}

	rep, err := s.store.GetRepWithLoad(ctx, repID)
	if errors.Is(err, repository.ErrNotFound) {
		return assignment.Assignment{}, apperr.NotFound("sales rep not found")
	}
	if err != nil {
		return assignment.Assignment{}, apperr.Wrap(apperr.KindInternal, "failed to load sales rep", err)
	}

	assigned, err := s.balancer.ManualAssign(rep, force)
	if err != nil {
		return assignment.Assignment{}, err
	}

	if err := s.persistAssignment(ctx, &workflow, assigned, lead.Territory, force); err != nil {
		return assignment.Assignment{}, err
	}
	return assigned, nil
}

// Recommend produces the merged follow-up list for a lead. The rule path and
// the model path run concurrently; the model path returning nothing (disabled
// adapter, timeout, parse failure) leaves a pure rule-based list.
func (s *Service) Recommend(ctx context.Context, leadID uuid.UUID) ([]domain.FollowUpRecommendation, error) {
	lead, workflow, err := s.loadLeadAndWorkflow(ctx, leadID)
	if err != nil {
		return nil, err
	}

	var (
		ruleRecs []domain.FollowUpRecommendation
		aiRecs   []domain.FollowUpRecommendation
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ruleRecs = s.rules.Recommend(lead, workflow)
		return nil
	})
	g.Go(func() error {
		if insight := s.advisor.Advise(gctx, lead, workflow); insight != nil {
			aiRecs = recommend.ClassifyCandidates(insight.Suggestions)
		}
		return nil
	})
	_ = g.Wait()

	merged := recommend.Merge(ruleRecs, aiRecs)

	workflow.NextActions = actionTexts(merged)
	workflow.UpdatedAt = time.Now()
	if err := s.store.SaveWorkflow(ctx, workflow, nil); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to persist next actions", err)
	}

	if len(merged) > 0 {
		top := merged[0]
		s.publish(ctx, events.FollowUpsGenerated{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    leadID,
			Count:     len(merged),
			AICount:   countOrigin(merged, domain.OriginAI),
			TopAction: top.Action,
			TopTiming: top.Timing,
		})
		s.scheduleReminder(ctx, leadID, top)
	}

	return merged, nil
}

func (s *Service) loadLeadAndWorkflow(ctx context.Context, leadID uuid.UUID) (domain.LeadRecord, domain.LeadWorkflow, error) {
	lead, err := s.store.GetLead(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.LeadRecord{}, domain.LeadWorkflow{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return domain.LeadRecord{}, domain.LeadWorkflow{}, apperr.Wrap(apperr.KindInternal, "failed to load lead", err)
	}

	workflow, err := s.store.GetWorkflow(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		// First contact with the engine: a fresh workflow enters at "new".
		workflow = domain.LeadWorkflow{LeadID: leadID, Stage: domain.StageNew}
		err = nil
	}
	if err != nil {
		return domain.LeadRecord{}, domain.LeadWorkflow{}, apperr.Wrap(apperr.KindInternal, "failed to load workflow", err)
	}
	return lead, workflow, nil
}

func (s *Service) persistAssignment(ctx context.Context, workflow *domain.LeadWorkflow, assigned assignment.Assignment, territory string, forced bool) error {
	previous := workflow.AssignedRepID
	repID := assigned.Rep.ID
	workflow.AssignedRepID = &repID
	workflow.UpdatedAt = time.Now()

	if err := s.store.SaveWorkflow(ctx, *workflow, nil); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to persist assignment", err)
	}

	s.publish(ctx, events.LeadAssigned{
		BaseEvent:   events.NewBaseEvent(),
		LeadID:      workflow.LeadID,
		PreviousRep: previous,
		NewRep:      repID,
		Territory:   territory,
		Overflow:    assigned.Overflow,
		Forced:      forced,
	})
	return nil
}

func (s *Service) scheduleReminder(ctx context.Context, leadID uuid.UUID, top domain.FollowUpRecommendation) {
	if s.scheduler == nil {
		return
	}
	runAt := time.Now().Add(timingDelay(top.Timing))
	if err := s.scheduler.ScheduleFollowUpReminder(ctx, leadID, top.Action, top.Timing, runAt); err != nil && s.log != nil {
		s.log.ExternalServiceError("scheduler", "follow_up_reminder", err)
	}
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus != nil {
		s.bus.Publish(ctx, event)
	}
}

// timingDelay maps the coarse timing labels the merger produces onto reminder
// offsets. The reminder fires at roughly half the suggested window so the rep
// still has time to act.
func timingDelay(timing string) time.Duration {
	switch timing {
	case "immediately":
		return 15 * time.Minute
	case "within 2 hours":
		return time.Hour
	case "within 24 hours":
		return 12 * time.Hour
	case "this week":
		return 48 * time.Hour
	default:
		return 24 * time.Hour
	}
}

func actionTexts(recs []domain.FollowUpRecommendation) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Action)
	}
	return out
}

func countOrigin(recs []domain.FollowUpRecommendation, origin domain.Origin) int {
	n := 0
	for _, r := range recs {
		if r.Origin == origin {
			n++
		}
	}
	return n
}
