// Package ports defines the interfaces the leads module needs from its
// collaborators. Implementations live in repository and scheduler; the
// service layer depends only on these.
package ports

import (
	"context"
	"time"

	"salesdesk_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// LeadReader loads immutable lead snapshots.
type LeadReader interface {
	GetLead(ctx context.Context, id uuid.UUID) (domain.LeadRecord, error)
}

// WorkflowStore persists lead workflows and their stage history.
type WorkflowStore interface {
	GetWorkflow(ctx context.Context, leadID uuid.UUID) (domain.LeadWorkflow, error)
	// SaveWorkflow upserts the workflow and appends the given transitions to
	// the stage history atomically. Automatic stage changes record every
	// single-step hop of the path; a manual override records one transition.
	SaveWorkflow(ctx context.Context, workflow domain.LeadWorkflow, transitions []domain.StageTransition) error
	StageHistory(ctx context.Context, leadID uuid.UUID) ([]domain.StageTransition, error)
}

// RepReader reconstructs the rep population with current load derived from
// the open-lead count, never from stored load values.
type RepReader interface {
	ListRepsWithLoad(ctx context.Context) ([]domain.SalesRep, error)
	GetRepWithLoad(ctx context.Context, id uuid.UUID) (domain.SalesRep, error)
}

// HistoryReader aggregates outcomes of previously closed similar leads.
type HistoryReader interface {
	HistoricalOutcome(ctx context.Context, query domain.HistoryQuery) (*domain.HistoricalOutcome, error)
}

// FollowUpScheduler plans a reminder for the top follow-up action.
type FollowUpScheduler interface {
	ScheduleFollowUpReminder(ctx context.Context, leadID uuid.UUID, action, timing string, runAt time.Time) error
}
