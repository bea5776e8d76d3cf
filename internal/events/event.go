// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"salesdesk_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadQualified is published after the scorer produces a new score and stage
// for a lead workflow.
type LeadQualified struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	Score    int       `json:"score"`
	OldStage string    `json:"oldStage"`
	NewStage string    `json:"newStage"`
}

func (e LeadQualified) EventName() string { return "leads.qualified" }

// LeadAssigned is published when a lead is assigned to a sales rep.
type LeadAssigned struct {
	BaseEvent
	LeadID      uuid.UUID  `json:"leadId"`
	PreviousRep *uuid.UUID `json:"previousRep,omitempty"`
	NewRep      uuid.UUID  `json:"newRep"`
	Territory   string     `json:"territory"`
	Overflow    bool       `json:"overflow"`
	Forced      bool       `json:"forced"`
}

func (e LeadAssigned) EventName() string { return "leads.assigned" }

// FollowUpsGenerated is published when a recommendation set is produced for a
// lead, so the scheduler can plan reminders for the top action.
type FollowUpsGenerated struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	Count     int       `json:"count"`
	AICount   int       `json:"aiCount"`
	TopAction string    `json:"topAction"`
	TopTiming string    `json:"topTiming"`
}

func (e FollowUpsGenerated) EventName() string { return "leads.followups.generated" }

// FollowUpReminderDue is published by the scheduler worker when a planned
// follow-up reminder fires and the lead is still actionable.
type FollowUpReminderDue struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Action string    `json:"action"`
	Timing string    `json:"timing"`
}

func (e FollowUpReminderDue) EventName() string { return "leads.followup.reminder_due" }

// StageChanged is published whenever a workflow moves between lifecycle
// stages, whether inferred or manually overridden.
type StageChanged struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	OldStage string    `json:"oldStage"`
	NewStage string    `json:"newStage"`
	Actor    string    `json:"actor"`
}

func (e StageChanged) EventName() string { return "leads.stage.changed" }
