// Package repository implements postgres-backed storage for the leads module.
package repository

import (
	"context"
	"encoding/json"
	"errors"

	"salesdesk_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetLead loads an immutable lead snapshot.
func (r *Repository) GetLead(ctx context.Context, id uuid.UUID) (domain.LeadRecord, error) {
	var lead domain.LeadRecord
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, phone, email, interest_level, needs, pain_points,
		       territory, revenue_bucket, employee_bucket, decision_maker,
		       package_seen, closed_won, created_at
		FROM leads
		WHERE id = $1
	`, id).Scan(
		&lead.ID, &lead.Name, &lead.Phone, &lead.Email, &lead.InterestLevel,
		&lead.Needs, &lead.PainPoints, &lead.Territory, &lead.RevenueBucket,
		&lead.EmployeeBucket, &lead.DecisionMaker, &lead.PackageSeen,
		&lead.ClosedWon, &lead.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LeadRecord{}, ErrNotFound
	}
	if err != nil {
		return domain.LeadRecord{}, err
	}
	return lead, nil
}

// GetWorkflow loads the qualification workflow for a lead, including its
// stage history ordered oldest first.
func (r *Repository) GetWorkflow(ctx context.Context, leadID uuid.UUID) (domain.LeadWorkflow, error) {
	var (
		workflow     domain.LeadWorkflow
		criteriaJSON []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT lead_id, stage, score, criteria, next_actions, assigned_rep_id, updated_at
		FROM lead_workflows
		WHERE lead_id = $1
	`, leadID).Scan(
		&workflow.LeadID, &workflow.Stage, &workflow.Score, &criteriaJSON,
		&workflow.NextActions, &workflow.AssignedRepID, &workflow.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LeadWorkflow{}, ErrNotFound
	}
	if err != nil {
		return domain.LeadWorkflow{}, err
	}

	if len(criteriaJSON) > 0 {
		if err := json.Unmarshal(criteriaJSON, &workflow.Criteria); err != nil {
			return domain.LeadWorkflow{}, err
		}
	}

	history, err := r.StageHistory(ctx, leadID)
	if err != nil {
		return domain.LeadWorkflow{}, err
	}
	workflow.StageHistory = history
	return workflow, nil
}

// SaveWorkflow upserts the workflow row and appends the supplied transitions
// to the stage history in the same transaction.
func (r *Repository) SaveWorkflow(ctx context.Context, workflow domain.LeadWorkflow, transitions []domain.StageTransition) error {
	criteriaJSON, err := json.Marshal(workflow.Criteria)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO lead_workflows (lead_id, stage, score, criteria, next_actions, assigned_rep_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (lead_id) DO UPDATE SET
			stage = EXCLUDED.stage,
			score = EXCLUDED.score,
			criteria = EXCLUDED.criteria,
			next_actions = EXCLUDED.next_actions,
			assigned_rep_id = EXCLUDED.assigned_rep_id,
			updated_at = EXCLUDED.updated_at
	`, workflow.LeadID, workflow.Stage, workflow.Score, criteriaJSON,
		workflow.NextActions, workflow.AssignedRepID, workflow.UpdatedAt)
	if err != nil {
		return err
	}

	for _, transition := range transitions {
		_, err = tx.Exec(ctx, `
			INSERT INTO stage_transitions (id, lead_id, from_stage, to_stage, actor, occurred_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.New(), workflow.LeadID, transition.From, transition.To,
			transition.Actor, transition.At)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// StageHistory returns the ordered stage-transition log for a lead.
func (r *Repository) StageHistory(ctx context.Context, leadID uuid.UUID) ([]domain.StageTransition, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT from_stage, to_stage, actor, occurred_at
		FROM stage_transitions
		WHERE lead_id = $1
		ORDER BY occurred_at ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]domain.StageTransition, 0)
	for rows.Next() {
		var t domain.StageTransition
		if err := rows.Scan(&t.From, &t.To, &t.Actor, &t.At); err != nil {
			return nil, err
		}
		history = append(history, t)
	}
	return history, rows.Err()
}

// ListRepsWithLoad reconstructs the rep population with load derived from the
// current open-workflow count. Load is never read from a stored column.
func (r *Repository) ListRepsWithLoad(ctx context.Context) ([]domain.SalesRep, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT sr.id, sr.name, sr.territories, sr.capacity,
		       sr.conversion_rate, sr.avg_days_to_close,
		       COUNT(lw.lead_id) FILTER (WHERE lw.stage NOT IN ('customer', 'lost')) AS open_leads
		FROM sales_reps sr
		LEFT JOIN lead_workflows lw ON lw.assigned_rep_id = sr.id
		WHERE sr.is_active = true
		GROUP BY sr.id
		ORDER BY sr.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reps := make([]domain.SalesRep, 0)
	for rows.Next() {
		var rep domain.SalesRep
		if err := rows.Scan(&rep.ID, &rep.Name, &rep.Territories, &rep.Capacity,
			&rep.ConversionRate, &rep.AvgDaysToClose, &rep.Load); err != nil {
			return nil, err
		}
		reps = append(reps, rep)
	}
	return reps, rows.Err()
}

// GetRepWithLoad loads a single rep with derived load.
func (r *Repository) GetRepWithLoad(ctx context.Context, id uuid.UUID) (domain.SalesRep, error) {
	var rep domain.SalesRep
	err := r.pool.QueryRow(ctx, `
		SELECT sr.id, sr.name, sr.territories, sr.capacity,
		       sr.conversion_rate, sr.avg_days_to_close,
		       COUNT(lw.lead_id) FILTER (WHERE lw.stage NOT IN ('customer', 'lost')) AS open_leads
		FROM sales_reps sr
		LEFT JOIN lead_workflows lw ON lw.assigned_rep_id = sr.id
		WHERE sr.id = $1
		GROUP BY sr.id
	`, id).Scan(&rep.ID, &rep.Name, &rep.Territories, &rep.Capacity,
		&rep.ConversionRate, &rep.AvgDaysToClose, &rep.Load)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SalesRep{}, ErrNotFound
	}
	if err != nil {
		return domain.SalesRep{}, err
	}
	return rep, nil
}

// HistoricalOutcome aggregates closed workflows for leads in the query's
// segment with interest inside the given range. A zero count means no history
// exists.
func (r *Repository) HistoricalOutcome(ctx context.Context, query domain.HistoryQuery) (*domain.HistoricalOutcome, error) {
	var (
		outcome domain.HistoricalOutcome
		avgDays *float64
		won     int
	)
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE lw.stage = 'customer'),
		       AVG(EXTRACT(EPOCH FROM lw.updated_at - l.created_at) / 86400)
		           FILTER (WHERE lw.stage = 'customer')
		FROM lead_workflows lw
		JOIN leads l ON l.id = lw.lead_id
		WHERE lw.stage IN ('customer', 'lost')
		  AND l.territory = $1
		  AND l.revenue_bucket = $2
		  AND l.interest_level BETWEEN $3 AND $4
	`, query.Territory, query.RevenueBucket, query.InterestMin, query.InterestMax).
		Scan(&outcome.Count, &won, &avgDays)
	if err != nil {
		return nil, err
	}

	if outcome.Count > 0 {
		outcome.ConversionRate = float64(won) / float64(outcome.Count)
	}
	if avgDays != nil {
		outcome.AvgDaysToClose = *avgDays
	}
	return &outcome, nil
}
