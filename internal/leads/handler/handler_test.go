package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"salesdesk_backend/internal/leads/advisor"
	"salesdesk_backend/internal/leads/assignment"
	"salesdesk_backend/internal/leads/domain"
	"salesdesk_backend/internal/leads/forecast"
	"salesdesk_backend/internal/leads/recommend"
	"salesdesk_backend/internal/leads/repository"
	"salesdesk_backend/internal/leads/scoring"
	"salesdesk_backend/internal/leads/service"
	"salesdesk_backend/platform/config"
	"salesdesk_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type memStore struct {
	leads     map[uuid.UUID]domain.LeadRecord
	workflows map[uuid.UUID]domain.LeadWorkflow
	history   map[uuid.UUID][]domain.StageTransition
	reps      []domain.SalesRep
}

func newMemStore() *memStore {
	return &memStore{
		leads:     make(map[uuid.UUID]domain.LeadRecord),
		workflows: make(map[uuid.UUID]domain.LeadWorkflow),
		history:   make(map[uuid.UUID][]domain.StageTransition),
	}
}

func (m *memStore) GetLead(ctx context.Context, id uuid.UUID) (domain.LeadRecord, error) {
	lead, ok := m.leads[id]
	if !ok {
		return domain.LeadRecord{}, repository.ErrNotFound
	}
	return lead, nil
}

func (m *memStore) GetWorkflow(ctx context.Context, leadID uuid.UUID) (domain.LeadWorkflow, error) {
	wf, ok := m.workflows[leadID]
	if !ok {
		return domain.LeadWorkflow{}, repository.ErrNotFound
	}
	return wf, nil
}

func (m *memStore) SaveWorkflow(ctx context.Context, workflow domain.LeadWorkflow, transitions []domain.StageTransition) error {
	m.workflows[workflow.LeadID] = workflow
	m.history[workflow.LeadID] = append(m.history[workflow.LeadID], transitions...)
	return nil
}

func (m *memStore) StageHistory(ctx context.Context, leadID uuid.UUID) ([]domain.StageTransition, error) {
	return m.history[leadID], nil
}

func (m *memStore) ListRepsWithLoad(ctx context.Context) ([]domain.SalesRep, error) {
	return m.reps, nil
}

func (m *memStore) GetRepWithLoad(ctx context.Context, id uuid.UUID) (domain.SalesRep, error) {
	for _, rep := range m.reps {
		if rep.ID == id {
			return rep, nil
		}
	}
	return domain.SalesRep{}, repository.ErrNotFound
}

type noHistory struct{}

func (noHistory) HistoricalOutcome(ctx context.Context, query domain.HistoryQuery) (*domain.HistoricalOutcome, error) {
	return &domain.HistoricalOutcome{}, nil
}

func newTestRouter(store *memStore) *gin.Engine {
	gin.SetMode(gin.TestMode)

	weights := scoring.DefaultWeights()
	svc := service.New(
		store,
		noHistory{},
		scoring.New(weights, nil),
		forecast.New(forecast.DefaultConfig(), nil),
		assignment.New(nil),
		advisor.New(&config.Config{}, nil, nil),
		recommend.NewRuleEngine(weights.InterestScaleMax),
		nil,
		nil,
	)

	engine := gin.New()
	group := engine.Group("/api/v1/leads")
	New(svc, validator.New()).RegisterRoutes(group)
	return engine
}

func strPtr(s string) *string { return &s }

func seedLead(store *memStore) domain.LeadRecord {
	lead := domain.LeadRecord{
		ID:            uuid.New(),
		Name:          "Island Traders Ltd",
		Phone:         strPtr("+18765550100"),
		Email:         strPtr("ops@islandtraders.example"),
		InterestLevel: 4,
		Territory:     "Kingston",
		RevenueBucket: "1m_10m",
		CreatedAt:     time.Now(),
	}
	store.leads[lead.ID] = lead
	return lead
}

func doRequest(t *testing.T, engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestGetWorkflowUnknownLeadReturns404(t *testing.T) {
	engine := newTestRouter(newMemStore())

	rec := doRequest(t, engine, http.MethodGet, "/api/v1/leads/"+uuid.NewString()+"/workflow", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetWorkflowRejectsMalformedID(t *testing.T) {
	engine := newTestRouter(newMemStore())

	rec := doRequest(t, engine, http.MethodGet, "/api/v1/leads/not-a-uuid/workflow", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestQualifyWithEmptyBodyScoresFromLeadAttributes(t *testing.T) {
	store := newMemStore()
	lead := seedLead(store)
	engine := newTestRouter(store)

	rec := doRequest(t, engine, http.MethodPost, "/api/v1/leads/"+lead.ID.String()+"/qualify", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		LeadID uuid.UUID `json:"leadId"`
		Stage  string    `json:"stage"`
		Score  int       `json:"score"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.LeadID != lead.ID {
		t.Errorf("leadId = %s, want %s", resp.LeadID, lead.ID)
	}
	if resp.Score <= 0 {
		t.Errorf("score = %d, want positive for a populated lead", resp.Score)
	}
	if resp.Stage == string(domain.StageNew) {
		t.Errorf("stage = %q, a lead with contact channels should advance past new", resp.Stage)
	}
}

func TestQualifyRejectsNegativeBudget(t *testing.T) {
	store := newMemStore()
	lead := seedLead(store)
	engine := newTestRouter(store)

	rec := doRequest(t, engine, http.MethodPost, "/api/v1/leads/"+lead.ID.String()+"/qualify",
		`{"hasBudget": true, "budgetMin": -500}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestOverrideStageRejectsUnknownStage(t *testing.T) {
	store := newMemStore()
	lead := seedLead(store)
	engine := newTestRouter(store)

	rec := doRequest(t, engine, http.MethodPatch, "/api/v1/leads/"+lead.ID.String()+"/stage",
		`{"stage": "archived"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAutoAssignUnservedTerritoryReturns422(t *testing.T) {
	store := newMemStore()
	lead := seedLead(store)
	store.reps = []domain.SalesRep{
		{ID: uuid.New(), Name: "Out of area", Territories: []string{"Negril"}, Capacity: 20},
	}
	engine := newTestRouter(store)

	rec := doRequest(t, engine, http.MethodPost, "/api/v1/leads/"+lead.ID.String()+"/assign/auto", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Details map[string]string `json:"details"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Details["reason"] == "" {
		t.Error("expected a distinguishable reason in the error details")
	}
}

func TestManualAssignAtCapacityReturns409(t *testing.T) {
	store := newMemStore()
	lead := seedLead(store)
	rep := domain.SalesRep{ID: uuid.New(), Name: "Full Book", Territories: []string{"Kingston"}, Capacity: 10, Load: 10}
	store.reps = []domain.SalesRep{rep}
	engine := newTestRouter(store)

	rec := doRequest(t, engine, http.MethodPost, "/api/v1/leads/"+lead.ID.String()+"/assign",
		`{"repId": "`+rep.ID.String()+`"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409, body = %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, engine, http.MethodPost, "/api/v1/leads/"+lead.ID.String()+"/assign",
		`{"repId": "`+rep.ID.String()+`", "force": true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("forced status = %d, want 200, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Overflow bool `json:"overflow"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if !resp.Overflow {
		t.Error("forced over-capacity assignment must be flagged as overflow")
	}
}

func TestRecommendationsWithDisabledAdapterAreRuleOnly(t *testing.T) {
	store := newMemStore()
	lead := seedLead(store)
	engine := newTestRouter(store)

	rec := doRequest(t, engine, http.MethodGet, "/api/v1/leads/"+lead.ID.String()+"/recommendations", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp []struct {
		Action string `json:"action"`
		Origin string `json:"origin"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(resp) == 0 {
		t.Fatal("expected at least one rule-based recommendation")
	}
	for i, r := range resp {
		if r.Origin != string(domain.OriginRule) {
			t.Errorf("recommendation %d origin = %q, want rule", i, r.Origin)
		}
		if r.Action == "" {
			t.Errorf("recommendation %d has an empty action", i)
		}
	}
}
