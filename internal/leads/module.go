// Package leads provides the lead qualification bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"context"

	"salesdesk_backend/internal/events"
	apphttp "salesdesk_backend/internal/http"
	"salesdesk_backend/internal/leads/advisor"
	"salesdesk_backend/internal/leads/assignment"
	"salesdesk_backend/internal/leads/forecast"
	"salesdesk_backend/internal/leads/handler"
	"salesdesk_backend/internal/leads/ports"
	"salesdesk_backend/internal/leads/recommend"
	"salesdesk_backend/internal/leads/repository"
	"salesdesk_backend/internal/leads/scoring"
	"salesdesk_backend/internal/leads/service"
	"salesdesk_backend/platform/ai/completion"
	"salesdesk_backend/platform/config"
	"salesdesk_backend/platform/logger"
	"salesdesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the leads module with all its
// dependencies. redisClient may be nil; the historical-outcome cache then
// degrades to direct queries.
func NewModule(pool *pgxpool.Pool, redisClient *redis.Client, eventBus events.Bus, val *validator.Validator, cfg *config.Config, log *logger.Logger) *Module {
	repo := repository.New(pool)
	history := repository.NewHistoryCache(repo, redisClient, cfg.GetHistoricalCacheTTL(), log)

	var completionClient advisor.CompletionClient
	if cfg.IsAIEnabled() {
		completionClient = completion.New(completion.Config{
			APIKey:  cfg.GetCompletionAPIKey(),
			BaseURL: cfg.GetCompletionBaseURL(),
			Model:   cfg.GetCompletionModel(),
		})
	}
	adv := advisor.New(cfg, completionClient, log)

	weights := scoring.FromConfig(cfg)
	svc := service.New(
		repo,
		history,
		scoring.New(weights, log),
		forecast.New(forecast.DefaultConfig(), log),
		assignment.New(log),
		adv,
		recommend.NewRuleEngine(weights.InterestScaleMax),
		eventBus,
		log,
	)

	// Freshly qualified leads get a recommendation set generated in the
	// background so the first detail-view load is warm.
	eventBus.Subscribe(events.LeadQualified{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadQualified)
		if !ok {
			return nil
		}

		go func() {
			if _, err := svc.Recommend(context.Background(), e.LeadID); err != nil {
				log.Error("background recommendation generation failed", "error", err, "leadId", e.LeadID)
			}
		}()

		return nil
	}))

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the orchestrator for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// SetFollowUpScheduler wires the optional asynq reminder scheduler.
func (m *Module) SetFollowUpScheduler(scheduler ports.FollowUpScheduler) {
	m.service.SetFollowUpScheduler(scheduler)
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	leadsGroup := ctx.V1.Group("/leads")
	m.handler.RegisterRoutes(leadsGroup)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
