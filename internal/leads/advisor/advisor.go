// Package advisor enriches lead workflows with model-generated insight. The
// adapter is strictly optional: every failure mode degrades to "no insight"
// and the rule-based pipeline carries on without it.
package advisor

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"salesdesk_backend/internal/leads/domain"
	"salesdesk_backend/platform/config"
	"salesdesk_backend/platform/logger"
	"salesdesk_backend/platform/phone"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Insight is the parsed model output for a single lead. Confidence reflects
// how complete the lead record fed to the model was, not the model's own
// self-assessment.
type Insight struct {
	Quality     string   `json:"quality"`
	Score       *int     `json:"score,omitempty"`
	Suggestions []string `json:"suggestions"`
	Reasoning   string   `json:"reasoning"`
	Confidence  int      `json:"confidence"` // 0-100, input-completeness percentage
	Model       string   `json:"model"`
}

// CompletionClient is the slice of the platform completion client the adapter
// needs. Satisfied by *completion.Client.
type CompletionClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Name() string
}

// Adapter wraps the completion client with the guard rails the engine
// requires: enablement check, per-call timeout, rate limiting, and stale
// result suppression. Safe for concurrent use.
type Adapter struct {
	client  CompletionClient
	enabled bool
	timeout time.Duration
	limiter *rate.Limiter
	log     *logger.Logger

	mu          sync.Mutex
	generations map[uuid.UUID]uint64
}

// New creates an adapter from config. When AI is disabled or no API key is
// configured the adapter still constructs fine and simply returns nil insight.
func New(cfg config.AIConfig, client CompletionClient, log *logger.Logger) *Adapter {
	rpm := cfg.GetCompletionRequestsPerMinute()
	if rpm <= 0 {
		rpm = 30
	}
	timeout := cfg.GetCompletionTimeout()
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Adapter{
		client:      client,
		enabled:     cfg.IsAIEnabled(),
		timeout:     timeout,
		limiter:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm),
		log:         log,
		generations: make(map[uuid.UUID]uint64),
	}
}

// Enabled reports whether the adapter will attempt model calls at all.
func (a *Adapter) Enabled() bool {
	return a != nil && a.enabled && a.client != nil
}

// Advise asks the model to assess the lead and returns the parsed insight, or
// nil when the adapter is disabled, rate limited, the call fails, or a newer
// request for the same lead started while this one was in flight. It never
// returns an error: the caller must not couple its outcome to this path.
func (a *Adapter) Advise(ctx context.Context, lead domain.LeadRecord, workflow domain.LeadWorkflow) *Insight {
	if !a.Enabled() {
		return nil
	}
	if !a.limiter.Allow() {
		if a.log != nil {
			a.log.RateLimitExceeded("completion", "per-minute request budget exhausted")
		}
		return nil
	}

	gen := a.beginGeneration(lead.ID)
	defer a.finishGeneration(lead.ID, gen)

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.client.Complete(ctx, systemPrompt, buildPrompt(lead, workflow))
	if err != nil {
		if a.log != nil {
			a.log.ExternalServiceError("completion", "advise", err)
		}
		return nil
	}

	if !a.isCurrentGeneration(lead.ID, gen) {
		// A newer request superseded this one; its answer is based on fresher
		// lead state, so this result is discarded.
		if a.log != nil {
			a.log.Debug("discarding stale insight", "leadId", lead.ID)
		}
		return nil
	}

	insight := parseInsight(raw)
	insight.Confidence = completeness(lead)
	insight.Model = a.client.Name()
	return insight
}

func (a *Adapter) beginGeneration(leadID uuid.UUID) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.generations[leadID]++
	return a.generations[leadID]
}

func (a *Adapter) isCurrentGeneration(leadID uuid.UUID, gen uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.generations[leadID] == gen
}

// finishGeneration drops the lead's counter once its latest call completes.
// A superseded call leaves the entry alone: the newer in-flight call still
// needs it to detect staleness.
func (a *Adapter) finishGeneration(leadID uuid.UUID, gen uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.generations[leadID] == gen {
		delete(a.generations, leadID)
	}
}

const systemPrompt = `You are a sales assistant reviewing inbound leads.
Respond with a single JSON object: {"quality": "hot"|"warm"|"cold",
"score": 0-100, "suggestions": ["..."], "reasoning": "..."}.
Suggestions are concrete next actions for the assigned sales rep.`

func buildPrompt(lead domain.LeadRecord, workflow domain.LeadWorkflow) string {
	var b strings.Builder
	b.WriteString("Lead: " + lead.Name + "\n")
	b.WriteString("Stage: " + string(workflow.Stage) + "\n")
	if lead.Territory != "" {
		b.WriteString("Territory: " + lead.Territory + "\n")
	}
	if lead.RevenueBucket != "" {
		b.WriteString("Revenue bucket: " + lead.RevenueBucket + "\n")
	}
	if lead.EmployeeBucket != "" {
		b.WriteString("Company size: " + lead.EmployeeBucket + "\n")
	}
	if needs := lead.NeedsText(); needs != "" {
		b.WriteString("Stated needs: " + needs + "\n")
	}
	if len(lead.PainPoints) > 0 {
		b.WriteString("Pain points: " + strings.Join(lead.PainPoints, "; ") + "\n")
	}
	if lead.DecisionMaker != nil && *lead.DecisionMaker != "" {
		b.WriteString("Decision maker: " + *lead.DecisionMaker + "\n")
	}
	return b.String()
}

// rawInsight tolerates the field shapes models actually produce: score as
// number or string, suggestions as array or single string.
type rawInsight struct {
	Quality     string          `json:"quality"`
	Score       json.Number     `json:"score"`
	Suggestions json.RawMessage `json:"suggestions"`
	Reasoning   string          `json:"reasoning"`
}

// parseInsight extracts the JSON object from the model output, which is often
// wrapped in prose or a markdown fence. Unparseable output still yields an
// insight: the raw text becomes the reasoning and every other field defaults.
func parseInsight(text string) *Insight {
	insight := &Insight{Quality: "unknown"}

	obj := extractJSONObject(text)
	if obj == "" {
		insight.Reasoning = strings.TrimSpace(text)
		return insight
	}

	var raw rawInsight
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		insight.Reasoning = strings.TrimSpace(text)
		return insight
	}

	if q := strings.ToLower(strings.TrimSpace(raw.Quality)); q != "" {
		insight.Quality = q
	}
	if raw.Score != "" {
		if f, err := raw.Score.Float64(); err == nil {
			score := int(f)
			if score < 0 {
				score = 0
			}
			if score > 100 {
				score = 100
			}
			insight.Score = &score
		}
	}
	insight.Suggestions = parseSuggestions(raw.Suggestions)
	insight.Reasoning = strings.TrimSpace(raw.Reasoning)
	return insight
}

func parseSuggestions(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return trimNonEmpty(list)
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return trimNonEmpty([]string{single})
	}
	return nil
}

func trimNonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// extractJSONObject returns the outermost {...} span in text, or "".
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// completenessFields is the number of lead attributes the confidence score is
// computed over.
const completenessFields = 10

// completeness scores how much of the lead record was available to the model,
// as a percentage. A sparse record caps how much weight downstream merging
// should give the model's answer.
func completeness(lead domain.LeadRecord) int {
	populated := 0
	if strings.TrimSpace(lead.Name) != "" {
		populated++
	}
	if lead.HasPhone() && phone.IsPlausible(*lead.Phone) {
		populated++
	}
	if lead.HasEmail() {
		populated++
	}
	if lead.InterestLevel > 0 {
		populated++
	}
	if lead.NeedsText() != "" {
		populated++
	}
	if len(lead.PainPoints) > 0 {
		populated++
	}
	if lead.Territory != "" {
		populated++
	}
	if lead.RevenueBucket != "" {
		populated++
	}
	if lead.EmployeeBucket != "" {
		populated++
	}
	if lead.DecisionMaker != nil && strings.TrimSpace(*lead.DecisionMaker) != "" {
		populated++
	}
	return populated * 100 / completenessFields
}
