package advisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"salesdesk_backend/internal/leads/domain"
	"salesdesk_backend/platform/config"

	"github.com/google/uuid"
)

type stubClient struct {
	reply string
	err   error
	calls int
	hook  func()
}

func (s *stubClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	s.calls++
	if s.hook != nil {
		s.hook()
	}
	return s.reply, s.err
}

func (s *stubClient) Name() string { return "test-model" }

func testConfig(enabled bool, key string, rpm int) *config.Config {
	return &config.Config{
		AIEnabled:                   enabled,
		CompletionAPIKey:            key,
		CompletionTimeout:           time.Second,
		CompletionRequestsPerMinute: rpm,
	}
}

func strPtr(s string) *string { return &s }

func fullLead() domain.LeadRecord {
	return domain.LeadRecord{
		ID:             uuid.New(),
		Name:           "Acme Corp",
		Phone:          strPtr("+18765550123"),
		Email:          strPtr("ops@acme.example"),
		InterestLevel:  4,
		Needs:          strPtr("replace spreadsheet-driven intake"),
		PainPoints:     []string{"manual entry"},
		Territory:      "Kingston",
		RevenueBucket:  "1m_10m",
		EmployeeBucket: "51-200",
		DecisionMaker:  strPtr("J. Brown, COO"),
	}
}

func TestAdviseNilWhenDisabled(t *testing.T) {
	client := &stubClient{reply: `{"quality":"hot"}`}

	cases := []*config.Config{
		testConfig(false, "key-present", 60), // flag off
		testConfig(true, "", 60),             // no API key
	}
	for i, cfg := range cases {
		adapter := New(cfg, client, nil)
		if got := adapter.Advise(context.Background(), fullLead(), domain.LeadWorkflow{}); got != nil {
			t.Errorf("case %d: expected nil insight when disabled, got %+v", i, got)
		}
	}
	if client.calls != 0 {
		t.Errorf("disabled adapter made %d model calls", client.calls)
	}
}

func TestAdviseParsesWrappedJSON(t *testing.T) {
	client := &stubClient{reply: "Here is my assessment:\n```json\n" +
		`{"quality":"HOT","score":87,"suggestions":["Call within 24 hours","Send pricing deck"],"reasoning":"strong budget signal"}` +
		"\n```"}
	adapter := New(testConfig(true, "key", 60), client, nil)

	got := adapter.Advise(context.Background(), fullLead(), domain.LeadWorkflow{Stage: domain.StageQualified})
	if got == nil {
		t.Fatal("expected insight")
	}
	if got.Quality != "hot" {
		t.Errorf("quality = %q, want normalized %q", got.Quality, "hot")
	}
	if got.Score == nil || *got.Score != 87 {
		t.Errorf("score = %v, want 87", got.Score)
	}
	if len(got.Suggestions) != 2 {
		t.Fatalf("suggestions = %v, want 2 entries", got.Suggestions)
	}
	if got.Reasoning != "strong budget signal" {
		t.Errorf("reasoning = %q", got.Reasoning)
	}
	if got.Model != "test-model" {
		t.Errorf("model = %q", got.Model)
	}
}

func TestAdviseDegradesOnUnparseableOutput(t *testing.T) {
	client := &stubClient{reply: "I think this lead looks promising overall."}
	adapter := New(testConfig(true, "key", 60), client, nil)

	got := adapter.Advise(context.Background(), fullLead(), domain.LeadWorkflow{})
	if got == nil {
		t.Fatal("unparseable output must still produce a degraded insight")
	}
	if got.Quality != "unknown" {
		t.Errorf("quality = %q, want unknown default", got.Quality)
	}
	if got.Score != nil {
		t.Errorf("score = %v, want nil default", got.Score)
	}
	if got.Reasoning == "" {
		t.Error("raw text should be preserved as reasoning")
	}
}

func TestAdviseNilOnClientError(t *testing.T) {
	client := &stubClient{err: errors.New("upstream 503")}
	adapter := New(testConfig(true, "key", 60), client, nil)

	if got := adapter.Advise(context.Background(), fullLead(), domain.LeadWorkflow{}); got != nil {
		t.Errorf("expected nil insight on client error, got %+v", got)
	}
}

func TestAdviseRateLimited(t *testing.T) {
	client := &stubClient{reply: `{"quality":"warm"}`}
	adapter := New(testConfig(true, "key", 1), client, nil)

	first := adapter.Advise(context.Background(), fullLead(), domain.LeadWorkflow{})
	if first == nil {
		t.Fatal("first call should pass the limiter")
	}
	second := adapter.Advise(context.Background(), fullLead(), domain.LeadWorkflow{})
	if second != nil {
		t.Error("second call within the window should be dropped, not queued")
	}
	if client.calls != 1 {
		t.Errorf("model called %d times, want 1", client.calls)
	}
}

func TestAdviseDiscardsStaleResult(t *testing.T) {
	lead := fullLead()
	client := &stubClient{reply: `{"quality":"hot","score":90}`}
	adapter := New(testConfig(true, "key", 60), client, nil)

	// A newer request for the same lead starts while this call is in flight.
	client.hook = func() { adapter.beginGeneration(lead.ID) }

	if got := adapter.Advise(context.Background(), lead, domain.LeadWorkflow{}); got != nil {
		t.Errorf("superseded in-flight result must be discarded, got %+v", got)
	}
}

func TestAdviseReleasesGenerationTracking(t *testing.T) {
	client := &stubClient{reply: `{"quality":"warm"}`}
	adapter := New(testConfig(true, "key", 60), client, nil)

	for i := 0; i < 5; i++ {
		if got := adapter.Advise(context.Background(), fullLead(), domain.LeadWorkflow{}); got == nil {
			t.Fatalf("call %d: expected insight", i)
		}
	}

	adapter.mu.Lock()
	tracked := len(adapter.generations)
	adapter.mu.Unlock()
	if tracked != 0 {
		t.Errorf("completed calls left %d tracked generations, want 0", tracked)
	}
}

func TestSupersededCallKeepsNewerGeneration(t *testing.T) {
	lead := fullLead()
	client := &stubClient{reply: `{"quality":"hot"}`}
	adapter := New(testConfig(true, "key", 60), client, nil)

	// A newer request for the same lead starts mid-flight. When the older call
	// finishes, the newer call's counter must survive so it can still detect
	// staleness itself.
	client.hook = func() { adapter.beginGeneration(lead.ID) }
	if got := adapter.Advise(context.Background(), lead, domain.LeadWorkflow{}); got != nil {
		t.Fatalf("superseded result not discarded: %+v", got)
	}

	adapter.mu.Lock()
	gen, ok := adapter.generations[lead.ID]
	adapter.mu.Unlock()
	if !ok || gen != 2 {
		t.Errorf("newer generation entry = %d (present=%v), want 2 still tracked", gen, ok)
	}

	adapter.finishGeneration(lead.ID, gen)
	adapter.mu.Lock()
	_, ok = adapter.generations[lead.ID]
	adapter.mu.Unlock()
	if ok {
		t.Error("entry not released after the newer call completed")
	}
}

func TestConfidenceTracksRecordCompleteness(t *testing.T) {
	client := &stubClient{reply: `{"quality":"warm"}`}
	adapter := New(testConfig(true, "key", 60), client, nil)

	full := adapter.Advise(context.Background(), fullLead(), domain.LeadWorkflow{})
	if full == nil {
		t.Fatal("expected insight")
	}
	if full.Confidence != 100 {
		t.Errorf("fully populated lead confidence = %v, want 100", full.Confidence)
	}

	sparse := adapter.Advise(context.Background(), domain.LeadRecord{ID: uuid.New(), Name: "Solo"}, domain.LeadWorkflow{})
	if sparse == nil {
		t.Fatal("expected insight")
	}
	if sparse.Confidence >= full.Confidence {
		t.Errorf("sparse lead confidence %v not below full %v", sparse.Confidence, full.Confidence)
	}
	if sparse.Confidence != 10 {
		t.Errorf("name-only lead confidence = %v, want 10", sparse.Confidence)
	}
}

func TestParseInsightClampsScore(t *testing.T) {
	insight := parseInsight(`{"quality":"hot","score":250}`)
	if insight.Score == nil || *insight.Score != 100 {
		t.Errorf("score = %v, want clamped to 100", insight.Score)
	}

	insight = parseInsight(`{"quality":"cold","score":-5,"suggestions":"single suggestion"}`)
	if insight.Score == nil || *insight.Score != 0 {
		t.Errorf("score = %v, want clamped to 0", insight.Score)
	}
	if len(insight.Suggestions) != 1 {
		t.Errorf("string-shaped suggestions = %v, want 1 entry", insight.Suggestions)
	}
}
