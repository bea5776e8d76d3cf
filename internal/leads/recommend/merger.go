package recommend

import (
	"sort"
	"strings"

	"salesdesk_backend/internal/leads/domain"

	"github.com/google/uuid"
)

const (
	// aiTake and ruleTake bound how many entries each source contributes to
	// the merged list before deduplication.
	aiTake   = 3
	ruleTake = 4

	// dupOverlapThreshold is the token-overlap ratio above which two actions
	// count as the same recommendation. Inherited tuning, not a proven
	// optimum.
	dupOverlapThreshold = 0.5

	defaultTiming = "within 48 hours"
)

// Merge combines rule-based recommendations with classified model candidates:
// the top entries of each source are concatenated (model first), near-duplicate
// actions are dropped keeping the earlier entry, and the result is sorted by
// priority with stable order within each tier. An empty model list returns the
// rule list unchanged in content and order.
func Merge(rule, ai []domain.FollowUpRecommendation) []domain.FollowUpRecommendation {
	merged := make([]domain.FollowUpRecommendation, 0, aiTake+ruleTake)
	merged = append(merged, take(ai, aiTake)...)
	merged = append(merged, take(rule, ruleTake)...)

	merged = dedupe(merged)
	sortByPriority(merged)
	return merged
}

// ClassifyCandidates turns free-text model suggestions into structured
// recommendations using keyword heuristics. Best effort: the classification
// is fuzzy and callers must not treat type or timing as authoritative.
func ClassifyCandidates(texts []string) []domain.FollowUpRecommendation {
	out := make([]domain.FollowUpRecommendation, 0, len(texts))
	for i, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		out = append(out, classify(text, i))
	}
	return out
}

func classify(text string, position int) domain.FollowUpRecommendation {
	sentences := splitSentences(text)
	action := text
	if len(sentences) > 0 {
		action = sentences[0]
	}

	return domain.FollowUpRecommendation{
		ID:       uuid.New(),
		Type:     classifyType(text),
		Priority: classifyPriority(text, position),
		Action:   action,
		Reason:   extractReason(sentences),
		Timing:   classifyTiming(text),
		Origin:   domain.OriginAI,
	}
}

func classifyType(text string) domain.RecommendationType {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, "call", "phone", "ring"):
		return domain.TypeCall
	case containsAny(lower, "meet", "demo", "appointment"):
		return domain.TypeMeeting
	case containsAny(lower, "email", "write to", "message"):
		return domain.TypeEmail
	case containsAny(lower, "case study", "whitepaper", "article", "content", "brochure", "material"):
		return domain.TypeContent
	default:
		return domain.TypeTask
	}
}

// classifyPriority combines an urgency-keyword check with position: the model
// lists its strongest suggestion first, so the leading candidate is promoted.
func classifyPriority(text string, position int) domain.Priority {
	lower := strings.ToLower(text)
	if containsAny(lower, "urgent", "immediately", "asap", "right away", "today", "now", "hour") {
		return domain.PriorityUrgent
	}
	if position == 0 {
		return domain.PriorityHigh
	}
	return domain.PriorityMedium
}

func classifyTiming(text string) string {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, "immediately", "asap", "right away", "now"):
		return "immediately"
	case containsAny(lower, "hour", "today"):
		return "within 24 hours"
	case containsAny(lower, "week"):
		return "this week"
	default:
		return defaultTiming
	}
}

// extractReason returns the first sentence carrying causal language, or "".
func extractReason(sentences []string) string {
	for _, s := range sentences {
		lower := strings.ToLower(s)
		if containsAny(lower, "because", "since", "so that", "given", "as they", "to close", "shows", "signals") {
			return s
		}
	}
	return ""
}

// containsAny checks if s contains any of the keywords.
func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func splitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// dedupe removes near-duplicate actions, keeping the earlier-seen entry.
func dedupe(recs []domain.FollowUpRecommendation) []domain.FollowUpRecommendation {
	out := make([]domain.FollowUpRecommendation, 0, len(recs))
	for _, candidate := range recs {
		dup := false
		for _, kept := range out {
			if tokenOverlap(kept.Action, candidate.Action) > dupOverlapThreshold {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, candidate)
		}
	}
	return out
}

// tokenOverlap is the share of the shorter action's tokens that also appear
// in the longer one. Stop words and number-word spelling differences are
// normalized away so "within two hours" and "within 2 hours" still match.
func tokenOverlap(a, b string) float64 {
	ta, tb := tokenize(a), tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	if len(tb) < len(ta) {
		ta, tb = tb, ta
	}
	set := make(map[string]bool, len(tb))
	for _, t := range tb {
		set[t] = true
	}
	hits := 0
	for _, t := range ta {
		if set[t] {
			hits++
		}
	}
	return float64(hits) / float64(len(ta))
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "to": true, "of": true,
	"for": true, "with": true, "and": true, "or": true, "in": true,
	"on": true, "at": true,
}

var numberWords = map[string]string{
	"one": "1", "two": "2", "three": "3", "four": "4", "five": "5",
	"six": "6", "seven": "7", "eight": "8", "nine": "9", "ten": "10",
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if stopWords[f] {
			continue
		}
		if digit, ok := numberWords[f]; ok {
			f = digit
		}
		out = append(out, f)
	}
	return out
}

func take(recs []domain.FollowUpRecommendation, n int) []domain.FollowUpRecommendation {
	if len(recs) > n {
		return recs[:n]
	}
	return recs
}

func sortByPriority(recs []domain.FollowUpRecommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Priority.Rank() < recs[j].Priority.Rank()
	})
}
