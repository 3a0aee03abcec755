package service

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ihabbishara/RAGIncidentApp/internal/domain"
)

const (
	fallbackShortDescriptionLen = 200
	fallbackDescriptionLen      = 1000
	fallbackOriginalTextLen     = 500
)

// SummaryInterpreter turns raw model output into a structured incident
// draft. Model output is messy: JSON may be wrapped in prose or code
// fences, fields may be missing or carry the wrong type. Interpretation
// never fails; when no usable JSON is found a heuristic draft is built
// from the raw text instead.
type SummaryInterpreter struct{}

func NewSummaryInterpreter() *SummaryInterpreter {
	return &SummaryInterpreter{}
}

// draftSchema mirrors the JSON shape the model is prompted to emit.
// Scalars are pointers so a missing field stays distinguishable from a
// zero value; urgency and impact are raw because models emit them as
// numbers or strings interchangeably.
type draftSchema struct {
	ShortDescription   *string         `json:"short_description"`
	Description        *string         `json:"description"`
	Category           *string         `json:"category"`
	Urgency            json.RawMessage `json:"urgency"`
	Impact             json.RawMessage `json:"impact"`
	RecommendedActions []string        `json:"recommended_actions"`
	KBReferences       []string        `json:"kb_references"`
}

// Interpret parses raw model output into a draft. The second return value
// reports whether the heuristic fallback was used because the output held
// no parseable JSON object with a short description.
func (si *SummaryInterpreter) Interpret(raw, originalText string) (domain.IncidentDraft, bool) {
	span, ok := extractJSONSpan(raw)
	if ok {
		var schema draftSchema
		if err := json.Unmarshal([]byte(span), &schema); err == nil {
			draft := domain.IncidentDraft{
				ShortDescription:   trimmedOrNil(schema.ShortDescription),
				Description:        trimmedOrNil(schema.Description),
				Category:           trimmedOrNil(schema.Category),
				Urgency:            parseLevel(schema.Urgency),
				Impact:             parseLevel(schema.Impact),
				RecommendedActions: cleanList(schema.RecommendedActions),
				KBReferences:       cleanList(schema.KBReferences),
			}
			if draft.ShortDescription != nil {
				return draft, false
			}
		}
	}
	return si.fallbackDraft(raw, originalText), true
}

// fallbackDraft builds a usable draft from unstructured text so a ticket
// can always be filed. The short description comes from the first line of
// the model output; when that output is too short to stand on its own the
// description falls back to the original email text.
func (si *SummaryInterpreter) fallbackDraft(raw, originalText string) domain.IncidentDraft {
	raw = strings.TrimSpace(raw)

	short := firstNonEmptyLine(raw)
	if short == "" {
		short = firstNonEmptyLine(originalText)
	}
	if short == "" {
		short = "Incident reported via email"
	}
	short = truncateRunes(short, fallbackShortDescriptionLen)

	var description string
	if len([]rune(raw)) > fallbackShortDescriptionLen {
		description = truncateRunes(raw, fallbackDescriptionLen)
	} else {
		description = truncateRunes(strings.TrimSpace(originalText), fallbackOriginalTextLen)
		if description == "" {
			description = raw
		}
	}

	level := 3
	return domain.IncidentDraft{
		ShortDescription: &short,
		Description:      &description,
		Urgency:          &level,
		Impact:           &level,
	}
}

// extractJSONSpan returns the substring between the first '{' and the last
// '}' of raw, which strips markdown fences and surrounding prose.
func extractJSONSpan(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return "", false
	}
	return raw[start : end+1], true
}

// parseLevel accepts a JSON number or a numeric string and returns it as
// an int. Anything else yields nil.
func parseLevel(raw json.RawMessage) *int {
	if len(raw) == 0 {
		return nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		v := int(f)
		return &v
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return &v
		}
	}
	return nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if t := strings.TrimSpace(it); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func firstNonEmptyLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return ""
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
