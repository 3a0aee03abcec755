package generation

import (
	"context"
	"fmt"
	"log"
)

const incidentSystemPrompt = `You are an expert IT incident analyst. Your task is to analyze
the incident report from an email and create a structured incident summary for ServiceNow.

You should:
1. Extract the main problem/issue from the email
2. If knowledge base articles are provided, reference relevant solutions
3. Categorize the incident appropriately
4. Suggest urgency and impact levels
5. Provide a clear, concise summary

Format your response as JSON with the following structure:
{
    "short_description": "Brief one-line description",
    "description": "Detailed description with context",
    "category": "Incident category",
    "urgency": 1-5,
    "impact": 1-5,
    "recommended_actions": ["action1", "action2"],
    "kb_references": ["KB article title 1", "KB article title 2"]
}`

const incidentPromptWithContext = `Analyze this incident email and create a ServiceNow incident summary.

EMAIL CONTENT:
%s

RELEVANT KNOWLEDGE BASE ARTICLES:
%s

Based on the email and knowledge base articles, provide a structured incident summary.`

const incidentPromptNoContext = `Analyze this incident email and create a ServiceNow incident summary.
No matching knowledge base articles were found, so base your analysis solely on the email content.

EMAIL CONTENT:
%s

Provide a structured incident summary with your best assessment.`

// BuildIncidentPrompt renders the user prompt for incident analysis. When
// kbContext is empty the model is told to work from the email alone.
func BuildIncidentPrompt(emailContent, kbContext string) (prompt, systemPrompt string) {
	if kbContext != "" {
		return fmt.Sprintf(incidentPromptWithContext, emailContent, kbContext), incidentSystemPrompt
	}
	return fmt.Sprintf(incidentPromptNoContext, emailContent), incidentSystemPrompt
}

// IncidentSummarizer wraps a Generator with the incident analysis prompts.
type IncidentSummarizer struct {
	gen Generator
}

func NewIncidentSummarizer(gen Generator) *IncidentSummarizer {
	return &IncidentSummarizer{gen: gen}
}

// Summarize asks the model for a structured incident summary and returns
// its raw output. Parsing is the caller's concern.
func (s *IncidentSummarizer) Summarize(ctx context.Context, emailContent, kbContext string) (string, error) {
	prompt, systemPrompt := BuildIncidentPrompt(emailContent, kbContext)
	log.Printf("generation: summarizing incident (prompt length: %d chars)", len(prompt))

	out, err := s.gen.Complete(ctx, prompt, systemPrompt)
	if err != nil {
		return "", err
	}
	log.Printf("generation: model returned %d chars", len(out))
	return out, nil
}

// Health reports whether the underlying model backend is available.
func (s *IncidentSummarizer) Health(ctx context.Context) bool {
	return s.gen.Health(ctx)
}
