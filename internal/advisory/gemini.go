package advisory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/ldi/campushelp/pkg/models"
)

const assessPrompt = `You review tasks posted on a campus peer-help platform.
Decide whether the task below violates platform policy.

Category: %s
Description:
%s

Forbidden on the platform:
1. Taking exams or writing assignments for someone else (academic integrity)
2. Buying tobacco or alcohol for others, adult content (legal restrictions)
3. Lending or borrowing money (outside the service scope)
4. Dangerous or unlawful activities (safety)

Answer with JSON only:
{"risk_level": "low|medium|high|critical", "risk_score": 0.0-1.0,
 "recommendation": "allow|manual_review|auto_reject", "reason": "short explanation",
 "flags": ["risk tags"]}`

const rewritePrompt = `Rewrite the following campus help request so it is clear, specific and inviting.
Keep the original meaning and language. Add missing details such as time, place and required
skills when the text implies them. Keep it under one and a half times the original length.
Output only the rewritten description.

%s`

// GeminiAdvisor asks a Gemini model for a verdict.
type GeminiAdvisor struct {
	model    string
	generate func(ctx context.Context, prompt string, jsonOut bool) (string, error)
}

// NewGeminiAdvisor creates an advisor backed by the Gemini API.
func NewGeminiAdvisor(ctx context.Context, apiKey, model string) (*GeminiAdvisor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	a := &GeminiAdvisor{model: model}
	a.generate = func(ctx context.Context, prompt string, jsonOut bool) (string, error) {
		cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0.2)}
		if jsonOut {
			cfg.ResponseMIMEType = "application/json"
		}
		resp, err := client.Models.GenerateContent(ctx, a.model,
			[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, cfg)
		if err != nil {
			return "", fmt.Errorf("GenAI generate failed: %w", err)
		}
		return resp.Text(), nil
	}
	return a, nil
}

func (a *GeminiAdvisor) Assess(ctx context.Context, description string, category models.Category) (Verdict, error) {
	text, err := a.generate(ctx, fmt.Sprintf(assessPrompt, category, description), true)
	if err != nil {
		return Verdict{}, err
	}
	return parseVerdict(text)
}

func (a *GeminiAdvisor) Rewrite(ctx context.Context, description string) (string, error) {
	text, err := a.generate(ctx, fmt.Sprintf(rewritePrompt, description), false)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty rewrite")
	}
	return text, nil
}

// parseVerdict decodes a model answer, tolerating a markdown code fence.
func parseVerdict(text string) (Verdict, error) {
	text = stripFence(text)

	var raw struct {
		RiskLevel      string   `json:"risk_level"`
		RiskScore      float64  `json:"risk_score"`
		Recommendation string   `json:"recommendation"`
		Reason         string   `json:"reason"`
		Flags          []string `json:"flags"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return Verdict{}, fmt.Errorf("malformed verdict: %w", err)
	}

	level := RiskLevel(strings.ToLower(strings.TrimSpace(raw.RiskLevel)))
	if !level.Valid() {
		return Verdict{}, fmt.Errorf("unknown risk level %q", raw.RiskLevel)
	}
	rec, err := ParseRecommendation(raw.Recommendation)
	if err != nil {
		return Verdict{}, err
	}
	if raw.Flags == nil {
		raw.Flags = []string{}
	}
	return Verdict{
		RiskLevel:      level,
		RiskScore:      clamp01(raw.RiskScore),
		Recommendation: rec,
		Reason:         raw.Reason,
		Flags:          raw.Flags,
	}, nil
}

func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
