package advisory

import (
	"context"

	"github.com/ldi/campushelp/pkg/models"
)

const offlineSuggestion = "Add a concrete time, place and expected duration so helpers can judge whether the task fits them."

// OfflineAdvisor is used when no external model is configured. It allows
// everything the prefilter lets through.
type OfflineAdvisor struct{}

func (OfflineAdvisor) Assess(context.Context, string, models.Category) (Verdict, error) {
	return Verdict{
		RiskLevel:      RiskLow,
		RiskScore:      0.1,
		Recommendation: RecommendAllow,
		Reason:         "no obvious risk",
		Flags:          []string{},
	}, nil
}

func (OfflineAdvisor) Rewrite(_ context.Context, description string) (string, error) {
	return description + "\n\n[Suggestion] " + offlineSuggestion, nil
}
