// Package advisory classifies task content before publication. A local
// deny-keyword prefilter runs first; anything it lets through is sent to an
// Advisor, and advisor failures degrade to a manual-review verdict.
package advisory

import (
	"context"
	"fmt"
	"strings"

	"github.com/ldi/campushelp/pkg/models"
)

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

type Recommendation string

const (
	RecommendAllow        Recommendation = "allow"
	RecommendManualReview Recommendation = "manual_review"
	RecommendAutoReject   Recommendation = "auto_reject"
)

// recommendationAliases maps the labels an advisor model may answer with.
var recommendationAliases = map[string]Recommendation{
	"allow":         RecommendAllow,
	"manual_review": RecommendManualReview,
	"manual review": RecommendManualReview,
	"auto_reject":   RecommendAutoReject,
	"auto reject":   RecommendAutoReject,
	"reject":        RecommendAutoReject,
	"允許發布":          RecommendAllow,
	"需人工審核":         RecommendManualReview,
	"自動拒絕":          RecommendAutoReject,
}

// ParseRecommendation normalizes s into a Recommendation.
func ParseRecommendation(s string) (Recommendation, error) {
	if r, ok := recommendationAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return r, nil
	}
	return "", fmt.Errorf("unknown recommendation %q", s)
}

// Verdict is the outcome of a content assessment.
type Verdict struct {
	RiskLevel      RiskLevel      `json:"risk_level"`
	RiskScore      float64        `json:"risk_score"`
	Recommendation Recommendation `json:"recommendation"`
	Reason         string         `json:"reason"`
	Flags          []string       `json:"flags"`
}

// Rejected reports whether the verdict forbids publication.
func (v Verdict) Rejected() bool {
	return v.Recommendation == RecommendAutoReject
}

// Elevated reports whether the verdict is worth a warning without blocking.
func (v Verdict) Elevated() bool {
	return v.RiskLevel == RiskMedium || v.RiskLevel == RiskHigh
}

// Advisor assesses a task description against platform content policy.
type Advisor interface {
	Assess(ctx context.Context, description string, category models.Category) (Verdict, error)
}

// Rewriter proposes a clearer task description.
type Rewriter interface {
	Rewrite(ctx context.Context, description string) (string, error)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
