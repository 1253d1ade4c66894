package advisory

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ldi/campushelp/internal/config"
	"github.com/ldi/campushelp/pkg/models"
)

// FlagAdvisoryFailed marks a verdict produced because the advisor failed.
const FlagAdvisoryFailed = "advisory_failed"

// Fallback is the verdict used when the advisor cannot answer in time.
func Fallback() Verdict {
	return Verdict{
		RiskLevel:      RiskMedium,
		RiskScore:      0.5,
		Recommendation: RecommendManualReview,
		Reason:         "advisory unavailable, manual review recommended",
		Flags:          []string{FlagAdvisoryFailed},
	}
}

// Guard combines the prefilter, an Advisor and a timeout. Its Assess never
// returns an error.
type Guard struct {
	prefilter *Prefilter
	advisor   Advisor
	timeout   time.Duration
	logger    *zap.Logger
}

func NewGuard(prefilter *Prefilter, advisor Advisor, timeout time.Duration, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefilter == nil {
		prefilter = NewPrefilter(nil)
	}
	return &Guard{prefilter: prefilter, advisor: advisor, timeout: timeout, logger: logger}
}

// New builds the guard configured by cfg.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Guard, error) {
	var advisor Advisor = OfflineAdvisor{}
	if cfg.Advisory.Provider == "gemini" {
		g, err := NewGeminiAdvisor(ctx, cfg.Advisory.APIKey, cfg.Advisory.Model)
		if err != nil {
			return nil, err
		}
		advisor = g
	}
	return NewGuard(NewPrefilter(cfg.DenyKeywords), advisor, cfg.Advisory.Timeout, logger), nil
}

func (g *Guard) Assess(ctx context.Context, description string, category models.Category) (Verdict, error) {
	if v, hit := g.prefilter.Check(description); hit {
		return v, nil
	}
	if g.advisor == nil {
		return OfflineAdvisor{}.Assess(ctx, description, category)
	}

	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	v, err := g.advisor.Assess(callCtx, description, category)
	if err != nil {
		g.logger.Warn("content advisory failed, falling back to manual review", zap.Error(err))
		return Fallback(), nil
	}
	return v, nil
}

// Suggest asks the advisor for a rewritten description. The result is only
// a proposal and is never stored.
func (g *Guard) Suggest(ctx context.Context, description string) (string, error) {
	rw, ok := g.advisor.(Rewriter)
	if !ok {
		rw = OfflineAdvisor{}
	}

	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	out, err := rw.Rewrite(callCtx, description)
	if err != nil {
		return "", fmt.Errorf("failed to rewrite description: %w", err)
	}
	return out, nil
}
