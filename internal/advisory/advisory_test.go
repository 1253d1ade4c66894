package advisory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ldi/campushelp/internal/config"
	"github.com/ldi/campushelp/pkg/models"
)

type stubAdvisor struct {
	verdict Verdict
	err     error
	delay   time.Duration
	calls   int
}

func (s *stubAdvisor) Assess(ctx context.Context, _ string, _ models.Category) (Verdict, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return Verdict{}, ctx.Err()
		}
	}
	return s.verdict, s.err
}

func TestPrefilter(t *testing.T) {
	p := NewPrefilter([]string{"代考", "Gambling", "  ", ""})

	v, hit := p.Check("需要人幫我代考微積分")
	require.True(t, hit)
	assert.Equal(t, RiskCritical, v.RiskLevel)
	assert.Equal(t, 1.0, v.RiskScore)
	assert.True(t, v.Rejected())
	assert.Equal(t, []string{"代考"}, v.Flags)

	v, hit = p.Check("Online GAMBLING night")
	require.True(t, hit)
	assert.Equal(t, []string{"Gambling"}, v.Flags)

	_, hit = p.Check("Help me move a desk to the library")
	assert.False(t, hit)
}

func TestParseVerdict(t *testing.T) {
	t.Run("plain json", func(t *testing.T) {
		v, err := parseVerdict(`{"risk_level":"High","risk_score":0.8,"recommendation":"manual_review","reason":"borderline","flags":["money"]}`)
		require.NoError(t, err)
		assert.Equal(t, RiskHigh, v.RiskLevel)
		assert.Equal(t, RecommendManualReview, v.Recommendation)
		assert.Equal(t, []string{"money"}, v.Flags)
		assert.True(t, v.Elevated())
		assert.False(t, v.Rejected())
	})

	t.Run("fenced and clamped", func(t *testing.T) {
		v, err := parseVerdict("```json\n{\"risk_level\":\"low\",\"risk_score\":3,\"recommendation\":\"允許發布\",\"reason\":\"ok\"}\n```")
		require.NoError(t, err)
		assert.Equal(t, 1.0, v.RiskScore)
		assert.Equal(t, RecommendAllow, v.Recommendation)
		assert.NotNil(t, v.Flags)
	})

	t.Run("rejects unknown values", func(t *testing.T) {
		_, err := parseVerdict(`{"risk_level":"extreme","risk_score":0.1,"recommendation":"allow"}`)
		assert.Error(t, err)
		_, err = parseVerdict(`{"risk_level":"low","risk_score":0.1,"recommendation":"maybe"}`)
		assert.Error(t, err)
		_, err = parseVerdict(`not json`)
		assert.Error(t, err)
	})
}

func TestGuardPrefilterShortCircuits(t *testing.T) {
	stub := &stubAdvisor{verdict: Verdict{RiskLevel: RiskLow, Recommendation: RecommendAllow}}
	g := NewGuard(NewPrefilter([]string{"loan"}), stub, time.Second, zap.NewNop())

	v, err := g.Assess(context.Background(), "Need a quick loan", models.CategoryDailySupport)
	require.NoError(t, err)
	assert.True(t, v.Rejected())
	assert.Zero(t, stub.calls)
}

func TestGuardFallsBackOnFailure(t *testing.T) {
	ctx := context.Background()

	failing := &stubAdvisor{err: errors.New("quota exceeded")}
	g := NewGuard(nil, failing, time.Second, zap.NewNop())
	v, err := g.Assess(ctx, "Help me print posters", models.CategoryCampusAssist)
	require.NoError(t, err)
	assert.Equal(t, Fallback(), v)

	slow := &stubAdvisor{delay: time.Second}
	g = NewGuard(nil, slow, 20*time.Millisecond, zap.NewNop())
	v, err = g.Assess(ctx, "Help me print posters", models.CategoryCampusAssist)
	require.NoError(t, err)
	assert.Equal(t, RiskMedium, v.RiskLevel)
	assert.Equal(t, RecommendManualReview, v.Recommendation)
	assert.Contains(t, v.Flags, FlagAdvisoryFailed)
}

func TestGuardPassesAdvisorVerdict(t *testing.T) {
	want := Verdict{RiskLevel: RiskHigh, RiskScore: 0.7, Recommendation: RecommendAutoReject, Reason: "money lending", Flags: []string{"money"}}
	g := NewGuard(nil, &stubAdvisor{verdict: want}, 0, nil)

	v, err := g.Assess(context.Background(), "Lend me some cash", models.CategoryDailySupport)
	require.NoError(t, err)
	assert.Equal(t, want, v)
}

func TestGeminiAdvisorWithStubGenerator(t *testing.T) {
	a := &GeminiAdvisor{model: "test"}
	var gotPrompt string
	var gotJSON bool
	a.generate = func(_ context.Context, prompt string, jsonOut bool) (string, error) {
		gotPrompt, gotJSON = prompt, jsonOut
		return `{"risk_level":"medium","risk_score":0.4,"recommendation":"manual review","reason":"vague","flags":[]}`, nil
	}

	v, err := a.Assess(context.Background(), "Bring snacks to the dorm", models.CategoryDailySupport)
	require.NoError(t, err)
	assert.True(t, gotJSON)
	assert.Contains(t, gotPrompt, "Bring snacks to the dorm")
	assert.Contains(t, gotPrompt, string(models.CategoryDailySupport))
	assert.Equal(t, RecommendManualReview, v.Recommendation)

	a.generate = func(_ context.Context, _ string, jsonOut bool) (string, error) {
		gotJSON = jsonOut
		return "  Clearer text \n", nil
	}
	out, err := a.Rewrite(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, "Clearer text", out)
	assert.False(t, gotJSON)
}

func TestGuardSuggest(t *testing.T) {
	g := NewGuard(nil, OfflineAdvisor{}, time.Second, zap.NewNop())
	out, err := g.Suggest(context.Background(), "Carry boxes")
	require.NoError(t, err)
	assert.Contains(t, out, "Carry boxes")
	assert.Contains(t, out, "[Suggestion]")

	// Advisors without rewrite support fall back to the offline suggestion.
	g = NewGuard(nil, &stubAdvisor{}, time.Second, zap.NewNop())
	out, err = g.Suggest(context.Background(), "Carry boxes")
	require.NoError(t, err)
	assert.Contains(t, out, offlineSuggestion)
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	g, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, OfflineAdvisor{}, g.advisor)

	v, err := g.Assess(context.Background(), "幫忙代寫報告", models.CategoryStudyHelp)
	require.NoError(t, err)
	assert.True(t, v.Rejected())

	cfg.Advisory.Provider = "gemini"
	cfg.Advisory.APIKey = ""
	_, err = New(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
