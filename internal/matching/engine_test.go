package matching

import (
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldi/campushelp/internal/config"
	"github.com/ldi/campushelp/pkg/models"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := config.Default()
	e, err := New(cfg.Matching.Weights, cfg.OnlineMarkers)
	require.NoError(t, err)
	return e
}

func photographer() *models.Member {
	return &models.Member{
		ID:             "m1",
		Campus:         "waishuangxi",
		Skills:         models.NewSkillSet(models.SkillPhotography, models.SkillVideoEditing, models.SkillDesign),
		AvgRating:      4.8,
		CompletedTasks: 15,
		TrustScore:     0.95,
	}
}

func TestScoreEventPhotography(t *testing.T) {
	e := newEngine(t)
	task := &models.Task{
		ID:          "t1",
		PublisherID: "p1",
		Title:       "Event photography",
		Description: "Shoot photos at the freshman welcome party for about two hours",
		Category:    models.CategoryCampusAssist,
		Campus:      "waishuangxi",
	}

	got := e.Score(photographer(), task)

	// Requires photography and event_support; only photography overlaps.
	rating := 0.5*(3.8/4) + 0.3*0.95 + 0.2*(15.0/20)
	want := Score{
		Skill:    0.7,
		Time:     1.0,
		Rating:   rating,
		Location: 1.0,
	}
	want.Total = 0.4*want.Skill + 0.2*want.Time + 0.2*want.Rating + 0.2*want.Location

	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Score mismatch (-want +got):\n%s", diff)
	}
}

func TestSkillScoreRules(t *testing.T) {
	required := models.NewSkillSet(models.SkillMoving, models.SkillErrands, models.SkillTutoring, models.SkillDesign)

	assert.Equal(t, 0.5, skillScore(models.NewSkillSet(models.SkillMoving), models.NewSkillSet()))
	assert.Equal(t, 0.3, skillScore(models.NewSkillSet(models.SkillPhotography), required))
	assert.InDelta(t, 0.7, skillScore(models.NewSkillSet(models.SkillMoving), required), 1e-9)
	assert.InDelta(t, 0.9, skillScore(models.NewSkillSet(models.SkillMoving, models.SkillErrands), required), 1e-9)
	assert.Equal(t, 1.0, skillScore(models.NewSkillSet(models.SkillMoving, models.SkillErrands, models.SkillTutoring), required))
}

func TestRequiredSkills(t *testing.T) {
	task := &models.Task{Title: "幫忙搬家具", Description: "順便翻譯一份英文文件", Category: models.CategoryCompanionship}
	got := RequiredSkills(task).Sorted()
	want := []models.Skill{models.SkillMoving, models.SkillTranslation}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RequiredSkills mismatch (-want +got):\n%s", diff)
	}

	empty := &models.Task{Title: "Chat over coffee", Description: "Looking for company", Category: models.CategoryCompanionship}
	assert.Empty(t, RequiredSkills(empty))
}

func TestLocationScore(t *testing.T) {
	e := newEngine(t)
	m := &models.Member{Campus: "waishuangxi"}

	assert.Equal(t, 1.0, e.locationScore(m, &models.Task{Campus: "waishuangxi"}))
	assert.Equal(t, 1.0, e.locationScore(m, &models.Task{Campus: "Online"}))
	assert.Equal(t, 1.0, e.locationScore(m, &models.Task{Campus: "線上"}))
	assert.Equal(t, 0.2, e.locationScore(m, &models.Task{Campus: "chengzhong"}))

	m.CrossCampus = true
	assert.Equal(t, 0.6, e.locationScore(m, &models.Task{Campus: "chengzhong"}))
}

func TestTimeAndRatingScore(t *testing.T) {
	assert.Equal(t, 0.8, timeScore(&models.Task{Urgent: true}))
	assert.Equal(t, 1.0, timeScore(&models.Task{}))

	top := &models.Member{AvgRating: 5, TrustScore: 1, CompletedTasks: 40}
	assert.Equal(t, 1.0, ratingScore(top))

	bottom := &models.Member{AvgRating: 1, TrustScore: 0, CompletedTasks: 0}
	assert.Equal(t, 0.0, ratingScore(bottom))
}

func TestScoreBoundedness(t *testing.T) {
	e := newEngine(t)
	campuses := []string{"waishuangxi", "chengzhong", "online"}
	ratings := []float64{1, 2.5, 4.25, 5}
	trusts := []float64{0, 0.33, 1}
	done := []int{0, 7, 20, 200}

	categories := append([]models.Category{""}, models.Categories...)
	for i, cat := range categories {
		for _, campus := range campuses {
			for _, urgent := range []bool{false, true} {
				task := &models.Task{
					Title:    fmt.Sprintf("task %d move photo python", i),
					Category: cat,
					Campus:   campus,
					Urgent:   urgent,
				}
				for _, r := range ratings {
					for _, tr := range trusts {
						for _, n := range done {
							m := &models.Member{
								Campus:         "waishuangxi",
								Skills:         models.NewSkillSet(models.Vocabulary[:i+1]...),
								AvgRating:      r,
								TrustScore:     tr,
								CompletedTasks: n,
							}
							s := e.Score(m, task)
							for name, v := range map[string]float64{"skill": s.Skill, "time": s.Time, "rating": s.Rating, "location": s.Location, "total": s.Total} {
								if v < 0 || v > 1 {
									t.Fatalf("%s score %v out of range for %+v", name, v, task)
								}
							}
							w := e.Weights()
							sum := w.Skill*s.Skill + w.Time*s.Time + w.Rating*s.Rating + w.Location*s.Location
							if math.Abs(sum-s.Total) > 1e-9 {
								t.Fatalf("total %v != weighted sum %v", s.Total, sum)
							}
						}
					}
				}
			}
		}
	}
}

func TestRank(t *testing.T) {
	e := newEngine(t)
	m := photographer()

	tasks := []*models.Task{
		{ID: "own", PublisherID: m.ID, Title: "My photo shoot", Category: models.CategoryCampusAssist, Campus: "waishuangxi"},
		{ID: "far", PublisherID: "p", Title: "Move boxes", Category: models.CategoryDailySupport, Campus: "chengzhong"},
		{ID: "best", PublisherID: "p", Title: "Photo shoot", Category: models.CategoryCampusAssist, Campus: "waishuangxi"},
		{ID: "tie-a", PublisherID: "p", Title: "Chat", Category: models.CategoryCompanionship, Campus: "online"},
		{ID: "tie-b", PublisherID: "p", Title: "Chat", Category: models.CategoryCompanionship, Campus: "online"},
	}

	recs := e.Rank(m, tasks, 0)
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.Task.ID
	}
	if diff := cmp.Diff([]string{"best", "tie-a", "tie-b", "far"}, ids); diff != "" {
		t.Errorf("Rank order mismatch (-want +got):\n%s", diff)
	}

	top := e.Rank(m, tasks, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "best", top[0].Task.ID)
}

func TestNewRejectsBadWeights(t *testing.T) {
	_, err := New(config.Weights{Skill: 0.5, Time: 0.5, Rating: 0.5}, nil)
	assert.Error(t, err)
}
