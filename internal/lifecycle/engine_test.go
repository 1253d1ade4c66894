package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ldi/campushelp/internal/advisory"
	"github.com/ldi/campushelp/internal/apperr"
	"github.com/ldi/campushelp/internal/config"
	"github.com/ldi/campushelp/internal/db"
	"github.com/ldi/campushelp/internal/matching"
	"github.com/ldi/campushelp/pkg/models"
)

type fixture struct {
	store    *db.DB
	engine   *Engine
	registry *Registry
	cfg      config.Config
}

func newFixture(t *testing.T, advisor Assessor) *fixture {
	t.Helper()
	store, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Init(context.Background()))

	cfg := config.Default()
	matcher, err := matching.New(cfg.Matching.Weights, cfg.OnlineMarkers)
	require.NoError(t, err)

	return &fixture{
		store:    store,
		engine:   New(store, cfg, advisor, zap.NewNop()),
		registry: NewRegistry(store, matcher),
		cfg:      cfg,
	}
}

func (f *fixture) member(t *testing.T, name string, points int, skills ...string) *models.Member {
	t.Helper()
	m, err := f.engine.RegisterMember(context.Background(), RegisterMemberInput{
		Email:  name + "@campus.test",
		Name:   name,
		Campus: "waishuangxi",
		Skills: skills,
	})
	require.NoError(t, err)
	if points != m.Points {
		_, err := f.store.ExecContext(context.Background(), `UPDATE members SET points = ? WHERE id = ?`, points, m.ID)
		require.NoError(t, err)
		m.Points = points
	}
	return m
}

func (f *fixture) balance(t *testing.T, id string) int {
	t.Helper()
	m, err := f.store.GetMember(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, m)
	return m.Points
}

func (f *fixture) held(t *testing.T) int {
	t.Helper()
	n, err := f.store.HeldPoints(context.Background())
	require.NoError(t, err)
	return n
}

func createInput(publisherID string, points int) CreateTaskInput {
	return CreateTaskInput{
		PublisherID: publisherID,
		Title:       "Help me move boxes",
		Description: "Two boxes from the dorm to the library",
		Category:    models.CategoryDailySupport,
		Location:    "Dorm B",
		Campus:      "waishuangxi",
		Points:      points,
	}
}

type stubAssessor struct {
	verdict advisory.Verdict
	err     error
}

func (s stubAssessor) Assess(context.Context, string, models.Category) (advisory.Verdict, error) {
	return s.verdict, s.err
}

func TestTaskLifecycleScenario(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	m := f.member(t, "mei", 200)
	x := f.member(t, "xiang", 100, "moving")
	start := f.held(t)

	// Scenario A: creation debits the publisher.
	res, err := f.engine.CreateTask(ctx, createInput(m.ID, 50))
	require.NoError(t, err)
	task := res.Task
	assert.Equal(t, models.TaskStatusOpen, task.Status)
	assert.Equal(t, 150, f.balance(t, m.ID))
	assert.Equal(t, advisory.RecommendAllow, res.Verdict.Recommendation)
	assert.Equal(t, start, f.held(t))

	// Scenario B: apply and accept.
	app, err := f.engine.Apply(ctx, task.ID, x.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusPending, app.Status)

	accepted, err := f.engine.AcceptApplication(ctx, task.ID, x.ID, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusInProgress, accepted.Status)
	require.NotNil(t, accepted.HelperID)
	assert.Equal(t, x.ID, *accepted.HelperID)

	apps, err := f.registry.TaskApplications(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, models.ApplicationStatusAccepted, apps[0].Status)
	assert.Equal(t, start, f.held(t))

	// Scenario C: the helper reports completion and is paid.
	done, err := f.engine.CompleteTask(ctx, task.ID, x.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, done.Status)
	assert.NotNil(t, done.CompletedAt)
	assert.Equal(t, 150, f.balance(t, x.ID))
	assert.Equal(t, 150, f.balance(t, m.ID))

	pub, _ := f.store.GetMember(ctx, m.ID)
	helper, _ := f.store.GetMember(ctx, x.ID)
	assert.Equal(t, 1, pub.CompletedTasks)
	assert.Equal(t, 1, helper.CompletedTasks)

	// Completed tasks hold nothing; the points moved to the helper.
	assert.Equal(t, start, f.held(t))

	_, err = f.engine.CompleteTask(ctx, task.ID, m.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidTransition))
}

func TestCreateTaskContentRejected(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	m := f.member(t, "mei", 200)

	in := createInput(m.ID, 50)
	in.Description = "Looking for someone to 代考 my midterm"
	_, err := f.engine.CreateTask(ctx, in)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeContentRejected))
	assert.Equal(t, "代考", apperr.Meta(err, "flags"))
	assert.Equal(t, 200, f.balance(t, m.ID))

	tasks, err := f.store.ListTasks(ctx, db.TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestCreateTaskAdvisoryVerdicts(t *testing.T) {
	ctx := context.Background()

	t.Run("auto reject from advisor", func(t *testing.T) {
		f := newFixture(t, stubAssessor{verdict: advisory.Verdict{
			RiskLevel: advisory.RiskHigh, Recommendation: advisory.RecommendAutoReject, Reason: "money lending", Flags: []string{"money"},
		}})
		m := f.member(t, "mei", 200)
		_, err := f.engine.CreateTask(ctx, createInput(m.ID, 50))
		assert.True(t, apperr.HasCode(err, apperr.CodeContentRejected))
		assert.Equal(t, "money lending", apperr.Meta(err, "reason"))
		assert.Equal(t, 200, f.balance(t, m.ID))
	})

	t.Run("high risk is published", func(t *testing.T) {
		f := newFixture(t, stubAssessor{verdict: advisory.Verdict{
			RiskLevel: advisory.RiskHigh, Recommendation: advisory.RecommendManualReview,
		}})
		m := f.member(t, "mei", 200)
		res, err := f.engine.CreateTask(ctx, createInput(m.ID, 50))
		require.NoError(t, err)
		assert.Equal(t, advisory.RiskHigh, res.Verdict.RiskLevel)
	})

	t.Run("advisor error falls back", func(t *testing.T) {
		f := newFixture(t, stubAssessor{err: errors.New("unreachable")})
		m := f.member(t, "mei", 200)
		res, err := f.engine.CreateTask(ctx, createInput(m.ID, 50))
		require.NoError(t, err)
		assert.Equal(t, advisory.Fallback(), res.Verdict)
	})
}

func TestCreateTaskValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	m := f.member(t, "mei", 1000)

	cases := map[string]func(*CreateTaskInput){
		"missing title":    func(in *CreateTaskInput) { in.Title = "   " },
		"unknown category": func(in *CreateTaskInput) { in.Category = "gaming" },
		"unknown campus":   func(in *CreateTaskInput) { in.Campus = "moon" },
		"below minimum":    func(in *CreateTaskInput) { in.Points = 5 },
		"above maximum":    func(in *CreateTaskInput) { in.Points = 501 },
		"negative":         func(in *CreateTaskInput) { in.Points = -10 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := createInput(m.ID, 50)
			mutate(&in)
			_, err := f.engine.CreateTask(ctx, in)
			assert.True(t, apperr.HasCode(err, apperr.CodeValidation), "got %v", err)
		})
	}
	assert.Equal(t, 1000, f.balance(t, m.ID))

	in := createInput(m.ID, 0)
	res, err := f.engine.CreateTask(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, f.cfg.Points.Default, res.Task.PointsOffered)
}

func TestCreateTaskInsufficientFunds(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	m := f.member(t, "mei", 40)

	_, err := f.engine.CreateTask(ctx, createInput(m.ID, 50))
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeInsufficientFunds))
	assert.Equal(t, "40", apperr.Meta(err, "balance"))
	assert.Equal(t, "50", apperr.Meta(err, "required"))
	assert.Equal(t, 40, f.balance(t, m.ID))

	_, err = f.engine.CreateTask(ctx, createInput("ghost", 50))
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

func TestApplyRules(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	m := f.member(t, "mei", 200)
	x := f.member(t, "xiang", 100)
	y := f.member(t, "yun", 100)

	res, err := f.engine.CreateTask(ctx, createInput(m.ID, 50))
	require.NoError(t, err)
	taskID := res.Task.ID

	_, err = f.engine.Apply(ctx, taskID, x.ID)
	require.NoError(t, err)

	_, err = f.engine.Apply(ctx, taskID, x.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeDuplicateApplication))

	_, err = f.engine.Apply(ctx, taskID, m.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotEligible))

	_, err = f.engine.Apply(ctx, "missing", x.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))

	require.NoError(t, f.engine.SetMemberActive(ctx, y.ID, false))
	_, err = f.engine.Apply(ctx, taskID, y.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotEligible))
	require.NoError(t, f.engine.SetMemberActive(ctx, y.ID, true))

	_, err = f.engine.AcceptApplication(ctx, taskID, x.ID, m.ID)
	require.NoError(t, err)

	_, err = f.engine.Apply(ctx, taskID, y.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeTaskNotOpen))
	assert.Equal(t, string(models.TaskStatusInProgress), apperr.Meta(err, "current_status"))
}

func TestAcceptApplicationRules(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	m := f.member(t, "mei", 200)
	x := f.member(t, "xiang", 100)
	y := f.member(t, "yun", 100)

	res, err := f.engine.CreateTask(ctx, createInput(m.ID, 50))
	require.NoError(t, err)
	taskID := res.Task.ID
	_, err = f.engine.Apply(ctx, taskID, x.ID)
	require.NoError(t, err)
	_, err = f.engine.Apply(ctx, taskID, y.ID)
	require.NoError(t, err)

	_, err = f.engine.AcceptApplication(ctx, taskID, x.ID, y.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))

	z := f.member(t, "zhen", 100)
	_, err = f.engine.AcceptApplication(ctx, taskID, z.ID, m.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotEligible))

	_, err = f.engine.AcceptApplication(ctx, taskID, y.ID, m.ID)
	require.NoError(t, err)

	_, err = f.engine.AcceptApplication(ctx, taskID, x.ID, m.ID)
	require.True(t, apperr.HasCode(err, apperr.CodeInvalidTransition))
	assert.Equal(t, string(models.TaskStatusInProgress), apperr.Meta(err, "current_status"))
	assert.Equal(t, string(models.TaskStatusOpen), apperr.Meta(err, "required_status"))

	applied, err := f.registry.MemberApplications(ctx, x.ID)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, models.ApplicationStatusRejected, applied[0].ApplicationStatus)
}

func TestCompleteTaskRules(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	m := f.member(t, "mei", 200)
	x := f.member(t, "xiang", 100)
	y := f.member(t, "yun", 100)

	res, err := f.engine.CreateTask(ctx, createInput(m.ID, 50))
	require.NoError(t, err)
	taskID := res.Task.ID

	_, err = f.engine.CompleteTask(ctx, taskID, m.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidTransition))

	_, err = f.engine.Apply(ctx, taskID, x.ID)
	require.NoError(t, err)
	_, err = f.engine.AcceptApplication(ctx, taskID, x.ID, m.ID)
	require.NoError(t, err)

	_, err = f.engine.CompleteTask(ctx, taskID, y.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))

	done, err := f.engine.CompleteTask(ctx, taskID, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, done.Status)
	assert.Equal(t, 150, f.balance(t, x.ID))
}

func TestCancelTask(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	m := f.member(t, "mei", 200)
	x := f.member(t, "xiang", 100)
	start := f.held(t)

	res, err := f.engine.CreateTask(ctx, createInput(m.ID, 80))
	require.NoError(t, err)
	taskID := res.Task.ID
	_, err = f.engine.Apply(ctx, taskID, x.ID)
	require.NoError(t, err)

	_, err = f.engine.CancelTask(ctx, taskID, x.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))

	cancelled, err := f.engine.CancelTask(ctx, taskID, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCancelled, cancelled.Status)
	assert.Nil(t, cancelled.HelperID)
	assert.Equal(t, 200, f.balance(t, m.ID))
	assert.Equal(t, start, f.held(t))

	applied, err := f.registry.MemberApplications(ctx, x.ID)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, models.ApplicationStatusRejected, applied[0].ApplicationStatus)

	_, err = f.engine.CancelTask(ctx, taskID, m.ID)
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidTransition))
}

func TestRegisterMember(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	created, err := f.engine.RegisterMember(ctx, RegisterMemberInput{
		Email:       " Mei@Campus.Test ",
		Name:        "Mei",
		Campus:      "chengzhong",
		Skills:      []string{"Photography", "design"},
		CrossCampus: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "mei@campus.test", created.Email)
	assert.Equal(t, f.cfg.DefaultBalance, created.Points)
	assert.Equal(t, 5.0, created.AvgRating)
	assert.Equal(t, 1.0, created.TrustScore)
	assert.True(t, created.Skills.Has(models.SkillPhotography))

	_, err = f.engine.RegisterMember(ctx, RegisterMemberInput{Email: "mei@campus.test", Name: "Other", Campus: "chengzhong"})
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	_, err = f.engine.RegisterMember(ctx, RegisterMemberInput{Email: "x@campus.test", Name: "X", Campus: "chengzhong", Skills: []string{"juggling"}})
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	_, err = f.engine.RegisterMember(ctx, RegisterMemberInput{Email: "nope", Name: "X", Campus: "chengzhong"})
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	err = f.engine.SetMemberActive(ctx, "ghost", false)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

func TestInactivePublisherCannotCreate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	m := f.member(t, "mei", 200)
	require.NoError(t, f.engine.SetMemberActive(ctx, m.ID, false))

	_, err := f.engine.CreateTask(ctx, createInput(m.ID, 50))
	assert.True(t, apperr.HasCode(err, apperr.CodeNotEligible))
	assert.Equal(t, 200, f.balance(t, m.ID))
}

func TestEngineUsesClock(t *testing.T) {
	f := newFixture(t, nil)
	fixed := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	engine := New(f.store, f.cfg, nil, zap.NewNop(), WithClock(func() time.Time { return fixed }))
	m := f.member(t, "mei", 200)

	res, err := engine.CreateTask(context.Background(), createInput(m.ID, 50))
	require.NoError(t, err)
	assert.True(t, res.Task.CreatedAt.Equal(fixed))

	stored, err := f.store.GetTask(context.Background(), res.Task.ID)
	require.NoError(t, err)
	assert.True(t, stored.CreatedAt.Equal(fixed))
}
