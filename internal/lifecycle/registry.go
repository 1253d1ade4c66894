package lifecycle

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ldi/campushelp/internal/db"
	"github.com/ldi/campushelp/internal/matching"
	"github.com/ldi/campushelp/pkg/models"
)

// Registry serves read projections over tasks, applications and members.
// Nothing here mutates the store.
type Registry struct {
	store   *db.DB
	matcher *matching.Engine
}

func NewRegistry(store *db.DB, matcher *matching.Engine) *Registry {
	return &Registry{store: store, matcher: matcher}
}

func (r *Registry) Task(ctx context.Context, taskID string) (*models.TaskView, error) {
	v, err := r.store.GetTaskView(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, notFound("task", taskID)
	}
	return v, nil
}

func (r *Registry) Tasks(ctx context.Context, filter db.TaskFilter) ([]*models.TaskView, error) {
	return r.store.ListTaskViews(ctx, filter)
}

func (r *Registry) Member(ctx context.Context, memberID string) (*models.Member, error) {
	m, err := r.store.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, notFound("member", memberID)
	}
	return m, nil
}

func (r *Registry) Members(ctx context.Context, includeInactive bool) ([]*models.Member, error) {
	return r.store.ListMembers(ctx, includeInactive)
}

// TaskApplications lists every application to a task for the publisher to
// choose from.
func (r *Registry) TaskApplications(ctx context.Context, taskID string) ([]models.ApplicationView, error) {
	task, err := r.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, notFound("task", taskID)
	}
	return r.store.ListApplicationViews(ctx, taskID)
}

// MemberApplications lists the tasks a member applied to with the state of
// each application.
func (r *Registry) MemberApplications(ctx context.Context, memberID string) ([]*models.AppliedTaskView, error) {
	if _, err := r.Member(ctx, memberID); err != nil {
		return nil, err
	}
	return r.store.ListAppliedTasks(ctx, memberID)
}

// PublishedTasks lists a member's own tasks, with applicants while open.
func (r *Registry) PublishedTasks(ctx context.Context, memberID string) ([]*models.PublishedTaskView, error) {
	if _, err := r.Member(ctx, memberID); err != nil {
		return nil, err
	}
	return r.store.ListPublishedTasks(ctx, memberID)
}

// Recommend ranks the open tasks for memberID. Member and tasks are loaded
// as a snapshot; tasks that change state afterwards are scored as loaded.
func (r *Registry) Recommend(ctx context.Context, memberID string, topN int) ([]matching.Recommendation, error) {
	var member *models.Member
	var tasks []*models.Task

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := r.Member(gctx, memberID)
		member = m
		return err
	})
	g.Go(func() error {
		open := models.TaskStatusOpen
		t, err := r.store.ListTasks(gctx, db.TaskFilter{Status: &open})
		tasks = t
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return r.matcher.Rank(member, tasks, topN), nil
}

func (r *Registry) Stats(ctx context.Context) (*models.PlatformStats, error) {
	return r.store.PlatformStats(ctx)
}
