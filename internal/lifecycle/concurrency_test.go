package lifecycle

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/ldi/campushelp/internal/apperr"
	"github.com/ldi/campushelp/internal/db"
	"github.com/ldi/campushelp/pkg/models"
)

func TestConcurrentCreateNoDoubleSpend(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	m := f.member(t, "mei", 100)
	start := f.held(t)

	var ok, refused atomic.Int32
	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			_, err := f.engine.CreateTask(ctx, createInput(m.ID, 60))
			switch {
			case err == nil:
				ok.Add(1)
			case apperr.HasCode(err, apperr.CodeInsufficientFunds):
				refused.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(7), refused.Load())
	assert.Equal(t, 40, f.balance(t, m.ID))
	assert.Equal(t, start, f.held(t))
}

func TestConcurrentAcceptExactlyOne(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	m := f.member(t, "mei", 200)

	res, err := f.engine.CreateTask(ctx, createInput(m.ID, 50))
	require.NoError(t, err)
	taskID := res.Task.ID

	applicants := make([]*models.Member, 6)
	for i := range applicants {
		applicants[i] = f.member(t, "helper"+string(rune('a'+i)), 100)
		_, err := f.engine.Apply(ctx, taskID, applicants[i].ID)
		require.NoError(t, err)
	}

	var ok, conflicts atomic.Int32
	var g errgroup.Group
	for _, a := range applicants {
		g.Go(func() error {
			_, err := f.engine.AcceptApplication(ctx, taskID, a.ID, m.ID)
			switch {
			case err == nil:
				ok.Add(1)
			case apperr.HasCode(err, apperr.CodeInvalidTransition):
				conflicts.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(len(applicants)-1), conflicts.Load())

	apps, err := f.store.ListApplications(ctx, taskID)
	require.NoError(t, err)
	accepted := 0
	for _, a := range apps {
		if a.Status == models.ApplicationStatusAccepted {
			accepted++
		}
	}
	assert.Equal(t, 1, accepted)

	task, err := f.store.GetTask(ctx, taskID)
	require.NoError(t, err)
	require.NotNil(t, task.HelperID)
	assert.Equal(t, models.TaskStatusInProgress, task.Status)
}

func TestConcurrentApplySameApplicant(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	m := f.member(t, "mei", 200)
	x := f.member(t, "xiang", 100)

	res, err := f.engine.CreateTask(ctx, createInput(m.ID, 50))
	require.NoError(t, err)

	var ok, dup atomic.Int32
	var g errgroup.Group
	for i := 0; i < 5; i++ {
		g.Go(func() error {
			_, err := f.engine.Apply(ctx, res.Task.ID, x.ID)
			switch {
			case err == nil:
				ok.Add(1)
			case apperr.HasCode(err, apperr.CodeDuplicateApplication):
				dup.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(4), dup.Load())
}

func TestConservationAcrossMixedOperations(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	pubs := []*models.Member{f.member(t, "p1", 300), f.member(t, "p2", 300)}
	helpers := []*models.Member{f.member(t, "h1", 50), f.member(t, "h2", 50)}
	start := f.held(t)

	var g errgroup.Group
	for i, p := range pubs {
		h := helpers[i]
		g.Go(func() error {
			for round := 0; round < 3; round++ {
				res, err := f.engine.CreateTask(ctx, createInput(p.ID, 40+round*10))
				if err != nil {
					return err
				}
				if round == 2 {
					if _, err := f.engine.CancelTask(ctx, res.Task.ID, p.ID); err != nil {
						return err
					}
					continue
				}
				if _, err := f.engine.Apply(ctx, res.Task.ID, h.ID); err != nil {
					return err
				}
				if _, err := f.engine.AcceptApplication(ctx, res.Task.ID, h.ID, p.ID); err != nil {
					return err
				}
				if round == 0 {
					if _, err := f.engine.CompleteTask(ctx, res.Task.ID, h.ID); err != nil {
						return err
					}
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, start, f.held(t))

	inProgress := models.TaskStatusInProgress
	tasks, err := f.store.ListTasks(ctx, db.TaskFilter{Status: &inProgress})
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
	assert.Equal(t, 90, f.balance(t, helpers[0].ID))
}
