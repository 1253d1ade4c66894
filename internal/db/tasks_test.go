package db

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ldi/campushelp/pkg/models"
)

func seedTask(t *testing.T, db *DB, publisher *models.Member, title string, points int) *models.Task {
	t.Helper()
	task := &models.Task{
		PublisherID:   publisher.ID,
		Title:         title,
		Description:   title + " description",
		Category:      models.CategoryDailySupport,
		Campus:        "waishuangxi",
		PointsOffered: points,
	}
	err := db.WithTx(context.Background(), func(tx *Tx) error {
		return tx.CreateTask(context.Background(), task)
	})
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	return task
}

func TestTaskLifecycleTransitions(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	publisher := seedMember(t, db, "alice", 100)
	helper := seedMember(t, db, "bob", 100)

	task := seedTask(t, db, publisher, "Move boxes", 30)
	if !strings.Contains(task.ID, "-") {
		t.Errorf("Expected UUID id, got %s", task.ID)
	}

	fetched, err := db.GetTask(ctx, task.ID)
	if err != nil || fetched == nil {
		t.Fatalf("GetTask failed: %v %v", fetched, err)
	}
	if fetched.Status != models.TaskStatusOpen || fetched.HelperID != nil || fetched.CompletedAt != nil {
		t.Fatalf("Unexpected fresh task: %+v", fetched)
	}

	var moved bool
	err = db.WithTx(ctx, func(tx *Tx) error {
		moved, err = tx.TransitionTask(ctx, TaskTransition{
			TaskID: task.ID, From: models.TaskStatusOpen, To: models.TaskStatusInProgress, HelperID: &helper.ID,
		})
		return err
	})
	if err != nil || !moved {
		t.Fatalf("open -> in_progress failed: %v %v", moved, err)
	}

	// A second CAS from open must not match.
	err = db.WithTx(ctx, func(tx *Tx) error {
		moved, err = tx.TransitionTask(ctx, TaskTransition{
			TaskID: task.ID, From: models.TaskStatusOpen, To: models.TaskStatusInProgress, HelperID: &publisher.ID,
		})
		return err
	})
	if err != nil || moved {
		t.Fatalf("Expected stale CAS to be a no-op, got %v %v", moved, err)
	}

	now := time.Now().UTC()
	err = db.WithTx(ctx, func(tx *Tx) error {
		moved, err = tx.TransitionTask(ctx, TaskTransition{
			TaskID: task.ID, From: models.TaskStatusInProgress, To: models.TaskStatusCompleted, CompletedAt: &now,
		})
		return err
	})
	if err != nil || !moved {
		t.Fatalf("in_progress -> completed failed: %v %v", moved, err)
	}

	fetched, _ = db.GetTask(ctx, task.ID)
	if fetched.Status != models.TaskStatusCompleted {
		t.Errorf("Expected completed, got %s", fetched.Status)
	}
	if fetched.HelperID == nil || *fetched.HelperID != helper.ID {
		t.Errorf("Expected helper to be kept, got %v", fetched.HelperID)
	}
	if fetched.CompletedAt == nil {
		t.Errorf("Expected CompletedAt to be set")
	}
}

func TestTransitionTaskRejectsInvalidEdges(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	publisher := seedMember(t, db, "alice", 100)
	task := seedTask(t, db, publisher, "Photo shoot", 20)

	err := db.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.TransitionTask(ctx, TaskTransition{TaskID: task.ID, From: models.TaskStatusOpen, To: models.TaskStatusCompleted})
		return err
	})
	if err == nil {
		t.Error("Expected error for open -> completed")
	}

	err = db.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.TransitionTask(ctx, TaskTransition{TaskID: task.ID, From: models.TaskStatusCompleted, To: models.TaskStatusOpen})
		return err
	})
	if err == nil {
		t.Error("Expected error for completed -> open")
	}
}

func TestSchemaGuardsTaskInvariants(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	publisher := seedMember(t, db, "alice", 100)
	task := seedTask(t, db, publisher, "Tutor calculus", 40)

	if _, err := db.ExecContext(ctx, `UPDATE tasks SET points_offered = 99 WHERE id = ?`, task.ID); err == nil {
		t.Error("Expected points_offered to be immutable")
	}
	if _, err := db.ExecContext(ctx, `UPDATE tasks SET status = 'in_progress' WHERE id = ?`, task.ID); err == nil {
		t.Error("Expected in_progress without helper to violate the check constraint")
	}
	if _, err := db.ExecContext(ctx, `UPDATE tasks SET status = 'completed', accepted_helper_id = publisher_id WHERE id = ?`, task.ID); err == nil {
		t.Error("Expected completed without completed_at to violate the check constraint")
	}
	if _, err := db.ExecContext(ctx, `UPDATE members SET points = -1 WHERE id = ?`, publisher.ID); err == nil {
		t.Error("Expected negative balance to violate the check constraint")
	}
}

func TestListTasksFilters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedMember(t, db, "alice", 100)
	bob := seedMember(t, db, "bob", 100)
	seedTask(t, db, alice, "A1", 10)
	seedTask(t, db, alice, "A2", 10)
	seedTask(t, db, bob, "B1", 10)

	all, err := db.ListTasks(ctx, TaskFilter{})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 tasks, got %d", len(all))
	}

	mine, err := db.ListTasks(ctx, TaskFilter{PublisherID: alice.ID})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("Expected 2 tasks for alice, got %d", len(mine))
	}

	status := models.TaskStatusCompleted
	done, err := db.ListTasks(ctx, TaskFilter{Status: &status})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(done) != 0 {
		t.Errorf("Expected no completed tasks, got %d", len(done))
	}
}
