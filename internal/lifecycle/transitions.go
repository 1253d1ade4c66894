package lifecycle

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ldi/campushelp/internal/apperr"
	"github.com/ldi/campushelp/internal/db"
	"github.com/ldi/campushelp/pkg/models"
)

// Apply records applicantID's interest in an open task.
func (e *Engine) Apply(ctx context.Context, taskID, applicantID string) (*models.Application, error) {
	app := &models.Application{
		TaskID:      taskID,
		ApplicantID: applicantID,
		Status:      models.ApplicationStatusPending,
		AppliedAt:   e.now(),
	}

	err := e.store.WithTx(ctx, func(tx *db.Tx) error {
		task, err := loadTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		applicant, err := tx.GetMember(ctx, applicantID)
		if err != nil {
			return err
		}
		if err := requireActive(applicant, applicantID); err != nil {
			return err
		}
		if task.PublisherID == applicantID {
			return apperr.WithMetadata(apperr.CodeNotEligible, "publishers cannot apply to their own task",
				map[string]string{"task_id": taskID, "actor": applicantID})
		}
		if task.Status != models.TaskStatusOpen {
			return apperr.WithMetadata(apperr.CodeTaskNotOpen, "task is not accepting applications",
				map[string]string{"task_id": taskID, "current_status": string(task.Status)})
		}

		err = tx.CreateApplication(ctx, app)
		if errors.Is(err, db.ErrUniqueViolation) {
			return apperr.WithMetadata(apperr.CodeDuplicateApplication, "already applied to this task",
				map[string]string{"task_id": taskID, "actor": applicantID})
		}
		return err
	})
	if err != nil {
		e.logger.Debug("apply refused", zap.String("task_id", taskID), zap.String("applicant", applicantID), zap.Error(err))
		return nil, err
	}

	e.logger.Info("application submitted", zap.String("task_id", taskID), zap.String("applicant", applicantID))
	return app, nil
}

// AcceptApplication assigns applicantID as the helper of an open task. Only
// the first caller to observe the task open succeeds.
func (e *Engine) AcceptApplication(ctx context.Context, taskID, applicantID, publisherID string) (*models.Task, error) {
	var updated *models.Task
	err := e.store.WithTx(ctx, func(tx *db.Tx) error {
		task, err := loadTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if task.PublisherID != publisherID {
			return unauthorized(taskID, publisherID, "only the publisher may accept applications")
		}
		if task.Status != models.TaskStatusOpen {
			return invalidTransition(taskID, task.Status, models.TaskStatusOpen)
		}

		app, err := tx.GetApplication(ctx, taskID, applicantID)
		if err != nil {
			return err
		}
		if app == nil {
			return apperr.WithMetadata(apperr.CodeNotEligible, "member has not applied to this task",
				map[string]string{"task_id": taskID, "actor": applicantID})
		}
		applicant, err := tx.GetMember(ctx, applicantID)
		if err != nil {
			return err
		}
		if err := requireActive(applicant, applicantID); err != nil {
			return err
		}

		moved, err := tx.TransitionTask(ctx, db.TaskTransition{
			TaskID:   taskID,
			From:     models.TaskStatusOpen,
			To:       models.TaskStatusInProgress,
			HelperID: &applicantID,
			At:       e.now(),
		})
		if err != nil {
			return err
		}
		if !moved {
			return invalidTransition(taskID, task.Status, models.TaskStatusOpen)
		}
		if err := tx.ResolveApplications(ctx, taskID, applicantID); err != nil {
			return err
		}
		updated, err = tx.GetTask(ctx, taskID)
		return err
	})
	if err != nil {
		e.logger.Debug("accept refused", zap.String("task_id", taskID), zap.Error(err))
		return nil, err
	}

	e.logger.Info("application accepted", zap.String("task_id", taskID), zap.String("helper", applicantID))
	return updated, nil
}

// CompleteTask closes an in-progress task and credits its points to the
// helper. Either participant may report completion.
func (e *Engine) CompleteTask(ctx context.Context, taskID, memberID string) (*models.Task, error) {
	var updated *models.Task
	err := e.store.WithTx(ctx, func(tx *db.Tx) error {
		task, err := loadTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if !task.IsParticipant(memberID) {
			return unauthorized(taskID, memberID, "only the publisher or helper may complete a task")
		}
		if task.Status != models.TaskStatusInProgress || task.HelperID == nil {
			return invalidTransition(taskID, task.Status, models.TaskStatusInProgress)
		}

		now := e.now()
		moved, err := tx.TransitionTask(ctx, db.TaskTransition{
			TaskID:      taskID,
			From:        models.TaskStatusInProgress,
			To:          models.TaskStatusCompleted,
			CompletedAt: &now,
			At:          now,
		})
		if err != nil {
			return err
		}
		if !moved {
			return invalidTransition(taskID, task.Status, models.TaskStatusInProgress)
		}

		helperID := *task.HelperID
		if err := tx.CreditPoints(ctx, helperID, task.PointsOffered); err != nil {
			return err
		}
		if err := tx.RecordCompletion(ctx, helperID); err != nil {
			return err
		}
		if err := tx.RecordCompletion(ctx, task.PublisherID); err != nil {
			return err
		}
		updated, err = tx.GetTask(ctx, taskID)
		return err
	})
	if err != nil {
		e.logger.Debug("complete refused", zap.String("task_id", taskID), zap.Error(err))
		return nil, err
	}

	e.logger.Info("task completed",
		zap.String("task_id", taskID),
		zap.String("helper", *updated.HelperID),
		zap.Int("points", updated.PointsOffered))
	return updated, nil
}
