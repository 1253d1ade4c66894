package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ldi/campushelp/pkg/models"
)

const applicationColumns = `a.id, a.task_id, a.applicant_id, a.status, a.applied_at`

func scanApplication(row rowScanner) (*models.Application, error) {
	a := &models.Application{}
	if err := row.Scan(&a.ID, &a.TaskID, &a.ApplicantID, &a.Status, &a.AppliedAt); err != nil {
		return nil, err
	}
	return a, nil
}

// CreateApplication inserts a pending application. Uniqueness of the
// (task, applicant) pair is enforced by the insert itself; a collision
// returns ErrUniqueViolation.
func (tx *Tx) CreateApplication(ctx context.Context, a *models.Application) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Status == "" {
		a.Status = models.ApplicationStatusPending
	}
	if a.AppliedAt.IsZero() {
		a.AppliedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO applications (id, task_id, applicant_id, status, applied_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := tx.tx.ExecContext(ctx, query, a.ID, a.TaskID, a.ApplicantID, a.Status, a.AppliedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("application %s/%s: %w", a.TaskID, a.ApplicantID, ErrUniqueViolation)
	}
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	return nil
}

// GetApplication returns the application of applicantID for taskID, or nil.
func (tx *Tx) GetApplication(ctx context.Context, taskID, applicantID string) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications a WHERE a.task_id = ? AND a.applicant_id = ?`
	a, err := scanApplication(tx.tx.QueryRowContext(ctx, query, taskID, applicantID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return a, nil
}

// ListApplications returns every application for a task in the order they arrived.
func (db *DB) ListApplications(ctx context.Context, taskID string) ([]*models.Application, error) {
	return listApplications(ctx, db.DB, taskID)
}

func (tx *Tx) ListApplications(ctx context.Context, taskID string) ([]*models.Application, error) {
	return listApplications(ctx, tx.tx, taskID)
}

func listApplications(ctx context.Context, exec executor, taskID string) ([]*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications a WHERE a.task_id = ? ORDER BY a.applied_at ASC, a.id ASC`
	rows, err := exec.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query applications: %w", err)
	}
	defer rows.Close()

	var apps []*models.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return apps, nil
}

// ResolveApplications marks the application of acceptedID as accepted and
// every other application for the task as rejected.
func (tx *Tx) ResolveApplications(ctx context.Context, taskID, acceptedID string) error {
	// Reject first so the partial unique index on accepted rows never sees two.
	if _, err := tx.tx.ExecContext(ctx,
		`UPDATE applications SET status = 'rejected' WHERE task_id = ? AND applicant_id != ?`,
		taskID, acceptedID,
	); err != nil {
		return fmt.Errorf("failed to reject applications: %w", err)
	}
	return tx.updateOne(ctx,
		`UPDATE applications SET status = 'accepted' WHERE task_id = ? AND applicant_id = ?`,
		taskID, acceptedID,
	)
}

// RejectPending rejects every pending application for a task.
func (tx *Tx) RejectPending(ctx context.Context, taskID string) (int64, error) {
	res, err := tx.tx.ExecContext(ctx,
		`UPDATE applications SET status = 'rejected' WHERE task_id = ? AND status = 'pending'`, taskID)
	if err != nil {
		return 0, fmt.Errorf("failed to reject pending applications: %w", err)
	}
	return res.RowsAffected()
}
