package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ldi/campushelp/pkg/models"
)

// Read projections join participant rows once per query instead of
// reloading them per record.

const taskViewSelect = `
	SELECT t.id, t.title, t.description, t.category, t.location, t.campus, t.points_offered,
	       t.is_urgent, t.status, t.publisher_id, p.name, p.avg_rating,
	       t.accepted_helper_id, h.name, t.created_at, t.completed_at
	FROM tasks t
	JOIN members p ON p.id = t.publisher_id
	LEFT JOIN members h ON h.id = t.accepted_helper_id`

func formatTime(t time.Time) string {
	return t.Local().Format(models.TimeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func scanTaskView(row rowScanner, extra ...any) (*models.TaskView, error) {
	v := &models.TaskView{}
	var urgent int
	var createdAt time.Time
	var completedAt *time.Time
	dest := []any{
		&v.ID, &v.Title, &v.Description, &v.Category, &v.Location, &v.Campus, &v.PointsOffered,
		&urgent, &v.Status, &v.PublisherID, &v.PublisherName, &v.PublisherRating,
		&v.HelperID, &v.HelperName, &createdAt, &completedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	v.Urgent = urgent == 1
	v.CreatedAt = formatTime(createdAt)
	v.CompletedAt = formatTimePtr(completedAt)
	return v, nil
}

// ListTaskViews returns display records for tasks matching filter, newest first.
func (db *DB) ListTaskViews(ctx context.Context, filter TaskFilter) ([]*models.TaskView, error) {
	query, args := filterTasks(taskViewSelect, filter)
	query += " ORDER BY t.created_at DESC, t.id ASC"

	return db.queryTaskViews(ctx, query, args...)
}

// GetTaskView returns the display record for one task, or nil.
func (db *DB) GetTaskView(ctx context.Context, id string) (*models.TaskView, error) {
	views, err := db.queryTaskViews(ctx, taskViewSelect+" WHERE t.id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, nil
	}
	return views[0], nil
}

func (db *DB) queryTaskViews(ctx context.Context, query string, args ...any) ([]*models.TaskView, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query task views: %w", err)
	}
	defer rows.Close()

	var views []*models.TaskView
	for rows.Next() {
		v, err := scanTaskView(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task view: %w", err)
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// ListApplicationViews returns the applicants of a task for publisher review.
func (db *DB) ListApplicationViews(ctx context.Context, taskID string) ([]models.ApplicationView, error) {
	query := `
		SELECT a.id, a.task_id, a.applicant_id, m.name, m.avg_rating, a.status, a.applied_at
		FROM applications a
		JOIN members m ON m.id = a.applicant_id
		WHERE a.task_id = ?
		ORDER BY a.applied_at ASC, a.id ASC
	`
	rows, err := db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query application views: %w", err)
	}
	defer rows.Close()

	var views []models.ApplicationView
	for rows.Next() {
		var v models.ApplicationView
		var appliedAt time.Time
		if err := rows.Scan(&v.ID, &v.TaskID, &v.ApplicantID, &v.ApplicantName, &v.ApplicantRating, &v.Status, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan application view: %w", err)
		}
		v.AppliedAt = formatTime(appliedAt)
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return views, nil
}

// ListAppliedTasks returns every task memberID applied to together with the
// status of that application.
func (db *DB) ListAppliedTasks(ctx context.Context, memberID string) ([]*models.AppliedTaskView, error) {
	query := `
		SELECT t.id, t.title, t.description, t.category, t.location, t.campus, t.points_offered,
		       t.is_urgent, t.status, t.publisher_id, p.name, p.avg_rating,
		       t.accepted_helper_id, h.name, t.created_at, t.completed_at,
		       a.status, a.applied_at
		FROM applications a
		JOIN tasks t ON t.id = a.task_id
		JOIN members p ON p.id = t.publisher_id
		LEFT JOIN members h ON h.id = t.accepted_helper_id
		WHERE a.applicant_id = ?
		ORDER BY a.applied_at DESC, a.id ASC
	`
	rows, err := db.QueryContext(ctx, query, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied tasks: %w", err)
	}
	defer rows.Close()

	var views []*models.AppliedTaskView
	for rows.Next() {
		var status models.ApplicationStatus
		var appliedAt time.Time
		tv, err := scanTaskView(rows, &status, &appliedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan applied task: %w", err)
		}
		views = append(views, &models.AppliedTaskView{
			TaskView:          *tv,
			ApplicationStatus: status,
			AppliedAt:         formatTime(appliedAt),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return views, nil
}

// ListPublishedTasks returns the tasks memberID published. Open tasks carry
// their applicant list.
func (db *DB) ListPublishedTasks(ctx context.Context, memberID string) ([]*models.PublishedTaskView, error) {
	tasks, err := db.ListTaskViews(ctx, TaskFilter{PublisherID: memberID})
	if err != nil {
		return nil, err
	}

	views := make([]*models.PublishedTaskView, 0, len(tasks))
	for _, tv := range tasks {
		pv := &models.PublishedTaskView{TaskView: *tv}
		if tv.Status == models.TaskStatusOpen {
			apps, err := db.ListApplicationViews(ctx, tv.ID)
			if err != nil {
				return nil, err
			}
			pv.Applicants = apps
		}
		views = append(views, pv)
	}
	return views, nil
}

// ListReviewViews returns the reviews revieweeID received, newest first.
func (db *DB) ListReviewViews(ctx context.Context, revieweeID string) ([]models.ReviewView, error) {
	query := `
		SELECT r.id, r.task_id, t.title, r.reviewer_id, rv.name, r.reviewee_id, re.name,
		       r.rating, r.comment, r.created_at
		FROM reviews r
		JOIN tasks t ON t.id = r.task_id
		JOIN members rv ON rv.id = r.reviewer_id
		JOIN members re ON re.id = r.reviewee_id
		WHERE r.reviewee_id = ?
		ORDER BY r.created_at DESC, r.id ASC
	`
	rows, err := db.QueryContext(ctx, query, revieweeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	var views []models.ReviewView
	for rows.Next() {
		var v models.ReviewView
		var createdAt time.Time
		if err := rows.Scan(
			&v.ID, &v.TaskID, &v.TaskTitle, &v.ReviewerID, &v.ReviewerName, &v.RevieweeID, &v.RevieweeName,
			&v.Rating, &v.Comment, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		v.CreatedAt = formatTime(createdAt)
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return views, nil
}
