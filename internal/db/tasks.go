package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ldi/campushelp/pkg/models"
)

const taskColumns = `
	t.id, t.publisher_id, t.accepted_helper_id, t.title, t.description, t.category, t.location,
	t.campus, t.points_offered, t.is_urgent, t.status, t.created_at, t.updated_at, t.completed_at`

func scanTask(row rowScanner) (*models.Task, error) {
	t := &models.Task{}
	var urgent int
	err := row.Scan(
		&t.ID, &t.PublisherID, &t.HelperID, &t.Title, &t.Description, &t.Category, &t.Location,
		&t.Campus, &t.PointsOffered, &urgent, &t.Status, &t.CreatedAt, &t.UpdatedAt, &t.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Urgent = urgent == 1
	return t, nil
}

// TaskFilter narrows ListTasks. Zero fields match everything.
type TaskFilter struct {
	Status      *models.TaskStatus
	PublisherID string
	Category    models.Category
	Campus      string
}

// CreateTask inserts a new task row. If t.ID is empty, a new UUID is generated.
func (tx *Tx) CreateTask(ctx context.Context, t *models.Task) error {
	return createTask(ctx, tx.tx, t)
}

func createTask(ctx context.Context, exec executor, t *models.Task) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = models.TaskStatusOpen
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}

	query := `
		INSERT INTO tasks (
			id, publisher_id, accepted_helper_id, title, description, category, location, campus,
			points_offered, is_urgent, status, created_at, updated_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := exec.ExecContext(ctx, query,
		t.ID, t.PublisherID, t.HelperID, t.Title, t.Description, t.Category, t.Location, t.Campus,
		t.PointsOffered, boolToInt(t.Urgent), t.Status, t.CreatedAt, t.UpdatedAt, t.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by its ID. It returns nil if no task exists.
func (db *DB) GetTask(ctx context.Context, id string) (*models.Task, error) {
	return getTask(ctx, db.DB, id)
}

func (tx *Tx) GetTask(ctx context.Context, id string) (*models.Task, error) {
	return getTask(ctx, tx.tx, id)
}

func getTask(ctx context.Context, exec executor, id string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks t WHERE t.id = ?`
	t, err := scanTask(exec.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// ListTasks returns tasks newest first, optionally filtered.
func (db *DB) ListTasks(ctx context.Context, filter TaskFilter) ([]*models.Task, error) {
	query, args := filterTasks(`SELECT `+taskColumns+` FROM tasks t`, filter)
	query += " ORDER BY t.created_at DESC, t.id ASC"
	return queryTasks(ctx, db.DB, query, args...)
}

func filterTasks(query string, filter TaskFilter) (string, []any) {
	query += " WHERE 1=1"
	var args []any
	if filter.Status != nil {
		query += " AND t.status = ?"
		args = append(args, *filter.Status)
	}
	if filter.PublisherID != "" {
		query += " AND t.publisher_id = ?"
		args = append(args, filter.PublisherID)
	}
	if filter.Category != "" {
		query += " AND t.category = ?"
		args = append(args, filter.Category)
	}
	if filter.Campus != "" {
		query += " AND t.campus = ?"
		args = append(args, filter.Campus)
	}
	return query, args
}

// queryTasks is a helper to execute a query that returns a list of tasks.
func queryTasks(ctx context.Context, exec executor, query string, args ...any) ([]*models.Task, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return tasks, nil
}

// TaskTransition describes a compare-and-swap on a task's status.
type TaskTransition struct {
	TaskID      string
	From        models.TaskStatus
	To          models.TaskStatus
	HelperID    *string
	CompletedAt *time.Time
	At          time.Time
}

// TransitionTask moves a task from tr.From to tr.To only if it is still in
// tr.From. It reports whether the row changed, so two racing callers can never
// both observe the source status.
func (tx *Tx) TransitionTask(ctx context.Context, tr TaskTransition) (bool, error) {
	if err := validateStatusTransition(tr.From, tr.To); err != nil {
		return false, err
	}
	if tr.At.IsZero() {
		tr.At = time.Now().UTC()
	}

	// A nil HelperID keeps whichever helper is already assigned.
	query := `
		UPDATE tasks
		SET status = ?, accepted_helper_id = COALESCE(?, accepted_helper_id), completed_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`
	res, err := tx.tx.ExecContext(ctx, query, tr.To, tr.HelperID, tr.CompletedAt, tr.At, tr.TaskID, tr.From)
	if err != nil {
		return false, fmt.Errorf("failed to update task status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

func validateStatusTransition(from, to models.TaskStatus) error {
	switch from {
	case models.TaskStatusOpen:
		if to == models.TaskStatusInProgress || to == models.TaskStatusCancelled {
			return nil
		}
	case models.TaskStatusInProgress:
		if to == models.TaskStatusCompleted {
			return nil
		}
	}
	return fmt.Errorf("invalid transition from %s to %s", from, to)
}
