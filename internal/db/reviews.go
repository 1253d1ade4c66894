package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ldi/campushelp/pkg/models"
)

// CreateReview inserts a review. A second review for the same
// (task, reviewer, reviewee) returns ErrUniqueViolation.
func (tx *Tx) CreateReview(ctx context.Context, r *models.Review) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO reviews (id, task_id, reviewer_id, reviewee_id, rating, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := tx.tx.ExecContext(ctx, query,
		r.ID, r.TaskID, r.ReviewerID, r.RevieweeID, r.Rating, r.Comment, r.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("review %s by %s: %w", r.TaskID, r.ReviewerID, ErrUniqueViolation)
	}
	if err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

// HasReview reports whether reviewer already rated reviewee for task.
func (db *DB) HasReview(ctx context.Context, taskID, reviewerID, revieweeID string) (bool, error) {
	return hasReview(ctx, db.DB, taskID, reviewerID, revieweeID)
}

func (tx *Tx) HasReview(ctx context.Context, taskID, reviewerID, revieweeID string) (bool, error) {
	return hasReview(ctx, tx.tx, taskID, reviewerID, revieweeID)
}

func hasReview(ctx context.Context, exec executor, taskID, reviewerID, revieweeID string) (bool, error) {
	var one int
	err := exec.QueryRowContext(ctx,
		`SELECT 1 FROM reviews WHERE task_id = ? AND reviewer_id = ? AND reviewee_id = ?`,
		taskID, reviewerID, revieweeID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check review: %w", err)
	}
	return true, nil
}

// AverageRating returns the mean of every rating revieweeID has received and
// how many there are.
func (tx *Tx) AverageRating(ctx context.Context, revieweeID string) (float64, int, error) {
	var avg sql.NullFloat64
	var count int
	err := tx.tx.QueryRowContext(ctx,
		`SELECT AVG(rating), COUNT(*) FROM reviews WHERE reviewee_id = ?`, revieweeID,
	).Scan(&avg, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to average ratings: %w", err)
	}
	return avg.Float64, count, nil
}

// CountReviews returns how many reviews exist for a task.
func (db *DB) CountReviews(ctx context.Context, taskID string) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reviews WHERE task_id = ?`, taskID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	return n, nil
}
