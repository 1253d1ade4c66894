// Package review lets the two participants of a completed task rate each
// other and keeps each member's reputation in step with the ratings received.
package review

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ldi/campushelp/internal/apperr"
	"github.com/ldi/campushelp/internal/db"
	"github.com/ldi/campushelp/pkg/models"
)

const maxCommentLength = 500

type Service struct {
	store  *db.DB
	logger *zap.Logger
	now    func() time.Time
}

func New(store *db.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// TrustScore blends the average rating with experience, capped at 50 tasks.
func TrustScore(avgRating float64, completedTasks int) float64 {
	completion := math.Min(1.0, float64(completedTasks)/50)
	return round2(avgRating/5.0*0.7 + completion*0.3)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Status reports whether memberID took part in a completed task, who their
// counterpart is, and whether they already rated them.
func (s *Service) Status(ctx context.Context, taskID, memberID string) (*models.ReviewStatus, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, apperr.WithMetadata(apperr.CodeNotFound, "task not found", map[string]string{"task_id": taskID})
	}
	if task.Status != models.TaskStatusCompleted {
		return &models.ReviewStatus{}, nil
	}
	reviewee, ok := task.Counterpart(memberID)
	if !ok {
		return &models.ReviewStatus{}, nil
	}
	has, err := s.store.HasReview(ctx, taskID, memberID, reviewee)
	if err != nil {
		return nil, err
	}
	return &models.ReviewStatus{CanReview: true, RevieweeID: &reviewee, HasReviewed: has}, nil
}

// CanReview returns the member memberID may review for taskID.
func (s *Service) CanReview(ctx context.Context, taskID, memberID string) (string, error) {
	st, err := s.Status(ctx, taskID, memberID)
	if err != nil {
		return "", err
	}
	if !st.CanReview {
		return "", notEligible(taskID, memberID, "member did not take part in a completed task")
	}
	return *st.RevieweeID, nil
}

type SubmitInput struct {
	TaskID     string
	ReviewerID string
	RevieweeID string
	Rating     float64
	Comment    string
}

// Submit stores a rating and recomputes the reviewee's average rating and
// trust score in the same transaction.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*models.Review, error) {
	in.Comment = strings.TrimSpace(in.Comment)
	if !models.ValidRating(in.Rating) {
		return nil, apperr.Validation("rating %v must be between 1 and 5 in half-point steps", in.Rating)
	}
	if len([]rune(in.Comment)) > maxCommentLength {
		return nil, apperr.Validation("comment exceeds %d characters", maxCommentLength)
	}
	if in.ReviewerID == "" || in.RevieweeID == "" {
		return nil, apperr.Validation("reviewer and reviewee are required")
	}

	r := &models.Review{
		TaskID:     in.TaskID,
		ReviewerID: in.ReviewerID,
		RevieweeID: in.RevieweeID,
		Rating:     in.Rating,
		Comment:    in.Comment,
		CreatedAt:  s.now(),
	}

	var avg, trust float64
	err := s.store.WithTx(ctx, func(tx *db.Tx) error {
		task, err := tx.GetTask(ctx, in.TaskID)
		if err != nil {
			return err
		}
		if task == nil {
			return apperr.WithMetadata(apperr.CodeNotFound, "task not found", map[string]string{"task_id": in.TaskID})
		}
		if task.Status != models.TaskStatusCompleted {
			return apperr.WithMetadata(apperr.CodeNotEligible, "task is not completed", map[string]string{
				"task_id":         in.TaskID,
				"current_status":  string(task.Status),
				"required_status": string(models.TaskStatusCompleted),
			})
		}
		counterpart, ok := task.Counterpart(in.ReviewerID)
		if !ok || counterpart != in.RevieweeID {
			return notEligible(in.TaskID, in.ReviewerID, "reviewer and reviewee are not the task's participants")
		}

		has, err := tx.HasReview(ctx, in.TaskID, in.ReviewerID, in.RevieweeID)
		if err != nil {
			return err
		}
		if has {
			return duplicate(in)
		}
		if err := tx.CreateReview(ctx, r); err != nil {
			if errors.Is(err, db.ErrUniqueViolation) {
				return duplicate(in)
			}
			return err
		}

		mean, _, err := tx.AverageRating(ctx, in.RevieweeID)
		if err != nil {
			return err
		}
		reviewee, err := tx.GetMember(ctx, in.RevieweeID)
		if err != nil {
			return err
		}
		if reviewee == nil {
			return apperr.WithMetadata(apperr.CodeNotFound, "member not found", map[string]string{"member_id": in.RevieweeID})
		}
		avg = round2(mean)
		trust = TrustScore(mean, reviewee.CompletedTasks)
		return tx.SetReputation(ctx, in.RevieweeID, avg, trust)
	})
	if err != nil {
		s.logger.Debug("review refused", zap.String("task_id", in.TaskID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("review submitted",
		zap.String("task_id", in.TaskID),
		zap.String("reviewer", in.ReviewerID),
		zap.String("reviewee", in.RevieweeID),
		zap.Float64("avg_rating", avg),
		zap.Float64("trust_score", trust))
	return r, nil
}

// For lists the reviews memberID received, newest first.
func (s *Service) For(ctx context.Context, memberID string) ([]models.ReviewView, error) {
	m, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apperr.WithMetadata(apperr.CodeNotFound, "member not found", map[string]string{"member_id": memberID})
	}
	return s.store.ListReviewViews(ctx, memberID)
}

func notEligible(taskID, actor, msg string) error {
	return apperr.WithMetadata(apperr.CodeNotEligible, msg, map[string]string{"task_id": taskID, "actor": actor})
}

func duplicate(in SubmitInput) error {
	return apperr.WithMetadata(apperr.CodeDuplicateReview, "review already submitted", map[string]string{
		"task_id":  in.TaskID,
		"actor":    in.ReviewerID,
		"reviewee": in.RevieweeID,
	})
}
