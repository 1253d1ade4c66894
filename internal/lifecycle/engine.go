// Package lifecycle owns every state transition of a task: creation with its
// points debit, applications, acceptance, completion with its points credit,
// and cancellation with its refund. Each operation is one store transaction.
package lifecycle

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ldi/campushelp/internal/advisory"
	"github.com/ldi/campushelp/internal/apperr"
	"github.com/ldi/campushelp/internal/config"
	"github.com/ldi/campushelp/internal/db"
	"github.com/ldi/campushelp/pkg/models"
)

// Assessor screens task content before it is published.
type Assessor interface {
	Assess(ctx context.Context, description string, category models.Category) (advisory.Verdict, error)
}

type Engine struct {
	store   *db.DB
	cfg     config.Config
	advisor Assessor
	logger  *zap.Logger
	now     func() time.Time
}

type Option func(*Engine)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(store *db.DB, cfg config.Config, advisor Assessor, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if advisor == nil {
		advisor = advisory.NewGuard(advisory.NewPrefilter(cfg.DenyKeywords), advisory.OfflineAdvisor{}, cfg.Advisory.Timeout, logger)
	}
	e := &Engine{
		store:   store,
		cfg:     cfg,
		advisor: advisor,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateTaskInput carries the fields a publisher fills in.
type CreateTaskInput struct {
	PublisherID string
	Title       string
	Description string
	Category    models.Category
	Location    string
	Campus      string
	Points      int
	Urgent      bool
}

// CreateResult is a published task and the advisory verdict it passed.
type CreateResult struct {
	Task    *models.Task     `json:"task"`
	Verdict advisory.Verdict `json:"verdict"`
}

func (e *Engine) validateCreate(in *CreateTaskInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Location = strings.TrimSpace(in.Location)
	in.Campus = strings.TrimSpace(in.Campus)

	if in.PublisherID == "" {
		return apperr.Validation("publisher is required")
	}
	if in.Title == "" {
		return apperr.Validation("title is required")
	}
	if !in.Category.Valid() || !e.cfg.AllowsCategory(in.Category) {
		return apperr.Validation("unknown category %q", in.Category)
	}
	if in.Campus == "" {
		return apperr.Validation("campus is required")
	}
	if !e.knownCampus(in.Campus) {
		return apperr.Validation("unknown campus %q", in.Campus)
	}
	if in.Points == 0 {
		in.Points = e.cfg.Points.Default
	}
	if in.Points < e.cfg.Points.Min || in.Points > e.cfg.Points.Max {
		return apperr.WithMetadata(apperr.CodeValidation,
			fmt.Sprintf("points must be between %d and %d", e.cfg.Points.Min, e.cfg.Points.Max),
			map[string]string{"points": strconv.Itoa(in.Points)})
	}
	return nil
}

func (e *Engine) knownCampus(campus string) bool {
	if len(e.cfg.Campuses) == 0 {
		return true
	}
	for _, c := range e.cfg.Campuses {
		if c == campus {
			return true
		}
	}
	return false
}

// CreateTask publishes a task and debits its points from the publisher. The
// content advisory runs before the transaction opens.
func (e *Engine) CreateTask(ctx context.Context, in CreateTaskInput) (*CreateResult, error) {
	if err := e.validateCreate(&in); err != nil {
		return nil, err
	}

	publisher, err := e.store.GetMember(ctx, in.PublisherID)
	if err != nil {
		return nil, err
	}
	if err := requireActive(publisher, in.PublisherID); err != nil {
		return nil, err
	}
	if publisher.Points < in.Points {
		return nil, insufficientFunds(publisher.Points, in.Points)
	}

	verdict, err := e.advisor.Assess(ctx, in.Title+"\n"+in.Description, in.Category)
	if err != nil {
		e.logger.Warn("content advisory failed, falling back to manual review", zap.Error(err))
		verdict = advisory.Fallback()
	}
	if verdict.Rejected() {
		e.logger.Info("task content rejected",
			zap.String("publisher", in.PublisherID),
			zap.String("reason", verdict.Reason),
			zap.Strings("flags", verdict.Flags))
		return nil, apperr.WithMetadata(apperr.CodeContentRejected,
			"task content rejected: "+verdict.Reason,
			map[string]string{"reason": verdict.Reason, "flags": strings.Join(verdict.Flags, ",")})
	}
	if verdict.Elevated() {
		e.logger.Warn("task published with elevated risk",
			zap.String("publisher", in.PublisherID),
			zap.String("risk_level", string(verdict.RiskLevel)),
			zap.Float64("risk_score", verdict.RiskScore),
			zap.Strings("flags", verdict.Flags),
			zap.String("reason", verdict.Reason))
	}

	now := e.now()
	task := &models.Task{
		PublisherID:   in.PublisherID,
		Title:         in.Title,
		Description:   in.Description,
		Category:      in.Category,
		Location:      in.Location,
		Campus:        in.Campus,
		PointsOffered: in.Points,
		Urgent:        in.Urgent,
		Status:        models.TaskStatusOpen,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = e.store.WithTx(ctx, func(tx *db.Tx) error {
		p, err := tx.GetMember(ctx, in.PublisherID)
		if err != nil {
			return err
		}
		if err := requireActive(p, in.PublisherID); err != nil {
			return err
		}
		ok, err := tx.DebitPoints(ctx, in.PublisherID, in.Points)
		if err != nil {
			return err
		}
		if !ok {
			return insufficientFunds(p.Points, in.Points)
		}
		return tx.CreateTask(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("task created",
		zap.String("task_id", task.ID),
		zap.String("publisher", task.PublisherID),
		zap.Int("points", task.PointsOffered))
	return &CreateResult{Task: task, Verdict: verdict}, nil
}

// CancelTask withdraws an open task, refunds its points and rejects every
// pending application.
func (e *Engine) CancelTask(ctx context.Context, taskID, publisherID string) (*models.Task, error) {
	var updated *models.Task
	err := e.store.WithTx(ctx, func(tx *db.Tx) error {
		task, err := loadTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if task.PublisherID != publisherID {
			return unauthorized(taskID, publisherID, "only the publisher may cancel a task")
		}
		if task.Status != models.TaskStatusOpen {
			return invalidTransition(taskID, task.Status, models.TaskStatusOpen)
		}

		moved, err := tx.TransitionTask(ctx, db.TaskTransition{
			TaskID: taskID, From: models.TaskStatusOpen, To: models.TaskStatusCancelled, At: e.now(),
		})
		if err != nil {
			return err
		}
		if !moved {
			return invalidTransition(taskID, task.Status, models.TaskStatusOpen)
		}
		if err := tx.CreditPoints(ctx, task.PublisherID, task.PointsOffered); err != nil {
			return err
		}
		if _, err := tx.RejectPending(ctx, taskID); err != nil {
			return err
		}
		updated, err = tx.GetTask(ctx, taskID)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("task cancelled", zap.String("task_id", taskID), zap.Int("refund", updated.PointsOffered))
	return updated, nil
}

func loadTask(ctx context.Context, tx *db.Tx, taskID string) (*models.Task, error) {
	task, err := tx.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, notFound("task", taskID)
	}
	return task, nil
}

func requireActive(m *models.Member, id string) error {
	if m == nil {
		return notFound("member", id)
	}
	if !m.Active() {
		return apperr.WithMetadata(apperr.CodeNotEligible, "member is inactive", map[string]string{"actor": id})
	}
	return nil
}

func notFound(kind, id string) error {
	return apperr.WithMetadata(apperr.CodeNotFound, kind+" not found", map[string]string{kind + "_id": id})
}

func insufficientFunds(balance, required int) error {
	return apperr.WithMetadata(apperr.CodeInsufficientFunds, "insufficient points", map[string]string{
		"balance":  strconv.Itoa(balance),
		"required": strconv.Itoa(required),
	})
}

func unauthorized(taskID, actor, msg string) error {
	return apperr.WithMetadata(apperr.CodeUnauthorized, msg, map[string]string{"task_id": taskID, "actor": actor})
}

func invalidTransition(taskID string, current, required models.TaskStatus) error {
	return apperr.WithMetadata(apperr.CodeInvalidTransition,
		fmt.Sprintf("task is %s, must be %s", current, required),
		map[string]string{
			"task_id":         taskID,
			"current_status":  string(current),
			"required_status": string(required),
		})
}
