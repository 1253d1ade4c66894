package lifecycle

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/ldi/campushelp/internal/apperr"
	"github.com/ldi/campushelp/internal/db"
	"github.com/ldi/campushelp/pkg/models"
)

type RegisterMemberInput struct {
	Email       string
	Name        string
	Department  string
	Grade       string
	Campus      string
	Skills      []string
	CrossCampus bool
}

// RegisterMember adds a member with the configured starting balance and a
// neutral reputation.
func (e *Engine) RegisterMember(ctx context.Context, in RegisterMemberInput) (*models.Member, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.Name)
	campus := strings.TrimSpace(in.Campus)

	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.Validation("a valid email is required")
	}
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	if campus == "" || !e.knownCampus(campus) {
		return nil, apperr.Validation("unknown campus %q", campus)
	}
	skills, err := models.ParseSkills(in.Skills)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}

	m := &models.Member{
		Email:       email,
		Name:        name,
		Department:  strings.TrimSpace(in.Department),
		Grade:       strings.TrimSpace(in.Grade),
		Campus:      campus,
		Skills:      skills,
		Points:      e.cfg.DefaultBalance,
		AvgRating:   5.0,
		TrustScore:  1.0,
		CrossCampus: in.CrossCampus,
		Status:      models.MemberStatusActive,
		CreatedAt:   e.now(),
	}
	err = e.store.CreateMember(ctx, m)
	if errors.Is(err, db.ErrUniqueViolation) {
		return nil, apperr.WithMetadata(apperr.CodeValidation, "email already registered",
			map[string]string{"email": email})
	}
	if err != nil {
		return nil, err
	}

	e.logger.Info("member registered", zap.String("member_id", m.ID), zap.String("campus", m.Campus))
	return m, nil
}

// SetMemberActive toggles whether a member may publish, apply or be accepted.
func (e *Engine) SetMemberActive(ctx context.Context, memberID string, active bool) error {
	m, err := e.store.GetMember(ctx, memberID)
	if err != nil {
		return err
	}
	if m == nil {
		return notFound("member", memberID)
	}
	status := models.MemberStatusInactive
	if active {
		status = models.MemberStatusActive
	}
	if err := e.store.SetMemberStatus(ctx, memberID, status); err != nil {
		return err
	}
	e.logger.Info("member status changed", zap.String("member_id", memberID), zap.String("status", string(status)))
	return nil
}
