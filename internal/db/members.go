package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ldi/campushelp/pkg/models"
)

const memberColumns = `
	m.id, m.email, m.name, m.department, m.grade, m.campus, m.points, m.avg_rating,
	m.completed_tasks, m.trust_score, m.willing_cross_campus, m.status, m.created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (*models.Member, error) {
	m := &models.Member{}
	var crossCampus int
	err := row.Scan(
		&m.ID, &m.Email, &m.Name, &m.Department, &m.Grade, &m.Campus, &m.Points, &m.AvgRating,
		&m.CompletedTasks, &m.TrustScore, &crossCampus, &m.Status, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.CrossCampus = crossCampus == 1
	m.Skills = models.NewSkillSet()
	return m, nil
}

// CreateMember inserts a member and its skills. If m.ID is empty a new UUID
// is generated.
func (db *DB) CreateMember(ctx context.Context, m *models.Member) error {
	return db.WithTx(ctx, func(tx *Tx) error {
		return tx.CreateMember(ctx, m)
	})
}

func (tx *Tx) CreateMember(ctx context.Context, m *models.Member) error {
	return createMember(ctx, tx.tx, m)
}

func createMember(ctx context.Context, exec executor, m *models.Member) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Status == "" {
		m.Status = models.MemberStatusActive
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if m.Skills == nil {
		m.Skills = models.NewSkillSet()
	}

	query := `
		INSERT INTO members (
			id, email, name, department, grade, campus, points, avg_rating,
			completed_tasks, trust_score, willing_cross_campus, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := exec.ExecContext(ctx, query,
		m.ID, m.Email, m.Name, m.Department, m.Grade, m.Campus, m.Points, m.AvgRating,
		m.CompletedTasks, m.TrustScore, boolToInt(m.CrossCampus), m.Status, m.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("member %s: %w", m.Email, ErrUniqueViolation)
	}
	if err != nil {
		return fmt.Errorf("failed to create member: %w", err)
	}

	for _, skill := range m.Skills.Sorted() {
		if _, err := exec.ExecContext(ctx,
			`INSERT INTO member_skills (member_id, skill) VALUES (?, ?)`, m.ID, skill,
		); err != nil {
			return fmt.Errorf("failed to add skill %s: %w", skill, err)
		}
	}
	return nil
}

// GetMember retrieves a member by ID. It returns nil if no member exists.
func (db *DB) GetMember(ctx context.Context, id string) (*models.Member, error) {
	return getMember(ctx, db.DB, id)
}

func (tx *Tx) GetMember(ctx context.Context, id string) (*models.Member, error) {
	return getMember(ctx, tx.tx, id)
}

func getMember(ctx context.Context, exec executor, id string) (*models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members m WHERE m.id = ?`
	m, err := scanMember(exec.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	if err := loadSkills(ctx, exec, map[string]*models.Member{m.ID: m}); err != nil {
		return nil, err
	}
	return m, nil
}

// GetMemberByEmail retrieves a member by email. It returns nil if no member exists.
func (db *DB) GetMemberByEmail(ctx context.Context, email string) (*models.Member, error) {
	var id string
	err := db.QueryRowContext(ctx, `SELECT id FROM members WHERE email = ?`, email).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member by email: %w", err)
	}
	return db.GetMember(ctx, id)
}

// ListMembers returns members ordered by name. Inactive members are skipped
// unless includeInactive is set.
func (db *DB) ListMembers(ctx context.Context, includeInactive bool) ([]*models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members m`
	if !includeInactive {
		query += ` WHERE m.status = 'active'`
	}
	query += ` ORDER BY m.name ASC, m.id ASC`
	return queryMembers(ctx, db.DB, query)
}

func queryMembers(ctx context.Context, exec executor, query string, args ...any) ([]*models.Member, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var members []*models.Member
	byID := make(map[string]*models.Member)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
		byID[m.ID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	rows.Close()

	if err := loadSkills(ctx, exec, byID); err != nil {
		return nil, err
	}
	return members, nil
}

// loadSkills attaches skill sets to the given members in a single query.
func loadSkills(ctx context.Context, exec executor, byID map[string]*models.Member) error {
	if len(byID) == 0 {
		return nil
	}
	ids := make([]any, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	rows, err := exec.QueryContext(ctx,
		`SELECT member_id, skill FROM member_skills WHERE member_id IN (`+placeholders+`)`, ids...)
	if err != nil {
		return fmt.Errorf("failed to query skills: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var memberID string
		var skill models.Skill
		if err := rows.Scan(&memberID, &skill); err != nil {
			return fmt.Errorf("failed to scan skill: %w", err)
		}
		if m, ok := byID[memberID]; ok {
			m.Skills.Add(skill)
		}
	}
	return rows.Err()
}

// SetMemberStatus flips a member between active and inactive.
func (db *DB) SetMemberStatus(ctx context.Context, id string, status models.MemberStatus) error {
	return db.WithTx(ctx, func(tx *Tx) error {
		res, err := tx.tx.ExecContext(ctx, `UPDATE members SET status = ? WHERE id = ?`, status, id)
		if err != nil {
			return fmt.Errorf("failed to update member status: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("member not found: %s", id)
		}
		return nil
	})
}

// DebitPoints subtracts amount from a member balance only if the balance
// covers it. The check and the write are one statement; it reports whether
// the debit happened.
func (tx *Tx) DebitPoints(ctx context.Context, memberID string, amount int) (bool, error) {
	res, err := tx.tx.ExecContext(ctx,
		`UPDATE members SET points = points - ? WHERE id = ? AND points >= ?`,
		amount, memberID, amount,
	)
	if err != nil {
		return false, fmt.Errorf("failed to debit points: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

// CreditPoints adds amount to a member balance.
func (tx *Tx) CreditPoints(ctx context.Context, memberID string, amount int) error {
	return tx.updateOne(ctx, `UPDATE members SET points = points + ? WHERE id = ?`, amount, memberID)
}

// RecordCompletion bumps a member's completed task counter.
func (tx *Tx) RecordCompletion(ctx context.Context, memberID string) error {
	return tx.updateOne(ctx, `UPDATE members SET completed_tasks = completed_tasks + 1 WHERE id = ?`, memberID)
}

// SetReputation stores a recomputed average rating and trust score.
func (tx *Tx) SetReputation(ctx context.Context, memberID string, avgRating, trustScore float64) error {
	return tx.updateOne(ctx,
		`UPDATE members SET avg_rating = ?, trust_score = ? WHERE id = ?`,
		avgRating, trustScore, memberID,
	)
}

func (tx *Tx) updateOne(ctx context.Context, query string, args ...any) error {
	res, err := tx.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("expected 1 row updated, got %d", n)
	}
	return nil
}
