package models

import "time"

type MemberStatus string

const (
	MemberStatusActive   MemberStatus = "active"
	MemberStatusInactive MemberStatus = "inactive"
)

type Member struct {
	ID             string       `json:"id"`
	Email          string       `json:"email"`
	Name           string       `json:"name"`
	Department     string       `json:"department"`
	Grade          string       `json:"grade"`
	Campus         string       `json:"campus"`
	Skills         SkillSet     `json:"skills"`
	Points         int          `json:"points"`
	AvgRating      float64      `json:"avg_rating"`
	CompletedTasks int          `json:"completed_tasks"`
	TrustScore     float64      `json:"trust_score"`
	CrossCampus    bool         `json:"willing_cross_campus"`
	Status         MemberStatus `json:"status"`
	CreatedAt      time.Time    `json:"created_at"`
}

func (m *Member) Active() bool {
	return m.Status == MemberStatusActive
}
