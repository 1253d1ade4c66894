package models

import "time"

type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// Valid reports whether s is one of the known task statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusOpen, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled:
		return true
	}
	return false
}

// Holding reports whether points offered for a task in this status are still
// held outside every member balance.
func (s TaskStatus) Holding() bool {
	return s == TaskStatusOpen || s == TaskStatusInProgress
}

type Category string

const (
	CategoryDailySupport  Category = "daily_support"
	CategoryStudyHelp     Category = "study_help"
	CategoryCampusAssist  Category = "campus_assist"
	CategorySkillExchange Category = "skill_exchange"
	CategoryCompanionship Category = "companionship"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryDailySupport,
	CategoryStudyHelp,
	CategoryCampusAssist,
	CategorySkillExchange,
	CategoryCompanionship,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Task struct {
	ID            string     `json:"id"`
	PublisherID   string     `json:"publisher_id"`
	HelperID      *string    `json:"accepted_helper_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Category      Category   `json:"category"`
	Location      string     `json:"location"`
	Campus        string     `json:"campus"`
	PointsOffered int        `json:"points_offered"`
	Urgent        bool       `json:"is_urgent"`
	Status        TaskStatus `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CompletedAt   *time.Time `json:"completed_at"`
}

// IsParticipant reports whether memberID is the publisher or accepted helper.
func (t *Task) IsParticipant(memberID string) bool {
	if t.PublisherID == memberID {
		return true
	}
	return t.HelperID != nil && *t.HelperID == memberID
}

// Counterpart returns the other side of the publisher/helper pair.
func (t *Task) Counterpart(memberID string) (string, bool) {
	if t.HelperID == nil {
		return "", false
	}
	switch memberID {
	case t.PublisherID:
		return *t.HelperID, true
	case *t.HelperID:
		return t.PublisherID, true
	}
	return "", false
}
