package models

// TimeLayout is the display format used by every read projection.
const TimeLayout = "2006-01-02 15:04"

// TaskView is a task flattened for display with participant names joined in.
type TaskView struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Category        Category   `json:"category"`
	Location        string     `json:"location"`
	Campus          string     `json:"campus"`
	PointsOffered   int        `json:"points_offered"`
	Urgent          bool       `json:"is_urgent"`
	Status          TaskStatus `json:"status"`
	PublisherID     string     `json:"publisher_id"`
	PublisherName   string     `json:"publisher_name"`
	PublisherRating float64    `json:"publisher_rating"`
	HelperID        *string    `json:"accepted_user_id"`
	HelperName      *string    `json:"accepted_user_name"`
	CreatedAt       string     `json:"created_at"`
	CompletedAt     *string    `json:"completed_at"`
}

type ApplicationView struct {
	ID              string            `json:"id"`
	TaskID          string            `json:"task_id"`
	ApplicantID     string            `json:"applicant_id"`
	ApplicantName   string            `json:"applicant_name"`
	ApplicantRating float64           `json:"applicant_rating"`
	Status          ApplicationStatus `json:"status"`
	AppliedAt       string            `json:"applied_at"`
}

// AppliedTaskView is a task as seen by one of its applicants.
type AppliedTaskView struct {
	TaskView
	ApplicationStatus ApplicationStatus `json:"application_status"`
	AppliedAt         string            `json:"applied_at"`
}

// PublishedTaskView is a task as seen by its publisher. Applicants are only
// listed while the task is open.
type PublishedTaskView struct {
	TaskView
	Applicants []ApplicationView `json:"applicants,omitempty"`
}

type ReviewView struct {
	ID           string  `json:"id"`
	TaskID       string  `json:"task_id"`
	TaskTitle    string  `json:"task_title"`
	ReviewerID   string  `json:"reviewer_id"`
	ReviewerName string  `json:"reviewer_name"`
	RevieweeID   string  `json:"reviewee_id"`
	RevieweeName string  `json:"reviewee_name"`
	Rating       float64 `json:"rating"`
	Comment      string  `json:"comment"`
	CreatedAt    string  `json:"created_at"`
}

// ReviewStatus tells a member whether they may still review a task.
type ReviewStatus struct {
	CanReview   bool    `json:"can_review"`
	RevieweeID  *string `json:"reviewee_id"`
	HasReviewed bool    `json:"has_reviewed"`
}

type RankedMember struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	CompletedTasks int     `json:"completed_tasks"`
	AvgRating      float64 `json:"avg_rating"`
}

type PlatformStats struct {
	TotalMembers    int              `json:"total_members"`
	TotalTasks      int              `json:"total_tasks"`
	OpenTasks       int              `json:"open_tasks"`
	InProgressTasks int              `json:"in_progress_tasks"`
	CompletedTasks  int              `json:"completed_tasks"`
	CancelledTasks  int              `json:"cancelled_tasks"`
	TotalPoints     int              `json:"total_points"`
	PointsInTasks   int              `json:"points_in_tasks"`
	CategoryCounts  map[Category]int `json:"category_counts"`
	CampusCounts    map[string]int   `json:"campus_counts"`
	TopMembers      []RankedMember   `json:"top_members"`
	CompletionRate  float64          `json:"completion_rate"`
}
