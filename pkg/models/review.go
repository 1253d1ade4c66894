package models

import "time"

type Review struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	ReviewerID string    `json:"reviewer_id"`
	RevieweeID string    `json:"reviewee_id"`
	Rating     float64   `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

// ValidRating reports whether r lies in [1, 5] on a half-point step.
func ValidRating(r float64) bool {
	if r < 1 || r > 5 {
		return false
	}
	doubled := r * 2
	return doubled == float64(int(doubled))
}
