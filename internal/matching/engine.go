// Package matching ranks open tasks for a member with a weighted
// multi-factor score. Everything here is pure and safe for concurrent use.
package matching

import (
	"math"
	"sort"
	"strings"

	"github.com/ldi/campushelp/internal/config"
	"github.com/ldi/campushelp/pkg/models"
)

// Score is a match breakdown. Every component and Total lie in [0,1].
type Score struct {
	Skill    float64 `json:"skill"`
	Time     float64 `json:"time"`
	Rating   float64 `json:"rating"`
	Location float64 `json:"location"`
	Total    float64 `json:"total"`
}

// Recommendation is a task with the score that ranked it.
type Recommendation struct {
	Task  *models.Task `json:"task"`
	Score Score        `json:"score"`
}

type Engine struct {
	weights       config.Weights
	onlineMarkers []string
}

// New returns an engine using weights, which must sum to 1.
func New(weights config.Weights, onlineMarkers []string) (*Engine, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	markers := make([]string, 0, len(onlineMarkers))
	for _, m := range onlineMarkers {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			markers = append(markers, m)
		}
	}
	return &Engine{weights: weights, onlineMarkers: markers}, nil
}

func (e *Engine) Weights() config.Weights {
	return e.weights
}

func (e *Engine) Score(m *models.Member, t *models.Task) Score {
	s := Score{
		Skill:    skillScore(m.Skills, RequiredSkills(t)),
		Time:     timeScore(t),
		Rating:   ratingScore(m),
		Location: e.locationScore(m, t),
	}
	s.Total = clamp01(s.Skill*e.weights.Skill +
		s.Time*e.weights.Time +
		s.Rating*e.weights.Rating +
		s.Location*e.weights.Location)
	return s
}

// Rank scores every task m did not publish and returns the best topN,
// highest total first. Ties keep input order. topN <= 0 returns all.
func (e *Engine) Rank(m *models.Member, tasks []*models.Task, topN int) []Recommendation {
	recs := make([]Recommendation, 0, len(tasks))
	for _, t := range tasks {
		if t == nil || t.PublisherID == m.ID {
			continue
		}
		recs = append(recs, Recommendation{Task: t, Score: e.Score(m, t)})
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Score.Total > recs[j].Score.Total
	})
	if topN > 0 && len(recs) > topN {
		recs = recs[:topN]
	}
	return recs
}

func skillScore(have, required models.SkillSet) float64 {
	if len(required) == 0 {
		return 0.5
	}
	overlap := have.Intersect(required)
	if overlap == 0 {
		return 0.3
	}
	return math.Min(1.0, 0.5+0.2*float64(overlap))
}

// timeScore approximates availability: urgent tasks are slightly harder to fit.
func timeScore(t *models.Task) float64 {
	if t.Urgent {
		return 0.8
	}
	return 1.0
}

func ratingScore(m *models.Member) float64 {
	norm := (m.AvgRating - 1) / 4
	completion := math.Min(1.0, float64(m.CompletedTasks)/20)
	return clamp01(0.5*norm + 0.3*m.TrustScore + 0.2*completion)
}

func (e *Engine) locationScore(m *models.Member, t *models.Task) float64 {
	campus := strings.ToLower(t.Campus)
	for _, marker := range e.onlineMarkers {
		if strings.Contains(campus, marker) {
			return 1.0
		}
	}
	if m.Campus == t.Campus {
		return 1.0
	}
	if m.CrossCampus {
		return 0.6
	}
	return 0.2
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
