package db

import (
	"context"
	"fmt"

	"github.com/ldi/campushelp/pkg/models"
)

// PlatformStats aggregates platform-wide counters over active members and
// all tasks.
func (db *DB) PlatformStats(ctx context.Context) (*models.PlatformStats, error) {
	stats := &models.PlatformStats{
		CategoryCounts: make(map[models.Category]int),
		CampusCounts:   make(map[string]int),
	}

	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(points), 0) FROM members WHERE status = 'active'`,
	).Scan(&stats.TotalMembers, &stats.TotalPoints)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate members: %w", err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT status, category, campus, COUNT(*), SUM(points_offered)
		FROM tasks
		GROUP BY status, category, campus
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate tasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status models.TaskStatus
		var category models.Category
		var campus string
		var count, points int
		if err := rows.Scan(&status, &category, &campus, &count, &points); err != nil {
			return nil, fmt.Errorf("failed to scan task aggregate: %w", err)
		}
		stats.TotalTasks += count
		stats.CategoryCounts[category] += count
		stats.CampusCounts[campus] += count
		switch status {
		case models.TaskStatusOpen:
			stats.OpenTasks += count
			stats.PointsInTasks += points
		case models.TaskStatusInProgress:
			stats.InProgressTasks += count
		case models.TaskStatusCompleted:
			stats.CompletedTasks += count
		case models.TaskStatusCancelled:
			stats.CancelledTasks += count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	rows.Close()

	top, err := db.QueryContext(ctx, `
		SELECT id, name, completed_tasks, avg_rating
		FROM members
		WHERE status = 'active'
		ORDER BY completed_tasks DESC, avg_rating DESC, name ASC
		LIMIT 3
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query top members: %w", err)
	}
	defer top.Close()

	for top.Next() {
		var m models.RankedMember
		if err := top.Scan(&m.ID, &m.Name, &m.CompletedTasks, &m.AvgRating); err != nil {
			return nil, fmt.Errorf("failed to scan top member: %w", err)
		}
		stats.TopMembers = append(stats.TopMembers, m)
	}
	if err := top.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if stats.TotalTasks > 0 {
		stats.CompletionRate = float64(stats.CompletedTasks) / float64(stats.TotalTasks) * 100
	}
	return stats, nil
}

// HeldPoints returns the sum of member balances plus points held by open or
// in-progress tasks. Points only ever move between these two pools.
func (db *DB) HeldPoints(ctx context.Context) (int, error) {
	var total int
	err := db.QueryRowContext(ctx, `
		SELECT
			(SELECT COALESCE(SUM(points), 0) FROM members) +
			(SELECT COALESCE(SUM(points_offered), 0) FROM tasks WHERE status IN ('open', 'in_progress'))
	`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum held points: %w", err)
	}
	return total, nil
}
