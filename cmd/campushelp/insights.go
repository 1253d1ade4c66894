package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ldi/campushelp/pkg/models"
)

func newRecommendCmd(a *app) *cobra.Command {
	var topN int
	cmd := &cobra.Command{
		Use:   "recommend <member-id>",
		Short: "Rank open tasks for a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			if topN == 0 {
				topN = a.cfg.Matching.TopN
			}
			recs, err := a.registry.Recommend(cmd.Context(), args[0], topN)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.print(out, recs, func() {
				fmt.Fprintf(out, "%-6s %-30s %-6s %-6s %-6s %-6s %-36s\n", "SCORE", "TITLE", "SKILL", "TIME", "RATING", "PLACE", "ID")
				fmt.Fprintln(out, strings.Repeat("-", 104))
				for _, r := range recs {
					fmt.Fprintf(out, "%-6.3f %-30s %-6.2f %-6.2f %-6.2f %-6.2f %-36s\n",
						r.Score.Total, r.Task.Title, r.Score.Skill, r.Score.Time, r.Score.Rating, r.Score.Location, r.Task.ID)
				}
			})
		},
	}
	cmd.Flags().IntVar(&topN, "top", 0, "How many tasks to show (0 uses the configured default)")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show platform statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			stats, err := a.registry.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.print(out, stats, func() {
				fmt.Fprintln(out, "CampusHelp Platform Stats")
				fmt.Fprintln(out, "=========================")
				fmt.Fprintf(out, "Members:         %d\n", stats.TotalMembers)
				fmt.Fprintf(out, "Total Tasks:     %d\n", stats.TotalTasks)
				fmt.Fprintf(out, "Member Points:   %d\n", stats.TotalPoints)
				fmt.Fprintf(out, "Escrowed Points: %d\n", stats.PointsInTasks)
				fmt.Fprintf(out, "Completion Rate: %.1f%%\n", stats.CompletionRate)

				fmt.Fprintln(out, "\nTask Breakdown:")
				fmt.Fprintf(out, "  Open:        %d\n", stats.OpenTasks)
				fmt.Fprintf(out, "  In Progress: %d\n", stats.InProgressTasks)
				fmt.Fprintf(out, "  Completed:   %d\n", stats.CompletedTasks)
				fmt.Fprintf(out, "  Cancelled:   %d\n", stats.CancelledTasks)

				if len(stats.CategoryCounts) > 0 {
					fmt.Fprintln(out, "\nBy Category:")
					keys := make([]string, 0, len(stats.CategoryCounts))
					for k := range stats.CategoryCounts {
						keys = append(keys, string(k))
					}
					sort.Strings(keys)
					for _, k := range keys {
						fmt.Fprintf(out, "  %-16s %d\n", k, stats.CategoryCounts[models.Category(k)])
					}
				}

				if len(stats.TopMembers) > 0 {
					fmt.Fprintln(out, "\nTop Helpers:")
					for i, m := range stats.TopMembers {
						fmt.Fprintf(out, "  %d. %s (%d completed, %.2f)\n", i+1, m.Name, m.CompletedTasks, m.AvgRating)
					}
				}
			})
		},
	}
}

func newSuggestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <description>",
		Short: "Propose a clearer task description (nothing is saved)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			suggestion, err := a.guard.Suggest(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.print(out, map[string]string{"suggested_description": suggestion}, func() {
				fmt.Fprintln(out, suggestion)
			})
		},
	}
}
