package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ldi/campushelp/internal/apperr"
	"github.com/ldi/campushelp/internal/db"
	"github.com/ldi/campushelp/internal/lifecycle"
	"github.com/ldi/campushelp/internal/ui"
	"github.com/ldi/campushelp/internal/ui/components"
	"github.com/ldi/campushelp/pkg/models"
)

func newTaskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Publish and browse tasks",
	}
	cmd.AddCommand(
		newTaskCreateCmd(a),
		newTaskListCmd(a),
		newTaskBoardCmd(a),
		newTaskShowCmd(a),
		newTaskCancelCmd(a),
		newTaskApplicationsCmd(a),
	)
	return cmd
}

func newTaskCreateCmd(a *app) *cobra.Command {
	var (
		in       lifecycle.CreateTaskInput
		category string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Publish a task; its points are debited immediately",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			in.Category = models.Category(category)
			res, err := a.engine.CreateTask(cmd.Context(), in)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.print(out, res, func() {
				fmt.Fprintf(out, "✓ Published %q (%s) for %d points\n", res.Task.Title, res.Task.ID, res.Task.PointsOffered)
				fmt.Fprintf(out, "  Risk: %s (%.2f), %s\n", res.Verdict.RiskLevel, res.Verdict.RiskScore, res.Verdict.Recommendation)
			})
		},
	}
	cmd.Flags().StringVar(&in.PublisherID, "publisher", "", "Publisher member ID")
	cmd.Flags().StringVar(&in.Title, "title", "", "Task title")
	cmd.Flags().StringVar(&in.Description, "description", "", "Task description")
	cmd.Flags().StringVar(&category, "category", "", "Category")
	cmd.Flags().StringVar(&in.Campus, "campus", "", "Campus")
	cmd.Flags().StringVar(&in.Location, "location", "", "Free text location")
	cmd.Flags().IntVar(&in.Points, "points", 0, "Points offered (0 uses the configured default)")
	cmd.Flags().BoolVar(&in.Urgent, "urgent", false, "Mark the task urgent")
	cmd.MarkFlagRequired("publisher")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("category")
	cmd.MarkFlagRequired("campus")
	return cmd
}

type taskFilterFlags struct {
	status    string
	category  string
	campus    string
	publisher string
}

func (f *taskFilterFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.status, "status", "", "Filter by status (open, in_progress, completed, cancelled)")
	cmd.Flags().StringVar(&f.category, "category", "", "Filter by category")
	cmd.Flags().StringVar(&f.campus, "campus", "", "Filter by campus")
	cmd.Flags().StringVar(&f.publisher, "publisher", "", "Filter by publisher ID")
}

func (f *taskFilterFlags) filter() (db.TaskFilter, error) {
	filter := db.TaskFilter{
		Category:    models.Category(f.category),
		Campus:      f.campus,
		PublisherID: f.publisher,
	}
	if f.status != "" {
		s := models.TaskStatus(f.status)
		if !s.Valid() {
			return filter, apperr.Validation("unknown status %q", f.status)
		}
		filter.Status = &s
	}
	return filter, nil
}

func newTaskListCmd(a *app) *cobra.Command {
	var flags taskFilterFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.filter()
			if err != nil {
				return err
			}
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			tasks, err := a.registry.Tasks(cmd.Context(), filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.print(out, tasks, func() { printTaskTable(out, tasks) })
		},
	}
	flags.bind(cmd)
	return cmd
}

func printTaskTable(out io.Writer, tasks []*models.TaskView) {
	fmt.Fprintf(out, "%-36s %-30s %-14s %-12s %-7s %-12s\n", "ID", "TITLE", "CATEGORY", "CAMPUS", "POINTS", "STATUS")
	fmt.Fprintln(out, strings.Repeat("-", 116))
	for _, t := range tasks {
		fmt.Fprintf(out, "%-36s %-30s %-14s %-12s %-7d %-12s\n", t.ID, t.Title, t.Category, t.Campus, t.PointsOffered, t.Status)
	}
}

func newTaskBoardCmd(a *app) *cobra.Command {
	var (
		flags taskFilterFlags
		width       int
		limit       int
		interactive bool
	)
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show tasks grouped by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.filter()
			if err != nil {
				return err
			}
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			tasks, err := a.registry.Tasks(cmd.Context(), filter)
			if err != nil {
				return err
			}
			board := components.NewTaskBoard(width)
			board.Add(limit, tasks...)
			if interactive {
				return ui.RunPager(board.View())
			}
			fmt.Fprintln(cmd.OutOrStdout(), board.View())
			return nil
		},
	}
	flags.bind(cmd)
	cmd.Flags().IntVar(&width, "width", 80, "Board width")
	cmd.Flags().IntVar(&limit, "limit", 10, "Tasks shown per status (0 for all)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Open the board in a scrollable pager")
	return cmd
}

func newTaskShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			t, err := a.registry.Task(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.print(out, t, func() {
				fmt.Fprintf(out, "%s\n", t.Title)
				fmt.Fprintf(out, "  ID:          %s\n", t.ID)
				fmt.Fprintf(out, "  Status:      %s\n", t.Status)
				fmt.Fprintf(out, "  Category:    %s\n", t.Category)
				fmt.Fprintf(out, "  Campus:      %s %s\n", t.Campus, t.Location)
				fmt.Fprintf(out, "  Points:      %d\n", t.PointsOffered)
				fmt.Fprintf(out, "  Urgent:      %t\n", t.Urgent)
				fmt.Fprintf(out, "  Publisher:   %s (%.2f)\n", t.PublisherName, t.PublisherRating)
				if t.HelperName != nil {
					fmt.Fprintf(out, "  Helper:      %s\n", *t.HelperName)
				}
				if t.Description != "" {
					fmt.Fprintf(out, "\n%s\n", t.Description)
				}
			})
		},
	}
}

func newTaskCancelCmd(a *app) *cobra.Command {
	var publisher string
	cmd := &cobra.Command{
		Use:   "cancel <task-id>",
		Short: "Cancel an open task and refund its points",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			t, err := a.engine.CancelTask(cmd.Context(), args[0], publisher)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.print(out, t, func() {
				fmt.Fprintf(out, "✓ Cancelled %q, refunded %d points\n", t.Title, t.PointsOffered)
			})
		},
	}
	cmd.Flags().StringVar(&publisher, "publisher", "", "Publisher member ID")
	cmd.MarkFlagRequired("publisher")
	return cmd
}

func newTaskApplicationsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "applications <task-id>",
		Short: "List applications to a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			apps, err := a.registry.TaskApplications(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.print(out, apps, func() {
				fmt.Fprintf(out, "%-36s %-16s %-6s %-10s\n", "APPLICANT", "NAME", "RATING", "STATUS")
				fmt.Fprintln(out, strings.Repeat("-", 72))
				for _, ap := range apps {
					fmt.Fprintf(out, "%-36s %-16s %-6.2f %-10s\n", ap.ApplicantID, ap.ApplicantName, ap.ApplicantRating, ap.Status)
				}
			})
		},
	}
}

func newApplyCmd(a *app) *cobra.Command {
	var member string
	cmd := &cobra.Command{
		Use:   "apply <task-id>",
		Short: "Apply to help with an open task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			application, err := a.engine.Apply(cmd.Context(), args[0], member)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.print(out, application, func() {
				fmt.Fprintf(out, "✓ Applied to %s (application %s)\n", application.TaskID, application.ID)
			})
		},
	}
	cmd.Flags().StringVar(&member, "member", "", "Applicant member ID")
	cmd.MarkFlagRequired("member")
	return cmd
}

func newAcceptCmd(a *app) *cobra.Command {
	var publisher string
	cmd := &cobra.Command{
		Use:   "accept <task-id> <applicant-id>",
		Short: "Accept an applicant; the other applications are rejected",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			t, err := a.engine.AcceptApplication(cmd.Context(), args[0], args[1], publisher)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.print(out, t, func() {
				fmt.Fprintf(out, "✓ %q is now %s\n", t.Title, t.Status)
			})
		},
	}
	cmd.Flags().StringVar(&publisher, "publisher", "", "Publisher member ID")
	cmd.MarkFlagRequired("publisher")
	return cmd
}

func newCompleteCmd(a *app) *cobra.Command {
	var member string
	cmd := &cobra.Command{
		Use:   "complete <task-id>",
		Short: "Mark an in-progress task completed and pay the helper",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			t, err := a.engine.CompleteTask(cmd.Context(), args[0], member)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.print(out, t, func() {
				fmt.Fprintf(out, "✓ Completed %q, %d points paid to the helper\n", t.Title, t.PointsOffered)
			})
		},
	}
	cmd.Flags().StringVar(&member, "member", "", "Publisher or helper member ID")
	cmd.MarkFlagRequired("member")
	return cmd
}
