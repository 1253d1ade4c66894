package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ldi/campushelp/internal/review"
)

func newReviewCmd(a *app) *cobra.Command {
	var in review.SubmitInput
	cmd := &cobra.Command{
		Use:   "review <task-id>",
		Short: "Rate the other participant of a completed task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			in.TaskID = args[0]
			if in.RevieweeID == "" {
				reviewee, err := a.reviews.CanReview(cmd.Context(), in.TaskID, in.ReviewerID)
				if err != nil {
					return err
				}
				in.RevieweeID = reviewee
			}
			r, err := a.reviews.Submit(cmd.Context(), in)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.print(out, r, func() {
				fmt.Fprintf(out, "✓ Rated %s %.1f on task %s\n", r.RevieweeID, r.Rating, r.TaskID)
			})
		},
	}
	cmd.Flags().StringVar(&in.ReviewerID, "from", "", "Reviewer member ID")
	cmd.Flags().StringVar(&in.RevieweeID, "to", "", "Reviewee member ID (defaults to the other participant)")
	cmd.Flags().Float64Var(&in.Rating, "rating", 0, "Rating from 1 to 5 in half-point steps")
	cmd.Flags().StringVar(&in.Comment, "comment", "", "Optional comment")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("rating")

	var member string
	status := &cobra.Command{
		Use:   "status <task-id>",
		Short: "Check whether a member can review a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			st, err := a.reviews.Status(cmd.Context(), args[0], member)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.print(out, st, func() {
				reviewee := "-"
				if st.RevieweeID != nil {
					reviewee = *st.RevieweeID
				}
				fmt.Fprintf(out, "Can review:   %t\n", st.CanReview)
				fmt.Fprintf(out, "Reviewee:     %s\n", reviewee)
				fmt.Fprintf(out, "Has reviewed: %t\n", st.HasReviewed)
			})
		},
	}
	status.Flags().StringVar(&member, "member", "", "Member ID")
	status.MarkFlagRequired("member")

	cmd.AddCommand(status)
	return cmd
}

func newReviewsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reviews <member-id>",
		Short: "List the reviews a member received",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			views, err := a.reviews.For(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.print(out, views, func() {
				fmt.Fprintf(out, "%-6s %-16s %-30s %s\n", "RATING", "FROM", "TASK", "COMMENT")
				fmt.Fprintln(out, strings.Repeat("-", 80))
				for _, v := range views {
					fmt.Fprintf(out, "%-6.1f %-16s %-30s %s\n", v.Rating, v.ReviewerName, v.TaskTitle, v.Comment)
				}
			})
		},
	}
}
