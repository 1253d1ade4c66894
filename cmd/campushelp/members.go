package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ldi/campushelp/internal/lifecycle"
	"github.com/ldi/campushelp/pkg/models"
)

func newMemberCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Register and inspect members",
	}

	var in lifecycle.RegisterMemberInput
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a member with the starting balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			m, err := a.engine.RegisterMember(cmd.Context(), in)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.print(out, m, func() {
				fmt.Fprintf(out, "✓ Registered %s (%s) with %d points\n", m.Name, m.ID, m.Points)
			})
		},
	}
	add.Flags().StringVar(&in.Email, "email", "", "Email address (unique)")
	add.Flags().StringVar(&in.Name, "name", "", "Display name")
	add.Flags().StringVar(&in.Campus, "campus", "", "Home campus")
	add.Flags().StringSliceVar(&in.Skills, "skills", nil, "Skill tags")
	add.Flags().StringVar(&in.Department, "department", "", "Department")
	add.Flags().StringVar(&in.Grade, "grade", "", "Grade or year")
	add.Flags().BoolVar(&in.CrossCampus, "cross-campus", false, "Willing to help on other campuses")
	add.MarkFlagRequired("email")
	add.MarkFlagRequired("name")
	add.MarkFlagRequired("campus")

	var all bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			members, err := a.registry.Members(cmd.Context(), all)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.print(out, members, func() {
				fmt.Fprintf(out, "%-36s %-16s %-12s %-7s %-6s %-6s\n", "ID", "NAME", "CAMPUS", "POINTS", "RATING", "DONE")
				fmt.Fprintln(out, strings.Repeat("-", 88))
				for _, m := range members {
					fmt.Fprintf(out, "%-36s %-16s %-12s %-7d %-6.2f %-6d\n", m.ID, m.Name, m.Campus, m.Points, m.AvgRating, m.CompletedTasks)
				}
			})
		},
	}
	list.Flags().BoolVar(&all, "all", false, "Include deactivated members")

	show := &cobra.Command{
		Use:   "show <member-id>",
		Short: "Show a member profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			m, err := a.registry.Member(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.print(out, m, func() { printMember(out, m) })
		},
	}

	cmd.AddCommand(add, list, show,
		newMemberStatusCmd(a, "activate", true),
		newMemberStatusCmd(a, "deactivate", false))
	return cmd
}

func newMemberStatusCmd(a *app, use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <member-id>",
		Short: strings.ToUpper(use[:1]) + use[1:] + " a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			if err := a.engine.SetMemberActive(cmd.Context(), args[0], active); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Member %s %sd\n", args[0], use)
			return nil
		},
	}
}

func printMember(out io.Writer, m *models.Member) {
	skills := make([]string, 0, len(m.Skills))
	for _, s := range m.Skills.Sorted() {
		skills = append(skills, string(s))
	}
	fmt.Fprintf(out, "%s <%s>\n", m.Name, m.Email)
	fmt.Fprintf(out, "  ID:          %s\n", m.ID)
	fmt.Fprintf(out, "  Status:      %s\n", m.Status)
	fmt.Fprintf(out, "  Campus:      %s (cross-campus: %t)\n", m.Campus, m.CrossCampus)
	fmt.Fprintf(out, "  Skills:      %s\n", strings.Join(skills, ", "))
	fmt.Fprintf(out, "  Points:      %d\n", m.Points)
	fmt.Fprintf(out, "  Rating:      %.2f\n", m.AvgRating)
	fmt.Fprintf(out, "  Trust:       %.2f\n", m.TrustScore)
	fmt.Fprintf(out, "  Completed:   %d\n", m.CompletedTasks)
}
