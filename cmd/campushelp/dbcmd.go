package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDBCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}

	export := &cobra.Command{
		Use:   "export [path]",
		Short: "Write a JSON Lines snapshot of every relation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := snapshotArg(a, args)
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			if err := a.store.ExportSnapshot(cmd.Context(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported snapshot to %s\n", path)
			return nil
		},
	}

	imp := &cobra.Command{
		Use:   "import [path]",
		Short: "Load a snapshot into an empty database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := snapshotArg(a, args)
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			// Importing must not re-export over the file being read.
			a.store.DisableOnChange()
			defer a.store.EnableOnChange()
			if err := a.store.ImportSnapshot(cmd.Context(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported snapshot from %s\n", path)
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show database status and the points ledger total",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			stats, err := a.store.PlatformStats(cmd.Context())
			if err != nil {
				return err
			}
			held, err := a.store.HeldPoints(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			result := map[string]any{
				"path":        a.cfg.Database.Path,
				"members":     stats.TotalMembers,
				"tasks":       stats.TotalTasks,
				"held_points": held,
			}
			return a.print(out, result, func() {
				fmt.Fprintln(out, "CampusHelp Database Status")
				fmt.Fprintln(out, "==========================")
				fmt.Fprintf(out, "Path:            %s\n", a.cfg.Database.Path)
				fmt.Fprintf(out, "Members:         %d\n", stats.TotalMembers)
				fmt.Fprintf(out, "Total Tasks:     %d\n", stats.TotalTasks)
				fmt.Fprintf(out, "Held Points:     %d\n", held)
			})
		},
	}

	cmd.AddCommand(export, imp, status)
	return cmd
}

func snapshotArg(a *app, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return a.cfg.Database.SnapshotPath
}
