package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ldi/campushelp/internal/config"
)

const dataDir = ".campushelp"

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init [dir]",
		Short: "Create the data directory, database and default config",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targetDir := "."
			if len(args) > 0 {
				targetDir = args[0]
			}
			return runInit(cmd, a, targetDir)
		},
	}
}

func runInit(cmd *cobra.Command, a *app, targetDir string) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	dir := filepath.Join(targetDir, dataDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", dataDir, err)
	}
	fmt.Fprintf(out, "✓ Created %s/ directory\n", dataDir)

	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("campushelp.db*\n"), 0644); err != nil {
		return fmt.Errorf("failed to create .gitignore: %w", err)
	}
	fmt.Fprintf(out, "✓ Created %s/.gitignore\n", dataDir)

	cfgPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
		if err := writeDefaultConfig(cfgPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Wrote default config to %s\n", cfgPath)
	}

	if a.dbPath == "" {
		a.cfg.Database.Path = filepath.Join(dir, "campushelp.db")
	}
	a.cfg.Database.SnapshotPath = filepath.Join(dir, "snapshot.jsonl")

	if err := a.open(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Initialized database at %s\n", a.cfg.Database.Path)

	if _, err := os.Stat(a.cfg.Database.SnapshotPath); err == nil {
		stats, err := a.store.PlatformStats(ctx)
		if err != nil {
			return err
		}
		if stats.TotalMembers == 0 && stats.TotalTasks == 0 {
			if err := a.store.ImportSnapshot(ctx, a.cfg.Database.SnapshotPath); err != nil {
				return fmt.Errorf("failed to import snapshot: %w", err)
			}
			fmt.Fprintf(out, "✓ Imported snapshot from %s\n", a.cfg.Database.SnapshotPath)
		}
	}

	fmt.Fprintln(out, "✓ CampusHelp initialized successfully")
	return nil
}

func writeDefaultConfig(path string) error {
	cfg := config.Default()
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to encode default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
