package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ldi/campushelp/internal/advisory"
	"github.com/ldi/campushelp/internal/config"
	"github.com/ldi/campushelp/internal/db"
	"github.com/ldi/campushelp/internal/lifecycle"
	"github.com/ldi/campushelp/internal/logging"
	"github.com/ldi/campushelp/internal/matching"
	"github.com/ldi/campushelp/internal/review"
	"github.com/ldi/campushelp/internal/ui"
)

// runMenu is replaced in tests.
var runMenu = ui.RunMenu

func main() {
	if err := execute(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// execute runs one CLI invocation. With no arguments the interactive menu
// picks the command.
func execute(args []string, out io.Writer) error {
	a := &app{}
	defer a.close()

	root := newRootCmd(a)
	root.SetOut(out)
	root.SetErr(out)

	if len(args) == 0 {
		selected, err := runMenu(menuItems(root), a.menuSummary(context.Background()))
		if err != nil {
			return fmt.Errorf("failed to run menu: %w", err)
		}
		if selected == "" {
			return nil
		}
		args = strings.Fields(selected)
	}

	root.SetArgs(args)
	return root.Execute()
}

// menuEntries are the read-only commands offered by the menu, in display order.
var menuEntries = []struct{ group, command string }{
	{"Tasks", "task board"},
	{"Tasks", "task list"},
	{"Members", "member list"},
	{"Reports", "stats"},
	{"Reports", "db status"},
	{"Servers", "web"},
	{"Servers", "mcp"},
}

func menuItems(root *cobra.Command) []ui.Item {
	items := make([]ui.Item, 0, len(menuEntries))
	for _, e := range menuEntries {
		cmd, _, err := root.Find(strings.Fields(e.command))
		if err != nil || cmd == root {
			continue
		}
		items = append(items, ui.Item{Group: e.group, Command: e.command, Description: cmd.Short})
	}
	return items
}

// menuSummary reports live counters for an existing database. It never
// creates one and returns "" when anything fails.
func (a *app) menuSummary(ctx context.Context) string {
	if err := a.setup(); err != nil {
		return ""
	}
	if _, err := os.Stat(a.cfg.Database.Path); err != nil {
		return ""
	}
	if err := a.open(ctx); err != nil {
		a.logger.Debug("menu summary unavailable", zap.Error(err))
		return ""
	}
	stats, err := a.registry.Stats(ctx)
	if err != nil {
		a.logger.Debug("menu summary unavailable", zap.Error(err))
		return ""
	}
	return ui.Summary(stats)
}

// app holds the flags and the lazily opened services of one invocation.
type app struct {
	configPath string
	dbPath     string
	verbose    bool
	jsonOut    bool

	ready  bool
	cfg    config.Config
	logger *zap.Logger

	store    *db.DB
	engine   *lifecycle.Engine
	registry *lifecycle.Registry
	reviews  *review.Service
	guard    *advisory.Guard
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "campushelp",
		Short: "CampusHelp - campus mutual-aid points ledger",
		Long: `CampusHelp lets students publish help requests, apply to help, and pay
each other in platform points. Points are escrowed when a task is
published and released to the helper when the task completes.

Run without arguments to open the interactive menu.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", ".campushelp/config.yaml", "Path to config file")
	root.PersistentFlags().StringVar(&a.dbPath, "db-path", "", "Path to database file (overrides config)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "Print results as JSON")

	root.AddCommand(
		newInitCmd(a),
		newMemberCmd(a),
		newTaskCmd(a),
		newApplyCmd(a),
		newAcceptCmd(a),
		newCompleteCmd(a),
		newReviewCmd(a),
		newReviewsCmd(a),
		newRecommendCmd(a),
		newStatsCmd(a),
		newSuggestCmd(a),
		newWebCmd(a),
		newMCPCmd(a),
		newDBCmd(a),
	)
	return root
}

func (a *app) setup() error {
	if a.ready {
		return nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}
	a.cfg = cfg

	level := cfg.Logging.Level
	if a.verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.Logging.JSON)
	if err != nil {
		return err
	}
	a.logger = logger
	a.ready = true
	return nil
}

// open connects the store and builds the engines on first use.
func (a *app) open(ctx context.Context) error {
	if a.store != nil {
		return nil
	}

	store, err := db.Open(a.cfg.Database.Path)
	if err != nil {
		return err
	}
	if err := store.Init(ctx); err != nil {
		store.Close()
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	if a.cfg.Database.AutoSnapshot && a.cfg.Database.SnapshotPath != "" {
		store.EnableAutoSnapshot(a.cfg.Database.SnapshotPath)
	}

	guard, err := advisory.New(ctx, a.cfg, a.logger)
	if err != nil {
		store.Close()
		return err
	}
	matcher, err := matching.New(a.cfg.Matching.Weights, a.cfg.OnlineMarkers)
	if err != nil {
		store.Close()
		return err
	}

	a.store = store
	a.guard = guard
	a.engine = lifecycle.New(store, a.cfg, guard, a.logger)
	a.registry = lifecycle.NewRegistry(store, matcher)
	a.reviews = review.New(store, a.logger)
	a.logger.Debug("store opened", zap.String("path", a.cfg.Database.Path))
	return nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// print writes v as indented JSON when --json is set, otherwise calls text.
func (a *app) print(w io.Writer, v any, text func()) error {
	if a.jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text()
	return nil
}
