package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/pbaille/nutriai/internal/api"
	"github.com/pbaille/nutriai/internal/config"
	"github.com/pbaille/nutriai/internal/domain"
	"github.com/pbaille/nutriai/internal/foodlog"
	"github.com/pbaille/nutriai/internal/logging"
	"github.com/pbaille/nutriai/internal/report"
	"github.com/pbaille/nutriai/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	dbPath     string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "nutriai",
		Short:        "Daily food log with calorie and macro totals",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			if dbPath == "" {
				dbPath = cfg.DBPath
			}

			logger, err = logging.New(cfg.LogLevel, verbose)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "config file path")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(totalCmd())
	rootCmd.AddCommand(archiveCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(serveCmd())

	return rootCmd
}

func getStore() (*store.SQLite, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	return store.New(dbPath)
}

// openLog loads the food log for read-only commands. An unreadable snapshot
// is reported and an empty log is shown instead.
func openLog(cmd *cobra.Command, s *store.SQLite) *foodlog.FoodLog {
	l, err := foodlog.Open(s, foodlog.WithKey(cfg.StoreKey), foodlog.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: ignoring saved log: %v\n", err)
	}
	return l
}

// openLogForWrite loads the food log for a command that persists it. An
// unreadable snapshot is an error, so it is never overwritten.
func openLogForWrite(s *store.SQLite) (*foodlog.FoodLog, error) {
	l, err := foodlog.Open(s, foodlog.WithKey(cfg.StoreKey), foodlog.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("saved log left untouched: %w", err)
	}
	return l, nil
}

func initCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the current configuration to the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", configPath)
			}
			if err := cfg.Save(configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func addCmd() *cobra.Command {
	var (
		grams                        float64
		calories, protein, fat, carb int
	)

	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Log a food for today",
		RunE: func(cmd *cobra.Command, args []string) error {
			if grams <= 0 || math.IsNaN(grams) || math.IsInf(grams, 0) {
				return fmt.Errorf("grams must be positive and finite, got %v", grams)
			}
			if calories < 0 || protein < 0 || fat < 0 || carb < 0 {
				return errors.New("calories and macros must not be negative")
			}

			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			l, err := openLogForWrite(s)
			if err != nil {
				return err
			}
			entry := domain.NewFoodEntry(strings.Join(args, " "), grams, calories, protein, fat, carb)
			l.Add(entry)
			if err := l.Persist(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Added %s: %s %sg, %d kcal\n", shortID(entry.ID), entry.Name, report.FormatGrams(entry.Grams), entry.Calories)
			printTotals(out, l.Total(), cfg.Targets)
			return nil
		},
	}

	cmd.Flags().Float64VarP(&grams, "grams", "g", 100, "portion size in grams")
	cmd.Flags().IntVarP(&calories, "kcal", "k", 0, "calories")
	cmd.Flags().IntVarP(&protein, "protein", "p", 0, "protein in grams")
	cmd.Flags().IntVarP(&fat, "fat", "f", 0, "fat in grams")
	cmd.Flags().IntVarP(&carb, "carb", "c", 0, "carbohydrate in grams")
	return cmd
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List today's foods",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			daily := openLog(cmd, s).Daily()
			out := cmd.OutOrStdout()
			if len(daily) == 0 {
				fmt.Fprintln(out, "Nothing logged today. Use 'nutriai add' to log a food.")
				return nil
			}

			printEntries(out, daily)
			return nil
		},
	}
}

func totalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "total",
		Short: "Show today's totals against targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			printTotals(cmd.OutOrStdout(), openLog(cmd, s).Total(), cfg.Targets)
			return nil
		},
	}
}

func archiveCmd() *cobra.Command {
	var dayFlag string

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Close today's log into history",
		RunE: func(cmd *cobra.Command, args []string) error {
			var clock foodlog.Clock = foodlog.SystemClock{}
			if dayFlag != "" {
				day, err := civil.ParseDate(dayFlag)
				if err != nil {
					return fmt.Errorf("invalid day %q, want YYYY-MM-DD", dayFlag)
				}
				clock = foodlog.FixedClock(day)
			}

			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			l, err := openLogForWrite(s)
			if err != nil {
				return err
			}
			count := len(l.Daily())
			if err := l.ArchiveToday(clock); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Archived %d foods under %s\n", count, clock.Today())
			return nil
		},
	}

	cmd.Flags().StringVarP(&dayFlag, "day", "d", "", "day to archive under (YYYY-MM-DD, default today)")
	return cmd
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history [day]",
		Short: "List archived days, or show one day",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			l := openLog(cmd, s)
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				day, err := civil.ParseDate(args[0])
				if err != nil {
					return fmt.Errorf("invalid day %q, want YYYY-MM-DD", args[0])
				}
				entries, ok := l.Archived(day)
				if !ok {
					return fmt.Errorf("no archive for %s", day)
				}
				printEntries(out, entries)
				fmt.Fprintln(out)
				printTotals(out, domain.Sum(entries), cfg.Targets)
				return nil
			}

			days := l.Days()
			if len(days) == 0 {
				fmt.Fprintln(out, "No archived days yet. Use 'nutriai archive' to close a day.")
				return nil
			}
			for _, day := range days {
				entries, _ := l.Archived(day)
				t := domain.Sum(entries)
				fmt.Fprintf(out, "%s  %2d foods  %5d kcal  P%d F%d C%d\n",
					day, len(entries), t.Calories, t.Protein, t.Fat, t.Carb)
			}
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	var toClipboard bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print today's log as plain text",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			text := report.ExportText(openLog(cmd, s).Daily(), cfg.Targets)
			fmt.Fprintln(cmd.OutOrStdout(), text)

			if toClipboard {
				if err := report.CopyToClipboard(text); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "(clipboard skipped: %v)\n", err)
					return nil
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "(copied to clipboard)")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&toClipboard, "clipboard", false, "also copy to the system clipboard")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = cfg.Addr
			}

			s, err := getStore()
			if err != nil {
				return err
			}
			// Note: don't defer s.Close() as server runs indefinitely

			l, err := openLogForWrite(s)
			if err != nil {
				s.Close()
				return err
			}

			server := api.New(l, foodlog.SystemClock{}, cfg.Targets, addr, logger)
			return server.Run()
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "server address (default from config)")
	return cmd
}

func printEntries(out io.Writer, entries []domain.FoodEntry) {
	for _, e := range entries {
		fmt.Fprintf(out, "%s  %-20s %7sg  %4dk | P%d F%d C%d\n",
			shortID(e.ID), truncate(e.Name, 20), report.FormatGrams(e.Grams), e.Calories, e.Protein, e.Fat, e.Carb)
	}
}

func printTotals(out io.Writer, t domain.Totals, targets domain.Targets) {
	fmt.Fprintf(out, "Calories: %d / %d kcal\n", t.Calories, targets.Calories)
	fmt.Fprintf(out, "Protein:  %dg / %dg\n", t.Protein, targets.Protein)
	fmt.Fprintf(out, "Fat:      %dg / %dg\n", t.Fat, targets.Fat)
	fmt.Fprintf(out, "Carbs:    %dg / %dg\n", t.Carb, targets.Carb)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, max int) string {
	// Replace newlines with spaces for display
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
