package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"implindex/internal/analysis"
	"implindex/internal/storage"
	"implindex/internal/watch"
)

var (
	saveAnalysis bool
	failOnError  bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Discover state definitions and rebuild the index",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			rootDir = args[0]
		}
		s, _, err := newSync()
		if err != nil {
			return err
		}
		if _, err := s.Scan(cmd.Context()); err != nil {
			return err
		}
		idx, err := s.Index(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(idx.Stats)
		}
		fmt.Println("✅ Scan complete.")
		return nil
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [path]",
	Short: "Run the rule pipeline over the discovered states",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			rootDir = args[0]
		}
		s, _, err := newSync()
		if err != nil {
			return err
		}
		report, err := s.Run(cmd.Context(), saveAnalysis)
		if err != nil {
			return err
		}
		if jsonOut {
			if err := printJSON(report.Analysis); err != nil {
				return err
			}
		} else {
			printIssues(report.Analysis)
		}
		if failOnError && report.Analysis.Summary.Errors > 0 {
			return fmt.Errorf("%d errors found", report.Analysis.Summary.Errors)
		}
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the latest saved analysis run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := storage.NewSQLiteStore(cfg.Storage.DB)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer store.Close()

		run, err := store.LatestAnalysis(cmd.Context(), cfg.Project.Root)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no saved analysis for %s (run `implindex analyze --save` first)", cfg.Project.Root)
		}
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(run)
		}
		fmt.Printf("🗂  Run %s at %s\n", run.ID, run.CreatedAt.Format("2006-01-02 15:04:05"))
		printIssues(run.Result)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Rebuild the index whenever state definitions change",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			rootDir = args[0]
		}
		s, _, err := newSync()
		if err != nil {
			return err
		}
		if _, err := s.Run(cmd.Context(), false); err != nil {
			return err
		}
		fmt.Println("👀 Watching for changes (Ctrl+C to stop)...")
		w := watch.New(s.Root, s.Crawler(), s.Refresh)
		return w.Run(cmd.Context())
	},
}

func printIssues(res *analysis.Result) {
	icons := map[analysis.Severity]string{
		analysis.SeverityError:   "🔴",
		analysis.SeverityWarning: "🟡",
		analysis.SeverityInfo:    "🔵",
	}
	for _, is := range res.Issues {
		fmt.Printf("%s [%s] %s: %s\n", icons[is.Severity], is.Type, is.StateName, is.Message)
		for _, sg := range is.Suggestions {
			fmt.Printf("      💡 %s\n", sg.Text)
		}
	}
	sum := res.Summary
	fmt.Printf("\n%d issues: %d errors, %d warnings, %d info\n", sum.Total, sum.Errors, sum.Warnings, sum.Info)
}

func init() {
	analyzeCmd.Flags().BoolVar(&saveAnalysis, "save", false, "Store the index snapshot and analysis run in the database")
	analyzeCmd.Flags().BoolVar(&failOnError, "fail-on-error", false, "Exit non-zero when errors are found")
}
