package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"implindex/internal/config"
	"implindex/internal/index"
	"implindex/internal/logging"
	"implindex/internal/pipeline"
)

var (
	rootCmd = &cobra.Command{
		Use:           "implindex",
		Short:         "Index, search and analyze application state definitions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	configPath string
	rootDir    string
	dbPath     string
	jsonOut    bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "root", "r", "", "Project root (overrides project.root)")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "SQLite database path (overrides storage.db)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Print machine-readable JSON")

	rootCmd.AddCommand(scanCmd, searchCmd, ticketCmd, eventCmd, fieldCmd, stateCmd,
		chainCmd, graphCmd, suggestCmd, statsCmd, analyzeCmd, reportCmd, watchCmd)
}

// loadConfig applies flag overrides on top of the configuration file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if rootDir != "" {
		cfg.Project.Root = rootDir
	}
	if dbPath != "" {
		cfg.Storage.DB = dbPath
	}
	return cfg, nil
}

// newSync builds the pipeline. Progress lines are dropped in JSON mode so
// stdout stays parseable.
func newSync() (*pipeline.Sync, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	slog.SetDefault(logger)

	out := os.Stdout
	if jsonOut {
		out = os.Stderr
	}
	return pipeline.NewSync(cfg, out, logger), cfg, nil
}

// loadIndex returns the cached index, hinting at scan when none exists.
func loadIndex(ctx context.Context) (*index.Index, *config.Config, error) {
	s, cfg, err := newSync()
	if err != nil {
		return nil, nil, err
	}
	idx, err := s.Index(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w (run `implindex scan` first)", err)
	}
	return idx, cfg, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
