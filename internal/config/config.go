package config

import (
	"errors"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Project struct {
		Root     string   `yaml:"root"`
		Patterns []string `yaml:"patterns"`
		Ignore   []string `yaml:"ignore"`
	} `yaml:"project"`
	Index struct {
		Workers  int    `yaml:"workers"`
		Manifest string `yaml:"manifest"`
	} `yaml:"index"`
	Search struct {
		Limit    int     `yaml:"limit"`
		MinScore float64 `yaml:"min_score"`
	} `yaml:"search"`
	Analysis struct {
		ExpectedPlatforms []string `yaml:"expected_platforms"`
		TerminalKeywords  []string `yaml:"terminal_keywords"`
		InitialStates     []string `yaml:"initial_states"`
	} `yaml:"analysis"`
	Storage struct {
		DB string `yaml:"db"`
	} `yaml:"storage"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Project.Root == "" {
		c.Project.Root = "."
	}
	if len(c.Project.Patterns) == 0 {
		c.Project.Patterns = []string{"Implications.js", "Implications.ts"}
	}
	if c.Index.Workers <= 0 {
		c.Index.Workers = runtime.NumCPU()
	}
	if c.Index.Manifest == "" {
		c.Index.Manifest = ".implindex/discovery.json"
	}
	if c.Search.Limit <= 0 {
		c.Search.Limit = 20
	}
	if c.Search.MinScore == 0 {
		c.Search.MinScore = 3
	}
	if c.Storage.DB == "" {
		c.Storage.DB = "implindex.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// LoadConfig reads path, applies IMPLINDEX_* environment overrides and
// fills defaults. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	// 2. Load YAML config
	var cfg Config
	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			return nil, err
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	}

	// 3. Override with Environment Variables if present
	if root := os.Getenv("IMPLINDEX_ROOT"); root != "" {
		cfg.Project.Root = root
	}
	if db := os.Getenv("IMPLINDEX_DB"); db != "" {
		cfg.Storage.DB = db
	}
	if level := os.Getenv("IMPLINDEX_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if format := os.Getenv("IMPLINDEX_LOG_FORMAT"); format != "" {
		cfg.Log.Format = format
	}
	if workers, err := strconv.Atoi(os.Getenv("IMPLINDEX_WORKERS")); err == nil && workers > 0 {
		cfg.Index.Workers = workers
	}
	if platforms := os.Getenv("IMPLINDEX_EXPECTED_PLATFORMS"); platforms != "" {
		cfg.Analysis.ExpectedPlatforms = splitList(platforms)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
