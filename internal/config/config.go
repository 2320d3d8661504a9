// Package config loads and validates the agent configuration.
//
// Configuration is resolved in order: built-in defaults, then the
// repository-local .crag.yml, then ~/.config/crag/config.yml, then
// CRAG_* environment variables. Validation happens once at startup and
// is fatal before any network call is made.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/crag-dev/crag/internal/filter"
	"github.com/crag-dev/crag/internal/review"
)

const (
	RepoConfigFile  = ".crag.yml"
	GlobalConfigDir = ".config/crag"

	DefaultMaxContextFiles = 20
	DefaultMaxRounds       = 5
)

// Config contains the resolved CLI dependencies and settings.
type Config struct {
	Version string
	Viper   *viper.Viper

	Debug    bool
	Provider string

	// Per-stage model identifiers. Empty means provider default.
	ContextBuilderModel string
	ReviewerModel       string
	AssessorModel       string

	MaxContextFiles int
	MaxRounds       int

	IgnoredExtensions []string
	IgnoredPaths      []string
	TestKeywords      []string

	ReviewFocus []review.Category
	ReviewRules []string

	// io writers useful for testing
	InReader  io.Reader
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Load builds a Config from defaults, config files and environment.
// repoPath may be empty (current directory).
func Load(repoPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(strings.TrimSuffix(RepoConfigFile, ".yml"))
	v.SetConfigType("yaml")
	if repoPath == "" {
		repoPath = "."
	}
	v.AddConfigPath(repoPath)
	if home, err := homedir.Dir(); err == nil {
		v.AddConfigPath(filepath.Join(home, GlobalConfigDir))
	}

	v.SetEnvPrefix("CRAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, we run on defaults.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	conf := Config{
		Viper:               v,
		Debug:               v.GetBool("debug"),
		Provider:            v.GetString("llm.provider"),
		ContextBuilderModel: v.GetString("llm.models.context_builder"),
		ReviewerModel:       v.GetString("llm.models.reviewer"),
		AssessorModel:       v.GetString("llm.models.assessor"),
		MaxContextFiles:     v.GetInt("max_context_files"),
		MaxRounds:           v.GetInt("max_rounds"),
		IgnoredExtensions:   v.GetStringSlice("filtering.ignored_extensions"),
		IgnoredPaths:        v.GetStringSlice("filtering.ignored_paths"),
		TestKeywords:        v.GetStringSlice("test_keywords"),
		ReviewRules:         v.GetStringSlice("review_rules"),
		InReader:            os.Stdin,
		OutWriter:           os.Stdout,
		ErrWriter:           os.Stderr,
	}

	focus, err := parseFocus(v.GetStringSlice("review_focus"))
	if err != nil {
		return Config{}, err
	}
	conf.ReviewFocus = focus

	if err := conf.Validate(); err != nil {
		return Config{}, err
	}
	return conf, nil
}

// Validate checks budgets and enums. Called by Load; exported so tests
// and flag overrides can re-check after mutation.
func (c Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("config: llm.provider must be set")
	}
	if c.MaxContextFiles < 1 {
		return fmt.Errorf("config: max_context_files must be >= 1, got %d", c.MaxContextFiles)
	}
	if c.MaxRounds < 1 {
		return fmt.Errorf("config: max_rounds must be >= 1, got %d", c.MaxRounds)
	}
	if len(c.ReviewFocus) == 0 {
		return fmt.Errorf("config: review_focus must contain at least one category")
	}
	return nil
}

// FilterRules builds the file filter from the configured sets.
func (c Config) FilterRules() *filter.Rules {
	return &filter.Rules{
		IgnoredExtensions: c.IgnoredExtensions,
		IgnoredPaths:      c.IgnoredPaths,
		TestKeywords:      c.TestKeywords,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("max_context_files", DefaultMaxContextFiles)
	v.SetDefault("max_rounds", DefaultMaxRounds)
	v.SetDefault("filtering.ignored_extensions", []string{
		".lock", ".min.js", ".map", ".sum", ".svg",
	})
	v.SetDefault("filtering.ignored_paths", []string{
		"vendor/", "node_modules/", "dist/", "build/", ".git/",
	})
	v.SetDefault("test_keywords", []string{"test", "spec", "mock"})
	v.SetDefault("review_focus", []string{string(review.CategoryLogicError)})
	v.SetDefault("review_rules", []string{})
}

func parseFocus(raw []string) ([]review.Category, error) {
	out := make([]review.Category, 0, len(raw))
	for _, s := range raw {
		c, err := review.ParseCategory(s)
		if err != nil {
			return nil, fmt.Errorf("config: review_focus: %w", err)
		}
		out = append(out, c)
	}
	return out, nil
}

// SampleYAML returns a documented sample configuration file.
func SampleYAML() string {
	return `# .crag.yml - drop this in your repository root.
debug: false

llm:
  provider: openai          # openai, anthropic (openai also covers any
                            # OpenAI-compatible endpoint via base_url)
  models:
    context_builder: gpt-4o-mini
    reviewer: gpt-4o
    assessor: gpt-4o-mini

max_context_files: 20       # hard cap on files fed to the reviewer
max_rounds: 5               # context-building round ceiling

filtering:
  ignored_extensions: [".lock", ".min.js", ".map", ".sum", ".svg"]
  ignored_paths: ["vendor/", "node_modules/", "dist/"]

test_keywords: ["test", "spec", "mock"]

review_focus: ["LogicError"]   # categories surfaced as comments
review_rules:
  - "Prefer early returns over deep nesting."
  - "All exported APIs must be documented."

providers:
  openai:
    base_url: https://api.openai.com/v1   # or an OpenRouter/Ollama URL
    model: gpt-4o
  anthropic:
    model: claude-sonnet-4-20250514
`
}
