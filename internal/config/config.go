// Package config loads the merge pipeline configuration from YAML.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Load when the config file leaves fields unset.
const (
	DefaultOutputDir  = "out"
	DefaultModelAlias = "sonnet"
	DefaultMaxChars   = 500
)

// ModelEnvVar overrides the configured model alias when set. It is read once
// in Load; nothing downstream consults the environment.
const ModelEnvVar = "MDMERGE_MODEL"

// Config is the root of the YAML configuration document.
type Config struct {
	// SourceDirs lists directories to scan, repo-relative or absolute.
	SourceDirs []string `yaml:"source_dirs"`

	// OutputDir receives the generated artifacts (default "out").
	OutputDir string `yaml:"output_dir"`

	// Title is the heading of the Markdown artifact. Defaults to the
	// output basename when empty.
	Title string `yaml:"title"`

	Compression Compression `yaml:"compression"`
}

// Compression configures the oracle-backed digest step.
type Compression struct {
	Enabled bool `yaml:"enabled"`

	// Model is an alias like "sonnet" or "haiku"; unknown aliases pass
	// through as literal model identifiers.
	Model string `yaml:"model"`

	// MaxChars is the best-effort digest length ceiling (default 500).
	MaxChars int `yaml:"max_chars"`

	// RequestIntervalSeconds spaces oracle requests; 0 disables pacing.
	RequestIntervalSeconds float64 `yaml:"request_interval_seconds"`

	// MaxRequestsPerRun caps oracle round-trips per invocation; 0 means
	// unlimited. Reaching the cap is a normal stop, not a failure.
	MaxRequestsPerRun int `yaml:"max_requests_per_run"`

	// Principles are free-text compression directives embedded in every
	// prompt.
	Principles []string `yaml:"principles"`

	ContentGuard ContentGuard `yaml:"content_guard"`
}

// ContentGuard configures topic-based exclusion of documents.
type ContentGuard struct {
	Enabled       bool     `yaml:"enabled"`
	BlockedTopics []string `yaml:"blocked_topics"`
}

// DefaultPrinciples returns the compression directives used when the config
// does not provide its own.
func DefaultPrinciples() []string {
	return []string{
		"Lossless: keep every key fact and conclusion, introduce nothing new",
		"No repetition: merge overlapping points, drop restatements",
		"Symbolic: prefer mathematical and logical notation where it fits",
		"Concise: short clauses; semicolons or lists when necessary",
		"Consistent definitions: terms, symbols and concepts map one-to-one",
	}
}

// DefaultBlockedTopics returns the guard topics used when the guard is
// enabled without an explicit topic list.
func DefaultBlockedTopics() []string {
	return []string{"geopolitics", "financial markets", "quantitative trading", "legal engineering"}
}

// Load reads, parses and normalizes a configuration file. Defaults and the
// model environment override are applied here so the rest of the pipeline
// sees a fully resolved value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	cfg.applyDefaults()
	if env := strings.TrimSpace(os.Getenv(ModelEnvVar)); env != "" {
		cfg.Compression.Model = env
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.Compression.Model == "" {
		c.Compression.Model = DefaultModelAlias
	}
	if c.Compression.MaxChars <= 0 {
		c.Compression.MaxChars = DefaultMaxChars
	}
	if c.Compression.Principles == nil {
		c.Compression.Principles = DefaultPrinciples()
	}
	if c.Compression.ContentGuard.BlockedTopics == nil {
		c.Compression.ContentGuard.BlockedTopics = DefaultBlockedTopics()
	} else {
		topics := c.Compression.ContentGuard.BlockedTopics[:0]
		for _, t := range c.Compression.ContentGuard.BlockedTopics {
			if t = strings.TrimSpace(t); t != "" {
				topics = append(topics, t)
			}
		}
		c.Compression.ContentGuard.BlockedTopics = topics
	}
}

// GuardTopics returns the blocked topic list when the guard is active, nil
// otherwise. A nil list disables the inline exclusion directive entirely.
func (c *Config) GuardTopics() []string {
	if !c.Compression.ContentGuard.Enabled || len(c.Compression.ContentGuard.BlockedTopics) == 0 {
		return nil
	}
	return c.Compression.ContentGuard.BlockedTopics
}
