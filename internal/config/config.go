// Copyright 2025 Shadow Atlas Contributors
//
// Package config loads the build pipeline's YAML configuration, with
// ${VAR_NAME} / ${VAR_NAME:-default} environment variable substitution.

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shadowatlas/core/internal/authority"
	"github.com/shadowatlas/core/internal/boundary"
	"github.com/shadowatlas/core/internal/changedetector"
	"github.com/shadowatlas/core/internal/orchestrator"
	"github.com/shadowatlas/core/internal/validator"
)

// Config is the root configuration document for one build run.
type Config struct {
	Environment string `yaml:"environment"`

	Orchestrator OrchestratorSettings `yaml:"orchestrator"`
	Validator    ValidatorSettings    `yaml:"validator"`
	Authority    AuthoritySettings    `yaml:"authority"`
	Snapshot     SnapshotSettings     `yaml:"snapshot"`
	Distributor  DistributorSettings  `yaml:"distributor"`
	ChangeCache  ChangeCacheSettings  `yaml:"change_cache"`
}

// OrchestratorSettings mirrors internal/orchestrator.Config's tunables.
type OrchestratorSettings struct {
	Concurrency             int            `yaml:"concurrency"`
	ProviderConcurrency     map[string]int `yaml:"provider_concurrency"`
	MaxConsecutiveFailures  int            `yaml:"max_consecutive_failures"`
	CircuitBreakerThreshold int            `yaml:"circuit_breaker_threshold"`
	TupleTimeout            Duration       `yaml:"tuple_timeout"`
	BatchDeadline           Duration       `yaml:"batch_deadline"`
	InitialBackoff          Duration       `yaml:"initial_backoff"`
	MaxBackoff              Duration       `yaml:"max_backoff"`
}

// ValidatorSettings mirrors internal/validator.Config's tunables (spec
// §4.3) plus the GEOID registry file the validator checks cardinality
// against.
type ValidatorSettings struct {
	GeoidRegistryPath       string              `yaml:"geoid_registry_path"`
	CardinalityEpsilon      float64             `yaml:"cardinality_epsilon"`
	CrossSourceMinQuality   float64             `yaml:"cross_source_min_quality"`
	CrossSourceHaltOnBreach bool                `yaml:"cross_source_halt_on_breach"`
	Exceptions              []ExceptionSettings `yaml:"exceptions"`
}

// ExceptionSettings is the YAML row shape for one documented jurisdiction
// exception (mirrors validator.JurisdictionException).
type ExceptionSettings struct {
	Layer        string `yaml:"layer"`
	Jurisdiction string `yaml:"jurisdiction"`
	Reason       string `yaml:"reason"`
}

// AuthoritySettings configures the resolver's tie-breaking preferences
// (spec §4.4). SourcePreferenceRank is a nested map rather than a flat
// table because YAML (and Go's yaml.v3) has no way to key a map on a
// struct: it reads as jurisdiction -> layer -> source_name -> rank, e.g.
//
//	source_preference_rank:
//	  US/56:
//	    county:
//	      census-tiger: 1
//	      state-mirror: 2
type AuthoritySettings struct {
	SourcePreferenceRank map[string]map[string]map[string]int `yaml:"source_preference_rank"`
	FreshnessHalfLife    Duration                              `yaml:"freshness_half_life"`
}

// SnapshotSettings selects and configures the snapshot storage backend
// (spec §6: "exactly one mode per process lifetime").
type SnapshotSettings struct {
	Backend     string `yaml:"backend"` // "relational" or "file"
	DatabaseURL string `yaml:"database_url"`
	Directory   string `yaml:"directory"`
}

// DistributorSettings configures the content-addressed store backend.
type DistributorSettings struct {
	Backend          string `yaml:"backend"` // "azblob" or "memory"
	ConnectionString string `yaml:"connection_string"`
	Container        string `yaml:"container"`
}

// ChangeCacheSettings configures checksum cache TTL policy (spec §4.10).
type ChangeCacheSettings struct {
	DefaultTTL    Duration `yaml:"default_ttl"`
	KVBackend     string   `yaml:"kv_backend"`
	KVPath        string   `yaml:"kv_path"`
}

// Duration wraps time.Duration for YAML unmarshaling as a Go duration
// string ("30s", "24h"), rather than a bare nanosecond integer.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the time.Duration value.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the YAML config at path, substituting
// ${VAR_NAME} / ${VAR_NAME:-default} environment references first.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	expanded := substituteEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Orchestrator.Concurrency == 0 {
		c.Orchestrator.Concurrency = 4
	}
	if c.Orchestrator.MaxConsecutiveFailures == 0 {
		c.Orchestrator.MaxConsecutiveFailures = 3
	}
	if c.Orchestrator.CircuitBreakerThreshold == 0 {
		c.Orchestrator.CircuitBreakerThreshold = 5
	}
	if c.Orchestrator.TupleTimeout == 0 {
		c.Orchestrator.TupleTimeout = Duration(2 * time.Minute)
	}
	if c.Orchestrator.BatchDeadline == 0 {
		c.Orchestrator.BatchDeadline = Duration(2 * time.Hour)
	}
	if c.Orchestrator.InitialBackoff == 0 {
		c.Orchestrator.InitialBackoff = Duration(500 * time.Millisecond)
	}
	if c.Orchestrator.MaxBackoff == 0 {
		c.Orchestrator.MaxBackoff = Duration(30 * time.Second)
	}
	if c.Validator.CardinalityEpsilon == 0 {
		c.Validator.CardinalityEpsilon = 0.05
	}
	if c.Validator.CrossSourceMinQuality == 0 {
		c.Validator.CrossSourceMinQuality = 0.7
	}
	if c.Authority.FreshnessHalfLife == 0 {
		c.Authority.FreshnessHalfLife = Duration(180 * 24 * time.Hour)
	}
	if c.ChangeCache.DefaultTTL == 0 {
		c.ChangeCache.DefaultTTL = Duration(365 * 24 * time.Hour)
	}
	if c.Snapshot.Backend == "" {
		c.Snapshot.Backend = "file"
	}
	if c.Distributor.Backend == "" {
		c.Distributor.Backend = "memory"
	}
}

// envVarPattern matches ${VAR_NAME} or ${VAR_NAME:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultValue := ""
		if len(groups) >= 4 {
			defaultValue = groups[3]
		}
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks required fields for the selected backends.
func (c *Config) Validate() error {
	var errs []string
	switch c.Snapshot.Backend {
	case "relational":
		if c.Snapshot.DatabaseURL == "" {
			errs = append(errs, "snapshot.database_url is required for the relational backend")
		}
	case "file":
		if c.Snapshot.Directory == "" {
			errs = append(errs, "snapshot.directory is required for the file backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("snapshot.backend %q is not one of relational|file", c.Snapshot.Backend))
	}

	switch c.Distributor.Backend {
	case "azblob":
		if c.Distributor.ConnectionString == "" {
			errs = append(errs, "distributor.connection_string is required for the azblob backend")
		}
		if c.Distributor.Container == "" {
			errs = append(errs, "distributor.container is required for the azblob backend")
		}
	case "memory":
	default:
		errs = append(errs, fmt.Sprintf("distributor.backend %q is not one of azblob|memory", c.Distributor.Backend))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: invalid configuration: %v", errs)
	}
	return nil
}

// OrchestratorConfig converts the parsed YAML section into the real
// orchestrator.Config the batch runner consumes.
func (c *Config) OrchestratorConfig() orchestrator.Config {
	return orchestrator.Config{
		Concurrency:             c.Orchestrator.Concurrency,
		ProviderConcurrency:     c.Orchestrator.ProviderConcurrency,
		MaxConsecutiveFailures:  c.Orchestrator.MaxConsecutiveFailures,
		CircuitBreakerThreshold: c.Orchestrator.CircuitBreakerThreshold,
		TupleTimeout:            c.Orchestrator.TupleTimeout.Std(),
		BatchDeadline:           c.Orchestrator.BatchDeadline.Std(),
		InitialBackoff:          c.Orchestrator.InitialBackoff.Std(),
		MaxBackoff:              c.Orchestrator.MaxBackoff.Std(),
	}
}

// ValidatorConfig converts the parsed YAML section into the real
// validator.Config the cross-source/cardinality checks consume.
func (c *Config) ValidatorConfig() validator.Config {
	exceptions := make([]validator.JurisdictionException, 0, len(c.Validator.Exceptions))
	for _, e := range c.Validator.Exceptions {
		exceptions = append(exceptions, validator.JurisdictionException{
			Layer:        boundary.Type(e.Layer),
			Jurisdiction: e.Jurisdiction,
			Reason:       e.Reason,
		})
	}
	return validator.Config{
		CardinalityEpsilon:      c.Validator.CardinalityEpsilon,
		CrossSourceMinQuality:   c.Validator.CrossSourceMinQuality,
		CrossSourceHaltOnBreach: c.Validator.CrossSourceHaltOnBreach,
		Exceptions:              exceptions,
	}
}

// AuthorityConfig converts the nested YAML preference table into the
// authority.Config the resolver consumes, flattening jurisdiction -> layer
// -> source_name -> rank into authority.PreferenceKey entries.
func (c *Config) AuthorityConfig() authority.Config {
	ranks := make(map[authority.PreferenceKey]int)
	for jurisdiction, byLayer := range c.Authority.SourcePreferenceRank {
		for layer, bySource := range byLayer {
			for source, rank := range bySource {
				ranks[authority.PreferenceKey{
					Jurisdiction: jurisdiction,
					Layer:        boundary.Type(layer),
					SourceName:   source,
				}] = rank
			}
		}
	}
	return authority.Config{
		SourcePreferenceRank: ranks,
		FreshnessHalfLife:    c.Authority.FreshnessHalfLife.Std(),
	}
}

// ChangeCacheTTLPolicy converts the configured default TTL into the
// changedetector.TTLPolicy the Detector consults (spec §4.10). Per-layer
// schedules are an Open Question (see DESIGN.md); this applies the single
// configured default uniformly until a per-layer table is introduced.
func (c *Config) ChangeCacheTTLPolicy() changedetector.TTLPolicy {
	ttl := c.ChangeCache.DefaultTTL.Std()
	return func(boundary.Tuple) time.Duration { return ttl }
}
