package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shadowatlas/core/internal/authority"
	"github.com/shadowatlas/core/internal/boundary"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_AppliesDefaultsWhenFieldsOmitted(t *testing.T) {
	path := writeConfig(t, `
environment: production
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 4, cfg.Orchestrator.Concurrency)
	require.Equal(t, 3, cfg.Orchestrator.MaxConsecutiveFailures)
	require.Equal(t, 2*time.Minute, cfg.Orchestrator.TupleTimeout.Std())
	require.Equal(t, "file", cfg.Snapshot.Backend)
	require.Equal(t, "memory", cfg.Distributor.Backend)
}

func TestLoad_ParsesExplicitDurations(t *testing.T) {
	path := writeConfig(t, `
orchestrator:
  concurrency: 8
  tuple_timeout: 90s
  max_backoff: 1m30s
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 8, cfg.Orchestrator.Concurrency)
	require.Equal(t, 90*time.Second, cfg.Orchestrator.TupleTimeout.Std())
	require.Equal(t, 90*time.Second, cfg.Orchestrator.MaxBackoff.Std())
}

func TestLoad_SubstitutesEnvVars(t *testing.T) {
	require.NoError(t, os.Setenv("SHADOW_ATLAS_TEST_DSN", "postgres://example/db"))
	defer os.Unsetenv("SHADOW_ATLAS_TEST_DSN")

	path := writeConfig(t, `
snapshot:
  backend: relational
  database_url: ${SHADOW_ATLAS_TEST_DSN}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "postgres://example/db", cfg.Snapshot.DatabaseURL)
}

func TestLoad_SubstitutesEnvVarDefaultWhenUnset(t *testing.T) {
	os.Unsetenv("SHADOW_ATLAS_TEST_UNSET_VAR")
	path := writeConfig(t, `
snapshot:
  backend: file
  directory: ${SHADOW_ATLAS_TEST_UNSET_VAR:-/var/lib/shadow-atlas}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/var/lib/shadow-atlas", cfg.Snapshot.Directory)
}

func TestValidate_RejectsRelationalBackendWithoutDatabaseURL(t *testing.T) {
	cfg := &Config{Snapshot: SnapshotSettings{Backend: "relational"}, Distributor: DistributorSettings{Backend: "memory"}}
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "snapshot.database_url")
}

func TestValidate_RejectsAzblobBackendWithoutContainer(t *testing.T) {
	cfg := &Config{
		Snapshot:    SnapshotSettings{Backend: "file", Directory: "/tmp/x"},
		Distributor: DistributorSettings{Backend: "azblob", ConnectionString: "conn"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "distributor.container")
}

func TestValidate_AcceptsWellFormedFileAndMemoryConfig(t *testing.T) {
	cfg := &Config{
		Snapshot:    SnapshotSettings{Backend: "file", Directory: "/tmp/x"},
		Distributor: DistributorSettings{Backend: "memory"},
	}
	require.NoError(t, cfg.Validate())
}

func TestAuthorityConfig_FlattensNestedPreferenceTable(t *testing.T) {
	path := writeConfig(t, `
authority:
  source_preference_rank:
    US/56:
      county:
        census-tiger: 1
        state-mirror: 2
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	resolved := cfg.AuthorityConfig()
	require.Equal(t, 1, resolved.SourcePreferenceRank[authority.PreferenceKey{
		Jurisdiction: "US/56",
		Layer:        boundary.TypeCounty,
		SourceName:   "census-tiger",
	}])
	require.Equal(t, 2, resolved.SourcePreferenceRank[authority.PreferenceKey{
		Jurisdiction: "US/56",
		Layer:        boundary.TypeCounty,
		SourceName:   "state-mirror",
	}])
	// A jurisdiction/layer/source combination absent from the table carries
	// no preference, per spec §8 scenario 3.
	require.NotContains(t, resolved.SourcePreferenceRank, authority.PreferenceKey{
		Jurisdiction: "US/08",
		Layer:        boundary.TypeCounty,
		SourceName:   "census-tiger",
	})
}

func TestValidatorConfig_ConvertsExceptionsAndThresholds(t *testing.T) {
	path := writeConfig(t, `
validator:
  cardinality_epsilon: 0.1
  cross_source_min_quality: 0.8
  cross_source_halt_on_breach: true
  exceptions:
    - layer: school_district
      jurisdiction: US/48
      reason: overlapping dual districts in this metro area
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	resolved := cfg.ValidatorConfig()
	require.Equal(t, 0.1, resolved.CardinalityEpsilon)
	require.Equal(t, 0.8, resolved.CrossSourceMinQuality)
	require.True(t, resolved.CrossSourceHaltOnBreach)
	require.Len(t, resolved.Exceptions, 1)
	require.Equal(t, boundary.Type("school_district"), resolved.Exceptions[0].Layer)
	require.Equal(t, "US/48", resolved.Exceptions[0].Jurisdiction)
}

func TestOrchestratorConfig_CarriesDurationsAsStdDuration(t *testing.T) {
	path := writeConfig(t, `
orchestrator:
  concurrency: 6
  tuple_timeout: 45s
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	resolved := cfg.OrchestratorConfig()
	require.Equal(t, 6, resolved.Concurrency)
	require.Equal(t, 45*time.Second, resolved.TupleTimeout)
}
