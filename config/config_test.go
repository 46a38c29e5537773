package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"SIMILARITY_THRESHOLD", "PRICE_CEILING", "SOURCES", "SOURCE_TIMEOUT", "KAFKA_BROKERS"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	require.Equal(t, 0.8, cfg.SimilarityThreshold)
	require.Equal(t, 5500.0, cfg.PriceCeiling)
	require.Equal(t, AllSources, cfg.Sources)
	require.Equal(t, 5*time.Minute, cfg.SourceTimeout)
	require.Empty(t, cfg.KafkaBrokers)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SIMILARITY_THRESHOLD", "0.85")
	t.Setenv("PRICE_CEILING", "6000")
	t.Setenv("SOURCES", " agmarknet , ,commodityonline")
	t.Setenv("SOURCE_TIMEOUT", "90s")
	t.Setenv("POSTGRES_ENABLED", "true")
	t.Setenv("MAX_CONCURRENCY", "not-a-number")

	cfg := Load()
	require.Equal(t, 0.85, cfg.SimilarityThreshold)
	require.Equal(t, 6000.0, cfg.PriceCeiling)
	require.Equal(t, []string{"agmarknet", "commodityonline"}, cfg.Sources)
	require.Equal(t, 90*time.Second, cfg.SourceTimeout)
	require.True(t, cfg.PostgresEnabled)
	require.Equal(t, 3, cfg.MaxConcurrency)
}

func TestDSN(t *testing.T) {
	cfg := &Config{
		PostgresHost: "db", PostgresPort: "5433", PostgresUser: "u",
		PostgresPassword: "p", PostgresDB: "prices", PostgresSSLMode: "disable",
	}
	require.Equal(t, "host=db port=5433 user=u password=p dbname=prices sslmode=disable", cfg.DSN())
}

func TestLoadCatalogDefault(t *testing.T) {
	cat, err := LoadCatalog(&Config{})
	require.NoError(t, err)
	require.Len(t, cat.States, 28)
	require.Equal(t, "delhi", cat.Aliases["nct-of-delhi"])
	require.Equal(t, "andhra-pradesh", string(cat.CanonicalStates()[0]))
}

func TestLoadCatalogFileWithLocalOverride(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "catalog.json5")
	local := filepath.Join(dir, "catalog.local.json5")

	require.NoError(t, os.WriteFile(base, []byte(`{
		// trimmed catalog for a two-state run
		states: ["bihar", "delhi"],
		aliases: {"patna-city": "bihar"},
	}`), 0o644))
	require.NoError(t, os.WriteFile(local, []byte(`{
		aliases: {"azadpur-mandi": "delhi"},
		districts_file: "districts.json",
	}`), 0o644))

	cat, err := LoadCatalog(&Config{CatalogFile: base})
	require.NoError(t, err)
	require.Equal(t, []string{"bihar", "delhi"}, cat.States)
	require.Equal(t, "bihar", cat.Aliases["patna-city"])
	require.Equal(t, "delhi", cat.Aliases["azadpur-mandi"])
	// built-in aliases survive the merge
	require.Equal(t, "uttrakhand", cat.Aliases["uttarakhand"])
	require.Equal(t, "districts.json", cat.DistrictsFile)
}

func TestLoadCatalogMissingFile(t *testing.T) {
	_, err := LoadCatalog(&Config{CatalogFile: filepath.Join(t.TempDir(), "nope.json5")})
	require.Error(t, err)
}

func TestLoadDistrictsEmbedded(t *testing.T) {
	entries, err := LoadDistricts("")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	found := false
	for _, e := range entries {
		if e.Name == "West Bengal" {
			require.Contains(t, e.Districts, "North 24 Parganas")
			found = true
		}
	}
	require.True(t, found, "West Bengal should be in the embedded reference data")
}
