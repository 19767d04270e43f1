package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlagsCLIOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "opserver.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
host_ip = "10.0.0.5"
partitions = 16
`), 0o600))

	cfg := Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	err := ParseFlags(fs, &cfg, []string{"-config_file", path, "-partitions", "32"})
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5", cfg.HostIP) // from file, not overridden
	assert.Equal(t, 32, cfg.Partitions)     // CLI overrides file
}

func TestParseFlagsRequiresHostIP(t *testing.T) {
	cfg := Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	err := ParseFlags(fs, &cfg, nil)
	assert.Error(t, err)
}

func TestEffectiveTTLInheritsDataTTL(t *testing.T) {
	cfg := Default()
	cfg.AnalyticsDataTTL = 48
	cfg.AnalyticsFlowTTL = -1
	assert.Equal(t, cfg.EffectiveFlowTTL().Hours(), 48.0)

	cfg.AnalyticsFlowTTL = 2
	assert.Equal(t, cfg.EffectiveFlowTTL().Hours(), 2.0)
}
