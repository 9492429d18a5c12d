package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesItself(t *testing.T) {
	a := Default()
	b := Default()
	require.True(t, a.Equal(b), "Default() should equal itself")
}

func TestEqualDetectsMismatch(t *testing.T) {
	a := Default()
	b := Default()
	b.NumBands = a.NumBands + 1
	require.False(t, a.Equal(b), "configs with different NumBands should be unequal")
}

func TestEqualIgnoresDatabaseConfig(t *testing.T) {
	a := Default()
	b := Default()
	b.Database.PostgresDSN = "postgres://example"
	require.True(t, a.Equal(b), "Equal should ignore database connection settings")
}

func TestLoadFallsBackToDefaultWhenFileMissing(t *testing.T) {
	cfg, err := Load("/nonexistent/path/to/config.yaml")
	require.NoError(t, err)
	require.True(t, cfg.Equal(Default()), "expected fallback to Default() when file is missing")
}
