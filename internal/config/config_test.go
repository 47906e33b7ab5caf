package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/samber/oops"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suderio/scopedsl/internal/clothing"
)

func load(t *testing.T, yaml string) (*Config, error) {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	if yaml != "" {
		path := filepath.Join(t.TempDir(), "scopedsl.yaml")
		require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
		v.SetConfigFile(path)
		require.NoError(t, v.ReadInConfig())
	}
	return Load(v)
}

func TestDefaults(t *testing.T) {
	c, err := load(t, "")
	require.NoError(t, err)
	assert.Equal(t, 12, c.Limits.MaxDepth)
	assert.Equal(t, 4, c.Limits.MaxFilterNesting)
	assert.Equal(t, 2048, c.Limits.MaxExpressionLength)
	assert.Equal(t, 16, c.Limits.MaxUnionTerms)
	assert.Equal(t, 8, c.Limits.MaxGroupSize)
	assert.Equal(t, 10000, c.Limits.MaxCandidates)
	assert.Equal(t, 50, c.Limits.DefaultMaxCombinations)
	assert.Equal(t, 10000, c.Limits.HardCombinationLimit)
	assert.Equal(t, "cel", c.Predicate.Engine)
	assert.True(t, c.Cache.Enabled)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, "text", c.Log.Format)
	assert.Equal(t, []string{"."}, c.DataDirs)

	vocab, err := c.Vocabulary()
	require.NoError(t, err)
	assert.Same(t, clothing.Default(), vocab)
}

func TestFileOverrides(t *testing.T) {
	c, err := load(t, `
data_dirs: [content, more]
limits:
  max_depth: 6
  default_max_combinations: 20
predicate:
  engine: lua
cache:
  enabled: false
clothing:
  groups:
    footwear: [feet, legs]
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"content", "more"}, c.DataDirs)
	assert.Equal(t, 6, c.Limits.MaxDepth)
	assert.Equal(t, 4, c.Limits.MaxFilterNesting)
	assert.Equal(t, 20, c.Limits.DefaultMaxCombinations)
	assert.Equal(t, "lua", c.Predicate.Engine)
	assert.False(t, c.Cache.Enabled)

	vocab, err := c.Vocabulary()
	require.NoError(t, err)
	group, ok := vocab.Group("footwear")
	require.True(t, ok)
	assert.Equal(t, []string{"feet", "legs"}, group)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SCOPEDSL_LOG_LEVEL", "debug")
	t.Setenv("SCOPEDSL_LIMITS_MAX_UNION_TERMS", "3")
	c, err := load(t, "")
	require.NoError(t, err)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, 3, c.Limits.MaxUnionTerms)
}

func TestInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		key  string
	}{
		{"engine", "predicate: {engine: jsonlogic}", "predicate.engine"},
		{"format", "log: {format: xml}", "log.format"},
		{"combination caps", "limits: {default_max_combinations: 50, hard_combination_limit: 10}", "limits.default_max_combinations"},
		{"unknown slot in group", "clothing: {groups: {tails: [tail]}}", "clothing.groups"},
		{"group too large", "limits: {max_group_size: 1}\nclothing: {groups: {pair: [feet, legs]}}", "clothing.groups"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, tt.yaml)
			require.Error(t, err)
			oe, ok := oops.AsOops(err)
			require.True(t, ok)
			assert.Equal(t, "invalid", fmt.Sprint(oe.Code()))
			assert.Equal(t, tt.key, oe.Context()["key"])
		})
	}
}
