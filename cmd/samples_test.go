package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suderio/scopedsl/internal/action"
	"github.com/suderio/scopedsl/internal/config"
	"github.com/suderio/scopedsl/internal/parser"
	"github.com/suderio/scopedsl/internal/session"
)

func TestWorldInitSamples(t *testing.T) {
	dir := t.TempDir()
	rootCmd.SetArgs([]string{"world", "init", dir})
	require.NoError(t, rootCmd.Execute())
	for _, f := range sampleFiles {
		assert.FileExists(t, filepath.Join(dir, f.dst))
	}

	v := viper.New()
	config.SetDefaults(v)
	v.SetConfigFile(filepath.Join(dir, "scopedsl.yaml"))
	require.NoError(t, v.ReadInConfig())
	v.Set("data_dirs", []string{dir})
	cfg, err := config.Load(v)
	require.NoError(t, err)

	app, err := session.Load(cfg, "world", "core")
	require.NoError(t, err)
	defer app.Close()

	problems := action.Check(app.Catalog(), parser.New(parser.WithKeys(app.Engine().Vocabulary().IsKey)))
	assert.Empty(t, problems)

	results, err := app.Actions(context.Background(), "hero")
	require.NoError(t, err)
	byAction := make(map[string][]string)
	for _, c := range action.Candidates(results) {
		byAction[c.ActionID] = append(byAction[c.ActionID], c.Command)
	}
	assert.Equal(t, []string{"wait"}, byAction["core:wait"])
	assert.Equal(t, []string{"eat apple", "eat bread"}, byAction["core:eat"])
	assert.Len(t, byAction["core:give"], 8)
	assert.Equal(t, []string{"unlock oak chest with brass key"}, byAction["core:unlock"])
	assert.ElementsMatch(t, []string{
		"take off leather jacket", "take off jeans", "take off boots", "take off silver ring",
	}, byAction["clothing:remove"])
	assert.Equal(t, []string{"wash linen shirt"}, byAction["clothing:wash"])
}

func TestWorldInitKeepsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "scopedsl.yaml")
	require.NoError(t, os.WriteFile(existing, []byte("log: {level: debug}\n"), 0o644))

	rootCmd.SetArgs([]string{"world", "init", dir})
	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "log: {level: debug}\n", string(data))
	assert.FileExists(t, filepath.Join(dir, "worlds", "world.yaml"))
}
