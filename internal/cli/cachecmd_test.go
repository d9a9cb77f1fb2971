package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qorder/internal/keycache"
)

// seedCache writes entries directly into the database a test config points
// at. Test configs always put the database next to the config file.
func seedCache(t *testing.T, cfgPath string, bitWidth int, entries map[string]uint64) {
	t.Helper()
	dbPath := filepath.Join(filepath.Dir(cfgPath), "qorder.db")
	store, err := keycache.Open(dbPath)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Save(context.Background(), bitWidth, entries))
}

func TestRunCacheStats_EmptyCache(t *testing.T) {
	cfgPath := writeConfig(t, "http://127.0.0.1:1", 10, "")

	opts := &CacheOptions{RootOptions: &RootOptions{Format: "text"}, Config: cfgPath}
	cmd, out, _ := newTestCommand()

	require.NoError(t, runCacheStats(opts, cmd))
	assert.Contains(t, out.String(), "0 cached keys")
}

func TestRunCacheStats_CountsByWidth(t *testing.T) {
	cfgPath := writeConfig(t, "http://127.0.0.1:1", 10, "")

	seedCache(t, cfgPath, 17, map[string]uint64{"aa": 1, "bb": 2, "cc": 3})
	seedCache(t, cfgPath, 28, map[string]uint64{"dd": 4})

	opts := &CacheOptions{RootOptions: &RootOptions{Format: "text"}, Config: cfgPath}
	cmd, out, _ := newTestCommand()

	require.NoError(t, runCacheStats(opts, cmd))
	assert.Contains(t, out.String(), "4 cached keys")
	assert.Contains(t, out.String(), "17-bit: 3")
	assert.Contains(t, out.String(), "28-bit: 1")
}

func TestRunCacheStats_JSONFormat(t *testing.T) {
	cfgPath := writeConfig(t, "http://127.0.0.1:1", 10, "")

	seedCache(t, cfgPath, 17, map[string]uint64{"aa": 1, "bb": 2})

	opts := &CacheOptions{RootOptions: &RootOptions{Format: "json"}, Config: cfgPath}
	cmd, out, _ := newTestCommand()

	require.NoError(t, runCacheStats(opts, cmd))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var stats cacheStats
	require.NoError(t, json.Unmarshal(raw, &stats))
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.ByWidth["17"])
}

func TestRunCacheStats_BadConfigIsCommandError(t *testing.T) {
	opts := &CacheOptions{
		RootOptions: &RootOptions{Format: "text"},
		Config:      filepath.Join(t.TempDir(), "absent.cue"),
	}
	cmd, _, _ := newTestCommand()

	err := runCacheStats(opts, cmd)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
