package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_WritesToStderrByDefault(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.True(t, cfg.WriteToStderr)
}

func TestDebugConfig_LowersLevel(t *testing.T) {
	assert.Equal(t, "debug", DebugConfig().Level)
}

func TestSetup_WritesStructuredJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.log")
	cfg := Config{Level: "info", FilePath: path, MaxSizeMB: 1, MaxFiles: 2, WriteToStderr: false}

	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)
	defer cleanup()

	logger.Info("training started", "field", "embedding", "k", 1024)
	cleanup()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
	assert.Equal(t, "training started", entry["msg"])
	assert.Equal(t, "embedding", entry["field"])
}

func TestParseLevel_UnknownFallsBackToInfo(t *testing.T) {
	assert.Equal(t, LevelFromString("info"), LevelFromString("nonsense"))
}
