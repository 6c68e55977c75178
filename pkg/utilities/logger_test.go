package utilities

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoggerConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_DEV", "1")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FILE", "/tmp/x.log")
	assert.Equal(t, Config{Level: "debug", Dev: true, File: "/tmp/x.log"}, ConfigFromEnv())

	t.Setenv("LOG_DEV", "")
	t.Setenv("LOG_FILE", "")
	assert.Equal(t, Config{Level: "info"}, ConfigFromEnv())
}

func TestLevelFromString(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, levelFromString("warning"))
	assert.Equal(t, zapcore.InfoLevel, levelFromString("verbose"))
}

func TestInit_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.log")
	lg, err := Init(Config{Level: "info", File: path})
	require.NoError(t, err)

	lg.Sugar().Infow("record appended", "product", "widget")
	lg.Sugar().Debugw("hidden")
	_ = lg.Sync()

	files, err := filepath.Glob(path + ".*")
	require.NoError(t, err)
	require.Len(t, files, 1)
	b, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"record appended"`)
	assert.Contains(t, string(b), `"product":"widget"`)
	assert.NotContains(t, string(b), "hidden")
}
