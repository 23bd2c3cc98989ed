package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInit_RejectsBadLevel(t *testing.T) {
	err := Init("loud", "json", "stdout")
	assert.Error(t, err)
}

func TestInit_RejectsBadFormat(t *testing.T) {
	err := Init("info", "xml", "stdout")
	assert.Error(t, err)
}

func TestInit_WritesJSONToFile(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, Init("info", "json", path))

	Info("conversation saved", zap.String("conversation_id", "abc"))
	Debug("not written at info level")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"conversation saved"`)
	assert.Contains(t, string(data), `"conversation_id":"abc"`)
	assert.NotContains(t, string(data), "not written")
}

func TestDefaultLoggerIsUsable(t *testing.T) {
	assert.NotPanics(t, func() {
		Warn("before init")
		GetLogger().Info("component logger")
	})
}
