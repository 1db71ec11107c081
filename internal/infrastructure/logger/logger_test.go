package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("Writes JSON to the log file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "askdocs.log")
		var console bytes.Buffer

		log, err := New(Options{File: file, Console: &console})
		require.NoError(t, err)
		log.Named("index").Info("passages stored")
		require.NoError(t, log.Sync())

		data, err := os.ReadFile(file)
		require.NoError(t, err)
		var entry map[string]any
		require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
		assert.Equal(t, "passages stored", entry["message"])
		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "index", entry["logger"])
		assert.Contains(t, console.String(), "passages stored")
	})

	t.Run("Level filters lower entries", func(t *testing.T) {
		var console bytes.Buffer

		log, err := New(Options{Level: "warn", Console: &console})
		require.NoError(t, err)
		log.Info("hidden")
		log.Warn("shown")

		assert.NotContains(t, console.String(), "hidden")
		assert.Contains(t, console.String(), "shown")
	})

	t.Run("Invalid level", func(t *testing.T) {
		_, err := New(Options{Level: "loud"})
		assert.Error(t, err)
	})

	t.Run("Production console is JSON", func(t *testing.T) {
		var console bytes.Buffer

		log, err := New(Options{Production: true, Console: &console})
		require.NoError(t, err)
		log.Info("ready")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(bytes.TrimSpace(console.Bytes()), &entry))
		assert.Equal(t, "ready", entry["message"])
	})
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
}
