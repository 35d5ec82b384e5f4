package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/lumina/internal/config"
)

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lumina.log")
	logger, closer := New(config.Logging{Level: "debug", File: path, MaxSizeMB: 1, JSON: true})

	logger.Debug().Str("book", "b1").Msg("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"book":"b1"`)
	assert.Contains(t, string(data), `"message":"hello"`)
	assert.Contains(t, string(data), `"app":"lumina"`)
}

func TestNew_LevelFallback(t *testing.T) {
	logger, closer := New(config.Logging{Level: "shouting"})
	defer closer.Close()
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())

	logger, closer = New(config.Logging{Level: "warn"})
	defer closer.Close()
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
}
