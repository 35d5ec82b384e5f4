package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/lumina/internal/config"
)

func TestDownloadCommand_ParseFlags(t *testing.T) {
	cmd := NewDownloadCommand(&config.Config{})
	require.NoError(t, cmd.ParseFlags([]string{"-evict", "book-1"}))
	assert.Equal(t, "book-1", cmd.BookID)
	assert.True(t, cmd.Evict)

	err := NewDownloadCommand(&config.Config{}).ParseFlags(nil)
	assert.Error(t, err)
}

func TestDriveAuthCommand_RequiresClientID(t *testing.T) {
	cfg := &config.Config{}
	cfg.Drive.CallbackPort = 4200

	err := NewDriveAuthCommand(cfg).ParseFlags(nil)
	assert.ErrorContains(t, err, "GOOGLE_CLIENT_ID")

	cmd := NewDriveAuthCommand(cfg)
	require.NoError(t, cmd.ParseFlags([]string{"-client-id", "abc.apps.googleusercontent.com", "-port", "4300"}))
	assert.Equal(t, "abc.apps.googleusercontent.com", cfg.Drive.ClientID)
	assert.Equal(t, 4300, cmd.Port)
}

func TestSyncCommand_ParseFlags(t *testing.T) {
	cfg := &config.Config{}
	cmd := NewSyncCommand(cfg)
	require.NoError(t, cmd.ParseFlags([]string{"-device", "e-reader", "-timeout", "30s"}))
	assert.Equal(t, "e-reader", cmd.Device)
	assert.Equal(t, "30s", cfg.Sync.RoundTimeout.String())
}

func TestDownloadCommand_Export(t *testing.T) {
	dir := t.TempDir()
	cmd := &DownloadCommand{Output: filepath.Join(dir, "books")}
	open := func(id string) ([]byte, error) { return []byte("epub:" + id), nil }

	require.NoError(t, cmd.export(open, "b1", "Dune: Messiah.epub"))

	data, err := os.ReadFile(filepath.Join(dir, "books", "Dune Messiah.epub"))
	require.NoError(t, err)
	assert.Equal(t, "epub:b1", string(data))
}
