package config

import (
	"io"
	"log"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gossh "golang.org/x/crypto/ssh"
)

func discard() *log.Logger { return log.New(io.Discard, "", 0) }

func TestInitializeFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, InitializeFs(fs, "srv", discard()))

	cfg, err := LoadFs(fs, "srv")
	require.NoError(t, err)
	assert.Equal(t, "srv", cfg.Dir())
	assert.NoError(t, cfg.Validate())

	t.Run("PrivateKeyPem", func(t *testing.T) {
		keyPem, err := cfg.PrivateKeyPem()
		require.NoError(t, err)
		_, err = gossh.ParsePrivateKey(keyPem)
		assert.NoError(t, err, "host key must be usable by the SSH server")
	})

	t.Run("OpenEventLog", func(t *testing.T) {
		fd, err := cfg.OpenEventLog()
		require.NoError(t, err)
		require.NotNil(t, fd)
		fd.Close()
	})
}

func TestInitializeFsKeepsExisting(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "srv/config.yaml", []byte("motd: custom\nhistory_size: 10\n"), 0600))

	require.NoError(t, InitializeFs(fs, "srv", discard()))

	contents, err := afero.ReadFile(fs, "srv/config.yaml")
	require.NoError(t, err)
	assert.Contains(t, string(contents), "motd: custom")

	// Repeat runs keep the generated host key too.
	before, err := afero.ReadFile(fs, "srv/"+PrivateKeyName)
	require.NoError(t, err)
	require.NoError(t, InitializeFs(fs, "srv", discard()))
	after, err := afero.ReadFile(fs, "srv/"+PrivateKeyName)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestLoadFsRejectsUnknownFields(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "srv/config.yaml", []byte("history_size: 10\nbogus_field: 1\n"), 0600))

	_, err := LoadFs(fs, "srv")
	assert.Error(t, err)
}

func TestLoadFsAcceptsConfigFilePath(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, InitializeFs(fs, "srv", discard()))

	cfg, err := LoadFs(fs, "srv/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "srv", cfg.Dir())
}
