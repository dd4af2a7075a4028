package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, BackendMemory, cfg.PersistBackend)
	require.Equal(t, 500, cfg.HistoryLen)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vush.yaml")
	cfg := Default()
	cfg.Env["GREETING"] = "hi"
	cfg.HistoryLen = 10
	cfg.PersistBackend = BackendSQLite
	cfg.PersistDSN = "/tmp/vush.db"
	cfg.Mounts = []MountEntry{{VirtualPath: "/host", HostPath: "/home/user", ReadOnly: true}}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Env["GREETING"], loaded.Env["GREETING"])
	require.Equal(t, cfg.HistoryLen, loaded.HistoryLen)
	require.Equal(t, cfg.PersistBackend, loaded.PersistBackend)
	require.Len(t, loaded.Mounts, 1)
	require.Equal(t, "/host", loaded.Mounts[0].VirtualPath)
}

func TestValidateRejectsSQLiteWithoutDSN(t *testing.T) {
	cfg := Default()
	cfg.PersistBackend = BackendSQLite
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := Default()
	cfg.PersistBackend = "bogus"
	require.Error(t, cfg.Validate())
}

func TestValidateAcceptsDefault(t *testing.T) {
	require.NoError(t, Default().Validate())
}
