package platform

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultModelDirForLinuxWithXDG(t *testing.T) {
	t.Parallel()

	dir, err := DefaultModelDirFor("linux", "/home/dev", "/tmp/xdg-data")
	require.NoError(t, err)
	require.Equal(t, "/tmp/xdg-data/voxwatch/models", dir)
}

func TestDefaultModelDirForLinuxWithoutXDG(t *testing.T) {
	t.Parallel()

	dir, err := DefaultModelDirFor("linux", "/home/dev", "")
	require.NoError(t, err)
	require.Equal(t, "/home/dev/.local/share/voxwatch/models", dir)
}

func TestDefaultModelDirForMacOS(t *testing.T) {
	t.Parallel()

	dir, err := DefaultModelDirFor("darwin", "/Users/dev", "")
	require.NoError(t, err)
	require.Equal(t, "/Users/dev/Library/Application Support/voxwatch/models", dir)
}

func TestDefaultModelDirForUnsupportedOS(t *testing.T) {
	t.Parallel()

	_, err := DefaultModelDirFor("windows", "/Users/dev", "")
	require.Error(t, err)
}

func TestDefaultConfigPathForLinuxWithXDG(t *testing.T) {
	t.Parallel()

	path, err := DefaultConfigPathFor("linux", "/home/dev", "/tmp/xdg-config")
	require.NoError(t, err)
	require.Equal(t, "/tmp/xdg-config/voxwatch/config.toml", path)
}

func TestDefaultConfigPathForLinuxWithoutXDG(t *testing.T) {
	t.Parallel()

	path, err := DefaultConfigPathFor("linux", "/home/dev", "")
	require.NoError(t, err)
	require.Equal(t, "/home/dev/.config/voxwatch/config.toml", path)
}
