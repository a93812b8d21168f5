package whisper

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewBundledEngineRequiresModelPath(t *testing.T) {
	t.Parallel()

	_, err := NewBundledEngine(EngineConfig{Language: "en"}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "model path")
}

func TestResolveBundledEnginePathFindsLibexecSibling(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	binDir := filepath.Join(root, "bin")
	engineDir := filepath.Join(root, "libexec", "whisper")
	require.NoError(t, os.MkdirAll(binDir, 0o755))
	require.NoError(t, os.MkdirAll(engineDir, 0o755))

	voxwatch := filepath.Join(binDir, "voxwatch")
	require.NoError(t, os.WriteFile(voxwatch, []byte(""), 0o755))

	enginePath := filepath.Join(engineDir, engineBinaryName())
	require.NoError(t, os.WriteFile(enginePath, []byte(""), 0o755))

	resolved, err := ResolveBundledEnginePath(voxwatch)
	require.NoError(t, err)
	require.Equal(t, enginePath, resolved)
}

func TestResolveBundledEnginePathMissing(t *testing.T) {
	t.Parallel()

	voxwatch := filepath.Join(t.TempDir(), "bin", "voxwatch")
	require.NoError(t, os.MkdirAll(filepath.Dir(voxwatch), 0o755))
	require.NoError(t, os.WriteFile(voxwatch, []byte(""), 0o755))

	_, err := ResolveBundledEnginePath(voxwatch)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bundled whisper engine not found")
}

func TestResolveBundledEnginePathFindsPackagingPathForLocalDev(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	voxwatch := filepath.Join(root, "voxwatch")
	require.NoError(t, os.WriteFile(voxwatch, []byte(""), 0o755))

	targetDir := filepath.Join(root, "packaging", "whisper", fmt.Sprintf("%s_%s", runtime.GOOS, normalizeArch(runtime.GOARCH)))
	require.NoError(t, os.MkdirAll(targetDir, 0o755))
	enginePath := filepath.Join(targetDir, engineBinaryName())
	require.NoError(t, os.WriteFile(enginePath, []byte(""), 0o755))

	resolved, err := ResolveBundledEnginePath(voxwatch)
	require.NoError(t, err)
	require.Equal(t, enginePath, resolved)
}

func TestIsMissingSharedLibraryError(t *testing.T) {
	t.Parallel()

	require.True(t, isMissingSharedLibraryError("error while loading shared libraries: libwhisper.so.1: cannot open shared object file"))
	require.True(t, isMissingSharedLibraryError("dyld: Library not loaded: @rpath/libwhisper.dylib"))
	require.False(t, isMissingSharedLibraryError("some other runtime error"))
}

func TestIsIllegalInstructionError(t *testing.T) {
	t.Parallel()

	require.True(t, isIllegalInstructionError("signal: illegal instruction (core dumped)"))
	require.False(t, isIllegalInstructionError("some other runtime error"))
	require.False(t, isIllegalInstructionError(""))
}
