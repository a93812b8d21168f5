package whisper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
)

// BundledEngine shells out to the whisper-cli binary shipped next to the
// voxwatch executable. One instance per worker; the model stays resident in
// the engine process only for the duration of a call, so concurrent engines
// never share state.
type BundledEngine struct {
	Executable string
	Config     EngineConfig
	Logger     *zap.Logger
}

func NewBundledEngine(cfg EngineConfig, logger *zap.Logger) (*BundledEngine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.ModelPath) == "" {
		return nil, errors.New("model path is required")
	}

	if override := strings.TrimSpace(os.Getenv("VOXWATCH_WHISPER_PATH")); override != "" {
		if err := ensureExecutable(override); err != nil {
			return nil, fmt.Errorf("VOXWATCH_WHISPER_PATH is not executable: %w", err)
		}
		return &BundledEngine{Executable: override, Config: cfg, Logger: logger}, nil
	}

	voxwatchExe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve voxwatch executable path: %w", err)
	}

	whisperExe, err := ResolveBundledEnginePath(voxwatchExe)
	if err != nil {
		return nil, err
	}

	return &BundledEngine{Executable: whisperExe, Config: cfg, Logger: logger}, nil
}

func ResolveBundledEnginePath(voxwatchExecutable string) (string, error) {
	for _, candidate := range enginePathCandidates(voxwatchExecutable) {
		if err := ensureExecutable(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("bundled whisper engine not found near %s; reinstall voxwatch from an official release, expected at ../libexec/whisper/%s", voxwatchExecutable, engineBinaryName())
}

func enginePathCandidates(voxwatchExecutable string) []string {
	binDir := filepath.Dir(voxwatchExecutable)
	engineName := engineBinaryName()
	hostTarget := fmt.Sprintf("%s_%s", runtime.GOOS, normalizeArch(runtime.GOARCH))

	return []string{
		filepath.Join(binDir, "..", "libexec", "whisper", engineName),
		filepath.Join(binDir, "libexec", "whisper", engineName),
		filepath.Join(binDir, "packaging", "whisper", hostTarget, engineName),
		filepath.Join(binDir, engineName),
	}
}

func (b *BundledEngine) Transcribe(ctx context.Context, mediaPath string) (string, error) {
	if strings.TrimSpace(mediaPath) == "" {
		return "", errors.New("media path is required")
	}

	if err := ensureExecutable(b.Executable); err != nil {
		return "", fmt.Errorf("bundled whisper engine missing or not executable: %w", err)
	}

	outBase := filepath.Join(os.TempDir(), fmt.Sprintf("voxwatch-%d", time.Now().UnixNano()))
	txtOut := outBase + ".txt"

	args := []string{"-m", b.Config.ModelPath, "-f", mediaPath, "-nt", "-otxt", "-of", outBase}
	lang := strings.TrimSpace(b.Config.Language)
	if lang != "" && lang != "auto" {
		args = append(args, "-l", lang)
	}

	cmd := exec.CommandContext(ctx, b.Executable, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	b.Logger.Debug("running whisper engine", zap.String("engine", b.Executable), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		errText := strings.TrimSpace(stderr.String())
		if isMissingSharedLibraryError(errText) {
			return "", fmt.Errorf("bundled whisper engine at %s is missing required shared libraries (%s); reinstall voxwatch from an official release or rebuild whisper-cli with BUILD_SHARED_LIBS=OFF", b.Executable, errText)
		}
		if isIllegalInstructionError(errText) || isIllegalInstructionError(err.Error()) {
			return "", fmt.Errorf("bundled whisper engine crashed with an illegal CPU instruction; " +
				"your CPU may lack required instruction set extensions; " +
				"set VOXWATCH_WHISPER_PATH to a whisper-cli binary built for your CPU")
		}
		return "", fmt.Errorf("whisper transcribe failed: %w (%s)", err, errText)
	}

	defer os.Remove(txtOut)
	content, err := os.ReadFile(txtOut)
	if err != nil {
		return "", fmt.Errorf("read whisper output: %w", err)
	}

	return strings.TrimSpace(string(content)), nil
}

func engineBinaryName() string {
	if runtime.GOOS == "windows" {
		return "whisper-cli.exe"
	}
	return "whisper-cli"
}

func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}

func isMissingSharedLibraryError(stderr string) bool {
	value := strings.ToLower(strings.TrimSpace(stderr))
	if value == "" {
		return false
	}

	patterns := []string{
		"error while loading shared libraries",
		"cannot open shared object file",
		"dyld: library not loaded",
		"image not found",
	}

	for _, pattern := range patterns {
		if strings.Contains(value, pattern) {
			return true
		}
	}

	return false
}

func isIllegalInstructionError(stderr string) bool {
	return strings.Contains(strings.ToLower(stderr), "illegal instruction")
}

func normalizeArch(arch string) string {
	switch arch {
	case "x86_64":
		return "amd64"
	case "aarch64":
		return "arm64"
	default:
		return arch
	}
}
