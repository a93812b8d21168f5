package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

func DefaultModelDirFor(goos, homeDir, xdgDataHome string) (string, error) {
	dataDir, err := defaultDataDirFor(goos, homeDir, xdgDataHome)
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "models"), nil
}

func DefaultConfigPathFor(goos, homeDir, xdgConfigHome string) (string, error) {
	if homeDir == "" {
		return "", errors.New("home directory is empty")
	}

	switch goos {
	case "linux":
		if xdgConfigHome != "" {
			return filepath.Join(xdgConfigHome, "voxwatch", "config.toml"), nil
		}
		return filepath.Join(homeDir, ".config", "voxwatch", "config.toml"), nil
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", "voxwatch", "config.toml"), nil
	default:
		return "", fmt.Errorf("unsupported OS: %s", goos)
	}
}

func ResolveModelDir(override string) (string, error) {
	if override != "" {
		return filepath.Clean(override), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	return DefaultModelDirFor(runtime.GOOS, homeDir, os.Getenv("XDG_DATA_HOME"))
}

func ResolveConfigPath(override string) (string, error) {
	if override != "" {
		return filepath.Clean(override), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	return DefaultConfigPathFor(runtime.GOOS, homeDir, os.Getenv("XDG_CONFIG_HOME"))
}

func defaultDataDirFor(goos, homeDir, xdgDataHome string) (string, error) {
	if homeDir == "" {
		return "", errors.New("home directory is empty")
	}

	switch goos {
	case "linux":
		if xdgDataHome != "" {
			return filepath.Join(xdgDataHome, "voxwatch"), nil
		}
		return filepath.Join(homeDir, ".local", "share", "voxwatch"), nil
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", "voxwatch"), nil
	default:
		return "", fmt.Errorf("unsupported OS: %s", goos)
	}
}
