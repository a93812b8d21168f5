package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fmueller/voxwatch/internal/config"
	"github.com/fmueller/voxwatch/internal/logging"
	"github.com/fmueller/voxwatch/internal/platform"
	"github.com/fmueller/voxwatch/internal/version"
	"github.com/fmueller/voxwatch/internal/worker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

type appState struct {
	configPath string
	verbose    bool
	jsonLogs   bool
	noProgress bool

	watchDir     string
	workers      int
	model        string
	modelDir     string
	language     string
	autoDownload bool

	cfg    config.Config
	logger *zap.Logger
	out    io.Writer

	newEngine    func(ctx context.Context) (worker.Engine, error)
	transcribeFn func(ctx context.Context, mediaPath string) (string, error)
}

func NewRootCmd() *cobra.Command {
	app := &appState{out: os.Stdout}
	app.newEngine = app.buildEngine
	app.transcribeFn = app.transcribeFile

	cmd := &cobra.Command{
		Use:           "voxwatch",
		Short:         "Watch a directory tree and transcribe media files as they appear",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.initialize(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runDaemon(cmd.Context())
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVar(&app.configPath, "config", "", "Path to the voxwatch config file")
	pf.BoolVar(&app.verbose, "verbose", false, "Enable verbose logs")
	pf.BoolVar(&app.jsonLogs, "json", false, "Enable JSON logging")
	pf.BoolVar(&app.noProgress, "no-progress", false, "Disable progress indicators")
	pf.StringVar(&app.watchDir, "watch-dir", "", "Directory tree to watch for media files")
	pf.IntVar(&app.workers, "workers", 0, "Number of transcription workers (capped at available CPUs)")
	pf.StringVar(&app.model, "model", "", "Model name or model file path")
	pf.StringVar(&app.modelDir, "model-dir", "", "Directory where models are stored")
	pf.StringVar(&app.language, "language", "", "Language code (auto|en|de|...) for transcription")
	pf.BoolVar(&app.autoDownload, "auto-download", true, "Automatically download missing models")

	cmd.AddCommand(newScanCmd(app))
	cmd.AddCommand(newPendingCmd(app))
	cmd.AddCommand(newTranscribeCmd(app))
	cmd.AddCommand(newSetupCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// initialize loads the config file and layers explicitly-set flags on top,
// then builds the logger. Runs for every command.
func (a *appState) initialize(cmd *cobra.Command) error {
	path, err := platform.ResolveConfigPath(a.configPath)
	if err != nil {
		return err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("watch-dir") {
		cfg.WatchDir = a.watchDir
	}
	if flags.Changed("workers") {
		cfg.Workers = a.workers
	}
	if flags.Changed("model") {
		cfg.Model = a.model
	}
	if flags.Changed("model-dir") {
		cfg.ModelDir = a.modelDir
	}
	if flags.Changed("language") {
		cfg.Language = a.language
	}
	if flags.Changed("json") {
		cfg.JSONLogs = a.jsonLogs
	}
	if flags.Changed("auto-download") {
		cfg.AutoDownload = a.autoDownload
	}
	cfg.Normalize()
	a.cfg = cfg

	logger, err := logging.New(logging.Options{
		Verbose:    a.verbose,
		JSON:       cfg.JSONLogs,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	a.logger = logger
	return nil
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) outWriter() io.Writer {
	if a.out == nil {
		return os.Stdout
	}
	return a.out
}

func (a *appState) progressEnabled() bool {
	if a.noProgress {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}
