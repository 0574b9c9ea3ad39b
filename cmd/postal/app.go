package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/postal"
	"github.com/wippyai/postal/config"
	"github.com/wippyai/postal/data"
	"github.com/wippyai/postal/guest"
	"github.com/wippyai/postal/instrument"
	"github.com/wippyai/postal/libpostal"
)

// opener turns a loaded configuration into a backend.
type opener func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (postal.Backend, error)

// app holds the state shared by every subcommand of one invocation.
type app struct {
	configPath string
	backend    string
	dataDir    string
	wasm       string
	jsonOut    bool
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
	open   opener
	client *postal.Client

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{
		open:   openBackend,
		logger: zap.NewNop(),
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}
}

// setup loads the configuration, applies flag overrides and builds the
// logger. It runs before every subcommand.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath, config.DefaultEnvFile)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = a.backend
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = a.dataDir
	}
	if flags.Changed("wasm") {
		cfg.WasmModule = a.wasm
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	postal.SetLogger(logger.Named("postal"))
	guest.SetLogger(logger.Named("guest"))
	libpostal.SetLogger(logger.Named("libpostal"))
	data.SetLogger(logger.Named("data"))
	return nil
}

// connect opens the configured backend on first use, installing data
// first when the configuration asks for it.
func (a *app) connect(ctx context.Context) (*postal.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	if err := a.cfg.EnsureData(ctx, a.logger.Named("data")); err != nil {
		return nil, err
	}
	b, err := a.open(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	a.client = postal.New(instrument.Wrap(b), postal.WithLogger(a.logger))
	return a.client, nil
}

func (a *app) close() error {
	var err error
	if a.client != nil {
		err = a.client.Close()
		a.client = nil
	}
	_ = a.logger.Sync()
	return err
}

// wantJSON reports whether output should be JSON lines. An explicit --json
// wins; otherwise JSON is used when stdout is a file or pipe.
func (a *app) wantJSON(cmd *cobra.Command) bool {
	if cmd.Flags().Changed("json") {
		return a.jsonOut
	}
	if f, ok := a.stdout.(*os.File); ok {
		return !term.IsTerminal(int(f.Fd()))
	}
	return false
}

// openBackend opens the backend selected by cfg.Backend.
func openBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (postal.Backend, error) {
	switch cfg.Backend {
	case config.BackendNative:
		return libpostal.Open(libpostal.Config{
			DataDir:            cfg.DataDir,
			Parser:             cfg.Parser,
			LanguageClassifier: cfg.LanguageClassifier,
		})
	case config.BackendWasm:
		logger.Debug("loading guest module", zap.String("path", cfg.WasmModule))
		b, err := guest.LoadFile(ctx, cfg.WasmModule, guest.Config{
			DataDir:            cfg.DataDir,
			Parser:             cfg.Parser,
			LanguageClassifier: cfg.LanguageClassifier,
			MemoryLimitPages:   cfg.MemoryLimitPages,
		})
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}
