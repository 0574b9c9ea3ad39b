// Package config loads the settings shared by the postal CLI and HTTP
// server.
//
// Sources are applied in order, later ones winning: built-in defaults, an
// optional YAML file, optional .env files, then the process environment.
package config

import (
	"bytes"
	"context"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/postal/data"
	"github.com/wippyai/postal/errors"
)

// Backends.
const (
	BackendWasm   = "wasm"
	BackendNative = "native"
)

// Log formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Environment variables read by Load.
const (
	EnvDataDir            = "LIBPOSTAL_DATA_DIR"
	EnvBackend            = "POSTAL_BACKEND"
	EnvWasmModule         = "POSTAL_WASM_MODULE"
	EnvParser             = "POSTAL_PARSER"
	EnvLanguageClassifier = "POSTAL_LANGUAGE_CLASSIFIER"
	EnvMemoryLimitPages   = "POSTAL_MEMORY_LIMIT_PAGES"
	EnvLogLevel           = "POSTAL_LOG_LEVEL"
	EnvLogFormat          = "POSTAL_LOG_FORMAT"
	EnvAddr               = "POSTAL_ADDR"
	EnvAutoDownload       = "POSTAL_AUTO_DOWNLOAD"
	EnvDataRoot           = "POSTAL_DATA_ROOT"
	EnvDataVersion        = "POSTAL_DATA_VERSION"
	EnvDataURL            = "POSTAL_DATA_URL"
)

// DefaultEnvFile is the .env file Load reads when it exists.
const DefaultEnvFile = ".env"

// Config is the top-level configuration.
type Config struct {
	// Backend selects the libpostal runtime: "wasm" or "native".
	Backend string `json:"backend" yaml:"backend"`

	// DataDir holds libpostal's trained models.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// WasmModule is the path of the wasm32-wasi libpostal build.
	WasmModule string `json:"wasm_module" yaml:"wasm_module"`

	Parser             bool `json:"parser" yaml:"parser"`
	LanguageClassifier bool `json:"language_classifier" yaml:"language_classifier"`

	// MemoryLimitPages caps guest memory in 64KB pages.
	MemoryLimitPages uint32 `json:"memory_limit_pages" yaml:"memory_limit_pages"`

	Log    LogConfig    `json:"log" yaml:"log"`
	Server ServerConfig `json:"server" yaml:"server"`
	Data   DataConfig   `json:"data" yaml:"data"`
}

// DataConfig controls installing libpostal data when DataDir is unset.
type DataConfig struct {
	AutoDownload bool `json:"auto_download" yaml:"auto_download"`

	// Root is where installs go; empty means data.DefaultRoot.
	Root    string `json:"root" yaml:"root"`
	Version string `json:"version" yaml:"version"`
	BaseURL string `json:"base_url" yaml:"base_url"`
}

// LogConfig configures the zap logger built by NewLogger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr            string        `json:"addr" yaml:"addr"`
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend:            BackendWasm,
		WasmModule:         "libpostal.wasm",
		Parser:             true,
		LanguageClassifier: true,
		MemoryLimitPages:   32768,
		Log: LogConfig{
			Level:  "info",
			Format: FormatConsole,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Data: DataConfig{
			Version: data.DefaultVersion,
			BaseURL: data.DefaultBaseURL,
		},
	}
}

// Load builds a Config from the defaults, the YAML file at path (skipped
// when path is empty), envFiles (DefaultEnvFile when none are given;
// missing files are skipped) and the environment, then validates it.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}
	dotenv, err := readEnvFiles(envFiles)
	if err != nil {
		return nil, err
	}
	lookup := func(key string) (string, bool) {
		if v := os.Getenv(key); v != "" {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "read config file "+path)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse config file "+path)
	}
	return nil
}

// readEnvFiles merges the existing files among paths; earlier files win.
func readEnvFiles(paths []string) (map[string]string, error) {
	out := make(map[string]string)
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		values, err := godotenv.Read(p)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "read env file "+p)
		}
		for k, v := range values {
			if _, ok := out[k]; !ok {
				out[k] = v
			}
		}
	}
	return out, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := []struct {
		key string
		dst *string
	}{
		{EnvDataDir, &c.DataDir},
		{EnvBackend, &c.Backend},
		{EnvWasmModule, &c.WasmModule},
		{EnvLogLevel, &c.Log.Level},
		{EnvLogFormat, &c.Log.Format},
		{EnvAddr, &c.Server.Addr},
		{EnvDataRoot, &c.Data.Root},
		{EnvDataVersion, &c.Data.Version},
		{EnvDataURL, &c.Data.BaseURL},
	}
	for _, s := range strs {
		if v, ok := lookup(s.key); ok && v != "" {
			*s.dst = v
		}
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{EnvParser, &c.Parser},
		{EnvLanguageClassifier, &c.LanguageClassifier},
		{EnvAutoDownload, &c.Data.AutoDownload},
	}
	for _, b := range bools {
		v, ok := lookup(b.key)
		if !ok || v == "" {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return errors.InvalidInput(errors.PhaseConfig, []string{b.key}, "not a boolean: "+v)
		}
		*b.dst = parsed
	}

	if v, ok := lookup(EnvMemoryLimitPages); ok && v != "" {
		pages, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return errors.InvalidInput(errors.PhaseConfig, []string{EnvMemoryLimitPages}, "not a page count: "+v)
		}
		c.MemoryLimitPages = uint32(pages)
	}
	return nil
}

// maxMemoryPages is the wasm32 limit of 4GiB.
const maxMemoryPages = 65536

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendWasm:
		if c.WasmModule == "" {
			return errors.InvalidInput(errors.PhaseConfig, []string{"wasm_module"}, "required for the wasm backend")
		}
	case BackendNative:
	default:
		return errors.InvalidInput(errors.PhaseConfig, []string{"backend"},
			"unknown backend "+strconv.Quote(c.Backend)+", want wasm or native")
	}
	if c.MemoryLimitPages > maxMemoryPages {
		return errors.InvalidInput(errors.PhaseConfig, []string{"memory_limit_pages"},
			"exceeds the wasm32 limit of 65536 pages")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return errors.InvalidInput(errors.PhaseConfig, []string{"log", "level"}, err.Error())
	}
	if c.Log.Format != FormatJSON && c.Log.Format != FormatConsole {
		return errors.InvalidInput(errors.PhaseConfig, []string{"log", "format"},
			"unknown format "+strconv.Quote(c.Log.Format)+", want json or console")
	}
	if c.Server.Addr == "" {
		return errors.InvalidInput(errors.PhaseConfig, []string{"server", "addr"}, "required")
	}
	timeouts := []struct {
		name string
		d    time.Duration
	}{
		{"read_timeout", c.Server.ReadTimeout},
		{"write_timeout", c.Server.WriteTimeout},
		{"shutdown_timeout", c.Server.ShutdownTimeout},
	}
	for _, t := range timeouts {
		if t.d < 0 {
			return errors.InvalidInput(errors.PhaseConfig, []string{"server", t.name}, "must not be negative")
		}
	}
	if c.Data.AutoDownload {
		if c.Data.Version == "" {
			return errors.InvalidInput(errors.PhaseConfig, []string{"data", "version"}, "required for auto_download")
		}
		u, err := url.Parse(c.Data.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.InvalidInput(errors.PhaseConfig, []string{"data", "base_url"},
				"not an http(s) URL: "+strconv.Quote(c.Data.BaseURL))
		}
	}
	return nil
}

// Installer returns the data installer described by c.Data.
func (c *Config) Installer(logger *zap.Logger) (*data.Installer, error) {
	root := c.Data.Root
	if root == "" {
		var err error
		if root, err = data.DefaultRoot(); err != nil {
			return nil, err
		}
	}
	return data.New(root,
		data.WithVersion(c.Data.Version),
		data.WithBaseURL(c.Data.BaseURL),
		data.WithLogger(logger),
	), nil
}

// EnsureData installs libpostal data and points DataDir at it when DataDir
// is unset and auto_download is on. Otherwise it does nothing.
func (c *Config) EnsureData(ctx context.Context, logger *zap.Logger) error {
	if c.DataDir != "" || !c.Data.AutoDownload {
		return nil
	}
	inst, err := c.Installer(logger)
	if err != nil {
		return err
	}
	dir, err := inst.Ensure(ctx)
	if err != nil {
		return err
	}
	c.DataDir = dir
	return nil
}
