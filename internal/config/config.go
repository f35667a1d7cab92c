package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Audio       AudioConfig       `yaml:"audio"`
	Engine      EngineConfig      `yaml:"engine"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Hotkey      HotkeyConfig      `yaml:"hotkey"`
	Inject      InjectConfig      `yaml:"inject"`
	Store       StoreConfig       `yaml:"store"`
	Permissions PermissionsConfig `yaml:"permissions"`
	LogLevel    string            `yaml:"log_level"`
}

// AudioConfig holds audio capture settings.
type AudioConfig struct {
	SampleRate  uint32 `yaml:"sample_rate"`
	Channels    uint32 `yaml:"channels"`
	ChunkFrames uint32 `yaml:"chunk_frames"`
}

// EngineConfig holds speech recognition settings.
type EngineConfig struct {
	Locale    string `yaml:"locale"`
	ModelsDir string `yaml:"models_dir"`
}

// PipelineConfig selects which transcription pipeline runs and how
// conversion failures are handled.
type PipelineConfig struct {
	Selected          string `yaml:"selected"`           // "legacy" or "stream"
	ConversionFailure string `yaml:"conversion_failure"` // "drop" or "abort"
}

// HotkeyConfig holds hotkey-related settings.
type HotkeyConfig struct {
	RecordKeys []string `yaml:"record_keys"`
	SwitchKeys []string `yaml:"switch_keys"`
	Mode       string   `yaml:"mode"` // "hold" or "toggle"
}

// InjectConfig holds text injection settings for headless mode.
type InjectConfig struct {
	Enabled bool   `yaml:"enabled"`
	Method  string `yaml:"method"` // "type" or "paste"
}

// StoreConfig holds session history persistence settings.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// PermissionsConfig pre-answers permission prompts. Useful for
// headless runs where no UI is available to ask.
type PermissionsConfig struct {
	Microphone  bool `yaml:"microphone"`
	Recognition bool `yaml:"recognition"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "duoscribe")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	home, _ := os.UserHomeDir()
	share := filepath.Join(home, ".local", "share", "duoscribe")

	return &Config{
		Audio: AudioConfig{
			SampleRate:  48000,
			Channels:    1,
			ChunkFrames: 2048,
		},
		Engine: EngineConfig{
			Locale:    "en-US",
			ModelsDir: filepath.Join(share, "models"),
		},
		Pipeline: PipelineConfig{
			Selected:          "stream",
			ConversionFailure: "drop",
		},
		Hotkey: HotkeyConfig{
			RecordKeys: []string{"ctrl", "shift", "r"},
			SwitchKeys: []string{"ctrl", "shift", "p"},
			Mode:       "toggle",
		},
		Inject: InjectConfig{
			Enabled: false,
			Method:  "type",
		},
		Store: StoreConfig{
			Enabled: true,
			Path:    filepath.Join(share, "history.sqlite"),
		},
		Permissions: PermissionsConfig{
			Microphone:  true,
			Recognition: true,
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in paths is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Engine.ModelsDir = expandTilde(cfg.Engine.ModelsDir)
	cfg.Store.Path = expandTilde(cfg.Store.Path)

	return cfg, nil
}

// WriteDefault writes the default configuration to the default config
// path if no config file exists yet. It returns the path written, or
// an empty string if a config file was already present.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if path == "" {
		return "", fmt.Errorf("cannot determine config path")
	}

	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}

	header := []byte("# duoscribe configuration\n# Generated defaults. Edit as needed.\n\n")
	if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}

	return path, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.Audio.SampleRate == 0 {
		return fmt.Errorf("audio.sample_rate must be > 0")
	}

	switch c.Audio.Channels {
	case 1, 2:
	default:
		return fmt.Errorf("audio.channels must be 1 or 2, got %d", c.Audio.Channels)
	}

	if c.Audio.ChunkFrames == 0 {
		return fmt.Errorf("audio.chunk_frames must be > 0")
	}

	if c.Engine.Locale == "" {
		return fmt.Errorf("engine.locale must not be empty")
	}

	if c.Engine.ModelsDir == "" {
		return fmt.Errorf("engine.models_dir must not be empty")
	}

	switch c.Pipeline.Selected {
	case "legacy", "stream":
	default:
		return fmt.Errorf("pipeline.selected must be \"legacy\" or \"stream\", got %q", c.Pipeline.Selected)
	}

	switch c.Pipeline.ConversionFailure {
	case "drop", "abort":
	default:
		return fmt.Errorf("pipeline.conversion_failure must be \"drop\" or \"abort\", got %q", c.Pipeline.ConversionFailure)
	}

	if len(c.Hotkey.RecordKeys) == 0 {
		return fmt.Errorf("hotkey.record_keys must not be empty")
	}

	switch c.Hotkey.Mode {
	case "hold", "toggle":
	default:
		return fmt.Errorf("hotkey.mode must be \"hold\" or \"toggle\", got %q", c.Hotkey.Mode)
	}

	switch c.Inject.Method {
	case "type", "paste":
	default:
		return fmt.Errorf("inject.method must be \"type\" or \"paste\", got %q", c.Inject.Method)
	}

	if c.Store.Enabled && c.Store.Path == "" {
		return fmt.Errorf("store.path must not be empty when store is enabled")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// ParseLogLevel maps a config log level string to a slog.Level.
// Unknown values fall back to info.
func ParseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
