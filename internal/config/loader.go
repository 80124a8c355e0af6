package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFilename is the config file name looked for in the working
// directory.
const DefaultConfigFilename = ".autocue.yaml"

// ValidProviderNames lists known ASR provider names.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = []string{"vosk", "sherpa", "mock"}

// Default returns the built-in configuration. Values loaded from a file are
// layered on top of these.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: "127.0.0.1:8000",
			LogLevel:   LogInfo,
		},
		ASR: ASRConfig{
			Provider:   "vosk",
			Model:      "vosk-en-us-small",
			SampleRate: 16000,
			ChunkMS:    100,
		},
		Display: DisplayConfig{
			FontSize:        48,
			FontFamily:      "Georgia, serif",
			LineHeight:      1.6,
			PastLines:       1,
			FutureLines:     8,
			Theme:           ThemeDark,
			HighlightColor:  "#FFD700",
			TextColor:       "#FFFFFF",
			DimColor:        "#666666",
			BackgroundColor: "#1a1a1a",
		},
		Tracking: TrackingConfig{
			WindowSize:         8,
			MatchThreshold:     65,
			BacktrackThreshold: 3,
			MaxJumpDistance:    50,
			MaxSkipDistance:    2,
		},
		Worker: WorkerConfig{
			QueueSize:  10,
			ThrottleMS: 50,
		},
	}
}

// Load reads the YAML configuration file at path, layered over [Default],
// and returns a validated [Config]. A missing file is not an error; the
// defaults are returned.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over the defaults and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, so that settings changed through the web
// UI survive a restart.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %q: %w", path, err)
	}
	return nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	if cfg.ASR.Provider != "" && !slices.Contains(ValidProviderNames, cfg.ASR.Provider) {
		slog.Warn("unknown ASR provider name — may be a typo or third-party provider",
			"name", cfg.ASR.Provider,
			"known", ValidProviderNames,
		)
	}
	if cfg.ASR.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("asr.sample_rate %d must be positive", cfg.ASR.SampleRate))
	}
	if cfg.ASR.ChunkMS <= 0 {
		errs = append(errs, fmt.Errorf("asr.chunk_ms %d must be positive", cfg.ASR.ChunkMS))
	}

	if cfg.Display.Theme != "" && !cfg.Display.Theme.IsValid() {
		errs = append(errs, fmt.Errorf("display.theme %q is invalid; valid values: dark, light", cfg.Display.Theme))
	}
	if cfg.Display.FontSize <= 0 {
		errs = append(errs, fmt.Errorf("display.fontSize %d must be positive", cfg.Display.FontSize))
	}
	if cfg.Display.PastLines < 0 {
		errs = append(errs, fmt.Errorf("display.pastLines %d must not be negative", cfg.Display.PastLines))
	}
	if cfg.Display.FutureLines < 0 {
		errs = append(errs, fmt.Errorf("display.futureLines %d must not be negative", cfg.Display.FutureLines))
	}

	if cfg.Tracking.WindowSize < 1 {
		errs = append(errs, fmt.Errorf("tracking.window_size %d must be at least 1", cfg.Tracking.WindowSize))
	}
	if cfg.Tracking.MatchThreshold < 0 || cfg.Tracking.MatchThreshold > 100 {
		errs = append(errs, fmt.Errorf("tracking.match_threshold %.1f is out of range [0, 100]", cfg.Tracking.MatchThreshold))
	}
	if cfg.Tracking.BacktrackThreshold < 0 {
		errs = append(errs, fmt.Errorf("tracking.backtrack_threshold %d must not be negative", cfg.Tracking.BacktrackThreshold))
	}
	if cfg.Tracking.MaxJumpDistance < 1 {
		errs = append(errs, fmt.Errorf("tracking.max_jump_distance %d must be at least 1", cfg.Tracking.MaxJumpDistance))
	}
	if cfg.Tracking.MaxSkipDistance < 0 {
		errs = append(errs, fmt.Errorf("tracking.max_skip_distance %d must not be negative", cfg.Tracking.MaxSkipDistance))
	}

	if cfg.Worker.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("worker.queue_size %d must be at least 1", cfg.Worker.QueueSize))
	}
	if cfg.Worker.ThrottleMS < 0 {
		errs = append(errs, fmt.Errorf("worker.throttle_ms %d must not be negative", cfg.Worker.ThrottleMS))
	}

	return errors.Join(errs...)
}
