// Package config provides the configuration schema, loader, and provider
// registry for the autocue teleprompter.
package config

import "log/slog"

// LogLevel controls log verbosity for the autocue server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level converts l to a [slog.Level]. Unrecognised values map to info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Theme selects the display colour scheme.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// IsValid reports whether t is a recognised theme.
func (t Theme) IsValid() bool {
	return t == ThemeDark || t == ThemeLight
}

// Config is the root configuration structure for autocue.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	ASR      ASRConfig      `yaml:"asr"`
	Display  DisplayConfig  `yaml:"display"`
	Tracking TrackingConfig `yaml:"tracking"`
	Worker   WorkerConfig   `yaml:"worker"`
}

// ServerConfig holds network and logging settings for the web server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., "127.0.0.1:8000").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// ASRConfig selects and configures the speech recognition backend.
type ASRConfig struct {
	// Provider selects the registered recognition backend (e.g., "vosk", "sherpa").
	Provider string `yaml:"provider"`

	// Model is the provider-scoped model identifier (e.g., "vosk-en-us-small").
	Model string `yaml:"model"`

	// Endpoint is the recognition server address for providers that stream
	// over the network (e.g., a vosk-server websocket URL). Empty uses the
	// provider's default.
	Endpoint string `yaml:"endpoint"`

	// ModelPath overrides the model cache location with an explicit directory.
	// Leave empty to use the provider's default cache.
	ModelPath string `yaml:"model_path"`

	// SampleRate is the capture sample rate in Hz.
	SampleRate int `yaml:"sample_rate"`

	// AudioDevice is the capture device index. Nil selects the system default.
	AudioDevice *int `yaml:"audio_device"`

	// ChunkMS is the audio chunk size in milliseconds.
	ChunkMS int `yaml:"chunk_ms"`
}

// DisplayConfig holds the teleprompter rendering settings pushed to clients.
// Field names follow the keys the web frontend uses, so the same shape is
// serialised to YAML on disk and JSON over the wire.
type DisplayConfig struct {
	FontSize        int     `yaml:"fontSize" json:"fontSize"`
	FontFamily      string  `yaml:"fontFamily" json:"fontFamily"`
	LineHeight      float64 `yaml:"lineHeight" json:"lineHeight"`
	PastLines       int     `yaml:"pastLines" json:"pastLines"`
	FutureLines     int     `yaml:"futureLines" json:"futureLines"`
	Theme           Theme   `yaml:"theme" json:"theme"`
	HighlightColor  string  `yaml:"highlightColor" json:"highlightColor"`
	TextColor       string  `yaml:"textColor" json:"textColor"`
	DimColor        string  `yaml:"dimColor" json:"dimColor"`
	BackgroundColor string  `yaml:"backgroundColor" json:"backgroundColor"`
}

// TrackingConfig holds the position tracker's thresholds.
type TrackingConfig struct {
	// WindowSize is the number of script words per validation window.
	WindowSize int `yaml:"window_size"`

	// MatchThreshold is the minimum fuzzy score (0-100) for accepting a
	// window match.
	MatchThreshold float64 `yaml:"match_threshold"`

	// BacktrackThreshold is how many words behind the furthest confirmed
	// position a match must fall to count as a restart.
	BacktrackThreshold int `yaml:"backtrack_threshold"`

	// MaxJumpDistance bounds how far a validation correction may move the
	// cursor, preventing jumps to similar text far away.
	MaxJumpDistance int `yaml:"max_jump_distance"`

	// MaxSkipDistance is how many script words optimistic matching may pass
	// over to find a match.
	MaxSkipDistance int `yaml:"max_skip_distance"`
}

// WorkerConfig holds the tracking worker's queue and throttle settings.
type WorkerConfig struct {
	// QueueSize is the capacity of the request and result queues.
	QueueSize int `yaml:"queue_size"`

	// ThrottleMS is the minimum interval between accepted partial
	// transcript updates, in milliseconds.
	ThrottleMS int `yaml:"throttle_ms"`
}
