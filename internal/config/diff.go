package config

// ConfigDiff describes what changed between two configs, split by whether
// the change can be applied to a running server.
type ConfigDiff struct {
	// DisplayChanged means the frontend display settings differ; connected
	// clients need a settings push.
	DisplayChanged bool

	// TrackingChanged means the tracker thresholds differ; the engine must
	// be rebuilt at the current position.
	TrackingChanged bool

	// LogLevelChanged means the log verbosity differs.
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// RestartRequired means a field changed that cannot be hot-reloaded
	// (listen address, TLS, or the ASR backend).
	RestartRequired bool
}

// Changed reports whether the diff contains any change at all.
func (d ConfigDiff) Changed() bool {
	return d.DisplayChanged || d.TrackingChanged || d.LogLevelChanged || d.RestartRequired
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Display != new.Display {
		d.DisplayChanged = true
	}
	if old.Tracking != new.Tracking {
		d.TrackingChanged = true
	}
	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Server.ListenAddr != new.Server.ListenAddr {
		d.RestartRequired = true
	}
	if !tlsEqual(old.Server.TLS, new.Server.TLS) {
		d.RestartRequired = true
	}
	if !asrEqual(old.ASR, new.ASR) {
		d.RestartRequired = true
	}

	return d
}

func tlsEqual(a, b *TLSConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// asrEqual compares ASR configs, treating the AudioDevice pointer by value.
func asrEqual(a, b ASRConfig) bool {
	if (a.AudioDevice == nil) != (b.AudioDevice == nil) {
		return false
	}
	if a.AudioDevice != nil && *a.AudioDevice != *b.AudioDevice {
		return false
	}
	a.AudioDevice, b.AudioDevice = nil, nil
	return a == b
}
