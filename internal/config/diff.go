package config

import "reflect"

// ConfigDiff describes what changed between two configs. Log level and
// endpointing tunables can be applied at runtime; everything else needs a
// restart because providers and devices are built once at startup.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	EndpointingChanged bool
	NewEndpointing     EndpointingConfig

	// RestartRequired is true when a field outside the hot-reloadable set
	// changed.
	RestartRequired bool
}

// Changed reports whether the diff contains any change at all.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.EndpointingChanged || d.RestartRequired
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Endpointing != new.Endpointing {
		d.EndpointingChanged = true
		d.NewEndpointing = new.Endpointing
	}

	if old.Server.ListenAddr != new.Server.ListenAddr ||
		!tlsEqual(old.Server.TLS, new.Server.TLS) ||
		!providersEqual(old.Providers, new.Providers) ||
		old.Audio != new.Audio ||
		old.Sounds != new.Sounds ||
		old.Storage != new.Storage ||
		old.Interaction != new.Interaction {
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

func providersEqual(a, b ProvidersConfig) bool {
	return entryEqual(a.LLM, b.LLM) &&
		entryEqual(a.STT, b.STT) &&
		entryEqual(a.TTS, b.TTS) &&
		entryEqual(a.Recognizer, b.Recognizer)
}

// entryEqual compares two provider entries, including their option maps.
// Option values may be nested maps, so DeepEqual does the comparison.
func entryEqual(a, b ProviderEntry) bool {
	if a.Name != b.Name || a.APIKey != b.APIKey || a.BaseURL != b.BaseURL || a.Model != b.Model {
		return false
	}
	return reflect.DeepEqual(a.Options, b.Options)
}
