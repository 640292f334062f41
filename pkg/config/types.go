package config

// Config represents the persistent panelctl configuration stored as
// config.toml in the .panelctl/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Server      ServerConfig      `toml:"server"`
	Chat        ChatConfig        `toml:"chat"`
	Log         LogConfig         `toml:"log"`
	EventStream EventStreamConfig `toml:"eventstream"`
	DevServer   DevServerConfig   `toml:"devserver"`
}

// ServerConfig identifies the panel backend.
type ServerConfig struct {
	// URL is the panel base URL (scheme + host + optional path prefix).
	URL string `toml:"url,omitempty"`

	// Token is a bearer token. Prefer "panelctl auth", which keeps tokens
	// out of config.toml.
	Token string `toml:"token,omitempty"`
}

// ChatConfig holds chat widget settings.
type ChatConfig struct {
	// FailureMessage replaces a reply whose request failed.
	FailureMessage string `toml:"failure_message,omitempty"`

	// FlushTail keeps an unterminated last stream line instead of dropping it.
	FlushTail bool `toml:"flush_tail,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	JSON bool `toml:"json,omitempty"`
}

// EventStreamConfig configures where chat turn events are published.
type EventStreamConfig struct {
	// Provider is "nop" or "kafka".
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// DevServerConfig holds settings for the local stub backend.
type DevServerConfig struct {
	Listen string `toml:"listen,omitempty"`
	Model  string `toml:"model,omitempty"`
}
