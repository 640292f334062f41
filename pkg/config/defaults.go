package config

// Event stream providers.
const (
	EventStreamNop   = "nop"
	EventStreamKafka = "kafka"
)

const (
	defaultServerURL      = "http://localhost:8090"
	defaultFailureMessage = "Sorry, something went wrong. Please try again."

	defaultEventStreamProvider = EventStreamNop
	defaultEventStreamTopic    = "panelctl.chat.turns"

	defaultDevServerListen = ":8090"
	defaultDevServerModel  = "echo"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Server: ServerConfig{
			URL: defaultServerURL,
		},
		Chat: ChatConfig{
			FailureMessage: defaultFailureMessage,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
		DevServer: DevServerConfig{
			Listen: defaultDevServerListen,
			Model:  defaultDevServerModel,
		},
	}
}
