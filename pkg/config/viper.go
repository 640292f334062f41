package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/panelctl/pkg/dotdir"
)

// EnvPrefix prefixes every environment variable read by InitViper.
const EnvPrefix = "PANELCTL"

// InitViper layers the effective configuration, highest precedence first:
// flags bound later with BindRegisteredFlags, PANELCTL_* environment
// variables, config.toml in the resolved .panelctl/ directory, then
// NewDefaultConfig.
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()
	setViperDefaults(v)

	dir, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}
	if dir != "" {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(dir)

		err := v.ReadInConfig()
		if err != nil && !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes the effective configuration after flags, env and
// file have been merged.
func FromViper(v *viper.Viper) *Config {
	brokers := v.GetStringSlice("eventstream.brokers")
	if len(brokers) == 1 {
		// A single env or flag value may itself be comma separated.
		brokers = SplitList(brokers[0])
	}
	if len(brokers) == 0 {
		brokers = nil
	}

	return &Config{
		Version: v.GetInt("version"),
		Server: ServerConfig{
			URL:   strings.TrimRight(v.GetString("server.url"), "/"),
			Token: v.GetString("server.token"),
		},
		Chat: ChatConfig{
			FailureMessage: v.GetString("chat.failure_message"),
			FlushTail:      v.GetBool("chat.flush_tail"),
		},
		Log: LogConfig{
			JSON: v.GetBool("log.json"),
		},
		EventStream: EventStreamConfig{
			Provider: v.GetString("eventstream.provider"),
			Brokers:  brokers,
			Topic:    v.GetString("eventstream.topic"),
		},
		DevServer: DevServerConfig{
			Listen: v.GetString("devserver.listen"),
			Model:  v.GetString("devserver.model"),
		},
	}
}

// setViperDefaults seeds v from NewDefaultConfig through the key registry,
// so every settable key is also known to AutomaticEnv.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()
	v.SetDefault("version", d.Version)
	for _, k := range keys {
		v.SetDefault(k.name, k.get(d))
	}
}
