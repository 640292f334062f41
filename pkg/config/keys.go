package config

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// configKey is one user-facing dotted config name with accessors on *Config.
type configKey struct {
	name string
	get  func(c *Config) string
	set  func(c *Config, v string) error
}

// keys lists every supported config key in TOML section order. "config list"
// and ValidConfigKeys print them in this order.
var keys = []configKey{
	{
		name: "server.url",
		get:  func(c *Config) string { return c.Server.URL },
		set: func(c *Config, v string) error {
			u, err := url.Parse(strings.TrimSpace(v))
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return fmt.Errorf("invalid value for server.url: %q (want http:// or https:// URL)", v)
			}
			c.Server.URL = strings.TrimRight(u.String(), "/")
			return nil
		},
	},
	stringKey("server.token", func(c *Config) *string { return &c.Server.Token }),
	stringKey("chat.failure_message", func(c *Config) *string { return &c.Chat.FailureMessage }),
	boolKey("chat.flush_tail", func(c *Config) *bool { return &c.Chat.FlushTail }),
	boolKey("log.json", func(c *Config) *bool { return &c.Log.JSON }),
	{
		name: "eventstream.provider",
		get:  func(c *Config) string { return c.EventStream.Provider },
		set: func(c *Config, v string) error {
			if v != EventStreamNop && v != EventStreamKafka {
				return fmt.Errorf("invalid value for eventstream.provider: %q (available: %s, %s)", v, EventStreamNop, EventStreamKafka)
			}
			c.EventStream.Provider = v
			return nil
		},
	},
	{
		name: "eventstream.brokers",
		get:  func(c *Config) string { return strings.Join(c.EventStream.Brokers, ",") },
		set:  func(c *Config, v string) error { c.EventStream.Brokers = SplitList(v); return nil },
	},
	stringKey("eventstream.topic", func(c *Config) *string { return &c.EventStream.Topic }),
	stringKey("devserver.listen", func(c *Config) *string { return &c.DevServer.Listen }),
	stringKey("devserver.model", func(c *Config) *string { return &c.DevServer.Model }),
}

func stringKey(name string, field func(c *Config) *string) configKey {
	return configKey{
		name: name,
		get:  func(c *Config) string { return *field(c) },
		set:  func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func boolKey(name string, field func(c *Config) *bool) configKey {
	return configKey{
		name: name,
		get:  func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

func lookupKey(name string) (configKey, error) {
	i := slices.IndexFunc(keys, func(k configKey) bool { return k.name == name })
	if i < 0 {
		return configKey{}, fmt.Errorf("unknown config key: %q", name)
	}
	return keys[i], nil
}

// ValidConfigKeys returns every supported key name in TOML section order.
func ValidConfigKeys() []string {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.name
	}
	return names
}

// IsValidConfigKey reports whether name is a supported configuration key.
func IsValidConfigKey(name string) bool {
	_, err := lookupKey(name)
	return err == nil
}

// SplitList splits a comma-separated value, dropping blanks.
func SplitList(v string) []string {
	var out []string
	for part := range strings.SplitSeq(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
