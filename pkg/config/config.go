package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/panelctl/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

// Configer reads and writes config.toml in a resolved .panelctl/ directory.
type Configer struct {
	path string
}

// NewConfiger resolves the .panelctl/ directory (see dotdir.Manager.Target)
// and points at its config.toml. The file itself may not exist yet.
func NewConfiger(override string) (*Configer, error) {
	dir, err := dotdir.NewManager().Target(override)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return &Configer{}, nil
	}
	return &Configer{path: filepath.Join(dir, configFile)}, nil
}

func (c *Configer) GetTarget() string {
	return c.path
}

// LoadConfig reads config.toml over NewDefaultConfig, so keys missing from
// the file keep their defaults. A missing file yields the defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	cfg := NewDefaultConfig()
	if c.path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(c.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return cfg, nil
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := decode(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes cfg to config.toml, replacing the file atomically.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}
	if c.path == "" {
		return errors.New("cannot save config: no .panelctl directory")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return dotdir.WriteFile(c.path, buf.Bytes())
}

// SetConfigValue validates value for key and persists it, keeping every
// other setting in the file.
func (c *Configer) SetConfigValue(name string, value string) error {
	k, err := lookupKey(name)
	if err != nil {
		return err
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}
	if err := k.set(cfg, value); err != nil {
		return err
	}
	return c.SaveConfig(cfg)
}

// UnsetConfigValue puts key back to its default and persists the file.
func (c *Configer) UnsetConfigValue(name string) error {
	k, err := lookupKey(name)
	if err != nil {
		return err
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}
	if err := k.set(cfg, k.get(NewDefaultConfig())); err != nil {
		return err
	}
	return c.SaveConfig(cfg)
}

// GetConfigValue returns the effective value of key: the file's value, or
// the default when the file does not set it.
func (c *Configer) GetConfigValue(name string) (string, error) {
	k, err := lookupKey(name)
	if err != nil {
		return "", err
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}
	return k.get(cfg), nil
}

// Preset names.
const (
	PresetLocal = "local"
	PresetKafka = "kafka"
)

// ValidPresetNames returns the list of recognized preset names.
func ValidPresetNames() []string {
	return []string{PresetLocal, PresetKafka}
}

// PresetConfig returns a starting config for "panelctl init --preset".
//   - "local": talk to "panelctl devserver" on its default port
//   - "kafka": like local, publishing turn events to a local Kafka broker
func PresetConfig(name string) (*Config, error) {
	cfg := NewDefaultConfig()

	switch strings.ToLower(name) {
	case PresetLocal:
	case PresetKafka:
		cfg.EventStream.Provider = EventStreamKafka
		cfg.EventStream.Brokers = []string{"localhost:9092"}
	default:
		return nil, fmt.Errorf("unknown preset: %q (available: %s)", name, strings.Join(ValidPresetNames(), ", "))
	}
	return cfg, nil
}

// ParseConfigTOML parses raw TOML bytes into a Config with no defaults
// applied. It rejects config versions other than CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := decode(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config TOML: %w", err)
	}
	if cfg.Version != CurrentV {
		return fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}
	return nil
}
