// Package cmdenv resolves the pieces every panelctl command needs: the
// effective configuration, a logger, the panel client and the turn event
// publisher.
package cmdenv

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/panelctl/pkg/config"
	"github.com/papercomputeco/panelctl/pkg/credentials"
	"github.com/papercomputeco/panelctl/pkg/eventstream"
	"github.com/papercomputeco/panelctl/pkg/eventstream/kafka"
	"github.com/papercomputeco/panelctl/pkg/eventstream/nop"
	"github.com/papercomputeco/panelctl/pkg/logger"
	"github.com/papercomputeco/panelctl/pkg/panel"
)

// ClientFlags are the registry keys of the flags shared by every command
// that talks to the panel.
var ClientFlags = []string{config.FlagServer, config.FlagToken, config.FlagLogJSON}

// AddClientFlags registers --server, --token and --log-json on cmd.
func AddClientFlags(cmd *cobra.Command) {
	var server, token string
	var logJSON bool
	config.AddStringFlag(cmd, config.Flags, config.FlagServer, &server)
	config.AddStringFlag(cmd, config.Flags, config.FlagToken, &token)
	config.AddBoolFlag(cmd, config.Flags, config.FlagLogJSON, &logJSON)
}

// ConfigDir returns the --config-dir override, or "" when unset.
func ConfigDir(cmd *cobra.Command) string {
	dir, _ := cmd.Flags().GetString("config-dir")
	return dir
}

// Debug returns the value of the persistent --debug flag.
func Debug(cmd *cobra.Command) bool {
	debug, _ := cmd.Flags().GetBool("debug")
	return debug
}

// Load merges flags, PANELCTL_ environment variables, config.toml and the
// defaults into the effective configuration. Only the flags named by keys
// take part.
func Load(cmd *cobra.Command, keys ...string) (*config.Config, error) {
	v, err := config.InitViper(ConfigDir(cmd))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, keys)
	return config.FromViper(v), nil
}

// NewLogger builds the command logger. Logs go to stderr so they never mix
// with streamed replies on stdout. opts are applied last.
func NewLogger(cmd *cobra.Command, cfg *config.Config, opts ...logger.Option) *slog.Logger {
	base := []logger.Option{
		logger.WithDebug(Debug(cmd)),
		logger.WithJSON(cfg.Log.JSON),
		logger.WithPretty(!cfg.Log.JSON),
		logger.WithWriter(os.Stderr),
	}
	return logger.New(append(base, opts...)...)
}

// ResolveToken returns the configured token, falling back to the one stored
// for the server by "panelctl auth".
func ResolveToken(cfg *config.Config, configDir string) (string, error) {
	creds, err := credentials.NewManager(configDir)
	if err != nil {
		return "", fmt.Errorf("loading credentials: %w", err)
	}

	token, err := creds.ResolveToken(cfg.Server.URL, cfg.Server.Token)
	if err != nil {
		return "", fmt.Errorf("loading credentials: %w", err)
	}
	return token, nil
}

// NewClient creates a panel client for the configured server.
func NewClient(cmd *cobra.Command, cfg *config.Config, log *slog.Logger) (*panel.Client, error) {
	token, err := ResolveToken(cfg, ConfigDir(cmd))
	if err != nil {
		return nil, err
	}

	client, err := panel.NewClient(cfg.Server.URL, token, panel.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("creating panel client: %w", err)
	}
	return client, nil
}

// NewPublisher creates the turn event publisher selected by
// eventstream.provider.
func NewPublisher(cfg *config.Config) (eventstream.Publisher, error) {
	switch cfg.EventStream.Provider {
	case "", config.EventStreamNop:
		return nop.NewPublisher(), nil
	case config.EventStreamKafka:
		pub, err := kafka.NewPublisher(kafka.Config{
			Brokers: cfg.EventStream.Brokers,
			Topic:   cfg.EventStream.Topic,
		})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		return pub, nil
	default:
		return nil, fmt.Errorf("unknown event stream provider: %q", cfg.EventStream.Provider)
	}
}
