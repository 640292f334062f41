package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag describes one CLI flag that maps onto a config key. Commands look
// flags up by registry key so --server reads the same on chat, status and
// conversations.
type Flag struct {
	Name      string
	Shorthand string

	// ViperKey is the dotted config key the flag overrides.
	ViperKey    string
	Description string
}

// FlagSet maps registry keys to flags.
type FlagSet map[string]Flag

// Flag registry keys.
const (
	FlagServer              = "server"
	FlagToken               = "token"
	FlagFailureMessage      = "failure-message"
	FlagFlushTail           = "flush-tail"
	FlagLogJSON             = "log-json"
	FlagEventStreamProvider = "eventstream-provider"
	FlagEventStreamBrokers  = "eventstream-brokers"
	FlagEventStreamTopic    = "eventstream-topic"
	FlagDevServerListen     = "listen"
	FlagDevServerModel      = "model"
)

// Flags is the registry shared by every panelctl command.
var Flags = FlagSet{
	FlagServer:              {Name: "server", Shorthand: "s", ViperKey: "server.url", Description: "Panel base URL"},
	FlagToken:               {Name: "token", ViperKey: "server.token", Description: "Bearer token for the panel API"},
	FlagFailureMessage:      {Name: "failure-message", ViperKey: "chat.failure_message", Description: "Text shown in place of a failed reply"},
	FlagFlushTail:           {Name: "flush-tail", ViperKey: "chat.flush_tail", Description: "Keep an unterminated last stream line instead of dropping it"},
	FlagLogJSON:             {Name: "log-json", ViperKey: "log.json", Description: "Write logs as JSON"},
	FlagEventStreamProvider: {Name: "eventstream-provider", ViperKey: "eventstream.provider", Description: "Turn event publisher (nop, kafka)"},
	FlagEventStreamBrokers:  {Name: "eventstream-brokers", ViperKey: "eventstream.brokers", Description: "Comma-separated Kafka brokers for turn events"},
	FlagEventStreamTopic:    {Name: "eventstream-topic", ViperKey: "eventstream.topic", Description: "Kafka topic for turn events"},
	FlagDevServerListen:     {Name: "listen", Shorthand: "l", ViperKey: "devserver.listen", Description: "Address for the dev server to listen on"},
	FlagDevServerModel:      {Name: "model", ViperKey: "devserver.model", Description: "Model name reported by the dev server"},
}

// AddStringFlag registers a string flag from fs, defaulting to the config
// default for its key. Unknown registry keys are ignored.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	if f, ok := fs[key]; ok {
		cmd.Flags().StringVarP(target, f.Name, f.Shorthand, defaults().GetString(f.ViperKey), f.Description)
	}
}

// AddBoolFlag registers a bool flag from fs.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, key string, target *bool) {
	if f, ok := fs[key]; ok {
		cmd.Flags().BoolVarP(target, f.Name, f.Shorthand, defaults().GetBool(f.ViperKey), f.Description)
	}
}

// BindRegisteredFlags puts the named flags at the top of v's precedence
// chain. Only flags the user actually set override lower layers.
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, key := range registryKeys {
		def, ok := fs[key]
		if !ok {
			continue
		}
		if f := cmd.Flags().Lookup(def.Name); f != nil {
			_ = v.BindPFlag(def.ViperKey, f)
		}
	}
}

// defaults returns a viper instance holding only NewDefaultConfig values.
func defaults() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
}
