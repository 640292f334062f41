// Package configcmder provides the config command for managing persistent
// panelctl configuration stored in the .panelctl/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/panelctl/pkg/cliui"
	"github.com/papercomputeco/panelctl/pkg/config"
)

const configLongDesc string = `Manage persistent panelctl configuration.

config.toml in the .panelctl/ directory supplies defaults for command
flags. Flags and PANELCTL_* environment variables override it.

Keys:
  server.url, server.token,
  chat.failure_message, chat.flush_tail,
  log.json,
  eventstream.provider, eventstream.brokers, eventstream.topic,
  devserver.listen, devserver.model

Examples:
  panelctl config set server.url https://panel.example.com
  panelctl config set eventstream.brokers kafka-1:9092,kafka-2:9092
  panelctl config get --raw server.url
  panelctl config unset devserver.listen
  panelctl config list`

const configShortDesc string = "Manage persistent panelctl configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newUnsetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

// checkKey rejects unknown keys before any file is touched, listing the
// valid ones.
func checkKey(key string) error {
	if config.IsValidConfigKey(key) {
		return nil
	}
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}

// completeKey completes the first positional argument with config keys.
func completeKey(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func printTarget(out io.Writer, target string) {
	if target == "" {
		fmt.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render("No .panelctl directory. Using defaults."))
		return
	}
	fmt.Fprintf(out, "\n  %s %s\n\n", cliui.KeyStyle.Render("Config file:"), cliui.DimStyle.Render(target))
}

// display renders a value for humans. Blank values read as <not set> and
// the token is masked.
func display(key, value string) string {
	switch {
	case value == "":
		return cliui.DimStyle.Render("<not set>")
	case key == "server.token":
		return cliui.ValueStyle.Render(cliui.MaskSecret(value))
	default:
		return cliui.ValueStyle.Render(value)
	}
}
