package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/panelctl/cmd/panelctl/cmdenv"
	"github.com/papercomputeco/panelctl/pkg/cliui"
	"github.com/papercomputeco/panelctl/pkg/config"
)

const setLongDesc string = `Set a configuration value.

Validates value for key and writes it to config.toml, keeping every
other setting.

Examples:
  panelctl config set server.url https://panel.example.com
  panelctl config set chat.flush_tail true
  panelctl config set eventstream.provider kafka`

const setShortDesc string = "Set a configuration value"

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "set <key> <value>",
		Short:             setShortDesc,
		Long:              setLongDesc,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeKey,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(cmd.OutOrStdout(), args[0], args[1], cmdenv.ConfigDir(cmd))
		},
	}
}

func runSet(out io.Writer, key, value, configDir string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfger.SetConfigValue(key, value); err != nil {
		return err
	}

	// Echo the stored form, which may be normalized (e.g. a trimmed URL).
	stored, err := cfger.GetConfigValue(key)
	if err != nil {
		return err
	}

	printTarget(out, cfger.GetTarget())
	fmt.Fprintf(out, "  %s Set %s = %s\n\n", cliui.SuccessMark, cliui.KeyStyle.Render(key), display(key, stored))
	return nil
}
