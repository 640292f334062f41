package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/panelctl/cmd/panelctl/cmdenv"
	"github.com/papercomputeco/panelctl/pkg/cliui"
	"github.com/papercomputeco/panelctl/pkg/config"
)

const listLongDesc string = `List all configuration values.

Shows every key with the value config.toml holds, or its default. The
server token is masked.

Examples:
  panelctl config list`

const listShortDesc string = "List all configuration values"

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd.OutOrStdout(), cmdenv.ConfigDir(cmd))
		},
	}
}

func runList(out io.Writer, configDir string) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	keys := config.ValidConfigKeys()
	rows := make([]cliui.Field, 0, len(keys))
	for _, key := range keys {
		value, err := cfger.GetConfigValue(key)
		if err != nil {
			return err
		}
		rows = append(rows, cliui.Field{Key: key, Value: display(key, value)})
	}

	printTarget(out, cfger.GetTarget())
	cliui.Fields(out, rows...)
	fmt.Fprintln(out)
	return nil
}
