package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/panelctl/cmd/panelctl/cmdenv"
	"github.com/papercomputeco/panelctl/pkg/cliui"
	"github.com/papercomputeco/panelctl/pkg/config"
)

const unsetLongDesc string = `Reset a configuration value to its default.

Examples:
  panelctl config unset devserver.listen
  panelctl config unset server.token`

func newUnsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "unset <key>",
		Short:             "Reset a configuration value to its default",
		Long:              unsetLongDesc,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeKey,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUnset(cmd.OutOrStdout(), args[0], cmdenv.ConfigDir(cmd))
		},
	}
}

func runUnset(out io.Writer, key, configDir string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfger.UnsetConfigValue(key); err != nil {
		return err
	}

	value, err := cfger.GetConfigValue(key)
	if err != nil {
		return err
	}

	printTarget(out, cfger.GetTarget())
	fmt.Fprintf(out, "  %s Reset %s to %s\n\n", cliui.SuccessMark, cliui.KeyStyle.Render(key), display(key, value))
	return nil
}
