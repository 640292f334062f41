package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/panelctl/cmd/panelctl/cmdenv"
	"github.com/papercomputeco/panelctl/pkg/cliui"
	"github.com/papercomputeco/panelctl/pkg/config"
)

const getLongDesc string = `Get a configuration value.

Prints the value config.toml holds for key, or its default. --raw prints
only the value, unmasked, for use in scripts.

Examples:
  panelctl config get server.url
  panelctl config get --raw eventstream.topic`

const getShortDesc string = "Get a configuration value"

func newGetCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:               "get <key>",
		Short:             getShortDesc,
		Long:              getLongDesc,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeKey,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd.OutOrStdout(), args[0], cmdenv.ConfigDir(cmd), raw)
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print only the value")

	return cmd
}

func runGet(out io.Writer, key, configDir string, raw bool) error {
	if err := checkKey(key); err != nil {
		return err
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	value, err := cfger.GetConfigValue(key)
	if err != nil {
		return err
	}

	if raw {
		fmt.Fprintln(out, value)
		return nil
	}

	printTarget(out, cfger.GetTarget())
	cliui.Fields(out, cliui.Field{Key: key, Value: display(key, value)})
	fmt.Fprintln(out)
	return nil
}
