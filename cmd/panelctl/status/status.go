// Package statuscmder provides the status command for checking whether the
// panel's AI chat is usable.
package statuscmder

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/panelctl/cmd/panelctl/cmdenv"
	"github.com/papercomputeco/panelctl/pkg/cliui"
	"github.com/papercomputeco/panelctl/pkg/panel"
)

const statusLongDesc string = `Show whether the panel's AI chat is usable.

Fetches the panel's AI configuration the same way the chat widget does
before it opens. The chat is usable when the panel has an API key; a
missing or masked key means an administrator still has to configure it.

Exits non-zero when the chat is not usable, so it can gate scripts.

Examples:
  panelctl status
  panelctl status --server https://panel.example.com`

const statusShortDesc string = "Show whether the panel's AI chat is configured"

// ErrNotConfigured is returned when the panel reports no usable API key.
var ErrNotConfigured = errors.New("AI chat is not configured on the panel")

func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cmdenv.Load(cmd, cmdenv.ClientFlags...)
			if err != nil {
				return err
			}

			client, err := cmdenv.NewClient(cmd, cfg, cmdenv.NewLogger(cmd, cfg))
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runStatus(ctx, cmd.OutOrStdout(), client)
		},
	}

	cmdenv.AddClientFlags(cmd)

	return cmd
}

func runStatus(ctx context.Context, out io.Writer, client *panel.Client) error {
	var aiConfig *panel.AIConfig
	err := cliui.Step(out, "Fetching AI configuration", func() error {
		var err error
		aiConfig, err = client.GetAIConfig(ctx)
		return err
	})
	if err != nil {
		return err
	}

	chat := cliui.SuccessMark + " " + cliui.ValueStyle.Render("ready")
	if !aiConfig.Configured() {
		chat = cliui.FailMark + " " + cliui.WarnStyle.Render("not configured")
	}

	fmt.Fprintln(out)
	cliui.Fields(out,
		cliui.Field{Key: "Panel", Value: cliui.ValueStyle.Render(client.BaseURL())},
		cliui.Field{Key: "Base URL", Value: valueOrUnset(aiConfig.BaseURL)},
		cliui.Field{Key: "Model", Value: valueOrUnset(aiConfig.Model)},
		cliui.Field{Key: "Chat", Value: chat},
	)
	fmt.Fprintln(out)

	if !aiConfig.Configured() {
		return ErrNotConfigured
	}
	return nil
}

func valueOrUnset(v string) string {
	if v == "" {
		return cliui.DimStyle.Render("<not set>")
	}
	return cliui.ValueStyle.Render(v)
}
