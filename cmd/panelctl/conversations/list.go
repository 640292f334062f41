package conversationscmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/panelctl/cmd/panelctl/cmdenv"
	"github.com/papercomputeco/panelctl/pkg/cliui"
	"github.com/papercomputeco/panelctl/pkg/panel"
	"github.com/papercomputeco/panelctl/pkg/utils"
)

const listShortDesc string = "List stored conversations, most recent first"

const titleWidth = 60

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			return runList(commandContext(cmd), cmd.OutOrStdout(), client)
		},
	}

	cmdenv.AddClientFlags(cmd)

	return cmd
}

func runList(ctx context.Context, out io.Writer, client *panel.Client) error {
	convs, err := client.ListConversations(ctx)
	if err != nil {
		return err
	}

	if len(convs) == 0 {
		fmt.Fprintf(out, "\n  %s No conversations yet.\n\n", cliui.DimStyle.Render("●"))
		return nil
	}

	fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render(fmt.Sprintf("Conversations (%d)", len(convs))))
	for _, conv := range convs {
		fmt.Fprintf(out, "  %s  %s  %s\n",
			cliui.IDStyle.Render(fmt.Sprintf("#%-6d", conv.ID)),
			cliui.DimStyle.Render(conv.UpdatedAt.Local().Format("2006-01-02 15:04")),
			cliui.ValueStyle.Render(utils.Truncate(conv.Title, titleWidth)),
		)
	}
	fmt.Fprintln(out)

	return nil
}
