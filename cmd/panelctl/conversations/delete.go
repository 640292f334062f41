package conversationscmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/panelctl/cmd/panelctl/cmdenv"
	"github.com/papercomputeco/panelctl/pkg/cliui"
	"github.com/papercomputeco/panelctl/pkg/panel"
)

const deleteShortDesc string = "Delete a stored conversation"

func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   deleteShortDesc,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			return runDelete(commandContext(cmd), cmd.OutOrStdout(), client, id)
		},
	}

	cmdenv.AddClientFlags(cmd)

	return cmd
}

func runDelete(ctx context.Context, out io.Writer, client *panel.Client, id int64) error {
	return cliui.Step(out, fmt.Sprintf("Deleting conversation #%d", id), func() error {
		err := client.DeleteConversation(ctx, id)
		if panel.IsNotFound(err) {
			return fmt.Errorf("conversation %d not found", id)
		}
		return err
	})
}
