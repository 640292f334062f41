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

const showShortDesc string = "Print a stored conversation"

func newShowCmd() *cobra.Command {
	var markdown bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: showShortDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			return runShow(commandContext(cmd), cmd.OutOrStdout(), client, id, markdown)
		},
	}

	cmdenv.AddClientFlags(cmd)
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Render assistant replies as markdown")

	return cmd
}

func runShow(ctx context.Context, out io.Writer, client *panel.Client, id int64, markdown bool) error {
	conv, err := client.GetConversation(ctx, id)
	if err != nil {
		if panel.IsNotFound(err) {
			return fmt.Errorf("conversation %d not found", id)
		}
		return err
	}

	fields := []cliui.Field{{Key: "Conversation", Value: cliui.IDStyle.Render(fmt.Sprintf("#%d", conv.ID))}}
	if conv.Title != "" {
		fields = append(fields, cliui.Field{Key: "Title", Value: cliui.ValueStyle.Render(conv.Title)})
	}
	if !conv.UpdatedAt.IsZero() {
		fields = append(fields, cliui.Field{Key: "Updated", Value: cliui.DimStyle.Render(conv.UpdatedAt.Local().Format("2006-01-02 15:04"))})
	}
	fmt.Fprintln(out)
	cliui.Fields(out, fields...)
	fmt.Fprintln(out)

	for _, msg := range conv.Messages {
		content := msg.Content
		if markdown && msg.Role != "user" {
			if rendered, err := cliui.RenderMarkdown(content); err == nil {
				content = rendered
			}
		}
		fmt.Fprintf(out, "  %s\n%s\n\n", cliui.RoleStyle(msg.Role).Render(msg.Role), content)
	}

	return nil
}
