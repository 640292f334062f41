// Package conversationscmder provides the conversations command for
// browsing and deleting the chat conversations stored on the panel.
package conversationscmder

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/panelctl/cmd/panelctl/cmdenv"
	"github.com/papercomputeco/panelctl/pkg/panel"
)

const conversationsLongDesc string = `Manage the chat conversations stored on the panel.

Conversations are owned by the panel. Every chat creates one when its first
reply finishes; these subcommands list, print and delete them.

Examples:
  panelctl conversations list
  panelctl conversations show 42
  panelctl conversations delete 42`

const conversationsShortDesc string = "Manage stored chat conversations"

func NewConversationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   conversationsShortDesc,
		Long:    conversationsLongDesc,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newDeleteCmd())

	return cmd
}

// newClient builds the panel client from the command's flags and config.
func newClient(cmd *cobra.Command) (*panel.Client, error) {
	cfg, err := cmdenv.Load(cmd, cmdenv.ClientFlags...)
	if err != nil {
		return nil, err
	}
	return cmdenv.NewClient(cmd, cfg, cmdenv.NewLogger(cmd, cfg))
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid conversation id: %q", arg)
	}
	return id, nil
}
