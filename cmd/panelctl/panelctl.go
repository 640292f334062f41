// Package panelctlcmder is the root panelctl command.
package panelctlcmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/panelctl/cmd/panelctl/auth"
	chatcmder "github.com/papercomputeco/panelctl/cmd/panelctl/chat"
	configcmder "github.com/papercomputeco/panelctl/cmd/panelctl/config"
	conversationscmder "github.com/papercomputeco/panelctl/cmd/panelctl/conversations"
	devservercmder "github.com/papercomputeco/panelctl/cmd/panelctl/devserver"
	initcmder "github.com/papercomputeco/panelctl/cmd/panelctl/init"
	statuscmder "github.com/papercomputeco/panelctl/cmd/panelctl/status"
	versioncmder "github.com/papercomputeco/panelctl/cmd/version"
)

const panelctlLongDesc string = `panelctl is a terminal client for the admin panel's AI chat.

Chat with the panel's assistant, browse stored conversations and check
whether the chat is configured:
  panelctl chat                 Open the chat widget
  panelctl conversations list   List stored conversations
  panelctl status               Check the panel's AI configuration

Set up a panel with:
  panelctl init                 Create a local .panelctl/ directory
  panelctl auth                 Store the panel API token
  panelctl devserver            Run a local stand-in backend`

const panelctlShortDesc string = "panelctl - AI chat for the admin panel"

func NewPanelctlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "panelctl",
		Short:         panelctlShortDesc,
		Long:          panelctlLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .panelctl/ config directory")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(conversationscmder.NewConversationsCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(devservercmder.NewDevServerCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
