// Package authcmder provides the auth command for storing panel bearer
// tokens.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/panelctl/cmd/panelctl/cmdenv"
	"github.com/papercomputeco/panelctl/pkg/cliui"
	"github.com/papercomputeco/panelctl/pkg/config"
	"github.com/papercomputeco/panelctl/pkg/credentials"
)

const authLongDesc string = `Store the bearer token used to call the panel API.

Tokens are stored per panel URL in credentials.toml in the .panelctl/
directory. A token passed with --token, PANELCTL_SERVER_TOKEN or the
server.token config key takes precedence over the stored one.

panelctl does not log in for you: create an API token in the panel and
paste it here.

Examples:
  panelctl auth                                 Prompt for the token of the configured panel
  panelctl auth --server https://panel.example  Prompt for the token of another panel
  panelctl auth --list                          List panels with stored tokens
  panelctl auth --remove https://panel.example  Remove a stored token
  echo $TOKEN | panelctl auth                   Pipe the token from stdin`

const authShortDesc string = "Store the panel API token"

type authCommander struct {
	server string
	list   bool
	remove string

	in  io.Reader
	out io.Writer
}

func NewAuthCmd() *cobra.Command {
	cmder := &authCommander{}

	cmd := &cobra.Command{
		Use:   "auth",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			configDir := cmdenv.ConfigDir(cmd)

			switch {
			case cmder.list:
				return cmder.runList(configDir)
			case cmder.remove != "":
				return cmder.runRemove(configDir)
			}

			cfg, err := cmdenv.Load(cmd, config.FlagServer)
			if err != nil {
				return err
			}
			return cmder.runAuth(credentials.Normalize(cfg.Server.URL), configDir)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagServer, &cmder.server)
	cmd.Flags().BoolVar(&cmder.list, "list", false, "List panels with stored tokens")
	cmd.Flags().StringVar(&cmder.remove, "remove", "", "Remove the stored token for a panel URL")

	return cmd
}

func (c *authCommander) runAuth(server, configDir string) error {
	token, err := c.readToken(server)
	if err != nil {
		return err
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token cannot be empty")
	}

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.SetToken(server, token); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s Stored token for %s %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(server),
		cliui.DimStyle.Render("("+mgr.GetTarget()+")"),
	)
	return nil
}

func (c *authCommander) runList(configDir string) error {
	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	stored, err := mgr.List()
	if err != nil {
		return err
	}

	if len(stored) == 0 {
		fmt.Fprintf(c.out, "\n  %s No stored tokens.\n", cliui.DimStyle.Render("●"))
		fmt.Fprintf(c.out, "  Use 'panelctl auth' to store one.\n\n")
		return nil
	}

	fmt.Fprintf(c.out, "\n  %s\n\n", cliui.HeaderStyle.Render("Stored tokens"))
	for _, t := range stored {
		details := t.Hint
		if !t.SavedAt.IsZero() {
			details = strings.TrimSpace(details + "  saved " + t.SavedAt.Local().Format("2006-01-02 15:04"))
		}
		fmt.Fprintf(c.out, "  %s  %s  %s\n", cliui.SuccessMark, cliui.NameStyle.Render(t.Server), cliui.DimStyle.Render(details))
	}
	fmt.Fprintln(c.out)

	return nil
}

func (c *authCommander) runRemove(configDir string) error {
	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	removed, err := mgr.RemoveToken(c.remove)
	if err != nil {
		return err
	}
	if !removed {
		fmt.Fprintf(c.out, "\n  %s No token stored for %s.\n\n", cliui.DimStyle.Render("●"), cliui.NameStyle.Render(c.remove))
		return nil
	}

	fmt.Fprintf(c.out, "\n  %s Removed token for %s.\n\n", cliui.SuccessMark, cliui.NameStyle.Render(c.remove))
	return nil
}

// readToken reads a token from stdin. If stdin is not a terminal, it reads
// the first line. Otherwise, it prompts interactively with hidden input.
func (c *authCommander) readToken(server string) (string, error) {
	f, ok := c.in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		scanner := bufio.NewScanner(c.in)
		if scanner.Scan() {
			return scanner.Text(), nil
		}
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return "", errors.New("no input received on stdin")
	}

	fmt.Fprintf(c.out, "Enter API token for %s: ", server)

	tokenBytes, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(c.out) // newline after hidden input
	if err != nil {
		return "", fmt.Errorf("reading token: %w", err)
	}

	return string(tokenBytes), nil
}
