// Package devservercmder provides the devserver command, a local stand-in
// for the panel's AI chat backend.
package devservercmder

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/panelctl/cmd/panelctl/cmdenv"
	"github.com/papercomputeco/panelctl/pkg/config"
	"github.com/papercomputeco/panelctl/pkg/devserver"
	"github.com/papercomputeco/panelctl/pkg/logger"
)

const devserverLongDesc string = `Run a local stand-in for the panel's AI chat backend.

The dev server implements the /api/ai endpoints the chat widget uses and
keeps conversations in memory. Replies are scripted and streamed word by
word in the panel's framing:
  /fail            the request fails with HTTP 500
  /error <text>    a short reply followed by an error event
  anything else    echoed back

Examples:
  panelctl devserver
  panelctl devserver --listen :9000 --require-token dev
  panelctl devserver --unconfigured`

const devserverShortDesc string = "Run a local stand-in for the panel's AI chat backend"

const devAPIKey = "sk-panelctl-dev"

type devserverCommander struct {
	listen       string
	model        string
	token        string
	unconfigured bool
	wordDelay    time.Duration
	logJSON      bool

	logger *slog.Logger
}

func NewDevServerCmd() *cobra.Command {
	cmder := &devserverCommander{}

	cmd := &cobra.Command{
		Use:   "devserver",
		Short: devserverShortDesc,
		Long:  devserverLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cmdenv.Load(cmd, config.FlagDevServerListen, config.FlagDevServerModel, config.FlagLogJSON)
			if err != nil {
				return err
			}
			cmder.logger = cmdenv.NewLogger(cmd, cfg, logger.WithPrefix("devserver"))
			return cmder.run(cfg)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagDevServerListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagDevServerModel, &cmder.model)
	config.AddBoolFlag(cmd, config.Flags, config.FlagLogJSON, &cmder.logJSON)
	cmd.Flags().StringVar(&cmder.token, "require-token", "", "Bearer token every /api request must carry")
	cmd.Flags().BoolVar(&cmder.unconfigured, "unconfigured", false, "Report no API key so clients show the not-configured state")
	cmd.Flags().DurationVar(&cmder.wordDelay, "word-delay", 80*time.Millisecond, "Pause between streamed words")

	return cmd
}

func (c *devserverCommander) serverConfig(cfg *config.Config) devserver.Config {
	sc := devserver.Config{
		ListenAddr: cfg.DevServer.Listen,
		Token:      c.token,
		Model:      cfg.DevServer.Model,
		APIKey:     devAPIKey,
		WordDelay:  c.wordDelay,
	}
	if c.unconfigured {
		sc.APIKey = ""
	}
	return sc
}

func (c *devserverCommander) run(cfg *config.Config) error {
	server := devserver.NewServer(c.serverConfig(cfg), c.logger)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("dev server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return server.Shutdown()
	}
}
