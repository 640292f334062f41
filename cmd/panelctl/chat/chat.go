// Package chatcmder provides the chat command: the panel's AI chat widget
// rendered in the terminal.
package chatcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/panelctl/cmd/panelctl/cmdenv"
	"github.com/papercomputeco/panelctl/pkg/chat"
	"github.com/papercomputeco/panelctl/pkg/config"
	"github.com/papercomputeco/panelctl/pkg/dotdir"
	"github.com/papercomputeco/panelctl/pkg/eventstream"
	"github.com/papercomputeco/panelctl/pkg/logger"
	"github.com/papercomputeco/panelctl/pkg/panel"
	"github.com/papercomputeco/panelctl/pkg/utils"
	"github.com/papercomputeco/panelctl/pkg/worker"
)

const chatLongDesc string = `Chat with the panel's AI assistant.

Messages are sent to the panel one at a time and the reply streams in as it
is generated. Conversations live on the panel: a new conversation gets its
ID from the panel when the first reply finishes.

On a terminal the chat opens a full-screen widget:
  enter     send the message
  esc       stop the reply that is streaming
  ctrl+n    start a new conversation
  ctrl+l    pick a stored conversation
  ctrl+c    quit

When stdin is not a terminal, or with --plain, the chat reads one message
per line and streams replies to stdout. Type /new for a new conversation,
/open <id> to continue a stored one and /exit to quit. Ctrl+C stops the
reply that is streaming.

Examples:
  panelctl chat
  panelctl chat --server https://panel.example.com
  panelctl chat --conversation 42
  panelctl chat --plain --markdown
  echo "What changed today?" | panelctl chat --plain`

const chatShortDesc string = "Chat with the panel's AI assistant"

// ErrNotConfigured is returned in plain mode when the panel has no usable AI
// configuration.
var ErrNotConfigured = errors.New("AI chat is not configured on the panel")

type chatCommander struct {
	configDir      string
	debug          bool
	plain          bool
	markdown       bool
	dumpStream     bool
	logFile        bool
	conversationID int64

	server         string
	token          string
	failureMessage string
	flushTail      bool
	logJSON        bool
	provider       string
	brokers        string
	topic          string

	cfg    *config.Config
	logger *slog.Logger
}

var chatFlags = []string{
	config.FlagServer,
	config.FlagToken,
	config.FlagFailureMessage,
	config.FlagFlushTail,
	config.FlagLogJSON,
	config.FlagEventStreamProvider,
	config.FlagEventStreamBrokers,
	config.FlagEventStreamTopic,
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cmdenv.Load(cmd, chatFlags...)
			if err != nil {
				return err
			}
			cmder.cfg = cfg
			cmder.configDir = cmdenv.ConfigDir(cmd)
			cmder.debug = cmdenv.Debug(cmd)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagServer, &cmder.server)
	config.AddStringFlag(cmd, config.Flags, config.FlagToken, &cmder.token)
	config.AddStringFlag(cmd, config.Flags, config.FlagFailureMessage, &cmder.failureMessage)
	config.AddBoolFlag(cmd, config.Flags, config.FlagFlushTail, &cmder.flushTail)
	config.AddBoolFlag(cmd, config.Flags, config.FlagLogJSON, &cmder.logJSON)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventStreamProvider, &cmder.provider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventStreamBrokers, &cmder.brokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventStreamTopic, &cmder.topic)

	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Line-based chat instead of the full-screen widget")
	cmd.Flags().BoolVar(&cmder.markdown, "markdown", false, "Plain mode: render each finished reply as markdown instead of streaming it")
	cmd.Flags().BoolVar(&cmder.dumpStream, "dump-stream", false, "Copy raw response bytes to .panelctl/dumps/ for diagnosis")
	cmd.Flags().BoolVar(&cmder.logFile, "log-file", false, "Write debug logs as JSON to .panelctl/logs/")
	cmd.Flags().Int64VarP(&cmder.conversationID, "conversation", "c", 0, "Continue a stored conversation")

	return cmd
}

func (c *chatCommander) run(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	tui := !c.plain && term.IsTerminal(int(os.Stdin.Fd()))
	logFile, err := c.setupLogging(cmd, tui)
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	client, err := cmdenv.NewClient(cmd, c.cfg, c.logger)
	if err != nil {
		return err
	}

	publisher, err := cmdenv.NewPublisher(c.cfg)
	if err != nil {
		return err
	}
	pool, err := worker.NewPool(&worker.Config{
		Publisher: publisher,
		Logger:    c.logger,
	})
	if err != nil {
		return fmt.Errorf("starting event workers: %w", err)
	}
	defer func() {
		if err := pool.Close(); err != nil {
			c.logger.Warn("closing event workers", "error", err)
		}
		stats := pool.Stats()
		c.logger.Debug("turn events",
			"published", stats.Published,
			"failed", stats.Failed,
			"dropped", stats.Dropped,
		)
	}()

	var dump io.Writer
	if c.dumpStream {
		f, err := dotdir.NewManager().CreateStreamDump(c.configDir, time.Now())
		if err != nil {
			return err
		}
		defer f.Close()
		c.logger.Info("dumping response streams", "path", f.Name())
		dump = f
	}

	sessionConfig := chat.Config{
		Backend:        client,
		FailureMessage: c.cfg.Chat.FailureMessage,
		FlushTail:      c.cfg.Chat.FlushTail,
		StreamDump:     dump,
		Events:         pool,
		Source: eventstream.EventSource{
			Panel:  client.BaseURL(),
			Client: "panelctl/" + utils.Version,
		},
		Logger: c.logger,
	}

	if !tui {
		return c.runPlain(ctx, client, sessionConfig, os.Stdin, os.Stdout)
	}
	return runChatTUI(ctx, client, sessionConfig, c.conversationID)
}

// setupLogging picks the log sinks. The full-screen widget owns the
// terminal, so with it only the --log-file file receives records. The
// returned file is nil without --log-file.
func (c *chatCommander) setupLogging(cmd *cobra.Command, tui bool) (*os.File, error) {
	var stderrLog, fileLog *slog.Logger
	if !tui {
		stderrLog = cmdenv.NewLogger(cmd, c.cfg)
	}

	var f *os.File
	if c.logFile {
		var err error
		f, err = dotdir.NewManager().CreateChatLog(c.configDir, time.Now())
		if err != nil {
			return nil, err
		}
		fileLog = logger.New(logger.WithJSON(true), logger.WithDebug(true), logger.WithWriter(f))
	}

	c.logger = logger.Multi(stderrLog, fileLog).With("component", "chat")
	return f, nil
}

// checkConfigured gates the chat on the panel's AI configuration.
func checkConfigured(ctx context.Context, client *panel.Client) (*panel.AIConfig, error) {
	aiConfig, err := client.GetAIConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("checking AI configuration: %w", err)
	}
	if !aiConfig.Configured() {
		return aiConfig, ErrNotConfigured
	}
	return aiConfig, nil
}
